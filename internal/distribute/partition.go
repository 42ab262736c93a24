package distribute

import (
	"CaseReview/internal/reconcile"
	"CaseReview/internal/storage"
)

// Group is the slice of report rows owned by one person.
type Group struct {
	Key     string
	Display string
	Folder  string
	Rows    []reconcile.Row
}

type Partitions struct {
	Groups []Group
	// Unassigned counts rows whose owner is blank.
	Unassigned int
	// Skipped lists owners left out because they have no configured folder.
	Skipped []string
}

// Partitioner splits rows by owner. Overrides map an owner name, in any
// "Last, First" or "First Last" form, to a destination folder.
type Partitioner struct {
	Overrides           map[string]string
	BaseFolder          string
	RestrictToOverrides bool
}

type override struct {
	display string
	folder  string
}

// Partition groups rows by the folded last name of owner(row). Groups come
// out in first-seen order and keep the input row order.
func (p Partitioner) Partition(rows []reconcile.Row, owner func(reconcile.Row) string) Partitions {
	known := make(map[string]override, len(p.Overrides))
	for name, folder := range p.Overrides {
		person := reconcile.ParsePersonName(name)
		if person.LastKey() == "" {
			continue
		}
		if folder == "" {
			folder = storage.JoinPath(p.BaseFolder, person.Display())
		}
		known[person.LastKey()] = override{display: person.Display(), folder: folder}
	}

	var out Partitions
	index := map[string]int{}
	skipped := map[string]bool{}
	for _, r := range rows {
		person := reconcile.ParsePersonName(owner(r))
		key := person.LastKey()
		if key == "" {
			out.Unassigned++
			continue
		}
		if i, ok := index[key]; ok {
			out.Groups[i].Rows = append(out.Groups[i].Rows, r)
			continue
		}

		g := Group{Key: key, Display: person.Display()}
		if o, ok := known[key]; ok {
			g.Display, g.Folder = o.display, o.folder
		} else if p.RestrictToOverrides {
			if !skipped[key] {
				skipped[key] = true
				out.Skipped = append(out.Skipped, person.Display())
			}
			continue
		} else {
			g.Folder = storage.JoinPath(p.BaseFolder, g.Display)
		}
		g.Rows = []reconcile.Row{r}
		index[key] = len(out.Groups)
		out.Groups = append(out.Groups, g)
	}
	return out
}

// Partition is shorthand for an unrestricted Partitioner.
func Partition(rows []reconcile.Row, owner func(reconcile.Row) string, overrides map[string]string, baseFolder string) Partitions {
	return Partitioner{Overrides: overrides, BaseFolder: baseFolder}.Partition(rows, owner)
}

// ResponsibleAttorney is the default owner of a row.
func ResponsibleAttorney(r reconcile.Row) string {
	return r.ResponsibleAttorney
}
