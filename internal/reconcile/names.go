package reconcile

import (
	"strings"

	"golang.org/x/text/cases"
)

// PersonName is a name split into its family and given parts.
type PersonName struct {
	First string
	Last  string
}

// ParsePersonName accepts "Last, First" and "First Last" forms. With a comma
// the text before it is the last name; otherwise the final word is.
func ParsePersonName(raw string) PersonName {
	s := collapse(raw)
	if s == "" {
		return PersonName{}
	}
	if last, first, ok := strings.Cut(s, ","); ok {
		return PersonName{First: collapse(first), Last: collapse(last)}
	}
	words := strings.Fields(s)
	if len(words) == 1 {
		return PersonName{Last: words[0]}
	}
	return PersonName{
		First: strings.Join(words[:len(words)-1], " "),
		Last:  words[len(words)-1],
	}
}

// Display renders "Last, First", or just the last name when there is no
// given name.
func (p PersonName) Display() string {
	if p.First == "" {
		return p.Last
	}
	return p.Last + ", " + p.First
}

// Key is the case-folded "last|first" form used to match the same person or
// client across records.
func (p PersonName) Key() string {
	if p.Last == "" && p.First == "" {
		return ""
	}
	return fold(p.Last) + "|" + fold(p.First)
}

// LastKey is the case-folded last name.
func (p PersonName) LastKey() string {
	return fold(p.Last)
}

// NameKey is shorthand for ParsePersonName(raw).Key().
func NameKey(raw string) string {
	return ParsePersonName(raw).Key()
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
