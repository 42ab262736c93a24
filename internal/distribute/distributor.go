package distribute

import (
	"context"
	"fmt"
	"os"
	"time"

	"CaseReview/internal/constants"
	"CaseReview/internal/reconcile"
	"CaseReview/internal/report"
	"CaseReview/internal/storage"

	"go.uber.org/zap"
)

type Options struct {
	MasterFolder        string
	MasterTitle         string
	OwnerTitle          string
	OwnerBaseFolder     string
	ScratchDir          string
	Overrides           map[string]string
	RestrictToOverrides bool
	Owner               func(reconcile.Row) string
	Now                 func() time.Time
}

type Upload struct {
	Folder string
	Name   string
	Rows   int
}

type Summary struct {
	Master     Upload
	Owners     []Upload
	Unassigned int
	Skipped    []string
}

// Distributor renders the master report and one report per owner and hands
// them to a storage backend.
type Distributor struct {
	backend storage.Backend
	opts    Options
	log     *zap.Logger
}

func New(backend storage.Backend, opts Options, log *zap.Logger) *Distributor {
	if opts.Owner == nil {
		opts.Owner = ResponsibleAttorney
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Distributor{backend: backend, opts: opts, log: log}
}

// Distribute uploads the master file, then the per-owner files. The first
// failed upload stops the run; files already uploaded stay in place.
func (d *Distributor) Distribute(ctx context.Context, rows []reconcile.Row, cycleLabel string) (Summary, error) {
	prefix := d.opts.Now().Format(constants.FileDatePrefix)
	var summary Summary

	master := Upload{
		Folder: d.opts.MasterFolder,
		Name:   fmt.Sprintf("%s.%s.xlsx", prefix, d.opts.MasterTitle),
		Rows:   len(rows),
	}
	if err := d.publish(ctx, master, rows, cycleLabel); err != nil {
		return summary, err
	}
	summary.Master = master

	parts := Partitioner{
		Overrides:           d.opts.Overrides,
		BaseFolder:          d.opts.OwnerBaseFolder,
		RestrictToOverrides: d.opts.RestrictToOverrides,
	}.Partition(rows, d.opts.Owner)
	summary.Unassigned = parts.Unassigned
	summary.Skipped = parts.Skipped
	if parts.Unassigned > 0 {
		d.log.Warn("rows without an owner left out of owner files", zap.Int("rows", parts.Unassigned))
	}
	for _, name := range parts.Skipped {
		d.log.Info("owner has no configured folder, skipping", zap.String("owner", name))
	}

	for _, g := range parts.Groups {
		up := Upload{
			Folder: g.Folder,
			Name:   fmt.Sprintf("%s.%s - %s.xlsx", prefix, d.opts.OwnerTitle, g.Display),
			Rows:   len(g.Rows),
		}
		if err := d.publish(ctx, up, g.Rows, cycleLabel); err != nil {
			return summary, err
		}
		summary.Owners = append(summary.Owners, up)
	}
	return summary, nil
}

func (d *Distributor) publish(ctx context.Context, up Upload, rows []reconcile.Row, cycleLabel string) error {
	data, err := d.renderToScratch(rows, cycleLabel)
	if err != nil {
		return fmt.Errorf("render %s: %w", up.Name, err)
	}
	if err := d.backend.Upload(ctx, up.Folder, up.Name, data); err != nil {
		return fmt.Errorf("upload %s: %w", up.Name, err)
	}
	d.log.Info("report published",
		zap.String("backend", d.backend.Name()), zap.String("folder", up.Folder),
		zap.String("name", up.Name), zap.Int("rows", up.Rows))
	return nil
}

// renderToScratch renders the workbook, keeps a copy in the scratch dir while
// the upload is prepared and returns its bytes. The copy is always removed.
func (d *Distributor) renderToScratch(rows []reconcile.Row, cycleLabel string) ([]byte, error) {
	wb, err := report.Render(rows, cycleLabel)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	data, err := wb.Bytes()
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(d.opts.ScratchDir, "case_review-*.xlsx")
	if err != nil {
		return nil, err
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.log.Warn("could not remove scratch file", zap.String("path", path), zap.Error(err))
		}
	}()
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	d.log.Debug("workbook rendered", zap.String("path", path), zap.Int("rows", wb.Rows()), zap.Int("bytes", len(data)))
	return data, nil
}
