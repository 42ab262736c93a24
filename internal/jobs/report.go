package jobs

import (
	"context"
	"fmt"
	"time"

	"CaseReview/internal/clio"
	"CaseReview/internal/config"
	"CaseReview/internal/distribute"
	"CaseReview/internal/reconcile"

	"go.uber.org/zap"
)

const (
	JobReport = "report"
	JobSync   = "sync"
)

// ReportSource is the read side of the Clio API used by the report job.
type ReportSource interface {
	FetchCustomFieldMeta(ctx context.Context) (clio.CustomFieldMeta, error)
	FetchOpenMatters(ctx context.Context, meta clio.CustomFieldMeta) ([]clio.Matter, error)
	FetchOutstandingBalances(ctx context.Context) ([]clio.ClientBalance, error)
	FetchBillableMatters(ctx context.Context) ([]clio.BillableMatter, error)
	FetchCycleHours(ctx context.Context, window clio.CycleWindow) (clio.CycleHours, error)
}

type Publisher interface {
	Distribute(ctx context.Context, rows []reconcile.Row, cycleLabel string) (distribute.Summary, error)
}

// ReportJob fetches the four Clio collections, reconciles them into one row
// per open matter and publishes the master and per-owner workbooks.
type ReportJob struct {
	source    ReportSource
	publisher Publisher
	cycle     config.CycleConfig
	opts      reconcile.Options
	now       func() time.Time
	log       *zap.Logger

	Window  clio.CycleWindow
	Rows    []reconcile.Row
	Summary distribute.Summary
}

func NewReportJob(source ReportSource, publisher Publisher, cycle config.CycleConfig, opts reconcile.Options, log *zap.Logger) *ReportJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportJob{
		source:    source,
		publisher: publisher,
		cycle:     cycle,
		opts:      opts,
		now:       time.Now,
		log:       log,
	}
}

func (j *ReportJob) Name() string {
	return JobReport
}

func (j *ReportJob) Run(ctx context.Context) error {
	window, err := ResolveCycle(j.cycle, j.now())
	if err != nil {
		return err
	}
	j.Window = window
	j.log.Info("billing cycle resolved", zap.String("label", window.Label()),
		zap.String("start", window.StartISO()), zap.String("end", window.EndISO()))

	meta, err := j.source.FetchCustomFieldMeta(ctx)
	if err != nil {
		return fmt.Errorf("fetch custom fields: %w", err)
	}
	matters, err := j.source.FetchOpenMatters(ctx, meta)
	if err != nil {
		return fmt.Errorf("fetch matters: %w", err)
	}
	balances, err := j.source.FetchOutstandingBalances(ctx)
	if err != nil {
		return fmt.Errorf("fetch outstanding balances: %w", err)
	}
	billable, err := j.source.FetchBillableMatters(ctx)
	if err != nil {
		return fmt.Errorf("fetch billable matters: %w", err)
	}
	hours, err := j.source.FetchCycleHours(ctx, window)
	if err != nil {
		return fmt.Errorf("fetch cycle hours: %w", err)
	}

	j.Rows = reconcile.Reconcile(reconcile.Input{
		Matters:    matters,
		Balances:   balances,
		Billable:   billable,
		CycleHours: hours,
	}, j.opts)
	j.log.Info("matters reconciled", zap.Int("matters", len(matters)), zap.Int("rows", len(j.Rows)),
		zap.Int("balances", len(balances)), zap.Int("billable", len(billable)))

	summary, err := j.publisher.Distribute(ctx, j.Rows, window.Label())
	j.Summary = summary
	if err != nil {
		return err
	}
	j.log.Info("[AUDIT] case review published",
		zap.String("master", summary.Master.Name), zap.Int("owner_files", len(summary.Owners)),
		zap.Int("unassigned", summary.Unassigned), zap.Strings("skipped", summary.Skipped))
	return nil
}

// ReconcileOptions maps the report settings onto reconciler options.
func ReconcileOptions(cfg config.ReportConfig) reconcile.Options {
	opts := reconcile.Options{Allocate: cfg.Allocate, UnbilledJoin: reconcile.UnbilledByCase}
	if cfg.UnbilledJoin == config.UnbilledJoinClient {
		opts.UnbilledJoin = reconcile.UnbilledByClient
	}
	return opts
}

// PageSpecs returns the default paging settings and the per-endpoint
// overrides from the YAML file.
func PageSpecs(cfg config.ClioConfig, file *config.File) (clio.PageSpec, map[string]clio.PageSpec, error) {
	defaults := clio.PageSpec{Limit: cfg.PageLimit, Cursor: clio.CursorNextLink, Strict: cfg.StrictPages}
	overrides := map[string]clio.PageSpec{}
	if file == nil {
		return defaults, overrides, nil
	}
	for name, ep := range file.Endpoints {
		style, err := clio.ParseCursorStyle(ep.Cursor)
		if err != nil {
			return defaults, nil, err
		}
		overrides[name] = clio.PageSpec{Limit: ep.PageSize, Cursor: style}
	}
	return defaults, overrides, nil
}
