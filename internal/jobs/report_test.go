package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"CaseReview/internal/clio"
	"CaseReview/internal/config"
	"CaseReview/internal/distribute"
	"CaseReview/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	meta       clio.CustomFieldMeta
	matters    []clio.Matter
	balances   []clio.ClientBalance
	billable   []clio.BillableMatter
	hours      clio.CycleHours
	balanceErr error

	window  clio.CycleWindow
	metaArg clio.CustomFieldMeta
}

func (f *fakeSource) FetchCustomFieldMeta(context.Context) (clio.CustomFieldMeta, error) {
	return f.meta, nil
}

func (f *fakeSource) FetchOpenMatters(_ context.Context, meta clio.CustomFieldMeta) ([]clio.Matter, error) {
	f.metaArg = meta
	return f.matters, nil
}

func (f *fakeSource) FetchOutstandingBalances(context.Context) ([]clio.ClientBalance, error) {
	return f.balances, f.balanceErr
}

func (f *fakeSource) FetchBillableMatters(context.Context) ([]clio.BillableMatter, error) {
	return f.billable, nil
}

func (f *fakeSource) FetchCycleHours(_ context.Context, w clio.CycleWindow) (clio.CycleHours, error) {
	f.window = w
	return f.hours, nil
}

type fakePublisher struct {
	calls int
	rows  []reconcile.Row
	label string
	err   error
}

func (p *fakePublisher) Distribute(_ context.Context, rows []reconcile.Row, label string) (distribute.Summary, error) {
	p.calls++
	p.rows, p.label = rows, label
	return distribute.Summary{Master: distribute.Upload{Name: "master.xlsx", Rows: len(rows)}}, p.err
}

func reportSource() *fakeSource {
	return &fakeSource{
		meta: clio.CustomFieldMeta{"CR ID": {ID: "30", Type: "text_line"}},
		matters: []clio.Matter{
			{ID: "1", DisplayNumber: "1001", ClientID: "c1", ClientName: "Ann Lee", ResponsibleAttorney: "Craig Darling",
				AccountBalances: []any{map[string]any{"balance": "1000"}}},
			{ID: "2", DisplayNumber: "1002", ClientID: "c1", ClientName: "Ann Lee", ResponsibleAttorney: "Lily Huang",
				AccountBalances: []any{map[string]any{"balance": "50"}}},
		},
		balances: []clio.ClientBalance{{ClientID: "c1", ClientName: "Ann Lee", Outstanding: "400"}},
		billable: []clio.BillableMatter{
			{MatterID: "1", DisplayNumber: "1001", UnbilledAmount: "100"},
			{MatterID: "2", DisplayNumber: "1002", UnbilledAmount: "300"},
		},
		hours: clio.CycleHours{"1001": 2.5},
	}
}

func TestReportJobReconcilesAndPublishes(t *testing.T) {
	src := reportSource()
	pub := &fakePublisher{}
	job := NewReportJob(src, pub, config.CycleConfig{TZOffset: "-08:00"}, reconcile.DefaultOptions(), nil)
	job.now = func() time.Time { return time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, "report", job.Name())
	assert.Equal(t, "07/16/25 - 07/31/25", pub.label)
	assert.Equal(t, "2025-07-16T00:00:00-08:00", src.window.StartISO())
	assert.Equal(t, src.meta, src.metaArg)

	require.Len(t, pub.rows, 2)
	// trust 1000 - allocated 100 - unbilled 100
	assert.Equal(t, "1001", pub.rows[0].MatterNumber)
	assert.Equal(t, "800", pub.rows[0].NetBalance.String())
	assert.Equal(t, 2.5, pub.rows[0].CycleHours)
	// trust 50 - allocated 300 - unbilled 300
	assert.Equal(t, "-550", pub.rows[1].NetBalance.String())
	assert.Equal(t, "master.xlsx", job.Summary.Master.Name)
}

func TestReportJobStopsOnFetchError(t *testing.T) {
	src := reportSource()
	src.balanceErr = &clio.PageError{URL: "x", Status: 500}
	pub := &fakePublisher{}
	job := NewReportJob(src, pub, config.CycleConfig{StartDate: "2025-07-01", EndDate: "2025-07-15"}, reconcile.DefaultOptions(), nil)

	err := job.Run(context.Background())
	var pageErr *clio.PageError
	require.True(t, errors.As(err, &pageErr))
	assert.Zero(t, pub.calls)
}

func TestReportJobReturnsPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("upload refused")}
	job := NewReportJob(reportSource(), pub, config.CycleConfig{StartDate: "2025-07-01", EndDate: "2025-07-15"}, reconcile.DefaultOptions(), nil)

	assert.EqualError(t, job.Run(context.Background()), "upload refused")
	assert.Equal(t, 1, pub.calls)
}

func TestReconcileOptions(t *testing.T) {
	opts := ReconcileOptions(config.ReportConfig{Allocate: false, UnbilledJoin: config.UnbilledJoinClient})
	assert.False(t, opts.Allocate)
	assert.Equal(t, reconcile.UnbilledByClient, opts.UnbilledJoin)

	opts = ReconcileOptions(config.ReportConfig{Allocate: true, UnbilledJoin: config.UnbilledJoinCase})
	assert.Equal(t, reconcile.DefaultOptions(), opts)
}

func TestPageSpecs(t *testing.T) {
	file := &config.File{Endpoints: map[string]config.Endpoint{
		clio.EndpointActivities: {PageSize: 50, Cursor: config.CursorToken},
	}}
	defaults, overrides, err := PageSpecs(config.ClioConfig{PageLimit: 200, StrictPages: true}, file)
	require.NoError(t, err)

	assert.Equal(t, clio.PageSpec{Limit: 200, Cursor: clio.CursorNextLink, Strict: true}, defaults)
	assert.Equal(t, clio.PageSpec{Limit: 50, Cursor: clio.CursorPageToken}, overrides[clio.EndpointActivities])

	_, _, err = PageSpecs(config.ClioConfig{}, &config.File{Endpoints: map[string]config.Endpoint{"matters": {Cursor: "offset"}}})
	assert.Error(t, err)
}
