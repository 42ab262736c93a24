package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"CaseReview/internal/clio"
	"CaseReview/internal/constants"
	"CaseReview/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type update struct {
	matterID string
	updates  []clio.CustomFieldUpdate
}

type fakeWriter struct {
	matters []clio.Matter
	failFor string
	calls   []update
}

func (f *fakeWriter) FetchCustomFieldMeta(context.Context) (clio.CustomFieldMeta, error) {
	return clio.CustomFieldMeta{
		"Main Paralegal": {ID: "10", Type: constants.PicklistType, Options: map[string]string{"101": "Ann Ng", "102": "Bob Ruiz"}},
		"Hearings":       {ID: "20", Type: "text_area"},
		"CR ID":          {ID: "30", Type: "text_line"},
	}, nil
}

func (f *fakeWriter) FetchOpenMatters(context.Context, clio.CustomFieldMeta) ([]clio.Matter, error) {
	return f.matters, nil
}

func (f *fakeWriter) UpdateMatterCustomFields(_ context.Context, matterID string, updates []clio.CustomFieldUpdate) error {
	f.calls = append(f.calls, update{matterID: matterID, updates: updates})
	if matterID == f.failFor {
		return errors.New("422 invalid value")
	}
	return nil
}

func syncMatters() []clio.Matter {
	return []clio.Matter{
		{
			ID: "1", DisplayNumber: "1001",
			CustomFields: map[string]string{"Main Paralegal": "Ann Ng", "Hearings": "none", "CR ID": "CR-1"},
			CustomFieldValues: []clio.CustomFieldValue{
				{ID: "v1", FieldID: "10", FieldName: "Main Paralegal", Text: "Ann Ng"},
				{ID: "v2", FieldID: "20", FieldName: "Hearings", Text: "none"},
				{ID: "v3", FieldID: "30", FieldName: "CR ID", Text: "CR-1"},
			},
		},
		{ID: "2", DisplayNumber: "1002", CustomFields: map[string]string{}},
	}
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", report.SheetName))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(report.SheetName, cell, &r))
	}
	path := filepath.Join(t.TempDir(), "edited.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func editedWorkbook(t *testing.T) string {
	return writeWorkbook(t, [][]any{
		{report.HeaderMatterNumber, report.HeaderClientName, "Main Paralegal", "Hearings", "CR ID"},
		{"1001", "Ann Lee", "bob ruiz", "Aug 1 status conference", "CR-1"},
		{"1002", "Tom Fry", "Carol Diaz", "", "CR-7"},
		{"9999", "Gone", "Ann Ng", "", ""},
	})
}

func TestSyncPatchesChangedFields(t *testing.T) {
	writer := &fakeWriter{matters: syncMatters()}
	core, logs := observer.New(zapcore.InfoLevel)
	job := NewSyncJob(writer, editedWorkbook(t), false, zap.New(core))

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "sync", job.Name())

	require.Len(t, writer.calls, 2)
	assert.Equal(t, "1", writer.calls[0].matterID)
	assert.Equal(t, []clio.CustomFieldUpdate{
		{ValueID: "v1", FieldID: "10", Value: json.Number("102")},
		{ValueID: "v2", FieldID: "20", Value: "Aug 1 status conference"},
	}, writer.calls[0].updates)

	assert.Equal(t, "2", writer.calls[1].matterID)
	assert.Equal(t, []clio.CustomFieldUpdate{{FieldID: "30", Value: "CR-7"}}, writer.calls[1].updates)

	assert.Equal(t, 3, job.Summary.Rows)
	assert.Equal(t, 2, job.Summary.Matched)
	assert.Equal(t, 2, job.Summary.Updated)
	assert.Equal(t, 1, job.Summary.Skipped)
	assert.Equal(t, []string{"9999"}, job.Summary.Unmatched)
	assert.Equal(t, 1, logs.FilterMessage("picklist option not found").Len())
	assert.Equal(t, 1, logs.FilterMessage("workbook row has no open matter").Len())
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	writer := &fakeWriter{matters: syncMatters()}
	core, logs := observer.New(zapcore.InfoLevel)
	job := NewSyncJob(writer, editedWorkbook(t), true, zap.New(core))

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, writer.calls)
	assert.Equal(t, 2, logs.FilterMessage("dry run, matter not updated").Len())
	assert.Zero(t, job.Summary.Updated)
}

func TestSyncContinuesPastFailedMatter(t *testing.T) {
	writer := &fakeWriter{matters: syncMatters(), failFor: "1"}
	job := NewSyncJob(writer, editedWorkbook(t), false, nil)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matter 1001: 422 invalid value")
	assert.Len(t, writer.calls, 2)
	assert.Equal(t, 1, job.Summary.Updated)
}

func TestSyncRequiresMatterNumberColumn(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"Client Name", "CR ID"}, {"Ann Lee", "CR-9"}})
	job := NewSyncJob(&fakeWriter{}, path, false, nil)

	assert.ErrorIs(t, job.Run(context.Background()), constants.ErrWorkbook)
}
