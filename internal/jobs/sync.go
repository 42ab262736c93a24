package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"CaseReview/internal/clio"
	"CaseReview/internal/constants"
	"CaseReview/internal/report"

	"go.uber.org/zap"
)

// MatterWriter is the slice of the Clio API the sync job needs.
type MatterWriter interface {
	FetchCustomFieldMeta(ctx context.Context) (clio.CustomFieldMeta, error)
	FetchOpenMatters(ctx context.Context, meta clio.CustomFieldMeta) ([]clio.Matter, error)
	UpdateMatterCustomFields(ctx context.Context, matterID string, updates []clio.CustomFieldUpdate) error
}

type SyncSummary struct {
	Rows      int
	Matched   int
	Updated   int
	Unmatched []string
	Skipped   int
}

// SyncJob pushes custom-field edits made in a report workbook back to Clio.
type SyncJob struct {
	api    MatterWriter
	path   string
	dryRun bool
	log    *zap.Logger

	Summary SyncSummary
}

func NewSyncJob(api MatterWriter, path string, dryRun bool, log *zap.Logger) *SyncJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncJob{api: api, path: path, dryRun: dryRun, log: log}
}

func (j *SyncJob) Name() string {
	return JobSync
}

// Run compares each row's custom-field cells with the live matter and patches
// the ones that changed. Blank cells are left alone. A failed matter does not
// stop the rest; all failures come back joined.
func (j *SyncJob) Run(ctx context.Context) error {
	sheet, err := report.ReadWorkbook(j.path)
	if err != nil {
		return err
	}
	if !sheet.Has(report.HeaderMatterNumber) {
		return fmt.Errorf("%w: "+constants.ErrMissingColumn, constants.ErrWorkbook, report.HeaderMatterNumber)
	}
	var editable []string
	for _, h := range report.CustomFieldHeaders {
		if sheet.Has(h) {
			editable = append(editable, h)
		}
	}

	meta, err := j.api.FetchCustomFieldMeta(ctx)
	if err != nil {
		return fmt.Errorf("fetch custom fields: %w", err)
	}
	matters, err := j.api.FetchOpenMatters(ctx, meta)
	if err != nil {
		return fmt.Errorf("fetch matters: %w", err)
	}
	byNumber := make(map[string]clio.Matter, len(matters))
	for _, m := range matters {
		byNumber[m.DisplayNumber] = m
	}

	j.Summary = SyncSummary{Rows: len(sheet.Records)}
	var errs []error
	for _, rec := range sheet.Records {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		number := rec[report.HeaderMatterNumber]
		m, ok := byNumber[number]
		if !ok {
			j.Summary.Unmatched = append(j.Summary.Unmatched, number)
			j.log.Warn("workbook row has no open matter", zap.String("matter_number", number))
			continue
		}
		j.Summary.Matched++

		updates := j.changes(m, rec, editable, meta)
		if len(updates) == 0 {
			continue
		}
		if j.dryRun {
			j.log.Info("dry run, matter not updated", zap.String("matter_number", number),
				zap.String("matter_id", m.ID), zap.Int("fields", len(updates)))
			continue
		}
		if err := j.api.UpdateMatterCustomFields(ctx, m.ID, updates); err != nil {
			j.log.Error("matter update failed", zap.String("matter_number", number), zap.Error(err))
			errs = append(errs, fmt.Errorf("matter %s: %w", number, err))
			continue
		}
		j.Summary.Updated++
	}

	j.log.Info("[AUDIT] workbook sync finished", zap.String("file", j.path), zap.Bool("dry_run", j.dryRun),
		zap.Int("rows", j.Summary.Rows), zap.Int("matched", j.Summary.Matched),
		zap.Int("updated", j.Summary.Updated), zap.Int("skipped_fields", j.Summary.Skipped))
	return errors.Join(errs...)
}

func (j *SyncJob) changes(m clio.Matter, rec map[string]string, editable []string, meta clio.CustomFieldMeta) []clio.CustomFieldUpdate {
	var updates []clio.CustomFieldUpdate
	for _, field := range editable {
		cell := strings.TrimSpace(rec[field])
		if cell == "" || cell == strings.TrimSpace(m.CustomFields[field]) {
			continue
		}
		def, ok := meta[field]
		if !ok {
			j.Summary.Skipped++
			j.log.Warn("custom field not defined in clio", zap.String("field", field))
			continue
		}

		var value any = cell
		if def.Type == constants.PicklistType {
			id, ok := def.OptionID(cell)
			if !ok {
				j.Summary.Skipped++
				j.log.Warn("picklist option not found", zap.String("matter_number", m.DisplayNumber),
					zap.String("field", field), zap.String("text", cell))
				continue
			}
			value = optionValue(id)
		}

		u := clio.CustomFieldUpdate{FieldID: def.ID, Value: value}
		for _, v := range m.CustomFieldValues {
			if v.FieldName == field {
				u.ValueID = v.ID
				if v.FieldID != "" {
					u.FieldID = v.FieldID
				}
				break
			}
		}
		updates = append(updates, u)
	}
	return updates
}

// optionValue sends numeric option ids as JSON numbers.
func optionValue(id string) any {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}
