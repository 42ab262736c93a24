package constants

import "errors"

// ============================================================================
// CONFIGURATION ERRORS
// ============================================================================

const (
	ErrMissingClioCredentials = "missing CLIO_CLIENT_ID/CLIO_CLIENT_SECRET/CLIO_REFRESH_TOKEN"
	ErrMissingGraphSettings   = "missing GRAPH_TENANT_ID/GRAPH_CLIENT_ID/GRAPH_CLIENT_SECRET/SHAREPOINT_SITE_ID/SHAREPOINT_DRIVE_ID"
	ErrMissingS3Bucket        = "S3_BUCKET is required when STORAGE_BACKEND=s3"
	ErrUnknownStorageBackend  = "unknown STORAGE_BACKEND %q (expected graph or s3)"
	ErrInvalidCycleDate       = "invalid cycle date %q (expected YYYY-MM-DD)"
	ErrInvalidCycleSchedule   = "invalid CYCLE_SCHEDULE %q"
	ErrCycleDatesIncomplete   = "CYCLE_START_DATE and CYCLE_END_DATE must be set together"
	ErrUnknownJob             = "unknown job %q"
	ErrUnknownCursorStyle     = "unknown cursor style %q for endpoint %s (expected link or token)"
)

// ============================================================================
// CLIO API ERRORS
// ============================================================================

const (
	ErrTokenRefreshFailed = "token refresh failed: %d %s"
	ErrTokenDecodeFailed  = "token refresh returned an unreadable body"
	ErrPageFailed         = "page request failed: %d %s"
	ErrMatterUpdateFailed = "matter %s update failed: %d %s"
)

// ============================================================================
// STORAGE & WORKBOOK ERRORS
// ============================================================================

const (
	ErrUploadFailed       = "upload %s failed: %d %s"
	ErrFolderCreateFailed = "create folder %s failed: %d %s"
	ErrFolderLookupFailed = "look up folder %s failed: %d %s"
	ErrUnsupportedFile    = "unsupported workbook type %q (expected .xlsx or .xls)"
	ErrNoSheets           = "no sheets found"
	ErrMissingColumn      = "workbook is missing the %q column"
)

// Sentinels for errors.Is checks across packages.
var (
	ErrAuthConfig = errors.New("auth configuration error")
	ErrConfig     = errors.New("configuration error")
	ErrPage       = errors.New("page fetch error")
	ErrUpload     = errors.New("upload error")
	ErrWorkbook   = errors.New("workbook error")
)

// Date layouts shared by the cycle window and report file names.
const (
	DateFormat      = "2006-01-02"
	CycleLabelFmt   = "01/02/06"
	FileDatePrefix  = "060102"
	CycleTimeStart  = "T00:00:00"
	CycleTimeEnd    = "T23:59:59"
	TimeEntryType   = "TimeEntry"
	PicklistType    = "picklist"
	StatusOpenPend  = "open,pending"
	StatusBillable  = "billable"
	DefaultOrdering = "id(asc)"
)
