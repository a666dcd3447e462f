package domain

import (
	"path"
	"strings"
	"time"
)

// Status is the processing outcome reported upstream for a single file.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
	StatusEmpty     Status = "empty"
	StatusUnknown   Status = "unknown"
	StatusNoData    Status = "no_data"
)

var statusAliases = map[string]Status{
	"processed": StatusProcessed,
	"success":   StatusProcessed,
	"ok":        StatusProcessed,
	"failed":    StatusFailed,
	"error":     StatusFailed,
	"empty":     StatusEmpty,
	"no_data":   StatusNoData,
	"unknown":   StatusUnknown,
}

// NormalizeStatus maps upstream status spellings onto the known set.
// Unrecognised values become the empty Status (null).
func NormalizeStatus(raw string) Status {
	return statusAliases[strings.ToLower(strings.TrimSpace(raw))]
}

// Text returns the trimmed, lower-cased status used for comparisons.
func (s Status) Text() string {
	return strings.ToLower(strings.TrimSpace(string(s)))
}

// FileRecord is one observed upload. Values are never mutated by detectors;
// classification results travel in Anomaly.
type FileRecord struct {
	Filename        string   `json:"filename"`
	CleanedFilename string   `json:"cleaned_filename"`
	Batch           string   `json:"batch"`
	Entity          string   `json:"entity"`
	Rows            *int64   `json:"rows"`
	Status          Status   `json:"status"`
	IsDuplicated    *bool    `json:"is_duplicated"`
	FileSize        *float64 `json:"file_size"`
	UploadedAt      string   `json:"uploaded_at"`
	CoveredDate     string   `json:"covered_date"`
	Extension       string   `json:"extension"`
	StatusMessage   string   `json:"status_message,omitempty"`
}

// Identity is the canonical key used whenever records are matched across copies.
type Identity struct {
	Filename        string
	CleanedFilename string
	Batch           string
	UploadedAt      string
}

// Identity returns the (filename, cleaned_filename, batch, uploaded_at) key.
func (r FileRecord) Identity() Identity {
	return Identity{
		Filename:        r.Filename,
		CleanedFilename: r.CleanedFilename,
		Batch:           r.Batch,
		UploadedAt:      r.UploadedAt,
	}
}

// IsProcessed reports whether the upstream status is "processed".
func (r FileRecord) IsProcessed() bool {
	return r.Status.Text() == string(StatusProcessed)
}

// RowCount returns the row count when known.
func (r FileRecord) RowCount() (int64, bool) {
	if r.Rows == nil {
		return 0, false
	}
	return *r.Rows, true
}

// Size returns the file size or zero.
func (r FileRecord) Size() float64 {
	if r.FileSize == nil {
		return 0
	}
	return *r.FileSize
}

// FlaggedDuplicate reports the upstream is_duplicated flag.
func (r FileRecord) FlaggedDuplicate() bool {
	return r.IsDuplicated != nil && *r.IsDuplicated
}

// UploadedTime parses uploaded_at.
func (r FileRecord) UploadedTime() (time.Time, bool) {
	return ParseTimestamp(r.UploadedAt)
}

// CoveredDay parses the business date carried in covered_date.
func (r FileRecord) CoveredDay() (time.Time, bool) {
	return ParseDate(r.CoveredDate)
}

// BusinessWeekday resolves the weekday the file's content belongs to:
// covered_date first, then the upload timestamp, then fallback.
func (r FileRecord) BusinessWeekday(fallback string) string {
	if day, ok := r.CoveredDay(); ok {
		return WeekdayName(day)
	}
	if ts, ok := r.UploadedTime(); ok {
		return WeekdayName(ts)
	}
	return fallback
}

// Normalize fills the derived fields the way ingestion expects them:
// status aliases collapse, cleaned_filename defaults to filename and the
// extension is inferred from the filename.
func (r FileRecord) Normalize() FileRecord {
	r.Status = NormalizeStatus(string(r.Status))
	if r.CleanedFilename == "" {
		r.CleanedFilename = r.Filename
	}
	if r.Extension == "" {
		r.Extension = inferExtension(r.Filename)
	}
	return r
}

func inferExtension(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
