package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"IncidentScanner/internal/cv"
	"IncidentScanner/internal/domain"
)

// monday is the execution day used across the detector tests.
var monday = domain.NewExecutionContext(time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC))

type recordOpt func(*domain.FileRecord)

func rows(n int64) recordOpt {
	return func(r *domain.FileRecord) { r.Rows = &n }
}

func status(s domain.Status) recordOpt {
	return func(r *domain.FileRecord) { r.Status = s }
}

func entity(e string) recordOpt {
	return func(r *domain.FileRecord) { r.Entity = e }
}

func uploaded(ts string) recordOpt {
	return func(r *domain.FileRecord) { r.UploadedAt = ts }
}

func covered(day string) recordOpt {
	return func(r *domain.FileRecord) { r.CoveredDate = day }
}

func batch(b string) recordOpt {
	return func(r *domain.FileRecord) { r.Batch = b }
}

func cleaned(c string) recordOpt {
	return func(r *domain.FileRecord) { r.CleanedFilename = c }
}

func flagged() recordOpt {
	return func(r *domain.FileRecord) {
		v := true
		r.IsDuplicated = &v
	}
}

// record builds a processed record uploaded on the execution day.
func record(filename string, opts ...recordOpt) domain.FileRecord {
	r := domain.FileRecord{
		Filename:        filename,
		CleanedFilename: filename,
		Status:          domain.StatusProcessed,
		UploadedAt:      "2025-09-08T08:00:00Z",
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func mustCV(t *testing.T, body string) *cv.Document {
	t.Helper()
	doc, err := cv.Decode([]byte(body))
	require.NoError(t, err)
	return doc
}

func filenames(records []domain.FileRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Filename
	}
	return out
}
