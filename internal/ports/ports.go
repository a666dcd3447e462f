package ports

import (
	"context"
	"time"

	"IncidentScanner/internal/cv"
	"IncidentScanner/internal/domain"
)

// RecordSet selects which manifest a RecordSource reads.
type RecordSet string

const (
	Today       RecordSet = "today_files"
	LastWeekday RecordSet = "last_weekday_files"
)

// RecordSource loads per-source file listings.
type RecordSource interface {
	Load(ctx context.Context, set RecordSet) (map[string][]domain.FileRecord, error)
}

// CVStore serves the Characterization Vector of each source.
type CVStore interface {
	// Sources lists every source with a CV.
	Sources(ctx context.Context) ([]string, error)
	// Load returns nil without error when the source has no CV.
	Load(ctx context.Context, source string) (*cv.Document, error)
}

// ReportWriter persists run outputs for presentation layers.
type ReportWriter interface {
	WriteSource(ctx context.Context, report domain.SourceReport) error
	WriteRun(ctx context.Context, summary domain.RunSummary, anomalies []domain.Anomaly) error
}

// IncidentRepository remembers which incidents were already notified.
type IncidentRepository interface {
	AlreadyReported(ctx context.Context, fingerprints []string) (map[string]bool, error)
	SaveReported(ctx context.Context, runID, execDate string, incidents []domain.ReportedIncident) error
}

// Notifier streams incident digests to operators.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
