package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"IncidentScanner/internal/domain"
	"IncidentScanner/internal/ports"
)

const incidentsTable = "reported_incidents"

// insertBatchSize keeps one INSERT well under the Postgres limit of 65535
// bind parameters (nine per row).
const insertBatchSize = 1000

const schema = `CREATE TABLE IF NOT EXISTS reported_incidents (
    fingerprint   TEXT PRIMARY KEY,
    run_id        TEXT NOT NULL,
    exec_date     DATE NOT NULL,
    source_id     TEXT NOT NULL,
    incident_type TEXT NOT NULL,
    severity      TEXT NOT NULL,
    reason        TEXT NOT NULL,
    filename      TEXT NOT NULL DEFAULT '',
    entity        TEXT NOT NULL DEFAULT '',
    reported_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository keeps the ledger of notified incidents in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.IncidentRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the ledger table when it does not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

// AlreadyReported returns a map with the fingerprints that exist in storage.
func (r *PostgresRepository) AlreadyReported(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	if r.db == nil || len(fingerprints) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := reportedQuery(fingerprints).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reported query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reported: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		result[fp] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveReported inserts the ledger rows of one run; rows already present are kept.
func (r *PostgresRepository) SaveReported(ctx context.Context, runID, execDate string, incidents []domain.ReportedIncident) error {
	if r.db == nil || len(incidents) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, batch := range insertBatches(runID, execDate, incidents) {
		query, args, err := batch.ToSql()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build insert query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert incidents: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit incidents: %w", err)
	}

	return nil
}

func reportedQuery(fingerprints []string) sq.SelectBuilder {
	return psql.
		Select("fingerprint").
		From(incidentsTable).
		Where("fingerprint = ANY(?)", pq.StringArray(fingerprints))
}

func insertBatches(runID, execDate string, incidents []domain.ReportedIncident) []sq.InsertBuilder {
	var out []sq.InsertBuilder
	for start := 0; start < len(incidents); start += insertBatchSize {
		end := min(start+insertBatchSize, len(incidents))
		out = append(out, insertQuery(runID, execDate, incidents[start:end]))
	}
	return out
}

func insertQuery(runID, execDate string, incidents []domain.ReportedIncident) sq.InsertBuilder {
	builder := psql.
		Insert(incidentsTable).
		Columns("fingerprint", "run_id", "exec_date", "source_id", "incident_type", "severity", "reason", "filename", "entity")

	for _, inc := range incidents {
		builder = builder.Values(
			inc.Fingerprint,
			runID,
			execDate,
			inc.Source,
			string(inc.Type),
			string(inc.Severity),
			inc.Reason,
			inc.Filename,
			inc.Entity,
		)
	}

	return builder.Suffix("ON CONFLICT (fingerprint) DO NOTHING")
}
