package filesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"IncidentScanner/internal/domain"
	"IncidentScanner/internal/ports"
)

// ManifestSource reads the daily file listings produced by the upload
// inventory job: a JSON object mapping each source id to its records.
type ManifestSource struct {
	paths map[ports.RecordSet]string
}

var _ ports.RecordSource = (*ManifestSource)(nil)

// NewManifestSource binds the today and last-weekday manifest paths. An
// empty last-weekday path means there is no previous listing.
func NewManifestSource(todayPath, lastWeekdayPath string) *ManifestSource {
	return &ManifestSource{paths: map[ports.RecordSet]string{
		ports.Today:       todayPath,
		ports.LastWeekday: lastWeekdayPath,
	}}
}

// Load reads one manifest. A missing last-weekday file yields an empty set.
func (m *ManifestSource) Load(ctx context.Context, set ports.RecordSet) (map[string][]domain.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := m.paths[set]
	if path == "" {
		if set == ports.Today {
			return nil, fmt.Errorf("no path configured for %s", set)
		}
		return map[string][]domain.FileRecord{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if set == ports.LastWeekday && errors.Is(err, os.ErrNotExist) {
			return map[string][]domain.FileRecord{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", set, err)
	}

	return Decode(data)
}

// Decode parses a manifest and normalises every record.
func Decode(data []byte) (map[string][]domain.FileRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: manifest is not an object: %v", domain.ErrMalformedBatch, err)
	}

	out := make(map[string][]domain.FileRecord, len(raw))
	for source, payload := range raw {
		var records []domain.FileRecord
		if err := json.Unmarshal(payload, &records); err != nil {
			return nil, fmt.Errorf("%w: source %s: %v", domain.ErrMalformedBatch, source, err)
		}
		for i := range records {
			records[i] = records[i].Normalize()
		}
		out[source] = records
	}
	return out, nil
}
