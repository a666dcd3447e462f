package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"IncidentScanner/internal/domain"
	"IncidentScanner/internal/ports"
)

const (
	allAnomaliesFile = "_ALL_anomalies.json"
	summaryFile      = "_SUMMARY.json"
)

// FileWriter lays run outputs out under <dir>/<exec date>/.
type FileWriter struct {
	dir string
}

var _ ports.ReportWriter = (*FileWriter)(nil)

// NewFileWriter binds the output root directory.
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{dir: dir}
}

// WriteSource stores the cleaned, removed, harmless and anomaly lists of one
// source under <date>/<source>/.
func (w *FileWriter) WriteSource(ctx context.Context, rep domain.SourceReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(w.dir, rep.ExecDate, rep.Source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create source dir: %w", err)
	}

	files := map[string]any{
		"final.json":     nonNil(rep.Dedupe.Final),
		"removed.json":   nonNil(rep.Dedupe.Removed),
		"harmless.json":  nonNil(rep.Dedupe.Harmless),
		"anomalies.json": nonNil(rep.Anomalies),
		"stats.json":     sourceStats(rep),
	}
	for name, payload := range files {
		if err := writeJSON(filepath.Join(dir, name), payload); err != nil {
			return err
		}
	}
	return nil
}

// WriteRun stores the aggregate anomaly list and the run summary.
func (w *FileWriter) WriteRun(ctx context.Context, summary domain.RunSummary, anomalies []domain.Anomaly) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(w.dir, summary.Date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, allAnomaliesFile), nonNil(anomalies)); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, summaryFile), summary)
}

type detectorStats struct {
	Detector string `json:"detector"`
	domain.Stats
}

type statsFile struct {
	Dedupe    domain.DedupeStats `json:"dedupe"`
	Detectors []detectorStats    `json:"detectors"`
}

func sourceStats(rep domain.SourceReport) statsFile {
	out := statsFile{Dedupe: rep.Dedupe.Stats, Detectors: []detectorStats{}}
	for _, part := range rep.Partitions {
		out.Detectors = append(out.Detectors, detectorStats{Detector: part.Detector, Stats: part.Stats})
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
