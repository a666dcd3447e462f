package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"IncidentScanner/internal/detector"
	"IncidentScanner/internal/domain"
	"IncidentScanner/internal/ports"
)

const (
	defaultWorkers   = 4
	digestItemsLimit = 40
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Records   ports.RecordSource
	CVs       ports.CVStore
	Reports   ports.ReportWriter
	Incidents ports.IncidentRepository
	Notifier  ports.Notifier
	Detectors []detector.Detector
	Policy    detector.Policy
	// Workers bounds how many sources are processed at once.
	Workers int
	Logger  *slog.Logger
}

// Pipeline implements the daily detection workflow.
type Pipeline struct {
	records   ports.RecordSource
	cvs       ports.CVStore
	reports   ports.ReportWriter
	incidents ports.IncidentRepository
	notifier  ports.Notifier
	detectors []detector.Detector
	policy    detector.Policy
	workers   int
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	workers := deps.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	detectors := deps.Detectors
	if detectors == nil {
		detectors, _ = detector.DefaultRegistry().Select(nil)
	}

	return &Pipeline{
		records:   deps.Records,
		cvs:       deps.CVs,
		reports:   deps.Reports,
		incidents: deps.Incidents,
		notifier:  deps.Notifier,
		detectors: detectors,
		policy:    deps.Policy,
		workers:   workers,
		logger:    logger,
	}
}

type dayInputs struct {
	exec        domain.ExecutionContext
	today       map[string][]domain.FileRecord
	lastWeekday map[string][]domain.FileRecord
}

// ProcessDay runs every detector over every known source for the given
// execution day, then persists, records and notifies the outcome.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) (domain.RunSummary, error) {
	in := dayInputs{exec: domain.NewExecutionContext(day)}
	summary := domain.RunSummary{
		RunID:   uuid.NewString(),
		Date:    in.exec.DateString(),
		Weekday: in.exec.Weekday(),
	}
	logger := p.logger.With("run_id", summary.RunID, "date", summary.Date)

	if p.records == nil {
		return summary, nil
	}

	var err error
	if in.today, err = p.records.Load(ctx, ports.Today); err != nil {
		return summary, fmt.Errorf("load today files: %w", err)
	}
	if in.lastWeekday, err = p.records.Load(ctx, ports.LastWeekday); err != nil {
		return summary, fmt.Errorf("load last weekday files: %w", err)
	}

	var cvSources []string
	if p.cvs != nil {
		if cvSources, err = p.cvs.Sources(ctx); err != nil {
			return summary, fmt.Errorf("list cv sources: %w", err)
		}
	}
	sources := unionSources(in.today, in.lastWeekday, cvSources)
	logger.Info("detection run started", "sources", len(sources), "weekday", summary.Weekday)

	reports := make([]domain.SourceReport, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, source := range sources {
		g.Go(func() error {
			report, err := p.processSource(gctx, source, in)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				report = domain.SourceReport{Source: source, ExecDate: summary.Date, Err: err}
			}
			if report.Failed() {
				logger.Error("source failed", "source", source, "error", report.Err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("process sources: %w", err)
	}

	var anomalies []domain.Anomaly
	for _, report := range reports {
		line := report.Summarize()
		summary.Sources = append(summary.Sources, line)
		summary.AnomalyCount += line.Anomalies
		summary.UrgentCount += line.Urgent
		if report.Failed() {
			summary.FailedSources++
		}
		anomalies = append(anomalies, report.Anomalies...)
	}

	if p.reports != nil {
		if err := p.reports.WriteRun(ctx, summary, anomalies); err != nil {
			return summary, fmt.Errorf("write run report: %w", err)
		}
	}

	fresh, err := p.recordIncidents(ctx, summary, anomalies)
	if err != nil {
		return summary, err
	}
	summary.NewIncidents = len(fresh)

	logger.Info("detection run finished",
		"anomalies", summary.AnomalyCount,
		"urgent", summary.UrgentCount,
		"new_incidents", summary.NewIncidents,
		"failed_sources", summary.FailedSources,
	)

	if p.notifier == nil || len(fresh) == 0 {
		return summary, nil
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(summary, fresh)); err != nil {
		return summary, fmt.Errorf("publish digest: %w", err)
	}
	return summary, nil
}

func (p *Pipeline) processSource(ctx context.Context, source string, in dayInputs) (domain.SourceReport, error) {
	report := domain.SourceReport{Source: source, ExecDate: in.exec.DateString()}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	detIn := detector.Input{
		Source: source,
		Exec:   in.exec,
		Policy: p.policy,
	}
	// An unreadable CV fails the source but still leaves its dedupe and
	// status results, which never read the CV.
	detectors := p.detectors
	if p.cvs != nil {
		doc, err := p.cvs.Load(ctx, source)
		switch {
		case ctx.Err() != nil:
			return report, ctx.Err()
		case err != nil:
			report.Err = fmt.Errorf("load cv %s: %w", source, err)
			detectors = nil
		default:
			detIn.CV = doc
		}
	}

	originals := in.today[source]
	report.Dedupe = detector.Dedupe(originals)
	status := detector.ClassifyStatus(originals, report.Dedupe)
	detIn.Records = report.Dedupe.Final
	if last := in.lastWeekday[source]; len(last) > 0 {
		detIn.LastWeekday = detector.Dedupe(last).Final
	}

	partitions := make([]domain.Partition, len(detectors))
	var g errgroup.Group
	for i, d := range detectors {
		g.Go(func() error {
			partitions[i] = d.Detect(detIn)
			return nil
		})
	}
	_ = g.Wait()

	report.Partitions = append([]domain.Partition{status}, partitions...)
	for _, part := range report.Partitions {
		for _, anomaly := range part.Anomalies {
			anomaly.Source = source
			report.Anomalies = append(report.Anomalies, anomaly)
		}
		p.logger.Debug("detector finished",
			"source", source,
			"detector", part.Detector,
			"total", part.Stats.Total,
			"candidates", part.Stats.Candidates,
			"flagged", part.Stats.Flagged,
		)
	}

	if p.reports != nil {
		if err := p.reports.WriteSource(ctx, report); err != nil {
			return report, fmt.Errorf("write source report %s: %w", source, err)
		}
	}
	return report, nil
}

// recordIncidents returns the anomalies that were not reported by an earlier
// run of the same day and stores them in the ledger.
func (p *Pipeline) recordIncidents(ctx context.Context, summary domain.RunSummary, anomalies []domain.Anomaly) ([]domain.Anomaly, error) {
	if len(anomalies) == 0 {
		return nil, nil
	}
	if p.incidents == nil {
		return anomalies, nil
	}

	fingerprints := make([]string, len(anomalies))
	for i, a := range anomalies {
		fingerprints[i] = a.Fingerprint(summary.Date)
	}

	seen, err := p.incidents.AlreadyReported(ctx, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("load reported incidents: %w", err)
	}

	var (
		fresh []domain.Anomaly
		rows  []domain.ReportedIncident
	)
	for i, a := range anomalies {
		fp := fingerprints[i]
		if seen[fp] {
			continue
		}
		seen[fp] = true
		fresh = append(fresh, a)
		rows = append(rows, domain.ReportedIncident{
			Fingerprint: fp,
			Source:      a.Source,
			Type:        a.Type,
			Severity:    a.Severity,
			Reason:      a.Reason,
			Filename:    a.Record.Filename,
			Entity:      a.Record.Entity,
		})
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if err := p.incidents.SaveReported(ctx, summary.RunID, summary.Date, rows); err != nil {
		return nil, fmt.Errorf("persist incidents: %w", err)
	}
	return fresh, nil
}

func unionSources(today, lastWeekday map[string][]domain.FileRecord, cvSources []string) []string {
	set := map[string]struct{}{}
	for id := range today {
		set[id] = struct{}{}
	}
	for id := range lastWeekday {
		set[id] = struct{}{}
	}
	for _, id := range cvSources {
		set[id] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		if strings.TrimSpace(id) == "" {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func buildDigestMessage(summary domain.RunSummary, fresh []domain.Anomaly) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incidents for %s (%s): %d new, %d urgent overall\n\n",
		summary.Date, summary.Weekday, len(fresh), summary.UrgentCount)

	ordered := make([]domain.Anomaly, len(fresh))
	copy(ordered, fresh)
	sort.SliceStable(ordered, func(i, j int) bool {
		iu := ordered[i].Severity == domain.SeverityUrgent
		ju := ordered[j].Severity == domain.SeverityUrgent
		if iu != ju {
			return iu
		}
		return ordered[i].Source < ordered[j].Source
	})

	for i, a := range ordered {
		if i == digestItemsLimit {
			fmt.Fprintf(&b, "... and %d more\n", len(ordered)-digestItemsLimit)
			break
		}
		subject := a.Record.Filename
		if subject == "" {
			subject = a.Record.Entity
		}
		if subject == "" {
			subject = "(source)"
		}
		fmt.Fprintf(&b, "- [%s] %s %s %s: %s\n", a.Severity, a.Source, a.Type, subject, a.Reason)
	}

	if summary.FailedSources > 0 {
		fmt.Fprintf(&b, "\n%d source(s) could not be processed\n", summary.FailedSources)
	}
	return b.String()
}
