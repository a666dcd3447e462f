package detector

import (
	"math"
	"strings"

	"IncidentScanner/internal/cv"
	"IncidentScanner/internal/domain"
)

// OnExecDay keeps the records uploaded on the execution day. Records without
// a readable upload time are kept.
func OnExecDay(records []domain.FileRecord, exec domain.ExecutionContext) []domain.FileRecord {
	var out []domain.FileRecord
	for _, r := range records {
		ts, ok := r.UploadedTime()
		if !ok || exec.OnExecDay(ts) {
			out = append(out, r)
		}
	}
	return out
}

// DetectMissing reports entities, or whole sources, that the CV expects on the
// execution weekday but that sent nothing. lastWeekday may be nil; when given
// it raises the confidence of the hint. The result has no OK records.
func DetectMissing(today, lastWeekday []domain.FileRecord, doc *cv.Document, exec domain.ExecutionContext) domain.Partition {
	part := domain.Partition{Detector: "missing"}
	day := exec.Weekday()
	records := OnExecDay(today, exec)

	missing := func(t domain.IncidentType, entity, reason string, expected int, confidence domain.Confidence) domain.Anomaly {
		a := domain.NewAnomaly(domain.FileRecord{Entity: entity}, domain.Annotation{
			Type:     t,
			Reason:   reason,
			Severity: domain.SeverityAttention,
		})
		a.Missing = &domain.MissingContext{
			ExpectedCountHint: expected,
			Weekday:           day,
			ExecDate:          exec.DateString(),
			Confidence:        confidence,
			Support:           doc.Meta(),
		}
		return a
	}

	if doc.HasEntityWeekday() {
		seenToday := entityCounts(records)
		seenLastWeek := entityCounts(lastWeekday)

		for _, row := range doc.EntityWeekdayRows(day) {
			entity := row.Entity.String()
			files, ok := row.MedianFiles.Float()
			if entity == "" || !ok || files <= 0 {
				continue
			}
			part.Stats.Candidates++
			if seenToday[entity] > 0 {
				continue
			}

			confidence := domain.ConfidenceMedium
			if seenLastWeek[entity] > 0 {
				confidence = domain.ConfidenceHigh
			}
			part.Anomalies = append(part.Anomalies, missing(
				domain.IncidentMissingFiles,
				entity,
				"Entity expected on this weekday (median_files>0) but no files received today.",
				int(math.Round(files)),
				confidence,
			))
		}
	} else if median, ok := doc.WeekdayRowsMedian(day); ok && median > 0 {
		part.Stats.Candidates++
		if len(records) == 0 {
			confidence := domain.ConfidenceMedium
			if len(lastWeekday) > 0 {
				confidence = domain.ConfidenceHigh
			}
			part.Anomalies = append(part.Anomalies, missing(
				domain.IncidentMissingSource,
				"",
				"CV shows typical activity for this weekday (rows.median>0) but no files were received today.",
				0,
				confidence,
			))
		}
	}

	part.Stats.Total = len(records)
	part.Stats.Flagged = len(part.Anomalies)
	return part
}

func entityCounts(records []domain.FileRecord) map[string]int {
	counts := map[string]int{}
	for _, r := range records {
		if e := strings.TrimSpace(r.Entity); e != "" {
			counts[e]++
		}
	}
	return counts
}
