package detector

import (
	"fmt"

	"IncidentScanner/internal/cv"
	"IncidentScanner/internal/domain"
)

func isEmptyCandidate(r domain.FileRecord) bool {
	if rows, ok := r.RowCount(); ok && rows == 0 {
		return true
	}
	switch r.Status.Text() {
	case string(domain.StatusEmpty), string(domain.StatusNoData):
		return true
	}
	return false
}

// DetectUnexpectedEmpty flags zero-row files the CV does not predict. When an
// entity collects more than Policy.UrgentEmptyPerEntity of them in one run,
// all of that entity's incidents become urgent.
func DetectUnexpectedEmpty(records []domain.FileRecord, doc *cv.Document, exec domain.ExecutionContext, policy Policy) domain.Partition {
	policy = policy.withDefaults()
	part := domain.Partition{Detector: "unexpected_empty"}

	var candidates []domain.FileRecord
	for _, r := range records {
		if isEmptyCandidate(r) {
			candidates = append(candidates, r)
		} else {
			part.OK = append(part.OK, r)
		}
	}

	perEntity := map[string]int{}
	for _, r := range candidates {
		day := r.BusinessWeekday(exec.Weekday())
		if doc.ZeroExpected(r.Entity, day) {
			part.Stats.Expected++
			part.OK = append(part.OK, r)
			continue
		}

		perEntity[r.Entity]++
		anomaly := domain.NewAnomaly(r, domain.Annotation{
			Type:     domain.IncidentUnexpectedEmpty,
			Reason:   fmt.Sprintf("Rows are 0 where empties are not expected on %s.", day),
			Severity: domain.SeverityAttention,
		})
		anomaly.Weekday = day
		part.Anomalies = append(part.Anomalies, anomaly)
	}

	for i := range part.Anomalies {
		if perEntity[part.Anomalies[i].Record.Entity] > policy.UrgentEmptyPerEntity {
			part.Anomalies[i].Severity = domain.SeverityUrgent
		}
	}

	part.Stats.Total = len(records)
	part.Stats.Candidates = len(candidates)
	part.Stats.Flagged = len(part.Anomalies)
	return part
}
