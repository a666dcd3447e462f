package detector

import (
	"fmt"
	"strings"

	"IncidentScanner/internal/domain"
)

const (
	codeMultiProcessed = "duplicate_multi_processed"
	codeNoneProcessed  = "duplicate_none_processed"
	codeUnprocessed    = "duplicate_unprocessed_copy"
	codeFlaggedDup     = "flagged_is_duplicated"
)

// ClassifyStatus turns dedupe removals into duplicate incidents and sweeps the
// remaining originals for failed statuses and upstream duplicate flags. Every
// original record ends up in exactly one of OK or Anomalies.
func ClassifyStatus(originals []domain.FileRecord, dedup domain.DedupeResult) domain.Partition {
	part := domain.Partition{Detector: "status"}

	for _, item := range dedup.Removed {
		code, severity := removedCode(item.Reason)
		anomaly := domain.NewAnomaly(item.Record, domain.Annotation{
			Type:     domain.IncidentDuplicate,
			Reason:   duplicateReason(code),
			Severity: severity,
			Code:     code,
		})
		anomaly.DedupeReason = item.Reason
		part.Anomalies = append(part.Anomalies, anomaly)
	}

	removed := dedup.RemovedIdentities()
	for _, r := range originals {
		if _, gone := removed[r.Identity()]; gone {
			continue
		}

		status := r.Status.Text()
		switch {
		case status != string(domain.StatusProcessed):
			severity := domain.SeverityAttention
			if status == string(domain.StatusFailed) {
				severity = domain.SeverityUrgent
			}
			part.Anomalies = append(part.Anomalies, domain.NewAnomaly(r, domain.Annotation{
				Type:     domain.IncidentStatusFailure,
				Reason:   statusReason(status),
				Severity: severity,
				Code:     "status=" + status,
			}))
		case r.FlaggedDuplicate():
			part.Anomalies = append(part.Anomalies, domain.NewAnomaly(r, domain.Annotation{
				Type:     domain.IncidentDuplicate,
				Reason:   duplicateReason(codeFlaggedDup),
				Severity: domain.SeverityAttention,
				Code:     codeFlaggedDup,
			}))
		default:
			part.OK = append(part.OK, r)
		}
	}

	part.Stats = domain.Stats{
		Total:      len(originals),
		Candidates: len(originals),
		Flagged:    len(part.Anomalies),
	}
	return part
}

func removedCode(reason string) (string, domain.Severity) {
	switch {
	case strings.Contains(reason, "multi_processed"):
		return codeMultiProcessed, domain.SeverityUrgent
	case strings.Contains(reason, "no_processed"):
		return codeNoneProcessed, domain.SeverityAttention
	default:
		return codeUnprocessed, domain.SeverityAttention
	}
}

func duplicateReason(code string) string {
	switch code {
	case codeMultiProcessed:
		return "Multiple processed duplicates; kept the best version."
	case codeNoneProcessed:
		return "Duplicate group without any processed file."
	case codeFlaggedDup:
		return "Marked as duplicate by upstream pipeline."
	default:
		return "Duplicate file removed."
	}
}

func statusReason(status string) string {
	switch status {
	case string(domain.StatusFailed):
		return "File processing failed."
	case string(domain.StatusEmpty):
		return "File was empty."
	case string(domain.StatusUnknown):
		return "File status is unknown."
	case "":
		return "File status is missing."
	default:
		return fmt.Sprintf("File has status '%s'.", status)
	}
}
