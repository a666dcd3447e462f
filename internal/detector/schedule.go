package detector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"IncidentScanner/internal/cv"
	"IncidentScanner/internal/domain"
)

// DetectLateUploads flags files uploaded well after the CV's expected cutoff
// for their upload weekday. Files whose lag from the covered date does not
// match the usual lag are backfills and are not judged.
func DetectLateUploads(records []domain.FileRecord, doc *cv.Document, exec domain.ExecutionContext, policy Policy) domain.Partition {
	policy = policy.withDefaults()
	part := domain.Partition{Detector: "upload_schedule"}
	grace := int(policy.LateThreshold / time.Minute)

	for _, r := range records {
		uploaded, ok := r.UploadedTime()
		if !ok {
			part.OK = append(part.OK, r)
			continue
		}
		// CV schedules are kept in UTC.
		uploaded = uploaded.UTC()

		day := domain.WeekdayName(uploaded)
		if isBackfill(r, uploaded, doc, day, policy.LagToleranceDays) {
			part.OK = append(part.OK, r)
			continue
		}

		row, _ := doc.ScheduleFor(day)
		cutoff, ok := cutoffMinutes(row)
		if !ok {
			part.OK = append(part.OK, r)
			continue
		}

		part.Stats.Candidates++
		uploadMin := uploaded.Hour()*60 + uploaded.Minute()
		if uploadMin <= cutoff+grace {
			part.OK = append(part.OK, r)
			continue
		}

		delta := uploadMin - cutoff
		anomaly := domain.NewAnomaly(r, domain.Annotation{
			Type: domain.IncidentLateUpload,
			Reason: fmt.Sprintf("Uploaded %.1fh after expected cutoff (%02d:%02d UTC) for %s.",
				float64(delta)/60, cutoff/60, cutoff%60, day),
			Severity: domain.SeverityAttention,
		})
		anomaly.Weekday = day
		part.Anomalies = append(part.Anomalies, anomaly)
	}

	part.Stats.Total = len(records)
	part.Stats.Flagged = len(part.Anomalies)
	return part
}

func isBackfill(r domain.FileRecord, uploaded time.Time, doc *cv.Document, day string, tolerance int) bool {
	covered, ok := r.CoveredDay()
	if !ok {
		return false
	}
	uy, um, ud := uploaded.Date()
	uploadDay := time.Date(uy, um, ud, 0, 0, 0, 0, time.UTC)
	lag := int(uploadDay.Sub(covered).Hours() / 24)

	row, _ := doc.ScheduleFor(day)
	if mode, ok := row.UploadLagDaysMode.Float(); ok {
		return math.Abs(float64(lag)-math.Trunc(mode)) > float64(tolerance)
	}
	return lag > tolerance
}

// cutoffMinutes resolves the expected end of the upload window in minutes
// after midnight UTC.
func cutoffMinutes(row cv.ScheduleRow) (int, bool) {
	if m, ok := parseWindowEnd(row.ExpectedWindowUTC.String()); ok {
		return m, true
	}
	for _, slot := range []cv.Text{row.UploadHourSlotMedianUTC, row.UploadHourSlotModeUTC, row.UploadHourSlotMeanUTC} {
		if m, ok := parseClockMinutes(slot.String()); ok {
			return m, true
		}
	}
	return 0, false
}

var dashReplacer = strings.NewReplacer("–", "-", "—", "-")

// parseWindowEnd reads "HH:MM:SS-HH:MM:SS UTC" style windows and returns the end.
func parseWindowEnd(window string) (int, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(window, "UTC", ""))
	s = dashReplacer.Replace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, "-")
	for i := len(parts) - 1; i >= 0; i-- {
		if end := strings.TrimSpace(parts[i]); end != "" {
			return parseClockMinutes(end)
		}
	}
	return 0, false
}

// parseClockMinutes accepts "HH:MM", "HH:MM:SS" and a bare hour.
func parseClockMinutes(clock string) (int, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(clock, "UTC", ""))
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	} else {
		return 0, false
	}

	parts := strings.Split(s, ":")
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h >= 24 {
		return 0, false
	}
	if len(parts) == 1 {
		return h * 60, true
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m >= 60 {
		return 0, false
	}
	return h*60 + m, true
}
