package detector

import (
	"fmt"
	"math"
	"sort"

	"IncidentScanner/internal/cv"
	"IncidentScanner/internal/domain"
)

// DetectVolume flags files whose row count falls outside the band the CV
// predicts. Zero-row files are left to the empty detector and files without a
// band are not judged.
func DetectVolume(records []domain.FileRecord, doc *cv.Document, exec domain.ExecutionContext, policy Policy) domain.Partition {
	policy = policy.withDefaults()
	part := domain.Partition{Detector: "volume"}
	todayMedian := nonzeroRowsMedian(records)

	for _, r := range records {
		rows, ok := r.RowCount()
		if !ok || rows <= 0 {
			part.OK = append(part.OK, r)
			continue
		}

		day := r.BusinessWeekday(exec.Weekday())
		band, ok := expectedBand(doc, day, todayMedian, policy)
		if !ok {
			part.OK = append(part.OK, r)
			continue
		}

		part.Stats.Candidates++
		if band.Contains(float64(rows)) {
			part.OK = append(part.OK, r)
			continue
		}

		anomaly := domain.NewAnomaly(r, domain.Annotation{
			Type: domain.IncidentVolume,
			Reason: fmt.Sprintf("rows=%d outside expected band [%d..%d] (center≈%d)",
				rows, int64(band.Lo), int64(band.Hi), int64(band.Center)),
			Severity: domain.SeverityAttention,
		})
		anomaly.Weekday = day
		b := band
		anomaly.Band = &b
		part.Anomalies = append(part.Anomalies, anomaly)
	}

	part.Stats.Total = len(records)
	part.Stats.Flagged = len(part.Anomalies)
	return part
}

// expectedBand resolves the band for day: the weekday block when the CV has
// one that looks per-file, then the overall stats, then the 95% interval.
func expectedBand(doc *cv.Document, day string, todayMedian float64, policy Policy) (domain.Band, bool) {
	if doc.PerWeekdayVolumePresent() && day != "" {
		if rows, ok := doc.WeekdayRows(day); ok && !looksLikeDailyTotals(rows, todayMedian, policy.DailyTotalRatio) {
			if band, ok := bandFromStats(rows, policy.BandCushion); ok {
				return band, true
			}
		}
	}

	overall := doc.OverallRows()
	if band, ok := bandFromStats(overall, policy.BandCushion); ok {
		return band, true
	}
	return bandFromInterval(doc.Normal95(), overall.Median)
}

// looksLikeDailyTotals catches CVs whose weekday block sums a whole day
// instead of describing single files.
func looksLikeDailyTotals(rows cv.StatBlock, todayMedian, ratio float64) bool {
	if todayMedian <= 0 {
		return false
	}
	median, ok := rows.Median.Float()
	if !ok {
		return false
	}
	return median/todayMedian >= ratio
}

func bandFromStats(b cv.StatBlock, cushion float64) (domain.Band, bool) {
	lo, hasMin := b.Min.Float()
	hi, hasMax := b.Max.Float()
	median, hasMedian := b.Median.Float()

	if hasMin && hasMax && hi > 0 {
		center := (lo + hi) / 2
		if hasMedian {
			center = median
		}
		return domain.Band{
			Lo:     math.Max(0, (1-cushion)*lo),
			Hi:     (1 + cushion) * hi,
			Center: math.Max(0, center),
		}, true
	}

	if hasMedian && median > 0 {
		return domain.Band{Lo: 0.5 * median, Hi: 2 * median, Center: median}, true
	}
	return domain.Band{}, false
}

func bandFromInterval(iv cv.Interval, median cv.Value) (domain.Band, bool) {
	lo, hasLo := iv.Lo.Float()
	hi, hasHi := iv.Hi.Float()
	if !hasLo || !hasHi || hi <= 0 {
		return domain.Band{}, false
	}
	center := (lo + hi) / 2
	if m, ok := median.Float(); ok {
		center = m
	}
	return domain.Band{Lo: math.Max(0, lo), Hi: hi, Center: math.Max(0, center)}, true
}

func nonzeroRowsMedian(records []domain.FileRecord) float64 {
	var vals []int64
	for _, r := range records {
		if rows, ok := r.RowCount(); ok && rows > 0 {
			vals = append(vals, rows)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return float64(vals[mid])
	}
	return float64(vals[mid-1]+vals[mid]) / 2
}
