package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IncidentScanner/internal/domain"
)

func TestPolicyWithDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultPolicy(), Policy{}.withDefaults())

	strict := Policy{LateThreshold: time.Hour, DailyTotalRatio: 20}.withDefaults()
	assert.Zero(t, strict.LagToleranceDays)
	assert.Zero(t, strict.UrgentEmptyPerEntity)
	assert.Zero(t, strict.BandCushion)

	broken := Policy{LagToleranceDays: -1, BandCushion: 1.5, UrgentEmptyPerEntity: -2}.withDefaults()
	assert.Equal(t, 1, broken.LagToleranceDays)
	assert.Equal(t, 3, broken.UrgentEmptyPerEntity)
	assert.InDelta(t, 0.10, broken.BandCushion, 1e-9)
	assert.InDelta(t, 20, broken.DailyTotalRatio, 1e-9)
}

func TestZeroLagToleranceTreatsOneDayLagAsBackfill(t *testing.T) {
	t.Parallel()

	doc := mustCV(t, `{"file_processing_pattern_section": {"upload_schedule_by_day": [
		{"day": "Mon", "upload_hour_slot_median_utc": "09:00"}
	]}}`)
	records := []domain.FileRecord{
		record("late.csv", uploaded("2025-09-08T14:00:00Z"), covered("2025-09-07")),
	}

	part := DetectLateUploads(records, doc, monday, DefaultPolicy())
	require.Len(t, part.Anomalies, 1)

	strict := DefaultPolicy()
	strict.LagToleranceDays = 0
	part = DetectLateUploads(records, doc, monday, strict)
	assert.Empty(t, part.Anomalies)
}

func TestZeroEscalationMakesEveryUnexpectedEmptyUrgent(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{record("a.csv", rows(0), entity("E"))}

	part := DetectUnexpectedEmpty(records, nil, monday, DefaultPolicy())
	require.Len(t, part.Anomalies, 1)
	assert.Equal(t, domain.SeverityAttention, part.Anomalies[0].Severity)

	policy := DefaultPolicy()
	policy.UrgentEmptyPerEntity = 0
	part = DetectUnexpectedEmpty(records, nil, monday, policy)
	require.Len(t, part.Anomalies, 1)
	assert.Equal(t, domain.SeverityUrgent, part.Anomalies[0].Severity)
}
