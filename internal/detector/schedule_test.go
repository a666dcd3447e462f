package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IncidentScanner/internal/domain"
)

const windowCV = `{"file_processing_pattern_section": {"upload_schedule_by_day": [
	{"day": "Mon", "expected_window_utc": "07:00:00-09:00:00 UTC", "upload_lag_days_mode": 0}
]}}`

func TestLateUploadsAgainstWindow(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("late.csv", uploaded("2025-09-08T14:00:00Z"), covered("2025-09-08")),
		record("ontime.csv", uploaded("2025-09-08T10:30:00Z"), covered("2025-09-08")),
		record("grace.csv", uploaded("2025-09-08T13:00:00Z")),
		record("notime.csv", uploaded("")),
	}

	part := DetectLateUploads(records, mustCV(t, windowCV), monday, DefaultPolicy())

	require.Len(t, part.Anomalies, 1)
	a := part.Anomalies[0]
	assert.Equal(t, "late.csv", a.Record.Filename)
	assert.Equal(t, domain.IncidentLateUpload, a.Type)
	assert.Equal(t, "Mon", a.Weekday)
	assert.Equal(t, "Uploaded 5.0h after expected cutoff (09:00 UTC) for Mon.", a.Reason)
	assert.Equal(t, 3, part.Stats.Candidates)
	assert.Len(t, part.OK, 3)
}

func TestLateUploadsSkipsBackfills(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("backfill.csv", uploaded("2025-09-08T14:00:00Z"), covered("2025-09-01")),
	}

	part := DetectLateUploads(records, mustCV(t, windowCV), monday, DefaultPolicy())
	assert.Empty(t, part.Anomalies)

	noMode := mustCV(t, `{"file_processing_pattern_section": {"upload_schedule_by_day": [
		{"day": "Mon", "upload_hour_slot_median_utc": "09:00"}
	]}}`)
	part = DetectLateUploads(records, noMode, monday, DefaultPolicy())
	assert.Empty(t, part.Anomalies, "lag above tolerance without a mode is a backfill")

	usualLag := mustCV(t, `{"file_processing_pattern_section": {"upload_schedule_by_day": [
		{"day": "Mon", "upload_hour_slot_median_utc": "09:00", "upload_lag_days_mode": 7}
	]}}`)
	part = DetectLateUploads(records, usualLag, monday, DefaultPolicy())
	assert.Len(t, part.Anomalies, 1, "lag matching the usual mode is judged")
}

func TestLateUploadsUsesUploadWeekday(t *testing.T) {
	t.Parallel()

	doc := mustCV(t, `{"file_processing_pattern_section": {"upload_schedule_by_day": [
		{"day": "Tue", "upload_hour_slot_mode_utc": "06:00"}
	]}}`)
	records := []domain.FileRecord{record("tue.csv", uploaded("2025-09-09T11:00:00Z"))}

	part := DetectLateUploads(records, doc, monday, DefaultPolicy())

	require.Len(t, part.Anomalies, 1)
	assert.Equal(t, "Tue", part.Anomalies[0].Weekday)
}

func TestLateUploadsJudgesOffsetTimestampsInUTC(t *testing.T) {
	t.Parallel()

	doc := mustCV(t, `{"file_processing_pattern_section": {"upload_schedule_by_day": [
		{"day": "Mon", "upload_hour_slot_mode_utc": "06:00"}
	]}}`)
	// Tuesday 03:00 at +05:00 is Monday 22:00 UTC.
	records := []domain.FileRecord{record("east.csv", uploaded("2025-09-09T03:00:00+05:00"))}

	part := DetectLateUploads(records, doc, monday, DefaultPolicy())

	require.Len(t, part.Anomalies, 1)
	a := part.Anomalies[0]
	assert.Equal(t, "Mon", a.Weekday)
	assert.Equal(t, "Uploaded 16.0h after expected cutoff (06:00 UTC) for Mon.", a.Reason)
}

func TestLateUploadsThresholdIsConfigurable(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{record("a.csv", uploaded("2025-09-08T10:30:00Z"))}
	policy := DefaultPolicy()
	policy.LateThreshold = time.Hour

	part := DetectLateUploads(records, mustCV(t, windowCV), monday, policy)

	assert.Len(t, part.Anomalies, 1)
}

func TestParseWindowEnd(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{in: "07:00:00-09:00:00 UTC", want: 540, ok: true},
		{in: "07:00 – 09:30 UTC", want: 570, ok: true},
		{in: "18:00-23:59", want: 1439, ok: true},
		{in: "", ok: false},
		{in: "UTC", ok: false},
		{in: "07:00-late", ok: false},
	}
	for _, tc := range cases {
		got, ok := parseWindowEnd(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestParseClockMinutes(t *testing.T) {
	t.Parallel()

	got, ok := parseClockMinutes("6")
	assert.True(t, ok)
	assert.Equal(t, 360, got)

	got, ok = parseClockMinutes(" 13:45 UTC")
	assert.True(t, ok)
	assert.Equal(t, 825, got)

	_, ok = parseClockMinutes("25:00")
	assert.False(t, ok)
	_, ok = parseClockMinutes("12:61")
	assert.False(t, ok)
}
