package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IncidentScanner/internal/domain"
)

func entityEmptyCV(medianEmpty string) string {
	return `{"day_of_week_section_pattern": {"entity_weekday": [
		{"entity": "E1", "day": "Mon", "median_files": 2, "median_empty": ` + medianEmpty + `}
	]}}`
}

func TestUnexpectedEmptyFollowsEntityMedian(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("e1.csv", rows(0), entity("E1"), covered("2025-09-08")),
		record("full.csv", rows(12), entity("E1")),
	}

	expected := DetectUnexpectedEmpty(records, mustCV(t, entityEmptyCV("2")), monday, DefaultPolicy())
	assert.Empty(t, expected.Anomalies)
	assert.Len(t, expected.OK, 2)
	assert.Equal(t, 1, expected.Stats.Expected)

	unexpected := DetectUnexpectedEmpty(records, mustCV(t, entityEmptyCV("0")), monday, DefaultPolicy())
	require.Len(t, unexpected.Anomalies, 1)
	a := unexpected.Anomalies[0]
	assert.Equal(t, domain.IncidentUnexpectedEmpty, a.Type)
	assert.Equal(t, domain.SeverityAttention, a.Severity)
	assert.Equal(t, "Mon", a.Weekday)
	assert.Equal(t, "Rows are 0 where empties are not expected on Mon.", a.Reason)
	assert.Equal(t, 1, unexpected.Stats.Candidates)
}

func TestUnexpectedEmptyFallsBackThroughChain(t *testing.T) {
	t.Parallel()

	r := []domain.FileRecord{record("z.csv", rows(0), entity("E9"))}

	cases := []struct {
		name    string
		cv      string
		flagged bool
	}{
		{name: "no cv evidence", cv: `{}`, flagged: true},
		{
			name:    "weekday empty_files positive",
			cv:      `{"day_of_week_section_pattern": {"weekday": [{"day": "Mon", "empty_files": {"median": 0, "max": 3}}]}}`,
			flagged: false,
		},
		{
			name:    "weekday empty_files all zero",
			cv:      `{"day_of_week_section_pattern": {"weekday": [{"day": "Mon", "empty_files": {"median": 0, "max": 0}}]}}`,
			flagged: true,
		},
		{
			name:    "volume weekday empty_files",
			cv:      `{"volume_characteristics_section": {"per_weekday": [{"day": "Mon", "empty_files": {"mean": 0.4}}]}}`,
			flagged: false,
		},
		{
			name:    "status percentages",
			cv:      `{"file_processing_pattern_section": {"status_percentages": {"processed": 90, "empty": "10%"}}}`,
			flagged: false,
		},
		{
			name:    "entity row without median_empty defers",
			cv:      `{"day_of_week_section_pattern": {"entity_weekday": [{"entity": "E9", "day": "Mon", "median_empty": null}], "weekday": [{"day": "Mon", "empty_files": {"median": 1}}]}}`,
			flagged: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			part := DetectUnexpectedEmpty(r, mustCV(t, tc.cv), monday, DefaultPolicy())
			assert.Equal(t, tc.flagged, len(part.Anomalies) == 1)
		})
	}
}

func TestUnexpectedEmptyStatusCandidates(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("nodata.csv", status(domain.StatusNoData)),
		record("empty.csv", status(domain.StatusEmpty)),
		record("unknown-rows.csv"),
	}

	part := DetectUnexpectedEmpty(records, nil, monday, DefaultPolicy())

	assert.ElementsMatch(t, []string{"nodata.csv", "empty.csv"}, anomalyFilenames(part.Anomalies))
	assert.Equal(t, []string{"unknown-rows.csv"}, filenames(part.OK))
}

func TestUnexpectedEmptyEscalatesBusyEntity(t *testing.T) {
	t.Parallel()

	var records []domain.FileRecord
	for _, name := range []string{"a", "b", "c", "d"} {
		records = append(records, record(name+".csv", rows(0), entity("LOUD")))
	}
	for _, name := range []string{"x", "y", "z"} {
		records = append(records, record(name+".csv", rows(0), entity("QUIET")))
	}

	part := DetectUnexpectedEmpty(records, nil, monday, DefaultPolicy())

	require.Len(t, part.Anomalies, 7)
	for _, a := range part.Anomalies {
		want := domain.SeverityAttention
		if a.Record.Entity == "LOUD" {
			want = domain.SeverityUrgent
		}
		assert.Equal(t, want, a.Severity, a.Record.Filename)
	}
}

func TestUnexpectedEmptyThresholdIsConfigurable(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("a.csv", rows(0), entity("E")),
		record("b.csv", rows(0), entity("E")),
	}
	policy := DefaultPolicy()
	policy.UrgentEmptyPerEntity = 1

	part := DetectUnexpectedEmpty(records, nil, monday, policy)

	for _, a := range part.Anomalies {
		assert.Equal(t, domain.SeverityUrgent, a.Severity)
	}
}

func anomalyFilenames(anomalies []domain.Anomaly) []string {
	out := make([]string, len(anomalies))
	for i, a := range anomalies {
		out[i] = a.Record.Filename
	}
	return out
}
