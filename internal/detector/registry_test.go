package detector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IncidentScanner/internal/domain"
)

func TestDefaultRegistrySelect(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()

	all, err := reg.Select(nil)
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, d := range all {
		names[i] = d.Name()
	}
	assert.Equal(t, []string{NameUnexpectedEmpty, NameVolume, NameUploadSchedule, NameMissing}, names)

	some, err := reg.Select([]string{NameMissing, NameVolume})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, NameMissing, some[0].Name())

	_, err = reg.Select([]string{"nope"})
	assert.Error(t, err)
}

func TestRegisterReplacesByName(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(detectorFunc{name: "x", run: func(Input) domain.Partition { return domain.Partition{Detector: "first"} }})
	reg.Register(detectorFunc{name: "x", run: func(Input) domain.Partition { return domain.Partition{Detector: "second"} }})

	all, err := reg.Select(nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Detect(Input{}).Detector)
}

const fullCV = `{
	"volume_characteristics_section": {"overall": {"rows_stats": {"min": 100, "max": 200, "median": 150}}},
	"day_of_week_section_pattern": {"entity_weekday": [
		{"entity": "E1", "day": "Mon", "median_files": 1, "median_empty": 0},
		{"entity": "E5", "day": "Mon", "median_files": 3}
	]},
	"file_processing_pattern_section": {"upload_schedule_by_day": [
		{"day": "Mon", "expected_window_utc": "07:00:00-09:00:00 UTC"}
	]}
}`

// Every detector is pure: the same input gives the same partition and the
// input records are left untouched.
func TestDetectorsArePure(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("empty.csv", rows(0), entity("E1")),
		record("small.csv", rows(12), entity("E1")),
		record("late.csv", rows(150), entity("E1"), uploaded("2025-09-08T18:00:00Z")),
	}
	snapshot := make([]domain.FileRecord, len(records))
	copy(snapshot, records)

	in := Input{
		Source:  "src",
		Records: records,
		CV:      mustCV(t, fullCV),
		Exec:    monday,
		Policy:  DefaultPolicy(),
	}

	all, err := DefaultRegistry().Select(nil)
	require.NoError(t, err)

	flagged := 0
	for _, d := range all {
		first := d.Detect(in)
		second := d.Detect(in)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("%s is not deterministic (-first +second):\n%s", d.Name(), diff)
		}
		flagged += len(first.Anomalies)
	}

	if diff := cmp.Diff(snapshot, records); diff != "" {
		t.Fatalf("detectors mutated their input (-before +after):\n%s", diff)
	}
	assert.Equal(t, 4, flagged)
}
