package detector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IncidentScanner/internal/domain"
)

func TestDedupeKeepsRecordWithMostRows(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("a.csv", rows(10), uploaded("2025-09-08T08:00:00Z")),
		record("a.csv", rows(20), uploaded("2025-09-08T07:00:00Z")),
		record("b.csv", rows(5)),
	}

	got := Dedupe(records)

	require.Len(t, got.Final, 2)
	assert.Equal(t, []string{"b.csv", "a.csv"}, filenames(got.Final))
	keeperRows, _ := got.Final[1].RowCount()
	assert.EqualValues(t, 20, keeperRows)

	require.Len(t, got.Removed, 1)
	removedRows, _ := got.Removed[0].Record.RowCount()
	assert.EqualValues(t, 10, removedRows)
	assert.Equal(t, "multi_processed (keeper=a.csv)", got.Removed[0].Reason)
	assert.Empty(t, got.Harmless)
	assert.Equal(t, domain.DedupeStats{Total: 3, DuplicateGroups: 1, Final: 2, Removed: 1}, got.Stats)
}

func TestDedupeTieBreaksOnSizeThenUploadTime(t *testing.T) {
	t.Parallel()

	small, large := 1.0, 2.0
	bySize := Dedupe([]domain.FileRecord{
		record("a.csv", rows(10), func(r *domain.FileRecord) { r.FileSize = &large }, uploaded("2025-09-08T01:00:00Z")),
		record("a.csv", rows(10), func(r *domain.FileRecord) { r.FileSize = &small }, uploaded("2025-09-08T02:00:00Z")),
	})
	require.Len(t, bySize.Final, 1)
	assert.Equal(t, "2025-09-08T01:00:00Z", bySize.Final[0].UploadedAt)

	byTime := Dedupe([]domain.FileRecord{
		record("a.csv", rows(10), uploaded("2025-09-08T01:00:00Z")),
		record("a.csv", rows(10), uploaded("2025-09-08T03:00:00Z")),
		record("a.csv", rows(10), uploaded("not a time")),
	})
	require.Len(t, byTime.Final, 1)
	assert.Equal(t, "2025-09-08T03:00:00Z", byTime.Final[0].UploadedAt)
	assert.Len(t, byTime.Removed, 2)
}

func TestDedupeGroupWithoutProcessedIsRemoved(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("x_1.csv", cleaned("x.csv"), batch("b1"), status(domain.StatusFailed)),
		record("x_2.csv", cleaned("x.csv"), batch("b1"), status(domain.StatusEmpty)),
		record("x_3.csv", cleaned("x.csv"), batch("b2"), status(domain.StatusFailed)),
	}

	got := Dedupe(records)

	assert.Equal(t, []string{"x_3.csv"}, filenames(got.Final))
	require.Len(t, got.Removed, 2)
	for _, item := range got.Removed {
		assert.Equal(t, "no_processed (no keeper selected)", item.Reason)
	}
	require.Len(t, got.Groups, 1)
	assert.Equal(t, domain.GroupByCleanedBatch, got.Groups[0].KeyType)
	assert.Equal(t, []string{"x.csv", "b1"}, got.Groups[0].KeyValue)
}

func TestDedupeSingleProcessedLeavesHarmlessCopies(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("a.csv", status(domain.StatusFailed), uploaded("2025-09-08T01:00:00Z")),
		record("a.csv", rows(3), uploaded("2025-09-08T02:00:00Z")),
	}

	got := Dedupe(records)

	require.Len(t, got.Final, 1)
	assert.Equal(t, domain.StatusProcessed, got.Final[0].Status)
	require.Len(t, got.Harmless, 1)
	assert.Equal(t, domain.StatusFailed, got.Harmless[0].Status)
	assert.Empty(t, got.Removed)
}

func TestDedupeNeverGroupsEmptyNames(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		{Status: domain.StatusProcessed},
		{Status: domain.StatusProcessed},
	}

	got := Dedupe(records)

	assert.Len(t, got.Final, 2)
	assert.Empty(t, got.Groups)
}

func TestDedupePartitionsEveryRecordOnce(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("a.csv", rows(1), uploaded("2025-09-08T01:00:00Z")),
		record("a.csv", rows(2), uploaded("2025-09-08T02:00:00Z")),
		record("a.csv", status(domain.StatusFailed), uploaded("2025-09-08T03:00:00Z")),
		record("b_1.csv", cleaned("b.csv"), status(domain.StatusFailed)),
		record("b_2.csv", cleaned("b.csv"), status(domain.StatusFailed)),
		record("c.csv", rows(9)),
	}

	got := Dedupe(records)

	// one ungrouped record plus one group that has a processed member
	assert.Len(t, got.Final, 2)
	assert.Equal(t, len(records), len(got.Final)+len(got.Removed)+len(got.Harmless))
	assert.Equal(t, len(records), got.Stats.Final+got.Stats.Removed+got.Stats.Harmless)
}

func TestDedupeIsIdempotent(t *testing.T) {
	t.Parallel()

	records := []domain.FileRecord{
		record("a.csv", rows(1), uploaded("2025-09-08T01:00:00Z")),
		record("a.csv", rows(2), uploaded("2025-09-08T02:00:00Z")),
		record("b_1.csv", cleaned("b.csv"), rows(4)),
		record("b_2.csv", cleaned("b.csv"), status(domain.StatusFailed)),
	}

	first := Dedupe(records)
	second := Dedupe(first.Final)

	if diff := cmp.Diff(first.Final, second.Final); diff != "" {
		t.Fatalf("second pass changed the final set (-first +second):\n%s", diff)
	}
	assert.Empty(t, second.Removed)
	assert.Empty(t, second.Harmless)
}
