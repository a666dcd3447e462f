package detector

import (
	"fmt"
	"strings"
	"time"

	"IncidentScanner/internal/domain"
)

const reasonNoProcessed = "no_processed (no keeper selected)"

type bucket struct {
	key     []string
	members []int
}

// collect groups the given record indices by key, keeping first-seen order.
// Records for which keyOf returns false are left out.
func collect(records []domain.FileRecord, indices []int, keyOf func(domain.FileRecord) ([]string, bool)) []bucket {
	var buckets []bucket
	pos := map[string]int{}
	for _, i := range indices {
		key, ok := keyOf(records[i])
		if !ok {
			continue
		}
		joined := strings.Join(key, "\x1f")
		if at, seen := pos[joined]; seen {
			buckets[at].members = append(buckets[at].members, i)
			continue
		}
		pos[joined] = len(buckets)
		buckets = append(buckets, bucket{key: key, members: []int{i}})
	}
	return buckets
}

func byFilename(r domain.FileRecord) ([]string, bool) {
	if r.Filename == "" {
		return nil, false
	}
	return []string{r.Filename}, true
}

func byCleanedBatch(r domain.FileRecord) ([]string, bool) {
	if r.CleanedFilename == "" {
		return nil, false
	}
	return []string{r.CleanedFilename, r.Batch}, true
}

// Dedupe establishes the canonical record set of one source. Records sharing
// a filename, or else a (cleaned_filename, batch) pair, form duplicate groups;
// each group keeps at most one processed record.
func Dedupe(records []domain.FileRecord) domain.DedupeResult {
	grouped := make([]bool, len(records))
	var groups []domain.DuplicateGroup

	all := make([]int, len(records))
	for i := range records {
		all[i] = i
	}

	for _, b := range collect(records, all, byFilename) {
		if len(b.members) < 2 {
			continue
		}
		groups = append(groups, domain.DuplicateGroup{KeyType: domain.GroupByFilename, KeyValue: b.key, Members: b.members})
		for _, i := range b.members {
			grouped[i] = true
		}
	}

	var remaining []int
	for i := range records {
		if !grouped[i] {
			remaining = append(remaining, i)
		}
	}
	for _, b := range collect(records, remaining, byCleanedBatch) {
		if len(b.members) < 2 {
			continue
		}
		groups = append(groups, domain.DuplicateGroup{KeyType: domain.GroupByCleanedBatch, KeyValue: b.key, Members: b.members})
		for _, i := range b.members {
			grouped[i] = true
		}
	}

	var result domain.DedupeResult
	for i, r := range records {
		if !grouped[i] {
			result.Final = append(result.Final, r)
		}
	}

	for _, g := range groups {
		var processed []int
		for _, i := range g.Members {
			if records[i].IsProcessed() {
				processed = append(processed, i)
			}
		}

		switch len(processed) {
		case 0:
			for _, i := range g.Members {
				result.Removed = append(result.Removed, domain.RemovedRecord{Record: records[i], Reason: reasonNoProcessed})
			}
		case 1:
			keeper := processed[0]
			result.Final = append(result.Final, records[keeper])
			for _, i := range g.Members {
				if i != keeper {
					result.Harmless = append(result.Harmless, records[i])
				}
			}
		default:
			keeper := chooseKeeper(records, processed)
			result.Final = append(result.Final, records[keeper])
			reason := fmt.Sprintf("multi_processed (keeper=%s)", records[keeper].Filename)
			for _, i := range g.Members {
				if i != keeper {
					result.Removed = append(result.Removed, domain.RemovedRecord{Record: records[i], Reason: reason})
				}
			}
		}
	}

	result.Groups = groups
	result.Stats = domain.DedupeStats{
		Total:           len(records),
		DuplicateGroups: len(groups),
		Final:           len(result.Final),
		Removed:         len(result.Removed),
		Harmless:        len(result.Harmless),
	}
	return result
}

// chooseKeeper prefers more rows, then the larger file, then the latest
// upload. The first candidate wins an exact tie.
func chooseKeeper(records []domain.FileRecord, candidates []int) int {
	best := candidates[0]
	for _, i := range candidates[1:] {
		if keeperLess(records[best], records[i]) {
			best = i
		}
	}
	return best
}

func keeperLess(a, b domain.FileRecord) bool {
	ar, _ := a.RowCount()
	br, _ := b.RowCount()
	if ar != br {
		return ar < br
	}
	if a.Size() != b.Size() {
		return a.Size() < b.Size()
	}
	return uploadInstant(a).Before(uploadInstant(b))
}

func uploadInstant(r domain.FileRecord) time.Time {
	if ts, ok := r.UploadedTime(); ok {
		return ts
	}
	return time.Unix(0, 0)
}
