package domain

// Stats are per-invocation counters for operator logs.
type Stats struct {
	Total      int `json:"total_records"`
	Candidates int `json:"candidates"`
	Expected   int `json:"expected,omitempty"`
	Flagged    int `json:"flagged"`
}

// Partition is the outcome of one detector over one source.
type Partition struct {
	Detector  string
	OK        []FileRecord
	Anomalies []Anomaly
	Stats     Stats
}

// GroupKey names the identity used to form a duplicate group.
type GroupKey string

const (
	GroupByFilename     GroupKey = "filename"
	GroupByCleanedBatch GroupKey = "cleaned_filename+batch"
)

// DuplicateGroup lists the indices of records sharing one identity key.
type DuplicateGroup struct {
	KeyType  GroupKey
	KeyValue []string
	Members  []int
}

// RemovedRecord is a discarded duplicate with the reason it was discarded.
type RemovedRecord struct {
	Record FileRecord
	Reason string
}

// MarshalJSON renders the record with its dedupe_reason.
func (r RemovedRecord) MarshalJSON() ([]byte, error) {
	return mergeFields(r.Record, map[string]any{"dedupe_reason": r.Reason})
}

// DedupeStats summarises a dedupe pass.
type DedupeStats struct {
	Total           int `json:"total_records"`
	DuplicateGroups int `json:"duplicate_groups"`
	Final           int `json:"final_count"`
	Removed         int `json:"removed_count"`
	Harmless        int `json:"harmless_count"`
}

// DedupeResult holds the canonical record set and the discarded copies.
type DedupeResult struct {
	Final    []FileRecord
	Removed  []RemovedRecord
	Harmless []FileRecord
	Groups   []DuplicateGroup
	Stats    DedupeStats
}

// RemovedIdentities indexes removed records by their identity key.
func (d DedupeResult) RemovedIdentities() map[Identity]struct{} {
	out := make(map[Identity]struct{}, len(d.Removed))
	for _, item := range d.Removed {
		out[item.Record.Identity()] = struct{}{}
	}
	return out
}
