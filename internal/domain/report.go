package domain

// SourceReport is everything produced for one source in one run.
type SourceReport struct {
	Source     string
	ExecDate   string
	Dedupe     DedupeResult
	Partitions []Partition
	Anomalies  []Anomaly
	Err        error
}

// Failed reports whether the source could not be processed.
func (r SourceReport) Failed() bool {
	return r.Err != nil
}

// SourceSummary is the per-source line of a run summary.
type SourceSummary struct {
	Source    string         `json:"source_id"`
	Records   int            `json:"records"`
	Final     int            `json:"final"`
	Anomalies int            `json:"anomalies"`
	Urgent    int            `json:"urgent"`
	ByType    map[string]int `json:"by_type,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// RunSummary describes a whole detection run.
type RunSummary struct {
	RunID         string          `json:"run_id"`
	Date          string          `json:"date"`
	Weekday       string          `json:"weekday"`
	Sources       []SourceSummary `json:"sources"`
	AnomalyCount  int             `json:"anomalies_count"`
	UrgentCount   int             `json:"urgent_count"`
	NewIncidents  int             `json:"new_incidents"`
	FailedSources int             `json:"failed_sources"`
}

// Summarize condenses a source report.
func (r SourceReport) Summarize() SourceSummary {
	s := SourceSummary{
		Source:    r.Source,
		Records:   r.Dedupe.Stats.Total,
		Final:     r.Dedupe.Stats.Final,
		Anomalies: len(r.Anomalies),
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	if len(r.Anomalies) > 0 {
		s.ByType = map[string]int{}
	}
	for _, a := range r.Anomalies {
		s.ByType[string(a.Type)]++
		if a.Severity == SeverityUrgent {
			s.Urgent++
		}
	}
	return s
}

// ReportedIncident is the ledger row kept for an anomaly that was notified.
type ReportedIncident struct {
	Fingerprint string
	Source      string
	Type        IncidentType
	Severity    Severity
	Reason      string
	Filename    string
	Entity      string
}
