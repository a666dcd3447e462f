package domain

import "encoding/json"

// IncidentType names the rule that produced an anomaly.
type IncidentType string

const (
	IncidentDuplicate       IncidentType = "duplicate"
	IncidentStatusFailure   IncidentType = "status_failure"
	IncidentUnexpectedEmpty IncidentType = "unexpected_empty"
	IncidentVolume          IncidentType = "volume_anomaly"
	IncidentLateUpload      IncidentType = "upload_after_schedule"
	IncidentMissingFiles    IncidentType = "missing_files"
	IncidentMissingSource   IncidentType = "missing_source"
)

// Severity tells operators how soon to look.
type Severity string

const (
	SeverityAttention Severity = "attention"
	SeverityUrgent    Severity = "urgent"
)

// Confidence qualifies synthetic missing-file incidents.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// Annotation is the classification attached to a record.
type Annotation struct {
	Type     IncidentType
	Reason   string
	Severity Severity
	// Code is the machine-readable cause behind Reason (e.g. "status=failed").
	Code string
}

// Band is an accepted [Lo, Hi] range of row counts with its reference center.
type Band struct {
	Lo     float64
	Hi     float64
	Center float64
}

// Contains reports whether v lies inside the band, bounds included.
func (b Band) Contains(v float64) bool {
	return v >= b.Lo && v <= b.Hi
}

// SourceMeta identifies a source as described by its CV title section.
type SourceMeta struct {
	ResourceID     string `json:"resource_id,omitempty"`
	WorkspaceID    string `json:"workspace_id,omitempty"`
	DatasourceName string `json:"datasource_cv_name,omitempty"`
}

// MissingContext describes an expected upload that never arrived.
type MissingContext struct {
	ExpectedCountHint int
	ActualCount       int
	Weekday           string
	ExecDate          string
	Confidence        Confidence
	Support           SourceMeta
}

// Anomaly wraps a record with the annotation of the detector that flagged it.
// Synthetic incidents (missing files or sources) carry a zero Record apart
// from Entity.
type Anomaly struct {
	Record FileRecord
	Annotation
	Source       string
	Weekday      string
	DedupeReason string
	Band         *Band
	Missing      *MissingContext
}

// NewAnomaly annotates a copy of r.
func NewAnomaly(r FileRecord, a Annotation) Anomaly {
	return Anomaly{Record: r, Annotation: a}
}

// Synthetic reports whether the anomaly stands for an absent upload.
func (a Anomaly) Synthetic() bool {
	return a.Missing != nil
}

// MarshalJSON flattens the record fields and the annotation into one object.
func (a Anomaly) MarshalJSON() ([]byte, error) {
	extra := map[string]any{
		"incident_type":   a.Type,
		"incident_reason": a.Reason,
		"severity":        a.Severity,
	}
	if a.Code != "" {
		extra["incident_code"] = a.Code
	}
	if a.Source != "" {
		extra["source_id"] = a.Source
	}
	if a.Weekday != "" {
		extra["weekday_utc"] = a.Weekday
	}
	if a.DedupeReason != "" {
		extra["dedupe_reason"] = a.DedupeReason
	}
	if a.Band != nil {
		extra["expected_lo"] = a.Band.Lo
		extra["expected_hi"] = a.Band.Hi
		extra["expected_center"] = a.Band.Center
	}

	if a.Missing == nil {
		return mergeFields(a.Record, extra)
	}

	extra["actual_count"] = a.Missing.ActualCount
	extra["weekday"] = a.Missing.Weekday
	extra["exec_date_utc"] = a.Missing.ExecDate
	extra["confidence_hint"] = a.Missing.Confidence
	extra["support"] = a.Missing.Support
	if a.Type == IncidentMissingFiles {
		extra["entity"] = a.Record.Entity
		extra["expected_count_hint"] = a.Missing.ExpectedCountHint
	} else {
		extra["expected_activity"] = true
	}
	return json.Marshal(extra)
}
