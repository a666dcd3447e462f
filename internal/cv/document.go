package cv

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"IncidentScanner/internal/domain"
)

// StatBlock holds the summary statistics the CV keeps for one measure.
type StatBlock struct {
	Min    Value `json:"min"`
	Max    Value `json:"max"`
	Mean   Value `json:"mean"`
	Median Value `json:"median"`
	Mode   Value `json:"mode"`
	Stdev  Value `json:"stdev"`
}

// WeekdayRow is one weekday of a per-weekday statistics table.
type WeekdayRow struct {
	Day             Text      `json:"day"`
	Rows            StatBlock `json:"rows"`
	EmptyFiles      StatBlock `json:"empty_files"`
	DuplicatedFiles StatBlock `json:"duplicated_files"`
	FailedFiles     StatBlock `json:"failed_files"`
	AnalysisNote    Text      `json:"analysis_note"`
}

// Interval is a [lo, hi] range of per-file rows.
type Interval struct {
	Lo Value `json:"lo"`
	Hi Value `json:"hi"`
}

// OverallVolume is the global per-file distribution.
type OverallVolume struct {
	FileCount  Value     `json:"file_count"`
	RowsStats  StatBlock `json:"rows_stats"`
	Normal95   Interval  `json:"normal_95"`
	EmptyFiles Value     `json:"empty_files"`
}

// VolumePresence records which volume blocks had real data at extraction.
type VolumePresence struct {
	PerWeekday Flag `json:"per_weekday_present"`
	Overall    Flag `json:"overall_present"`
}

// VolumeSection is volume_characteristics_section.
type VolumeSection struct {
	Presence   VolumePresence   `json:"presence"`
	PerWeekday List[WeekdayRow] `json:"per_weekday"`
	Overall    OverallVolume    `json:"overall"`
}

// EntityWeekdayRow holds per-entity medians for one weekday.
type EntityWeekdayRow struct {
	Entity           Text  `json:"entity"`
	Day              Text  `json:"day"`
	MedianFiles      Value `json:"median_files"`
	MedianRows       Value `json:"median_rows"`
	MedianDuplicated Value `json:"median_duplicated"`
	MedianFailed     Value `json:"median_failed"`
	MedianEmpty      Value `json:"median_empty"`
	ModeLagDays      Value `json:"mode_lag_days"`
}

// DayOfWeekSection is day_of_week_section_pattern.
type DayOfWeekSection struct {
	Weekday       List[WeekdayRow]       `json:"weekday"`
	EntityWeekday List[EntityWeekdayRow] `json:"entity_weekday"`
}

// ScheduleRow is the expected upload timing for one weekday.
type ScheduleRow struct {
	Day                     Text  `json:"day"`
	UploadHourSlotMeanUTC   Text  `json:"upload_hour_slot_mean_utc"`
	UploadHourSlotMedianUTC Text  `json:"upload_hour_slot_median_utc"`
	UploadHourSlotModeUTC   Text  `json:"upload_hour_slot_mode_utc"`
	ExpectedWindowUTC       Text  `json:"expected_window_utc"`
	UploadLagDaysMode       Value `json:"upload_lag_days_mode"`
}

// ProcessingSection is file_processing_pattern_section.
type ProcessingSection struct {
	UploadScheduleByDay List[ScheduleRow] `json:"upload_schedule_by_day"`
	StatusPercentages   Percentages       `json:"status_percentages"`
}

// TitleSection identifies the source the CV describes.
type TitleSection struct {
	ResourceID       Text `json:"resource_id"`
	WorkspaceID      Text `json:"workspace_id"`
	DatasourceCVName Text `json:"datasource_cv_name"`
}

// Document is the Characterization Vector of one source. Every section is
// optional; a nil *Document answers every lookup with "unknown".
type Document struct {
	Title      TitleSection      `json:"title_section"`
	Volume     VolumeSection     `json:"volume_characteristics_section"`
	DayOfWeek  DayOfWeekSection  `json:"day_of_week_section_pattern"`
	Processing ProcessingSection `json:"file_processing_pattern_section"`
}

// Blocks that are not JSON objects read as empty blocks.

func (b *StatBlock) UnmarshalJSON(data []byte) error {
	type plain StatBlock
	return decodeObject(data, (*plain)(b))
}

func (r *WeekdayRow) UnmarshalJSON(data []byte) error {
	type plain WeekdayRow
	return decodeObject(data, (*plain)(r))
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	type plain Interval
	return decodeObject(data, (*plain)(i))
}

func (o *OverallVolume) UnmarshalJSON(data []byte) error {
	type plain OverallVolume
	return decodeObject(data, (*plain)(o))
}

func (p *VolumePresence) UnmarshalJSON(data []byte) error {
	type plain VolumePresence
	return decodeObject(data, (*plain)(p))
}

func (s *VolumeSection) UnmarshalJSON(data []byte) error {
	type plain VolumeSection
	return decodeObject(data, (*plain)(s))
}

func (r *EntityWeekdayRow) UnmarshalJSON(data []byte) error {
	type plain EntityWeekdayRow
	return decodeObject(data, (*plain)(r))
}

func (s *DayOfWeekSection) UnmarshalJSON(data []byte) error {
	type plain DayOfWeekSection
	return decodeObject(data, (*plain)(s))
}

func (r *ScheduleRow) UnmarshalJSON(data []byte) error {
	type plain ScheduleRow
	return decodeObject(data, (*plain)(r))
}

func (s *ProcessingSection) UnmarshalJSON(data []byte) error {
	type plain ProcessingSection
	return decodeObject(data, (*plain)(s))
}

func (s *TitleSection) UnmarshalJSON(data []byte) error {
	type plain TitleSection
	return decodeObject(data, (*plain)(s))
}

// Decode parses a JSON CV document.
func Decode(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", domain.ErrMalformedCV)
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCV, err)
	}
	return &doc, nil
}

// DecodeYAML parses a YAML CV document. The document is re-read through the
// JSON decoder so both formats share one set of leniency rules, including
// present-but-null statistics.
func DecodeYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCV, err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a YAML mapping", domain.ErrMalformedCV)
	}

	var generic map[string]any
	if err := root.Content[0].Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCV, err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCV, err)
	}
	return Decode(asJSON)
}

// Meta returns the title-section identifiers.
func (d *Document) Meta() domain.SourceMeta {
	if d == nil {
		return domain.SourceMeta{}
	}
	return domain.SourceMeta{
		ResourceID:     d.Title.ResourceID.String(),
		WorkspaceID:    d.Title.WorkspaceID.String(),
		DatasourceName: d.Title.DatasourceCVName.String(),
	}
}
