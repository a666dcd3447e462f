package cv

// Expectation is the answer of one step in an expectation lookup chain.
type Expectation int

const (
	Unknown Expectation = iota
	Expected
	NotExpected
)

func (e Expectation) String() string {
	switch e {
	case Expected:
		return "expected"
	case NotExpected:
		return "not_expected"
	default:
		return "unknown"
	}
}

// FromBool converts a definite answer.
func FromBool(b bool) Expectation {
	if b {
		return Expected
	}
	return NotExpected
}

// FirstKnown evaluates lookups in order and returns the first answer that is
// not Unknown.
func FirstKnown(lookups ...func() Expectation) Expectation {
	for _, lookup := range lookups {
		if e := lookup(); e != Unknown {
			return e
		}
	}
	return Unknown
}

// blockExpectation reads an empty_files block: any positive central or
// extreme statistic means empties happen; keys that are all non-positive mean
// they do not; no keys at all says nothing.
func blockExpectation(b StatBlock) Expectation {
	keys := []Value{b.Min, b.Mean, b.Median, b.Mode, b.Max}
	sawKey := false
	for _, v := range keys {
		if !v.Present() {
			continue
		}
		sawKey = true
		if v.Positive() {
			return Expected
		}
	}
	if sawKey {
		return NotExpected
	}
	return Unknown
}

func findWeekday(rows []WeekdayRow, day string) (WeekdayRow, bool) {
	for _, row := range rows {
		if row.Day.String() == day {
			return row, true
		}
	}
	return WeekdayRow{}, false
}

// EntityWeekdayEmpty answers whether empties are normal for entity on day
// using the entity x weekday median_empty.
func (d *Document) EntityWeekdayEmpty(entity, day string) Expectation {
	if d == nil {
		return Unknown
	}
	for _, row := range d.DayOfWeek.EntityWeekday {
		if row.Entity.String() != entity || row.Day.String() != day {
			continue
		}
		median, ok := row.MedianEmpty.Float()
		if !ok {
			return Unknown
		}
		return FromBool(median > 0)
	}
	return Unknown
}

// WeekdayEmptyFiles reads the day-of-week table's empty_files block.
func (d *Document) WeekdayEmptyFiles(day string) Expectation {
	if d == nil {
		return Unknown
	}
	row, ok := findWeekday(d.DayOfWeek.Weekday, day)
	if !ok {
		return Unknown
	}
	return blockExpectation(row.EmptyFiles)
}

// VolumeWeekdayEmptyFiles reads the volume section's per-weekday empty_files block.
func (d *Document) VolumeWeekdayEmptyFiles(day string) Expectation {
	if d == nil {
		return Unknown
	}
	row, ok := findWeekday(d.Volume.PerWeekday, day)
	if !ok {
		return Unknown
	}
	return blockExpectation(row.EmptyFiles)
}

var emptyStatusKeys = []string{"empty", "empties", "empty_files"}

// StatusEmptyShare answers from the overall status percentages.
func (d *Document) StatusEmptyShare() Expectation {
	if d == nil {
		return Unknown
	}
	for _, key := range emptyStatusKeys {
		v, ok := d.Processing.StatusPercentages[key]
		if !ok {
			continue
		}
		if pct, ok := v.Float(); ok {
			return FromBool(pct > 0)
		}
	}
	return Unknown
}

// ZeroExpected walks from the most specific evidence to the least specific;
// with no evidence at all an empty file is not expected.
func (d *Document) ZeroExpected(entity, day string) bool {
	answer := FirstKnown(
		func() Expectation { return d.EntityWeekdayEmpty(entity, day) },
		func() Expectation { return d.WeekdayEmptyFiles(day) },
		func() Expectation { return d.VolumeWeekdayEmptyFiles(day) },
		d.StatusEmptyShare,
	)
	return answer == Expected
}

// PerWeekdayVolumePresent reports the extraction's per-weekday presence flag.
func (d *Document) PerWeekdayVolumePresent() bool {
	return d != nil && bool(d.Volume.Presence.PerWeekday)
}

// WeekdayRows returns the per-weekday row statistics of the volume section.
func (d *Document) WeekdayRows(day string) (StatBlock, bool) {
	if d == nil {
		return StatBlock{}, false
	}
	row, ok := findWeekday(d.Volume.PerWeekday, day)
	if !ok {
		return StatBlock{}, false
	}
	return row.Rows, true
}

// OverallRows returns the overall per-file row statistics.
func (d *Document) OverallRows() StatBlock {
	if d == nil {
		return StatBlock{}
	}
	return d.Volume.Overall.RowsStats
}

// Normal95 returns the overall 95% interval.
func (d *Document) Normal95() Interval {
	if d == nil {
		return Interval{}
	}
	return d.Volume.Overall.Normal95
}

// ScheduleFor returns the upload schedule row of day.
func (d *Document) ScheduleFor(day string) (ScheduleRow, bool) {
	if d == nil {
		return ScheduleRow{}, false
	}
	for _, row := range d.Processing.UploadScheduleByDay {
		if row.Day.String() == day {
			return row, true
		}
	}
	return ScheduleRow{}, false
}

// HasEntityWeekday reports whether the entity x weekday table has any rows.
func (d *Document) HasEntityWeekday() bool {
	return d != nil && len(d.DayOfWeek.EntityWeekday) > 0
}

// EntityWeekdayRows returns the entity rows recorded for day.
func (d *Document) EntityWeekdayRows(day string) []EntityWeekdayRow {
	if d == nil {
		return nil
	}
	var out []EntityWeekdayRow
	for _, row := range d.DayOfWeek.EntityWeekday {
		if row.Day.String() == day {
			out = append(out, row)
		}
	}
	return out
}

// WeekdayRowsMedian returns the day-of-week rows median for day. A row
// without a median counts as zero; a missing row returns ok=false.
func (d *Document) WeekdayRowsMedian(day string) (median float64, ok bool) {
	if d == nil {
		return 0, false
	}
	row, found := findWeekday(d.DayOfWeek.Weekday, day)
	if !found {
		return 0, false
	}
	if v, set := row.Rows.Median.Float(); set {
		return v, true
	}
	return 0, true
}
