package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UnmarshalJSON decodes a record leniently: a field with the wrong shape is
// treated as unknown instead of failing the whole batch. Only a value that is
// not a JSON object is rejected.
func (r *FileRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: record is not an object: %v", ErrMalformedBatch, err)
	}

	*r = FileRecord{
		Filename:        looseString(fields["filename"]),
		CleanedFilename: looseString(fields["cleaned_filename"]),
		Batch:           looseString(fields["batch"]),
		Entity:          looseString(fields["entity"]),
		Rows:            looseInt(fields["rows"]),
		Status:          Status(looseString(fields["status"])),
		IsDuplicated:    looseBool(fields["is_duplicated"]),
		FileSize:        looseFloat(fields["file_size"]),
		UploadedAt:      looseString(fields["uploaded_at"]),
		CoveredDate:     looseString(fields["covered_date"]),
		Extension:       looseString(fields["extension"]),
		StatusMessage:   looseString(fields["status_message"]),
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func looseString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func looseFloat(raw json.RawMessage) *float64 {
	if isNull(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(parsed) {
			return &parsed
		}
	}
	return nil
}

func looseInt(raw json.RawMessage) *int64 {
	f := looseFloat(raw)
	if f == nil || math.IsInf(*f, 0) {
		return nil
	}
	n := int64(*f)
	return &n
}

func looseBool(raw json.RawMessage) *bool {
	if isNull(raw) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return &parsed
		}
		return nil
	}
	if f := looseFloat(raw); f != nil {
		v := *f != 0
		return &v
	}
	return nil
}

// mergeFields renders v as a JSON object and adds extra keys on top of it.
func mergeFields(v any, extra map[string]any) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for k, val := range extra {
		out[k] = val
	}
	return json.Marshal(out)
}
