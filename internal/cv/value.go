package cv

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a CV statistic. It remembers whether its key appeared in the
// document at all, which is not the same as the key holding a number.
type Value struct {
	number  float64
	set     bool
	present bool
}

// Number builds a present, numeric Value.
func Number(f float64) Value {
	return Value{number: f, set: true, present: true}
}

// Null builds a Value whose key is present but holds no number.
func Null() Value {
	return Value{present: true}
}

// Float returns the number when the value holds one.
func (v Value) Float() (float64, bool) {
	return v.number, v.set
}

// Present reports whether the key appeared in the document.
func (v Value) Present() bool {
	return v.present
}

// Positive reports whether the value holds a number greater than zero.
func (v Value) Positive() bool {
	return v.set && v.number > 0
}

// UnmarshalJSON never fails: anything that is not a number or a numeric
// string is kept as present-but-unknown.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{present: true}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		v.number, v.set = f, true
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		v.setFromString(s)
	}
	return nil
}

// MarshalJSON writes the number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.number)
}

func (v *Value) setFromString(s string) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return
	}
	v.number, v.set = f, true
}

// Text is a string field that tolerates numbers in its place.
type Text string

// UnmarshalJSON accepts strings and numbers; anything else reads as empty.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = Text(n.String())
	}
	return nil
}

// String returns the trimmed text.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// Flag is a presence flag. Booleans, numbers and boolean-like strings are
// accepted; anything else reads as false.
type Flag bool

// UnmarshalJSON never fails.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = false
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = n != 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "t", "true", "y", "yes", "on":
			*f = true
		}
	}
	return nil
}

// List is a CV table. A non-array reads as an empty table and elements that
// are not objects are skipped.
type List[T any] []T

// UnmarshalJSON never fails on shape.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make(List[T], 0, len(raw))
	for _, item := range raw {
		if !isObject(item) {
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// Percentages maps a status to its share. A non-object reads as empty.
type Percentages map[string]Value

// UnmarshalJSON never fails on shape.
func (p *Percentages) UnmarshalJSON(data []byte) error {
	*p = nil
	if !isObject(data) {
		return nil
	}
	var m map[string]Value
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	*p = m
	return nil
}

func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// decodeObject fills dst when data is a JSON object and leaves it zero
// otherwise. dst must not have its own UnmarshalJSON.
func decodeObject[T any](data []byte, dst *T) error {
	var zero T
	*dst = zero
	if !isObject(data) {
		return nil
	}
	return json.Unmarshal(data, dst)
}
