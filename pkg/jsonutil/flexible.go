package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling clients that
// send numbers or booleans where a string is expected. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	// Try string first
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// Try number, keeping the literal so large integers survive
	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if f, err := numVal.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
		return numVal.String()
	}

	// Try boolean
	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// Fallback: return raw string representation
	return string(raw)
}

// Value is a request body field whose JSON type is not fixed. The frontend sends
// amounts as numbers or strings, flags as booleans or strings, and person fields
// as a display name or an already-resolved list. Value remembers whether the key
// was present at all, so "omitted" and "explicitly empty" can be told apart.
type Value struct {
	raw json.RawMessage
	set bool
}

// NewValue builds a Value from a literal JSON fragment. Intended for tests and defaults.
func NewValue(raw string) Value {
	return Value{raw: json.RawMessage(raw), set: true}
}

// UnmarshalJSON records the raw fragment, including an explicit null.
func (v *Value) UnmarshalJSON(b []byte) error {
	v.raw = append(v.raw[:0], b...)
	v.set = true
	return nil
}

// MarshalJSON writes the fragment back unchanged; an absent value encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set || len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// Sent reports whether the key appeared in the body at all, null included.
func (v Value) Sent() bool {
	return v.set
}

// Present reports whether the key was sent with a non-null value.
func (v Value) Present() bool {
	return v.set && len(v.raw) > 0 && !bytes.Equal(bytes.TrimSpace(v.raw), []byte("null"))
}

// IsBlank reports whether the value is absent, null, or a whitespace-only string.
// Write paths skip blank values instead of clearing the vendor field.
func (v Value) IsBlank() bool {
	if !v.Present() {
		return true
	}
	if s, ok := v.stringLiteral(); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// IsList reports whether the value is a JSON array.
func (v Value) IsList() bool {
	return v.Present() && bytes.HasPrefix(bytes.TrimSpace(v.raw), []byte("["))
}

// Raw returns the JSON fragment as sent.
func (v Value) Raw() json.RawMessage {
	return v.raw
}

// Text returns the trimmed string form of the value, "" when absent or null.
func (v Value) Text() string {
	if !v.Present() {
		return ""
	}
	return strings.TrimSpace(FlexibleStringValue(v.raw))
}

// Number coerces the value the way a browser's Number() does: numeric strings
// parse (an empty string is 0), booleans become 0 or 1. Objects, arrays, and
// non-numeric strings report ok=false, as do absent and null values.
func (v Value) Number() (float64, bool) {
	if !v.Present() {
		return 0, false
	}

	if s, ok := v.stringLiteral(); ok {
		return ParseNumber(s)
	}

	var n json.Number
	if err := json.Unmarshal(v.raw, &n); err == nil {
		f, err := n.Float64()
		return f, err == nil
	}

	var b bool
	if err := json.Unmarshal(v.raw, &b); err == nil {
		if b {
			return 1, true
		}
		return 0, true
	}

	return 0, false
}

// Bool applies JavaScript truthiness: absent, null, false, 0 and "" are false.
func (v Value) Bool() bool {
	if !v.Present() {
		return false
	}

	var b bool
	if err := json.Unmarshal(v.raw, &b); err == nil {
		return b
	}
	if s, ok := v.stringLiteral(); ok {
		return s != ""
	}
	var n json.Number
	if err := json.Unmarshal(v.raw, &n); err == nil {
		f, err := n.Float64()
		return err == nil && f != 0
	}
	return true
}

// Interface decodes the value for forwarding. Strings are trimmed and numbers
// keep their literal form.
func (v Value) Interface() any {
	if !v.Present() {
		return nil
	}
	if s, ok := v.stringLiteral(); ok {
		return strings.TrimSpace(s)
	}

	dec := json.NewDecoder(bytes.NewReader(v.raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return json.RawMessage(v.raw)
	}
	return out
}

func (v Value) stringLiteral() (string, bool) {
	var s string
	if err := json.Unmarshal(v.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ParseNumber converts a string with Number() semantics: surrounding whitespace
// is ignored, the empty string is 0, and NaN or infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(lower, "_") {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if hasRadixPrefix(lower) {
			if i, ierr := strconv.ParseInt(s, 0, 64); ierr == nil {
				return float64(i), true
			}
		}
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func hasRadixPrefix(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0o") || strings.HasPrefix(s, "0b")
}
