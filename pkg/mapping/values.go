// Package mapping flattens Bitable cell values into the application's record model.
//
// Cells arrive as feishu.Value variants. Every helper here switches over the
// variant kind explicitly; the coercion rules follow what the browser frontend
// historically did with the same payloads (Number() for amounts, truthiness for
// "||" fallbacks).
package mapping

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/jsonutil"
)

// ListSeparator joins multi-valued cells for display.
const ListSeparator = "、"

// Object members consulted when a tagged object stands in for a single value.
var (
	singleValueKeys = []string{"name", "text", "label", "value", "option_name"}
	numberValueKeys = []string{"value", "text", "name"}
)

// Truthy reports JavaScript truthiness: null, "", 0, NaN and false are falsy.
// Lists and objects are always truthy, even when empty.
func Truthy(v feishu.Value) bool {
	switch v.Kind() {
	case feishu.KindNull:
		return false
	case feishu.KindScalar:
		s, _ := v.Scalar()
		switch t := s.(type) {
		case string:
			return t != ""
		case json.Number:
			f, err := t.Float64()
			return err == nil && f != 0
		case bool:
			return t
		default:
			return true
		}
	case feishu.KindList, feishu.KindObject:
		return true
	default:
		return false
	}
}

// PickSingle reduces a cell to one display string: the first list element, the
// first present of name/text/label/value/option_name on an object, or the scalar.
func PickSingle(v feishu.Value) string {
	return ScalarString(pickScalar(v))
}

func pickScalar(v feishu.Value) feishu.Value {
	switch v.Kind() {
	case feishu.KindList:
		items, _ := v.Items()
		if len(items) == 0 {
			return feishu.Null()
		}
		return pickScalar(items[0])
	case feishu.KindObject:
		for _, key := range singleValueKeys {
			if m, ok := v.Member(key); ok {
				return pickScalar(m)
			}
		}
		return feishu.Null()
	case feishu.KindScalar:
		return v
	default:
		return feishu.Null()
	}
}

// PickNumber reduces a cell to a number. Objects prefer value, then text, then
// name. Anything that does not coerce becomes 0.
func PickNumber(v feishu.Value) float64 {
	switch v.Kind() {
	case feishu.KindList:
		items, _ := v.Items()
		if len(items) == 0 {
			return 0
		}
		return PickNumber(items[0])
	case feishu.KindObject:
		for _, key := range numberValueKeys {
			if m, ok := v.Member(key); ok {
				n, ok := ToNumber(m)
				if !ok {
					return 0
				}
				return n
			}
		}
		return 0
	default:
		n, ok := ToNumber(v)
		if !ok {
			return 0
		}
		return n
	}
}

// OptionalNumber coerces a money cell. Absent cells and values that are not
// finite numbers report false so the field can be omitted from the response.
func OptionalNumber(v feishu.Value) (float64, bool) {
	if v.IsNull() {
		return 0, false
	}
	return ToNumber(v)
}

// ToNumber applies Number() coercion. Empty strings are 0, booleans are 0 or 1,
// a list converts through its single element, objects never convert.
func ToNumber(v feishu.Value) (float64, bool) {
	switch v.Kind() {
	case feishu.KindNull:
		return 0, true
	case feishu.KindScalar:
		s, _ := v.Scalar()
		switch t := s.(type) {
		case string:
			return jsonutil.ParseNumber(t)
		case json.Number:
			f, err := t.Float64()
			if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				return 0, false
			}
			return f, true
		case bool:
			if t {
				return 1, true
			}
			return 0, true
		}
		return 0, false
	case feishu.KindList:
		items, _ := v.Items()
		switch len(items) {
		case 0:
			return 0, true
		case 1:
			if items[0].Kind() == feishu.KindObject {
				return 0, false
			}
			return ToNumber(items[0])
		default:
			return 0, false
		}
	default:
		return 0, false
	}
}

// NormalizeAny renders a cell for display. Lists become their non-empty
// single values joined with "、"; objects reduce through PickSingle.
func NormalizeAny(v feishu.Value) string {
	switch v.Kind() {
	case feishu.KindList:
		items, _ := v.Items()
		parts := make([]string, 0, len(items))
		for _, item := range items {
			single := pickScalar(item)
			if !Truthy(single) {
				continue
			}
			parts = append(parts, ScalarString(single))
		}
		return strings.Join(parts, ListSeparator)
	case feishu.KindObject:
		return PickSingle(v)
	case feishu.KindScalar:
		return ScalarString(v)
	default:
		return ""
	}
}

// Flag reads a checkbox-like cell. Booleans pass through, numbers are true when
// non-zero, and text answers true for 是/true/yes/1.
func Flag(v feishu.Value) bool {
	single := pickScalar(v)
	s, ok := single.Scalar()
	if !ok {
		return false
	}
	switch t := s.(type) {
	case bool:
		return t
	case json.Number:
		return Truthy(single)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "是", "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

// ScalarString formats a scalar the way String() would. Non-scalars render empty.
func ScalarString(v feishu.Value) string {
	s, ok := v.Scalar()
	if !ok {
		return ""
	}
	switch t := s.(type) {
	case string:
		return t
	case json.Number:
		return FormatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// FormatNumber prints a numeric literal in its shortest form ("12.50" -> "12.5").
// Literals that do not parse are returned unchanged.
func FormatNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) {
		return n.String()
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
