package feishu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindNull is an absent cell or an explicit JSON null.
	KindNull Kind = iota
	// KindScalar is a string, number or boolean.
	KindScalar
	// KindList is a JSON array (multi-select, person, link and text-segment cells).
	KindList
	// KindObject is a tagged object such as {"name": ..., "id": ...} or {"text": ...}.
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one Bitable cell value. Bitable returns different JSON shapes for
// different column types, so cells decode into this closed variant instead of
// an untyped interface{}. Numbers keep their literal text (json.Number) so digit
// counts survive for timestamp detection.
type Value struct {
	kind   Kind
	scalar any // string, json.Number or bool
	list   []Value
	object map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a scalar string value.
func String(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Number returns a scalar number value from its literal form, e.g. "1700000000000".
func Number(literal string) Value { return Value{kind: KindScalar, scalar: json.Number(literal)} }

// Float returns a scalar number value.
func Float(f float64) Value {
	return Number(strconv.FormatFloat(f, 'f', -1, 64))
}

// Bool returns a scalar boolean value.
func Bool(b bool) Value { return Value{kind: KindScalar, scalar: b} }

// List returns a list value.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Object returns a tagged object value.
func Object(members map[string]Value) Value {
	if members == nil {
		members = map[string]Value{}
	}
	return Value{kind: KindObject, object: members}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Scalar returns the scalar payload (string, json.Number or bool).
func (v Value) Scalar() (any, bool) {
	if v.kind != KindScalar {
		return nil, false
	}
	return v.scalar, true
}

// Items returns the list elements.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Member returns a member of an object value. The second result is false when
// v is not an object or the member is missing or null.
func (v Value) Member(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	m, ok := v.object[name]
	if !ok || m.IsNull() {
		return Value{}, false
	}
	return m, true
}

// UnmarshalJSON decodes any JSON fragment into the matching variant.
func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode cell value: %w", err)
	}
	*v = fromInterface(raw)
	return nil
}

// MarshalJSON encodes the variant back to its JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Interface converts v into plain Go values (map[string]any, []any, json.Number...).
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.object))
		for k, m := range v.object {
			out[k] = m.Interface()
		}
		return out
	default:
		return nil
	}
}

// GoString renders v for test failure messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindObject:
		keys := make([]string, 0, len(v.object))
		for k := range v.object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("Object%v", keys)
	default:
		b, _ := v.MarshalJSON()
		return v.kind.String() + "(" + string(b) + ")"
	}
}

func fromInterface(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case json.Number:
		return Value{kind: KindScalar, scalar: t}
	case bool:
		return Bool(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = fromInterface(item)
		}
		return List(items...)
	case map[string]any:
		members := make(map[string]Value, len(t))
		for k, m := range t {
			members[k] = fromInterface(m)
		}
		return Object(members)
	default:
		// Decoder with UseNumber never yields other types.
		return String(fmt.Sprint(t))
	}
}
