// Package value models the JSON-like trees that job records are made of.
//
// A Value is one of Null, Bool, Number, String, Sequence or *Mapping. The set
// is closed: every function in this module switches over exactly these
// variants.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a node in a JSON-like tree.
type Value interface {
	isValue()
}

// Null is the absent/null value.
type Null struct{}

// Bool is a boolean leaf.
type Bool bool

// Number is a numeric leaf holding the decimal text it was decoded from.
type Number string

// String is a text leaf.
type String string

// Sequence is an ordered list of values.
type Sequence []Value

func (Null) isValue()     {}
func (Bool) isValue()     {}
func (Number) isValue()   {}
func (String) isValue()   {}
func (Sequence) isValue() {}
func (*Mapping) isValue() {}

// Int returns a Number holding n.
func Int(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// Uint returns a Number holding n.
func Uint(n uint64) Number {
	return Number(strconv.FormatUint(n, 10))
}

// Float returns a Number holding f in its shortest exact decimal form.
func Float(f float64) Number {
	return Number(strconv.FormatFloat(f, 'f', -1, 64))
}

// IsNull reports whether v is Null or a nil interface.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// IsEmptyMapping reports whether v is a Mapping without keys.
func IsEmptyMapping(v Value) bool {
	m, ok := v.(*Mapping)
	return ok && m.Len() == 0
}

func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (b Bool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(json.Number(n))
}

func (s String) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(string(s))
}

func (s Sequence) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if item == nil {
			item = Null{}
		}
		b, err := marshalNoEscape(item)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal index %d: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalNoEscape is json.Marshal without HTML escaping. json.Marshal would
// re-escape '<', '>' and '&' in the output of nested marshalers.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FromAny converts plain Go values (as produced by encoding/json or written
// in tests) into a Value. Maps are ordered by sorted key since Go maps carry
// no order of their own.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return Number(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint32:
		return Uint(uint64(x)), nil
	case uint64:
		return Uint(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case []any:
		out := make(Sequence, 0, len(x))
		for i, item := range x {
			converted, err := FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, converted)
		}
		return out, nil
	case map[string]any:
		out := NewMapping()
		for _, k := range sortedKeys(x) {
			converted, err := FromAny(x[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out.Set(k, converted)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ToAny converts v into plain Go values: Mapping becomes map[string]any,
// Sequence []any, Number int64 when integral and float64 otherwise, Null nil.
func ToAny(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(x)
	case String:
		return string(x)
	case Number:
		if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(string(x), 64); err == nil {
			return f
		}
		return string(x)
	case Sequence:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = ToAny(item)
		}
		return out
	case *Mapping:
		out := make(map[string]any, x.Len())
		for _, k := range x.Keys() {
			item, _ := x.Get(k)
			out[k] = ToAny(item)
		}
		return out
	default:
		return nil
	}
}
