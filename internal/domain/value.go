package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueList
)

// Value is a submitted form value or remote payload value.
// It is a closed union: string | number | bool | list of strings | null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

func NullValue() Value            { return Value{kind: ValueNull} }
func StringValue(s string) Value  { return Value{kind: ValueString, str: s} }
func NumberValue(n float64) Value { return Value{kind: ValueNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: ValueBool, b: b} }
func ListValue(items ...string) Value {
	return Value{kind: ValueList, list: append([]string(nil), items...)}
}

// ValueFromAny converts a decoded JSON value into a Value
func ValueFromAny(v interface{}) (Value, error) {
	switch val := v.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return val, nil
	case string:
		return StringValue(val), nil
	case bool:
		return BoolValue(val), nil
	case float64:
		return NumberValue(val), nil
	case float32:
		return NumberValue(float64(val)), nil
	case int:
		return NumberValue(float64(val)), nil
	case int64:
		return NumberValue(float64(val)), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return NumberValue(f), nil
	case []string:
		return ListValue(val...), nil
	case []interface{}:
		items := make([]string, 0, len(val))
		for i, item := range val {
			elem, err := ValueFromAny(item)
			if err != nil {
				return Value{}, err
			}
			if elem.kind == ValueList {
				return Value{}, fmt.Errorf("nested list at index %d is not supported", i)
			}
			if elem.kind == ValueNull {
				continue
			}
			items = append(items, elem.String())
		}
		return ListValue(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

func (v Value) Kind() ValueKind { return v.kind }

// IsEmpty reports whether the value carries no user data: null, blank string or empty list
func (v Value) IsEmpty() bool {
	switch v.kind {
	case ValueNull:
		return true
	case ValueString:
		return strings.TrimSpace(v.str) == ""
	case ValueList:
		for _, item := range v.list {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String flattens the value; list items are joined with ";" (multi-select convention)
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueList:
		return strings.Join(v.list, ";")
	default:
		return ""
	}
}

// List returns the list items, or the scalar as a single item
func (v Value) List() []string {
	switch v.kind {
	case ValueList:
		return append([]string(nil), v.list...)
	case ValueNull:
		return nil
	default:
		return []string{v.String()}
	}
}

// Raw returns the value as a plain Go value suitable for JSON payloads
func (v Value) Raw() interface{} {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return v.num
	case ValueBool:
		return v.b
	case ValueList:
		return append([]string(nil), v.list...)
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
