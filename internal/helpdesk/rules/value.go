package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the runtime type of a condition value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// Value is a typed condition value.
type Value struct {
	Kind Kind
	b    bool
	n    float64
	s    string
	t    time.Time
}

func Null() Value { return Value{Kind: KindNull} }
func Bool(b bool) Value { return Value{Kind: KindBool, b: b} }
func Number(n float64) Value { return Value{Kind: KindNumber, n: n} }
func String(s string) Value { return Value{Kind: KindString, s: s} }
func Time(t time.Time) Value { return Value{Kind: KindTime, t: t} }
func (v Value) IsNull() bool { return v.Kind == KindNull }
func (v Value) AsBool() bool { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsString() string { return v.s }
func (v Value) AsTime() time.Time { return v.t }

// FromAny converts a scanned column value into a Value. Byte slices are decoded as numbers
// when they parse as one, which covers NUMERIC columns read through database/sql.
func FromAny(x interface{}) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case float32:
		return Number(float64(v)), nil
	case float64:
		return Number(v), nil
	case string:
		return String(v), nil
	case []byte:
		s := string(v)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return Number(n), nil
		}
		return String(s), nil
	case time.Time:
		return Time(v), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", x)
	}
}

// truthy is the boolean reading of a value in and/or/not position. Null is false and
// numbers are true when non-zero, matching checkbox columns stored as integers.
func truthy(v Value) (bool, error) {
	switch v.Kind {
	case KindBool:
		return v.b, nil
	case KindNull:
		return false, nil
	case KindNumber:
		return v.n != 0, nil
	default:
		return false, fmt.Errorf("%s value used as a condition", v.Kind)
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// coerce brings a pair of values to a common kind. Bools meet numbers as 0/1 and date
// strings meet times as times; any other mix is a type error.
func coerce(a, b Value) (Value, Value, error) {
	if a.Kind == b.Kind {
		return a, b, nil
	}
	switch {
	case a.Kind == KindBool && b.Kind == KindNumber:
		return Number(boolToNumber(a.b)), b, nil
	case a.Kind == KindNumber && b.Kind == KindBool:
		return a, Number(boolToNumber(b.b)), nil
	case a.Kind == KindString && b.Kind == KindTime:
		if t, ok := parseTime(a.s); ok {
			return Time(t), b, nil
		}
	case a.Kind == KindTime && b.Kind == KindString:
		if t, ok := parseTime(b.s); ok {
			return a, Time(t), nil
		}
	}
	return a, b, fmt.Errorf("cannot compare %s with %s", a.Kind, b.Kind)
}

func boolToNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// compare returns -1, 0 or 1. Both values must share a kind that supports ordering.
func compare(a, b Value) (int, error) {
	switch a.Kind {
	case KindNumber:
		switch {
		case a.n < b.n:
			return -1, nil
		case a.n > b.n:
			return 1, nil
		}
		return 0, nil
	case KindString:
		return strings.Compare(a.s, b.s), nil
	case KindTime:
		return a.t.Compare(b.t), nil
	default:
		return 0, errUnordered
	}
}

var errUnordered = fmt.Errorf("values are not ordered")

// Format renders a value for message templates.
func (v Value) Format() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		if v.n == math.Trunc(v.n) && math.Abs(v.n) < 1e15 {
			return strconv.FormatInt(int64(v.n), 10)
		}
		return strconv.FormatFloat(v.n, 'f', 2, 64)
	case KindString:
		return v.s
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format("2006-01-02 15:04")
	default:
		return ""
	}
}
