package performance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindDefined
	kindInf
)

// Value is a metric that may be undefined (null) or positive infinity.
// The zero Value is null. JSON encodes them as a number, null or "inf".
type Value struct {
	v    float64
	kind valueKind
}

func Defined(v float64) Value {
	switch {
	case math.IsNaN(v):
		return Null()
	case math.IsInf(v, 1):
		return Inf()
	}
	return Value{v: v, kind: kindDefined}
}

func Null() Value { return Value{} }

func Inf() Value { return Value{v: math.Inf(1), kind: kindInf} }

func (v Value) IsNull() bool { return v.kind == kindNull }

func (v Value) IsInf() bool { return v.kind == kindInf }

// Float returns the numeric value and false when v is null. An infinite
// Value returns +Inf and true.
func (v Value) Float() (float64, bool) {
	if v.kind == kindNull {
		return 0, false
	}
	return v.v, true
}

// Compare orders values as numbers with +Inf largest. Nulls compare equal
// to each other and below everything else.
func (v Value) Compare(o Value) int {
	switch {
	case v.IsNull() && o.IsNull():
		return 0
	case v.IsNull():
		return -1
	case o.IsNull():
		return 1
	case v.v < o.v:
		return -1
	case v.v > o.v:
		return 1
	}
	return 0
}

func (v Value) String() string {
	switch v.kind {
	case kindNull:
		return "n/a"
	case kindInf:
		return "inf"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// Format renders a defined value with a fixed number of decimals.
func (v Value) Format(decimals int) string {
	if v.kind != kindDefined {
		return v.String()
	}
	return strconv.FormatFloat(v.v, 'f', decimals, 64)
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNull:
		return []byte("null"), nil
	case kindInf:
		return []byte(`"inf"`), nil
	}
	return json.Marshal(v.v)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "null":
		*v = Null()
		return nil
	case `"inf"`:
		*v = Inf()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("metric value %s: %w", b, err)
	}
	*v = Defined(f)
	return nil
}
