package flow

import (
	"strconv"
	"strings"
)

// Kind orders variants the same way as FlowValueType.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindArray
	KindStruct
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindNull:
		return "null"
	}
	return "unknown"
}

type Value struct {
	S     string
	Elems []Value
	I     int64
	F     float64
	Kind  Kind
	B     bool
}

func IntValue(v int64) Value     { return Value{Kind: KindInt, I: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, F: v} }
func StringValue(v string) Value { return Value{Kind: KindString, S: v} }
func BoolValue(v bool) Value     { return Value{Kind: KindBool, B: v} }
func NullValue() Value           { return Value{Kind: KindNull} }

func ArrayValue(elems []Value) Value {
	return Value{Kind: KindArray, Elems: elems}
}

// Format renders a value the way string concatenation does.
func (v Value) Format() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindString:
		return v.S
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindArray:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.Format()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindNull:
		return "null"
	}
	return v.Kind.String()
}

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		if v.numeric() && o.numeric() {
			return v.float() == o.float()
		}
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.I == o.I
	case KindFloat:
		return v.F == o.F
	case KindString:
		return v.S == o.S
	case KindBool:
		return v.B == o.B
	case KindNull:
		return true
	case KindArray:
		if len(v.Elems) != len(o.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) numeric() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

func (v Value) float() float64 {
	if v.Kind == KindInt {
		return float64(v.I)
	}
	return v.F
}
