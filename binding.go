package spcall

import (
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Rule is the coercion applied to a property value before it is bound.
type Rule int

const (
	// RuleNone leaves the parameter unbound.
	RuleNone Rule = iota
	RuleText
	RuleScalar
	RuleEnum
	RuleTable
)

// Binding ties one input property to the parameter whose bind token is
// marker + lowerFirst(Property).
type Binding[I any] struct {
	Property string
	Rule     Rule
	get      func(I) any
}

func (b Binding[I]) value(input I) (any, bool) {
	if b.get == nil {
		return nil, false
	}
	switch b.Rule {
	case RuleText, RuleScalar, RuleEnum, RuleTable:
		return b.get(input), true
	}
	return nil, false
}

// Primitive lists the scalar types bound as-is by Scalar.
type Primitive interface {
	bool | int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Integer is satisfied by enumerations declared over an integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Text binds a string property.
func Text[I any](property string, get func(I) string) Binding[I] {
	return Binding[I]{Property: property, Rule: RuleText, get: func(in I) any {
		return get(in)
	}}
}

// TextPtr binds an optional string property. A nil string is bound as "".
func TextPtr[I any](property string, get func(I) *string) Binding[I] {
	return Binding[I]{Property: property, Rule: RuleText, get: func(in I) any {
		if s := get(in); s != nil {
			return *s
		}
		return ""
	}}
}

// Scalar binds a numeric or boolean property unchanged.
func Scalar[I any, V Primitive](property string, get func(I) V) Binding[I] {
	return Binding[I]{Property: property, Rule: RuleScalar, get: func(in I) any {
		return get(in)
	}}
}

// Value binds any driver-acceptable value unchanged, e.g. time.Time.
func Value[I any](property string, get func(I) any) Binding[I] {
	return Binding[I]{Property: property, Rule: RuleScalar, get: get}
}

// Enum binds the integer code of an enumerated property.
func Enum[I any, E Integer](property string, get func(I) E) Binding[I] {
	return Binding[I]{Property: property, Rule: RuleEnum, get: func(in I) any {
		return int(get(in))
	}}
}

// TableOf binds a collection property as a tabular payload with one column
// per entry of cols and one row per element.
func TableOf[I any, E any](property string, get func(I) []E, cols ...Column[E]) Binding[I] {
	return Binding[I]{Property: property, Rule: RuleTable, get: func(in I) any {
		return NewTable(get(in), cols...)
	}}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

func typeOf[V any]() reflect.Type {
	return reflect.TypeOf((*V)(nil)).Elem()
}
