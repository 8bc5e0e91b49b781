package spcall

import (
	"reflect"
	"strings"
)

// DefaultMarker is the parameter marker used when a Definition leaves Marker empty.
const DefaultMarker = "@"

// Direction of a call parameter. Only input parameters are bound by profiles.
type Direction int

const (
	DirectionInput Direction = iota
)

// Parameter is one declared argument of a stored procedure.
type Parameter struct {
	Name      string
	Value     any
	Direction Direction
}

// BindOutcome reports what BindFrom did with an input.
type BindOutcome int

const (
	BindApplied BindOutcome = iota + 1
	BindSkippedNoInput
	BindSkippedNoParameters
	BindSkippedShapeMismatch
)

func (o BindOutcome) String() string {
	switch o {
	case BindApplied:
		return "applied"
	case BindSkippedNoInput:
		return "skipped: no input"
	case BindSkippedNoParameters:
		return "skipped: no parameters"
	case BindSkippedShapeMismatch:
		return "skipped: input shape mismatch"
	}
	return "unknown"
}

// Procedure is what the invoker needs from a procedure profile.
type Procedure interface {
	Name() string
	ResultSetCount() int
	// SetResultSetCount overrides the expected number of result sets for the
	// next execution. The value is not checked against the procedure.
	SetResultSetCount(n int)
	HasInput() bool
	InputShape() reflect.Type
	// Marker is the prefix the declared parameter names carry.
	Marker() string
	Parameters() []*Parameter
	ParameterNameList() string
	BindFrom(input any) BindOutcome
	Release() error
}

// Definition describes a stored procedure whose input is of type I.
type Definition[I any] struct {
	Name       string
	ResultSets int
	// Parameters holds the declared parameter names including the marker,
	// e.g. "@orderId".
	Parameters []string
	Marker     string
	// Bindings maps input properties to parameters. When nil the table is
	// derived from I with ReflectBindings.
	Bindings []Binding[I]
}

// Profile is a procedure profile accepting inputs of exactly type I.
// A Profile is not safe for concurrent use: binding mutates its parameters.
type Profile[I any] struct {
	name       string
	resultSets int
	hasInput   bool
	marker     string
	shape      reflect.Type
	params     []*Parameter
	bindings   []Binding[I]
}

// NewProfile builds a profile from def. The parameter list is fixed from
// here on; only values change.
func NewProfile[I any](def Definition[I]) *Profile[I] {
	marker := def.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	bindings := def.Bindings
	if bindings == nil {
		bindings = ReflectBindings[I]()
	}
	return &Profile[I]{
		name:       def.Name,
		resultSets: def.ResultSets,
		hasInput:   true,
		marker:     marker,
		shape:      reflect.TypeOf((*I)(nil)).Elem(),
		params:     newParameters(def.Parameters),
		bindings:   bindings,
	}
}

// NoInput is the input type of profiles that take no bound parameters.
type NoInput struct{}

// NewNoInputProfile builds a profile that never binds. Declared parameters
// are still passed to the procedure with whatever values the owner sets.
func NewNoInputProfile(name string, resultSets int, params ...string) *Profile[NoInput] {
	return &Profile[NoInput]{
		name:       name,
		resultSets: resultSets,
		marker:     DefaultMarker,
		shape:      reflect.TypeOf(NoInput{}),
		params:     newParameters(params),
	}
}

func newParameters(names []string) []*Parameter {
	params := make([]*Parameter, len(names))
	for i, name := range names {
		params[i] = &Parameter{Name: name, Direction: DirectionInput}
	}
	return params
}

func (p *Profile[I]) Name() string { return p.name }

func (p *Profile[I]) ResultSetCount() int { return p.resultSets }

func (p *Profile[I]) SetResultSetCount(n int) { p.resultSets = n }

func (p *Profile[I]) HasInput() bool { return p.hasInput }

func (p *Profile[I]) InputShape() reflect.Type { return p.shape }

func (p *Profile[I]) Marker() string { return p.marker }

func (p *Profile[I]) Parameters() []*Parameter { return p.params }

// ParameterNameList joins the declared parameter names with commas.
func (p *Profile[I]) ParameterNameList() string {
	names := make([]string, len(p.params))
	for i, param := range p.params {
		names[i] = param.Name
	}
	return strings.Join(names, ",")
}

// Parameter returns the declared parameter called name, or nil.
func (p *Profile[I]) Parameter(name string) *Parameter {
	for _, param := range p.params {
		if param.Name == name {
			return param
		}
	}
	return nil
}

// BindFrom binds input when its dynamic type is exactly I. Anything else is
// skipped and reported through the returned outcome.
func (p *Profile[I]) BindFrom(input any) BindOutcome {
	if outcome, ok := p.precheck(); !ok {
		return outcome
	}
	if input == nil || reflect.TypeOf(input) != p.shape {
		return BindSkippedShapeMismatch
	}
	if v := reflect.ValueOf(input); v.Kind() == reflect.Pointer && v.IsNil() {
		return BindSkippedShapeMismatch
	}
	return p.bind(input.(I))
}

// Bind is the typed form of BindFrom.
func (p *Profile[I]) Bind(input I) BindOutcome {
	return p.BindFrom(input)
}

func (p *Profile[I]) precheck() (BindOutcome, bool) {
	if !p.hasInput {
		return BindSkippedNoInput, false
	}
	if len(p.params) == 0 {
		return BindSkippedNoParameters, false
	}
	return BindApplied, true
}

func (p *Profile[I]) bind(input I) BindOutcome {
	for _, b := range p.bindings {
		param := p.Parameter(p.marker + lowerFirst(b.Property))
		if param == nil {
			continue
		}
		if v, ok := b.value(input); ok {
			param.Value = v
		}
	}
	return BindApplied
}

// Reset clears every parameter value.
func (p *Profile[I]) Reset() {
	for _, param := range p.params {
		param.Value = nil
	}
}

// Release is a no-op: a profile holds no resources beyond its parameters.
func (p *Profile[I]) Release() error {
	return nil
}
