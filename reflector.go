package spcall

import (
	"reflect"
)

// ReflectBindings derives a binding table from the exported fields of the
// struct type I (or *I). It runs once, when a profile is built.
//
//   - string kinds bind as text, *string as optional text
//   - bool, unnamed integer and float kinds bind as scalars
//   - named integer types bind as enums
//
// Named string, bool and float types are sent as their underlying value.
//   - slices of structs bind as tables, one column per exported field
//
// Fields of any other type get no binding.
func ReflectBindings[I any]() []Binding[I] {
	t := typeOf[I]()
	ptr := t.Kind() == reflect.Pointer
	if ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return []Binding[I]{}
	}

	bindings := make([]Binding[I], 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		rule := ruleFor(field.Type)
		if rule == RuleNone {
			continue
		}
		index := field.Index
		fieldType := field.Type
		get := func(in I) reflect.Value {
			v := reflect.ValueOf(&in).Elem()
			if ptr {
				v = v.Elem()
			}
			return v.FieldByIndex(index)
		}
		bindings = append(bindings, Binding[I]{
			Property: field.Name,
			Rule:     rule,
			get:      reflectedValue(rule, fieldType, get),
		})
	}
	return bindings
}

func reflectedValue[I any](rule Rule, t reflect.Type, get func(I) reflect.Value) func(I) any {
	switch rule {
	case RuleText:
		if t.Kind() == reflect.Pointer {
			return func(in I) any {
				v := get(in)
				if v.IsNil() {
					return ""
				}
				return v.Elem().String()
			}
		}
		return func(in I) any { return get(in).String() }
	case RuleEnum:
		return func(in I) any {
			v := get(in)
			if v.CanInt() {
				return int(v.Int())
			}
			return int(v.Uint())
		}
	case RuleScalar:
		if t.PkgPath() != "" {
			return func(in I) any { return unnamed(get(in)) }
		}
	case RuleTable:
		cols := reflectColumns(t.Elem())
		return func(in I) any { return reflectTable(get(in), cols) }
	}
	return func(in I) any { return get(in).Interface() }
}

func ruleFor(t reflect.Type) Rule {
	switch {
	case t.Kind() == reflect.String:
		return RuleText
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.String:
		return RuleText
	case isInteger(t.Kind()) && t.PkgPath() != "":
		return RuleEnum
	case isPrimitive(t.Kind()):
		return RuleScalar
	case t.Kind() == reflect.Slice && structElem(t.Elem()) != nil:
		return RuleTable
	}
	return RuleNone
}

// unnamed converts a named bool or float value to its predeclared type.
func unnamed(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Float32:
		return float32(v.Float())
	}
	return v.Float()
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isPrimitive(k reflect.Kind) bool {
	return isInteger(k) || k == reflect.Bool || k == reflect.Float32 || k == reflect.Float64
}

func structElem(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

type reflectedColumn struct {
	TableColumn
	index []int
}

func reflectColumns(elem reflect.Type) []reflectedColumn {
	st := structElem(elem)
	cols := make([]reflectedColumn, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() {
			continue
		}
		col := reflectedColumn{
			TableColumn: TableColumn{Name: lowerFirst(field.Name), Type: field.Type},
			index:       field.Index,
		}
		if field.Type.Kind() == reflect.Pointer {
			col.Type = field.Type.Elem()
			col.Nullable = true
		}
		cols = append(cols, col)
	}
	return cols
}

func reflectTable(slice reflect.Value, cols []reflectedColumn) *Table {
	t := &Table{
		Columns: make([]TableColumn, len(cols)),
		Rows:    make([][]any, 0, slice.Len()),
	}
	for i, c := range cols {
		t.Columns[i] = c.TableColumn
	}
	for i := 0; i < slice.Len(); i++ {
		elem := slice.Index(i)
		if elem.Kind() == reflect.Pointer {
			if elem.IsNil() {
				t.Rows = append(t.Rows, make([]any, len(cols)))
				continue
			}
			elem = elem.Elem()
		}
		row := make([]any, len(cols))
		for j, c := range cols {
			v := elem.FieldByIndex(c.index)
			if c.Nullable {
				if v.IsNil() {
					continue
				}
				v = v.Elem()
			}
			row[j] = v.Interface()
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
