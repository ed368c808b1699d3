package virtual

import (
	"reflect"
	"strconv"
	"strings"
)

// Kind is the declared return kind of a capability, used to fabricate
// default values.
type Kind uint8

const (
	// KindNone means no return value, or one that could not be
	// classified. Defaults to nil.
	KindNone Kind = iota
	// KindBool defaults to false.
	KindBool
	// KindInt defaults to 0.
	KindInt
	// KindFloat defaults to 0.0.
	KindFloat
	// KindString defaults to "".
	KindString
	// KindSequence defaults to an empty slice.
	KindSequence
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	default:
		return "none"
	}
}

// Default returns the type-appropriate zero value for the kind.
func (k Kind) Default() any {
	switch k {
	case KindBool:
		return false
	case KindInt:
		return 0
	case KindFloat:
		return 0.0
	case KindString:
		return ""
	case KindSequence:
		return []any{}
	default:
		return nil
	}
}

// Param describes one declared parameter of a capability. Go reflection
// does not preserve parameter names, so names are synthesized
// positionally.
type Param struct {
	// Name is the synthesized positional name ("arg0", "arg1", ...).
	Name string

	// Type is the declared Go type.
	Type string
}

// Capability describes one operation a driver type declares. Built once
// per driver type and immutable afterwards.
type Capability struct {
	// Name is the operation name in snake_case, as used in bench
	// config files ("set_voltage", "measure_current").
	Name string

	// Params is the ordered parameter signature.
	Params []Param

	// Return is the declared return kind. KindNone also covers return
	// types the classifier cannot express; fabricated values then
	// degrade to nil rather than guessing.
	Return Kind

	// Default is the precomputed default value for Return.
	Default any
}

// Role tags the dispatch behavior of a capability name.
type Role uint8

const (
	// RoleSetter is a set_<field> operation.
	RoleSetter Role = iota
	// RoleGetter is a get_<field> operation.
	RoleGetter
	// RoleMeasurement is a measure_<field> operation.
	RoleMeasurement
	// RoleOther is any other known operation.
	RoleOther
)

// roleOf classifies an operation name.
func roleOf(name string) Role {
	switch {
	case strings.HasPrefix(name, "set_"):
		return RoleSetter
	case strings.HasPrefix(name, "get_"):
		return RoleGetter
	case strings.HasPrefix(name, "measure_"):
		return RoleMeasurement
	default:
		return RoleOther
	}
}

// fieldLinks is the declared relation between a setter and its
// observable counterparts, computed once at capability-table build
// time instead of re-derived from string surgery on every call.
type fieldLinks struct {
	// field is the common suffix ("voltage" in set_voltage).
	field string

	// getter and measure are the linked capability names; empty when
	// the driver does not declare them.
	getter  string
	measure string
}

// errType matches the error interface for return classification.
var errType = reflect.TypeOf((*error)(nil)).Elem()

// buildCapabilities introspects a driver type's exported method set
// into a capability table and the setter relation table.
func buildCapabilities(t reflect.Type) (map[string]Capability, map[string]fieldLinks) {
	caps := make(map[string]Capability, t.NumMethod())

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		name := snakeCase(m.Name)

		mt := m.Type
		params := make([]Param, 0, mt.NumIn()-1)
		for in := 1; in < mt.NumIn(); in++ { // skip receiver
			params = append(params, Param{
				Name: "arg" + strconv.Itoa(in-1),
				Type: mt.In(in).String(),
			})
		}

		kind := returnKind(mt)
		caps[name] = Capability{
			Name:    name,
			Params:  params,
			Return:  kind,
			Default: kind.Default(),
		}
	}

	links := make(map[string]fieldLinks)
	for name := range caps {
		if roleOf(name) != RoleSetter {
			continue
		}
		field := strings.TrimPrefix(name, "set_")
		l := fieldLinks{field: field}
		if _, ok := caps["get_"+field]; ok {
			l.getter = "get_" + field
		}
		if _, ok := caps["measure_"+field]; ok {
			l.measure = "measure_" + field
		}
		links[name] = l
	}

	return caps, links
}

// returnKind classifies the first non-error return value of a method
// type. Methods returning only error, or nothing, have KindNone.
func returnKind(mt reflect.Type) Kind {
	for out := 0; out < mt.NumOut(); out++ {
		ot := mt.Out(out)
		if ot.Implements(errType) {
			continue
		}
		return kindOf(ot)
	}
	return KindNone
}

// kindOf maps a Go type to a capability kind. Unclassifiable types
// degrade to KindNone, a documented partial-coverage limitation.
func kindOf(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Slice, reflect.Array:
		return KindSequence
	default:
		return KindNone
	}
}

// OperationName converts an exported Go method name to the snake_case
// operation name used in bench configs ("SetVoltage" -> "set_voltage").
func OperationName(method string) string { return snakeCase(method) }

// snakeCase converts an exported Go method name to the snake_case
// operation name used in bench configs: SetVoltage -> set_voltage,
// MeasureACCurrent -> measure_ac_current, IDN -> idn.
func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			// Break before an uppercase following a lowercase/digit, or
			// before the last uppercase of an acronym run.
			if i > 0 {
				prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z' ||
					runes[i-1] >= '0' && runes[i-1] <= '9'
				nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
				if prevLower || nextLower {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
