// Package params builds fixed-layout parameter blocks from tagged Go structs.
//
// A parameter struct declares its layout with `param` struct tags:
//
//	type Deband struct {
//		Iterations int     `param:"iterations,default=1,min=0"`
//		Threshold  float32 `param:"threshold,default=4,min=0"`
//	}
//
// The Schema derived from the tags provides defaults, validation and the
// conversion into the flat []float32 word layout consumed by uniform buffers.
// Schemas are computed once per type and cached.
package params

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Sentinel errors reported by Validate.
var (
	ErrNotFinite  = errors.New("params: value is not finite")
	ErrOutOfRange = errors.New("params: value out of range")
	ErrNotStruct  = errors.New("params: type is not a struct")
)

// Kind is the storage class of a field.
type Kind uint8

const (
	KindFloat Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Tagger is implemented by enumeration types whose native tag differs from
// their Go value. Pack uses the tag instead of the raw integer.
type Tagger interface {
	NativeTag() int32
}

// Field describes one entry of a schema.
type Field struct {
	Name    string
	Kind    Kind
	Default float64
	Min     float64
	Max     float64
	HasMin  bool
	HasMax  bool

	index int
}

// Schema is the layout of a parameter struct.
type Schema struct {
	Type   reflect.Type
	Fields []Field
}

var schemas sync.Map // reflect.Type -> *Schema

// SchemaOf returns the cached schema of T. It panics if T is not a struct
// or one of its tags is malformed, since both are programming errors.
func SchemaOf[T any]() *Schema {
	t := reflect.TypeFor[T]()
	if s, ok := schemas.Load(t); ok {
		return s.(*Schema)
	}
	s, err := buildSchema(t)
	if err != nil {
		panic(err)
	}
	actual, _ := schemas.LoadOrStore(t, s)
	return actual.(*Schema)
}

func buildSchema(t reflect.Type) (*Schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}
	s := &Schema{Type: t}
	for i := range t.NumField() {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("param")
		if !ok || tag == "-" {
			continue
		}
		f, err := parseField(sf, tag)
		if err != nil {
			return nil, fmt.Errorf("params: %s.%s: %w", t.Name(), sf.Name, err)
		}
		f.index = i
		s.Fields = append(s.Fields, f)
	}
	return s, nil
}

func parseField(sf reflect.StructField, tag string) (Field, error) {
	parts := strings.Split(tag, ",")
	f := Field{Name: parts[0]}
	if f.Name == "" {
		f.Name = strings.ToLower(sf.Name)
	}

	switch sf.Type.Kind() {
	case reflect.Float32, reflect.Float64:
		f.Kind = KindFloat
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f.Kind = KindInt
	case reflect.Bool:
		f.Kind = KindBool
	default:
		return f, fmt.Errorf("unsupported field type %s", sf.Type)
	}

	for _, opt := range parts[1:] {
		key, val, found := strings.Cut(opt, "=")
		if !found {
			return f, fmt.Errorf("malformed option %q", opt)
		}
		var x float64
		var err error
		if f.Kind == KindBool && key == "default" {
			var b bool
			b, err = strconv.ParseBool(val)
			if b {
				x = 1
			}
		} else {
			x, err = strconv.ParseFloat(val, 64)
		}
		if err != nil {
			return f, fmt.Errorf("option %q: %w", opt, err)
		}
		switch key {
		case "default":
			f.Default = x
		case "min":
			f.Min, f.HasMin = x, true
		case "max":
			f.Max, f.HasMax = x, true
		default:
			return f, fmt.Errorf("unknown option %q", key)
		}
	}
	return f, nil
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Words returns the number of float32 words Pack produces.
func (s *Schema) Words() int {
	return len(s.Fields)
}

// Defaults returns a T with every tagged field set to its default.
func Defaults[T any]() T {
	var v T
	s := SchemaOf[T]()
	rv := reflect.ValueOf(&v).Elem()
	for _, f := range s.Fields {
		set(rv.Field(f.index), f.Kind, f.Default)
	}
	return v
}

// Validate checks that every tagged field of v is finite and within range.
// Enumerations implementing Tagger must also map to a non-negative tag;
// values outside their table report -1.
func Validate[T any](v T) error {
	s := SchemaOf[T]()
	rv := reflect.ValueOf(v)
	var errs []error
	for _, f := range s.Fields {
		fv := rv.Field(f.index)
		if t, ok := fv.Interface().(Tagger); ok && t.NativeTag() < 0 {
			errs = append(errs, fmt.Errorf("%w: %s.%s = %v", ErrOutOfRange, s.Type.Name(), f.Name, fv.Interface()))
			continue
		}
		x := get(fv, f.Kind)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			errs = append(errs, fmt.Errorf("%w: %s.%s", ErrNotFinite, s.Type.Name(), f.Name))
			continue
		}
		if (f.HasMin && x < f.Min) || (f.HasMax && x > f.Max) {
			errs = append(errs, fmt.Errorf("%w: %s.%s = %g", ErrOutOfRange, s.Type.Name(), f.Name, x))
		}
	}
	return errors.Join(errs...)
}

// Pack converts v into its native word layout, one word per tagged field in
// declaration order. Enumerations implementing Tagger contribute their tag.
func Pack[T any](v T) []float32 {
	s := SchemaOf[T]()
	rv := reflect.ValueOf(v)
	out := make([]float32, len(s.Fields))
	for i, f := range s.Fields {
		fv := rv.Field(f.index)
		if t, ok := fv.Interface().(Tagger); ok {
			out[i] = float32(t.NativeTag())
			continue
		}
		out[i] = float32(get(fv, f.Kind))
	}
	return out
}

// Map returns the tagged fields of v keyed by schema name.
func Map[T any](v T) map[string]float64 {
	s := SchemaOf[T]()
	rv := reflect.ValueOf(v)
	m := make(map[string]float64, len(s.Fields))
	for _, f := range s.Fields {
		m[f.Name] = get(rv.Field(f.index), f.Kind)
	}
	return m
}

func get(v reflect.Value, k Kind) float64 {
	switch k {
	case KindFloat:
		return v.Float()
	case KindBool:
		if v.Bool() {
			return 1
		}
		return 0
	default:
		if v.CanInt() {
			return float64(v.Int())
		}
		return float64(v.Uint())
	}
}

func set(v reflect.Value, k Kind, x float64) {
	switch k {
	case KindFloat:
		v.SetFloat(x)
	case KindBool:
		v.SetBool(x != 0)
	default:
		if v.CanInt() {
			v.SetInt(int64(x))
		} else {
			v.SetUint(uint64(x))
		}
	}
}
