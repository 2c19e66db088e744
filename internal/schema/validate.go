// Package schema defines every entity and worker payload shape and the
// parse/validate entry points used at each store and worker boundary.
//
// Parse decodes untrusted input (bytes, raw JSON, or any JSON-encodable
// value) into a typed value and validates it with struct tags. SafeParse
// does the same without failing.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	mustRegister(v, "dataurl", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.HasPrefix(s, "data:") && strings.Contains(s, ",")
	})
	mustRegister(v, "nodelabel", func(fl validator.FieldLevel) bool {
		return IsNodeLabel(fl.Field().String())
	})
	mustRegister(v, "reltype", func(fl validator.FieldLevel) bool {
		return IsRelType(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("schema: register %s: %v", tag, err))
	}
}

// Issue describes one shape mismatch.
type Issue struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every issue found while parsing a value.
type ValidationError struct {
	Type   string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Type, strings.Join(parts, "; "))
}

// Unwrap classifies the error as a validation error.
func (e *ValidationError) Unwrap() error {
	return apperr.Validation("schema validation failed", nil)
}

// Result is the outcome of SafeParse.
type Result[T any] struct {
	OK     bool
	Value  T
	Issues []Issue
}

// Parse decodes data into T and validates it.
func Parse[T any](data any) (T, error) {
	var out T
	raw, err := toJSON(data)
	if err != nil {
		return out, &ValidationError{Type: typeName[T](), Issues: []Issue{{Rule: "json", Message: err.Error()}}}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ValidationError{Type: typeName[T](), Issues: []Issue{decodeIssue(err)}}
	}
	normalize(&out)
	if err := Validate(out); err != nil {
		return out, err
	}
	return out, nil
}

// SafeParse is Parse without an error return.
func SafeParse[T any](data any) Result[T] {
	v, err := Parse[T](data)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return Result[T]{Issues: ve.Issues}
		}
		return Result[T]{Issues: []Issue{{Message: err.Error()}}}
	}
	return Result[T]{OK: true, Value: v}
}

// MustParse panics when data does not parse. Used for fixed fixtures.
func MustParse[T any](data any) T {
	v, err := Parse[T](data)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks struct tags on v. Structs, pointers to structs and
// slices of structs are checked; other values are accepted as-is.
func Validate(v any) error {
	issues := collect(reflect.ValueOf(v), "")
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Type: reflectName(reflect.TypeOf(v)), Issues: issues}
}

func collect(rv reflect.Value, prefix string) []Issue {
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return collect(rv.Elem(), prefix)
	case reflect.Struct:
		err := validate.Struct(rv.Interface())
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []Issue{{Field: prefix, Rule: "struct", Message: err.Error()}}
		}
		issues := make([]Issue, 0, len(verrs))
		for _, fe := range verrs {
			field := fieldPath(fe.Namespace())
			if prefix != "" {
				field = prefix + "." + field
			}
			issues = append(issues, Issue{
				Field:   field,
				Rule:    fe.Tag(),
				Message: issueMessage(field, fe),
			})
		}
		return issues
	case reflect.Slice, reflect.Array:
		var issues []Issue
		for i := 0; i < rv.Len(); i++ {
			issues = append(issues, collect(rv.Index(i), fmt.Sprintf("%s[%d]", prefix, i))...)
		}
		return issues
	default:
		return nil
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func issueMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte", "min":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "dataurl":
		return field + " must be a data URL"
	case "nodelabel":
		return fmt.Sprintf("%s: unknown node label %q", field, fe.Value())
	case "reltype":
		return fmt.Sprintf("%s: unknown relationship type %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func decodeIssue(err error) Issue {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return Issue{
			Field:   te.Field,
			Rule:    "type",
			Message: fmt.Sprintf("%s must be %s, got %s", te.Field, te.Type, te.Value),
		}
	}
	return Issue{Rule: "json", Message: err.Error()}
}

func toJSON(data any) ([]byte, error) {
	switch d := data.(type) {
	case nil:
		return []byte("null"), nil
	case json.RawMessage:
		if len(bytes.TrimSpace(d)) == 0 {
			return []byte("null"), nil
		}
		return d, nil
	case []byte:
		if len(bytes.TrimSpace(d)) == 0 {
			return []byte("null"), nil
		}
		return d, nil
	case string:
		return []byte(d), nil
	default:
		return json.Marshal(d)
	}
}

// normalizer is implemented by values that canonicalize themselves after
// decoding (empty optional ids become nil, and so on).
type normalizer interface {
	normalize()
}

func normalize(v any) {
	rv := reflect.ValueOf(v)
	normalizeValue(rv)
}

func normalizeValue(rv reflect.Value) {
	if !rv.IsValid() {
		return
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return
		}
		if n, ok := rv.Interface().(normalizer); ok {
			n.normalize()
		}
		normalizeValue(rv.Elem())
		return
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			el := rv.Index(i)
			if el.CanAddr() {
				normalizeValue(el.Addr())
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Field(i)
			if !f.CanSet() {
				continue
			}
			switch f.Kind() {
			case reflect.Struct, reflect.Slice:
				if f.CanAddr() {
					normalizeValue(f.Addr())
				}
			}
		}
	}
}

func typeName[T any]() string {
	var zero T
	return reflectName(reflect.TypeOf(&zero).Elem())
}

func reflectName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice {
		return "[]" + reflectName(t.Elem())
	}
	if t.Name() == "" {
		return t.Kind().String()
	}
	return t.Name()
}
