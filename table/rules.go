package table

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/syssam/tablegate"
)

// DateLayout is the layout date fields are validated against.
const DateLayout = "2006-01-02"

// Validation failures wrapped in *tablegate.ValidationError.
var (
	ErrEmpty     = errors.New("value is required and can't be empty")
	ErrTooLong   = errors.New("value is too long")
	ErrNotDate   = errors.New("value is not a valid date")
	ErrNotInt    = errors.New("value is not an integer")
	ErrNotFloat  = errors.New("value is not a number")
	errNotString = errors.New("value is not a string")
)

// Filter normalizes a value before validation.
type Filter struct {
	Name string
	Fn   func(any) any
}

// Validator checks a filtered, non-empty value.
type Validator struct {
	Name string
	Fn   func(any) error
}

// Rules are the filters and validators derived from a field's metadata.
type Rules struct {
	name       string
	required   bool
	filters    []Filter
	validators []Validator
}

// Rules returns the rules of the field, derived on first use.
func (f *Field) Rules() *Rules {
	if f.rules == nil {
		f.rules = deriveRules(f)
	}
	return f.rules
}

func deriveRules(f *Field) *Rules {
	r := &Rules{
		name:     f.ControlName(),
		required: f.Required() && !f.IsType("boolean"),
	}
	switch {
	case f.IsType("string"):
		if n := f.column.Length; n > 0 {
			r.validators = append(r.validators, Validator{Name: "StringLength", Fn: stringLength(n)})
		}
		r.filters = append(r.filters,
			Filter{Name: "StringTrim", Fn: stringTrim},
			Filter{Name: "NullOnEmpty", Fn: nullOnEmpty},
		)
	case f.IsType("date"):
		r.validators = append(r.validators, Validator{Name: "DateFormat", Fn: dateFormat})
	case f.IsType("boolean"):
		r.filters = append(r.filters, Filter{Name: "ToInt", Fn: toInt})
	case f.IsType("integer"):
		r.filters = append(r.filters, Filter{Name: "Digits", Fn: digits(false)})
		r.validators = append(r.validators, Validator{Name: "Int", Fn: isInt})
	case f.IsType("float"):
		r.filters = append(r.filters, Filter{Name: "Digits", Fn: digits(true)})
		r.validators = append(r.validators, Validator{Name: "Float", Fn: isFloat})
	}
	return r
}

// Required reports whether empty values are rejected.
func (r *Rules) Required() bool { return r.required }

// Filters returns the filters in application order.
func (r *Rules) Filters() []Filter { return r.filters }

// Validators returns the validators in application order.
func (r *Rules) Validators() []Validator { return r.validators }

// Names returns the filter and validator names, filters first. Required
// rules report a NotEmpty validator.
func (r *Rules) Names() []string {
	names := make([]string, 0, len(r.filters)+len(r.validators)+1)
	for _, f := range r.filters {
		names = append(names, f.Name)
	}
	if r.required {
		names = append(names, "NotEmpty")
	}
	for _, v := range r.validators {
		names = append(names, v.Name)
	}
	return names
}

// Apply filters value and validates the result. Empty values skip the
// validators unless the field is required, in which case they fail.
func (r *Rules) Apply(value any) (any, error) {
	for _, f := range r.filters {
		value = f.Fn(value)
	}
	if isEmpty(value) {
		if r.required {
			return nil, tablegate.NewValidationError(r.name, ErrEmpty)
		}
		return value, nil
	}
	for _, v := range r.validators {
		if err := v.Fn(value); err != nil {
			return nil, tablegate.NewValidationError(r.name, fmt.Errorf("%s: %w", v.Name, err))
		}
	}
	return value, nil
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

func asString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	}
	return "", false
}

func stringTrim(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

func nullOnEmpty(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

// toInt converts like a C-style integer cast: booleans become 1 or 0 and
// strings their leading integer.
func toInt(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	s, ok := asString(v)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (unicode.IsDigit(rune(s[end])) || (end == 0 && (s[0] == '-' || s[0] == '+'))) {
		end++
	}
	n, _ := strconv.ParseInt(s[:end], 10, 64)
	return n
}

// digits strips every character but digits and a leading minus sign. With
// decimal set the decimal point is kept too.
func digits(decimal bool) func(any) any {
	return func(v any) any {
		s, ok := asString(v)
		if !ok {
			return v
		}
		var b strings.Builder
		for i, r := range strings.TrimSpace(s) {
			switch {
			case r >= '0' && r <= '9':
				b.WriteRune(r)
			case r == '-' && i == 0:
				b.WriteRune(r)
			case r == '.' && decimal:
				b.WriteRune(r)
			}
		}
		return b.String()
	}
}

func stringLength(limit int) func(any) error {
	return func(v any) error {
		s, ok := asString(v)
		if !ok {
			return errNotString
		}
		if n := utf8.RuneCountInString(s); n > limit {
			return fmt.Errorf("%w: %d characters, at most %d allowed", ErrTooLong, n, limit)
		}
		return nil
	}
}

func dateFormat(v any) error {
	if _, ok := v.(time.Time); ok {
		return nil
	}
	s, ok := asString(v)
	if !ok {
		return ErrNotDate
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: %q", ErrNotDate, s)
	}
	return nil
}

func isInt(v any) error {
	s, ok := asString(v)
	if !ok {
		return ErrNotInt
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("%w: %q", ErrNotInt, s)
	}
	return nil
}

func isFloat(v any) error {
	s, ok := asString(v)
	if !ok {
		return ErrNotFloat
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("%w: %q", ErrNotFloat, s)
	}
	return nil
}
