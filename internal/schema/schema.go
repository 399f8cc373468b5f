// Package schema implements declarative validation of untyped input
// records. A Schema is a list of field rules evaluated in order; rules
// later in the list may condition on siblings that validated earlier.
package schema

import (
	"fmt"
	"math"
	"regexp"
)

// Record is an untyped input document, typically a decoded JSON object.
type Record map[string]any

// FieldError reports the first field that failed validation and why.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Constraint checks a single value and returns its normalized form.
type Constraint interface {
	check(v any) (any, error)
}

// String requires a string value no longer than Max bytes.
type String struct {
	Max int
}

func (c String) check(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string")
	}
	if c.Max > 0 && len(s) > c.Max {
		return nil, fmt.Errorf("longer than %d characters", c.Max)
	}
	return s, nil
}

// Enum requires the value to be one of a fixed set of strings.
type Enum []string

func (c Enum) check(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string")
	}
	for _, allowed := range c {
		if s == allowed {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%q is not an allowed value", s)
}

// Int requires an integer value of at least Min. There is no upper
// bound. JSON numbers arrive as float64 and are accepted only when they
// have no fractional part.
type Int struct {
	Min int64
}

func (c Int) check(v any) (any, error) {
	var n int64
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("expected an integer")
		}
		n = int64(x)
	case int:
		n = int64(x)
	case int64:
		n = x
	default:
		return nil, fmt.Errorf("expected an integer")
	}
	if n < c.Min {
		return nil, fmt.Errorf("must be at least %d", c.Min)
	}
	return n, nil
}

// Pattern requires a string fully matching the given expression.
type Pattern struct {
	Regexp *regexp.Regexp
}

func (c Pattern) check(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string")
	}
	if !c.Regexp.MatchString(s) {
		return nil, fmt.Errorf("does not match %s", c.Regexp)
	}
	return s, nil
}

// Field is one rule in a schema. Exactly one of Is or When is set. A
// When predicate sees the siblings validated so far and returns the
// constraint in force for this input, or nil if the field must be
// absent.
type Field struct {
	Name     string
	Optional bool
	Is       Constraint
	When     func(Record) Constraint
}

// Schema validates records field by field, in declaration order.
type Schema struct {
	fields []Field
}

func New(fields ...Field) *Schema {
	return &Schema{fields: fields}
}

// Apply validates in against the schema and returns a normalized record
// containing only the declared fields. Unknown fields in the input are
// ignored. Apply is pure: the same input always yields the same result.
func (s *Schema) Apply(in Record) (Record, error) {
	out := make(Record, len(s.fields))
	for _, f := range s.fields {
		c := f.Is
		if f.When != nil {
			c = f.When(out)
		}
		v, present := in[f.Name]
		if present && v == nil {
			present = false
		}

		if c == nil {
			// Field not applicable for this input shape.
			if present {
				return nil, &FieldError{Field: f.Name, Reason: "not allowed here"}
			}
			continue
		}
		if !present {
			if f.Optional {
				continue
			}
			return nil, &FieldError{Field: f.Name, Reason: "is required"}
		}

		norm, err := c.check(v)
		if err != nil {
			return nil, &FieldError{Field: f.Name, Reason: err.Error()}
		}
		out[f.Name] = norm
	}
	return out, nil
}
