package agent

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/prxs-ai/agentkit/pkg/schema"
)

// Values is the normalized, named view of request parameters. It is
// request-scoped and read-only within a single Compute invocation.
type Values map[string]any

// Param is one positional slot of a handler's parameter list.
type Param struct {
	Name    string
	Default any
}

// ParamSpec is the handler-declared ordered parameter list. Positions of a
// list-shaped params payload map onto it; missing trailing positions take
// the declared defaults.
type ParamSpec []Param

// Names returns the parameter names in declared order, for ServiceCard.Inputs.
func (s ParamSpec) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// WithDefault sets the default for the named parameter and returns the spec.
func (s ParamSpec) WithDefault(name string, def any) ParamSpec {
	for i := range s {
		if s[i].Name == name {
			s[i].Default = def
		}
	}
	return s
}

// Normalize converts the raw params of a request into a single named view.
// A JSON object passes through unchanged. A JSON array maps positions onto
// the spec, filling missing trailing positions from the declared defaults.
// Absent or null params yield an empty map so that required-field validation
// fires in the handler rather than here.
func Normalize(raw json.RawMessage, spec ParamSpec) (Values, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Values{}, nil
	}

	switch trimmed[0] {
	case '{':
		var named Values
		if err := json.Unmarshal(raw, &named); err != nil {
			return nil, errors.Wrap(err, "invalid params object")
		}
		return named, nil
	case '[':
		var positional []any
		if err := json.Unmarshal(raw, &positional); err != nil {
			return nil, errors.Wrap(err, "invalid params array")
		}
		named := make(Values, len(spec))
		for i, p := range spec {
			if i < len(positional) {
				named[p.Name] = positional[i]
			} else if p.Default != nil {
				named[p.Name] = p.Default
			}
		}
		return named, nil
	default:
		return nil, errors.New("params must be an array or an object")
	}
}

// SpecOf derives the ordered parameter spec from a typed params struct,
// using the json tags in field declaration order.
func SpecOf(v any) (ParamSpec, error) {
	s, err := schema.New(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}
	names := s.ParamNames()
	spec := make(ParamSpec, len(names))
	for i, name := range names {
		spec[i] = Param{Name: name}
	}
	return spec, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report violations by wire name, not Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode marshals the normalized values back to JSON and unmarshals them
// into the handler's typed params struct, then validates it. Validation
// failures are reduced to a single human-readable message naming the first
// offending field.
func Decode(params Values, out any) error {
	bs, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "failed to marshal params")
	}
	if err := json.Unmarshal(bs, out); err != nil {
		return errors.Wrap(err, "failed to unmarshal params")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return errors.Errorf("%s is required", fe.Field())
			}
			return errors.Errorf("%s is invalid", fe.Field())
		}
		return err
	}
	return nil
}

// AsFloat coerces a JSON value into a float64, accepting numbers and
// numeric strings the way the wrapped upstream agents historically did.
func AsFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, errors.Errorf("not a number: %q", t)
		}
		return f, nil
	default:
		return 0, errors.Errorf("not a number: %v", v)
	}
}

// AsInt coerces a JSON value into an int.
func AsInt(v any) (int, error) {
	f, err := AsFloat(v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
