// Package schema reflects JSON schemas from typed parameter structs. Agents
// use it to derive the ordered input names published in their service cards
// from the same struct that request parameters are decoded into.
package schema

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.Mutex
)

// Schema describes the parameters of one agent capability.
type Schema struct {
	// Parameters is the flattened object schema of the params struct, with
	// all $ref indirections resolved.
	Parameters *jsonschema.Schema
}

// New reflects the schema for the given params struct type. Results are
// cached per type.
func New(t reflect.Type) (*Schema, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if s, ok := cache[t]; ok {
		return s, nil
	}

	s, err := buildSchema(t)
	if err != nil {
		return nil, err
	}
	cache[t] = s
	return s, nil
}

// ParamNames returns the property names of the params struct in field
// declaration order.
func (s *Schema) ParamNames() []string {
	if s.Parameters == nil || s.Parameters.Properties == nil {
		return nil
	}
	var names []string
	for pair := s.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Required returns the names of the required properties.
func (s *Schema) Required() []string {
	if s.Parameters == nil {
		return nil
	}
	return s.Parameters.Required
}

func buildSchema(t reflect.Type) (*Schema, error) {
	reflected := reflectType(t)

	rootID := strings.TrimPrefix(reflected.Ref, "#/$defs/")
	defs := make(map[string]*jsonschema.Schema)
	var root *jsonschema.Schema
	for name, def := range reflected.Definitions {
		if name == rootID {
			root = def
		} else {
			defs[name] = def
		}
	}
	if root == nil {
		return nil, errors.Errorf("schema: no root definition for %s", t.String())
	}

	flat := &jsonschema.Schema{
		Type:       root.Type,
		Properties: root.Properties,
		Required:   root.Required,
	}
	if err := resolveRefs(flat.Properties, defs); err != nil {
		return nil, err
	}

	return &Schema{Parameters: flat}, nil
}

func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs map[string]*jsonschema.Schema) error {
	if props == nil {
		return nil
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		child := pair.Value
		if child.Ref != "" {
			name := strings.TrimPrefix(child.Ref, "#/$defs/")
			def, ok := defs[name]
			if !ok {
				return errors.Errorf("schema: unresolved $ref %s", child.Ref)
			}
			pair.Value = def
			child = def
		}
		if child.Items != nil && child.Items.Ref != "" {
			name := strings.TrimPrefix(child.Items.Ref, "#/$defs/")
			def, ok := defs[name]
			if !ok {
				return errors.Errorf("schema: unresolved $ref %s", child.Items.Ref)
			}
			child.Items = def
		}
		if child.Properties != nil {
			if err := resolveRefs(child.Properties, defs); err != nil {
				return err
			}
		}
	}
	return nil
}

func reflectType(t reflect.Type) *jsonschema.Schema {
	r := new(jsonschema.Reflector)
	// Params structs in different agent packages may share a type name;
	// disambiguate definitions with a package-path hash.
	r.Namer = func(t reflect.Type) string {
		name := t.Name()
		if t.Kind() == reflect.Struct {
			full := t.PkgPath() + "/" + t.Name()
			name = t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(full), 10)
		}
		return name
	}
	return r.ReflectFromType(t)
}
