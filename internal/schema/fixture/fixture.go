// Package fixture decodes entity declarations from JSON files into the
// field resolvers the schema resolver consumes. It exists for tooling
// that needs an entity declaration format it can read off disk — the
// devloop watcher and the embedded-Postgres integration test — rather
// than for the core pipeline itself, which only ever sees already-built
// field.Resolver values.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/windrift-orm/windrift/internal/dbtype"
	"github.com/windrift-orm/windrift/internal/rtype"
	"github.com/windrift-orm/windrift/internal/schema/field"
	"github.com/windrift-orm/windrift/internal/schema/resolver"
)

// FieldSpec is one field of an EntitySpec, as declared in JSON.
type FieldSpec struct {
	Name       string `json:"name"`
	Column     string `json:"column"`
	Kind       string `json:"kind"` // "scalar", "associated", "collection"
	Type       string `json:"type,omitempty"`
	Nullable   bool   `json:"nullable,omitempty"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
	References string `json:"references,omitempty"`
}

// EntitySpec is one entity declaration file's contents.
type EntitySpec struct {
	Entity string      `json:"entity"`
	Fields []FieldSpec `json:"fields"`
}

var typeNamesByLabel = map[string]dbtype.DatabaseType{
	"bool": dbtype.TypeBool, "smallint": dbtype.TypeSmallInt, "int": dbtype.TypeInt,
	"bigint": dbtype.TypeBigInt, "float": dbtype.TypeFloat, "double": dbtype.TypeDouble,
	"varchar": dbtype.TypeVarChar, "text": dbtype.TypeText, "bytes": dbtype.TypeBytes,
	"date": dbtype.TypeDate, "datetime": dbtype.TypeDateTime, "timestamp": dbtype.TypeTimestamp,
	"uuid": dbtype.TypeUUID, "json": dbtype.TypeJSON,
}

// Resolvers builds the field.Resolver set this entity declares.
func (s *EntitySpec) Resolvers() ([]field.Resolver, error) {
	out := make([]field.Resolver, 0, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Kind {
		case "scalar":
			typ, ok := typeNamesByLabel[f.Type]
			if !ok {
				return nil, fmt.Errorf("entity %q field %q: unknown scalar type %q", s.Entity, f.Name, f.Type)
			}
			out = append(out, field.NewScalar(f.Name, f.Column, typ, f.Nullable, f.PrimaryKey, nil))
		case "associated":
			if f.References == "" {
				return nil, fmt.Errorf("entity %q field %q: associated field has no references target", s.Entity, f.Name)
			}
			out = append(out, field.NewAssociatedEntity(f.Name, f.Column, f.References, f.Nullable))
		case "collection":
			if f.References == "" {
				return nil, fmt.Errorf("entity %q field %q: collection field has no references target", s.Entity, f.Name)
			}
			out = append(out, field.NewCollection(f.Name, f.References))
		default:
			return nil, fmt.Errorf("entity %q field %q: unknown field kind %q", s.Entity, f.Name, f.Kind)
		}
	}
	return out, nil
}

// ParseEntitySpec decodes one entity declaration file's JSON contents.
func ParseEntitySpec(data []byte) (*EntitySpec, error) {
	var spec EntitySpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if spec.Entity == "" {
		return nil, fmt.Errorf("entity declaration is missing its \"entity\" name")
	}
	return &spec, nil
}

// LoadDir reads every *.json file directly under dir as one entity
// declaration apiece, and registers them with a fresh schema resolver
// built over reg. Files are processed in lexical filename order, giving
// a deterministic (if arbitrary) declaration order when the caller has
// no other ordering signal.
func LoadDir(dir string, reg *rtype.Registry) (*resolver.ImmutableSchemaResolver, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading entity declaration directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	r := resolver.NewImmutableSchemaResolver(reg)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		spec, err := ParseEntitySpec(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		resolvers, err := spec.Resolvers()
		if err != nil {
			return nil, err
		}
		r.AddEntity(spec.Entity, resolvers)
	}
	return r, nil
}
