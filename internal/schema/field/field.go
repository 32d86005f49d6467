// Package field implements the field-resolver registry (spec §4.G): one
// Resolver per declared entity field, each progressing through an
// explicit status machine (waiting-for-fields, waiting-for-entity,
// waiting-to-assemble) as the entities it depends on become available.
package field

import (
	"fmt"

	"github.com/windrift-orm/windrift/internal/dbtype"
)

// Status is a field resolver's position in its own small state machine.
type Status int

const (
	// StatusWaitingForFields is the initial status: the resolver has not
	// been stepped yet (a ScalarResolver leaves it on its first Step).
	StatusWaitingForFields Status = iota
	// StatusWaitingForEntity means the resolver needs another entity to
	// have finished resolving first (associated-entity/collection fields).
	StatusWaitingForEntity
	// StatusWaitingToAssemble means every dependency is satisfied and the
	// resolver can produce its column on demand.
	StatusWaitingToAssemble
	// StatusDone means the resolver has produced its final column.
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusWaitingForFields:
		return "waiting-for-fields"
	case StatusWaitingForEntity:
		return "waiting-for-entity"
	case StatusWaitingToAssemble:
		return "waiting-to-assemble"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// Context is the shared view a Resolver sees of the rest of the schema:
// every entity that has already reached a fixed point.
type Context struct {
	Entities map[string]*dbtype.TableDefinition
}

// Resolver is implemented once per declared field. Step is called
// repeatedly by the owning entity accumulator until it reports
// StatusDone or the schema resolver gives up.
type Resolver interface {
	FieldName() string
	Status() Status
	// Step attempts to progress the resolver given the current context,
	// returning whether any progress was made this call.
	Step(ctx *Context) (progressed bool, err error)
	// Column returns the resolved column definition. Valid only once
	// Status() == StatusDone.
	Column() (dbtype.ColumnDefinition, bool)
}

// ScalarResolver resolves a plain numeric/string/boolean/date field. It
// never depends on another entity, so it reaches StatusDone on its first
// Step.
type ScalarResolver struct {
	Name       string
	ColumnName string
	Type       dbtype.DatabaseType
	Nullable   bool
	PrimaryKey bool
	Default    *dbtype.DatabaseValue

	status Status
}

// NewScalar constructs a ScalarResolver for a non-relational field.
func NewScalar(name, columnName string, typ dbtype.DatabaseType, nullable, primaryKey bool, def *dbtype.DatabaseValue) *ScalarResolver {
	return &ScalarResolver{Name: name, ColumnName: columnName, Type: typ, Nullable: nullable, PrimaryKey: primaryKey, Default: def}
}

func (s *ScalarResolver) FieldName() string { return s.Name }
func (s *ScalarResolver) Status() Status    { return s.status }
func (s *ScalarResolver) Step(ctx *Context) (bool, error) {
	if s.status == StatusDone {
		return false, nil
	}
	if s.PrimaryKey && !s.Type.SuitableAsPrimaryKey() {
		return false, fmt.Errorf("field %q has type %s, which is not suitable as a primary key", s.Name, s.Type)
	}
	s.status = StatusDone
	return true, nil
}
func (s *ScalarResolver) Column() (dbtype.ColumnDefinition, bool) {
	if s.status != StatusDone {
		return dbtype.ColumnDefinition{}, false
	}
	return dbtype.ColumnDefinition{
		Name: s.ColumnName, Type: s.Type, Nullable: s.Nullable, PrimaryKey: s.PrimaryKey, Default: s.Default,
	}, true
}

// AssociatedEntityResolver resolves a many-to-one / foreign-key field: it
// waits for the referenced entity to finish resolving, then mirrors that
// entity's primary-key type into a new column on the owning table.
type AssociatedEntityResolver struct {
	Name           string
	ColumnName     string
	ReferencedName string
	Nullable       bool

	status Status
	column dbtype.ColumnDefinition
}

// NewAssociatedEntity constructs a resolver for a field that references
// another entity by name.
func NewAssociatedEntity(name, columnName, referencedName string, nullable bool) *AssociatedEntityResolver {
	return &AssociatedEntityResolver{Name: name, ColumnName: columnName, ReferencedName: referencedName, Nullable: nullable, status: StatusWaitingForEntity}
}

func (a *AssociatedEntityResolver) FieldName() string { return a.Name }
func (a *AssociatedEntityResolver) Status() Status    { return a.status }
func (a *AssociatedEntityResolver) Step(ctx *Context) (bool, error) {
	if a.status == StatusDone {
		return false, nil
	}
	target, ok := ctx.Entities[a.ReferencedName]
	if !ok {
		return false, nil
	}
	if len(target.PrimaryKey) != 1 {
		return false, fmt.Errorf("field %q references entity %q, which does not have a single-column primary key", a.Name, a.ReferencedName)
	}
	pkCol, ok := target.Column(target.PrimaryKey[0])
	if !ok {
		return false, fmt.Errorf("field %q references entity %q's missing primary key column", a.Name, a.ReferencedName)
	}
	a.column = dbtype.ColumnDefinition{Name: a.ColumnName, Type: pkCol.Type, Nullable: a.Nullable}
	a.status = StatusDone
	return true, nil
}
func (a *AssociatedEntityResolver) Column() (dbtype.ColumnDefinition, bool) {
	if a.status != StatusDone {
		return dbtype.ColumnDefinition{}, false
	}
	return a.column, true
}

// CollectionResolver resolves a one-to-many field: the inverse side of an
// AssociatedEntityResolver on another entity. It contributes no column to
// its own table, but still waits for the referenced entity to exist so
// that a dangling reference is caught.
type CollectionResolver struct {
	Name           string
	ReferencedName string

	status Status
}

// NewCollection constructs a resolver for a one-to-many field.
func NewCollection(name, referencedName string) *CollectionResolver {
	return &CollectionResolver{Name: name, ReferencedName: referencedName, status: StatusWaitingForEntity}
}

func (c *CollectionResolver) FieldName() string { return c.Name }
func (c *CollectionResolver) Status() Status    { return c.status }
func (c *CollectionResolver) Step(ctx *Context) (bool, error) {
	if c.status == StatusDone {
		return false, nil
	}
	if _, ok := ctx.Entities[c.ReferencedName]; !ok {
		return false, nil
	}
	c.status = StatusDone
	return true, nil
}
func (c *CollectionResolver) Column() (dbtype.ColumnDefinition, bool) {
	return dbtype.ColumnDefinition{}, false
}
