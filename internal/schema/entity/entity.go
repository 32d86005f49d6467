// Package entity implements the entity-resolver accumulator (spec §4.H):
// one accumulator per declared entity, holding its field resolvers and
// assembling them into a dbtype.TableDefinition once every field reaches
// StatusDone.
package entity

import (
	"fmt"

	"github.com/windrift-orm/windrift/internal/dbtype"
	"github.com/windrift-orm/windrift/internal/schema/field"
)

// Accumulator tracks one entity's fields as they resolve.
type Accumulator struct {
	Name   string
	Fields []field.Resolver

	table *dbtype.TableDefinition
}

// New creates an accumulator for an entity with its declared fields, in
// declaration order (declaration order is preserved into the assembled
// table's column order).
func New(name string, fields []field.Resolver) *Accumulator {
	return &Accumulator{Name: name, Fields: fields}
}

// Status summarizes the accumulator's fields into a single status:
// StatusDone once Achieve has assembled the table, StatusWaitingToAssemble
// once every field is done, and the least advanced status among the
// unfinished fields otherwise.
func (a *Accumulator) Status() field.Status {
	if a.table != nil {
		return field.StatusDone
	}
	allDone := true
	worst := field.StatusWaitingToAssemble
	for _, f := range a.Fields {
		if f.Status() != field.StatusDone {
			allDone = false
			if f.Status() < worst {
				worst = f.Status()
			}
		}
	}
	if allDone {
		return field.StatusWaitingToAssemble
	}
	return worst
}

// Step gives every not-yet-done field resolver a chance to progress,
// returning whether any of them did.
func (a *Accumulator) Step(ctx *field.Context) (bool, error) {
	if a.table != nil {
		return false, nil
	}
	progressed := false
	for _, f := range a.Fields {
		if f.Status() == field.StatusDone {
			continue
		}
		ok, err := f.Step(ctx)
		if err != nil {
			return progressed, fmt.Errorf("field %q: %w", f.FieldName(), err)
		}
		if ok {
			progressed = true
		}
	}
	return progressed, nil
}

// Achieve assembles the accumulated fields into a TableDefinition. It
// requires every field to be StatusDone and at least one primary-key
// column to have been declared.
func (a *Accumulator) Achieve() (*dbtype.TableDefinition, error) {
	if a.table != nil {
		return a.table, nil
	}
	var columns []dbtype.ColumnDefinition
	var pk []string
	for _, f := range a.Fields {
		if f.Status() != field.StatusDone {
			return nil, fmt.Errorf("field %q has not finished resolving (status %s)", f.FieldName(), f.Status())
		}
		col, ok := f.Column()
		if !ok {
			continue // collection fields contribute no column
		}
		columns = append(columns, col)
		if col.PrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	if len(pk) == 0 {
		return nil, fmt.Errorf("entity %q declares no primary key field", a.Name)
	}
	a.table = &dbtype.TableDefinition{Name: a.Name, Columns: columns, PrimaryKey: pk}
	return a.table, nil
}
