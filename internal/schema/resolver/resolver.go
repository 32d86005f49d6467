// Package resolver implements the schema resolver (spec §4.I): an
// explicit worklist-driven fixed-point solver that turns a set of
// annotated entity declarations into a relational schema, one
// dbtype.TableDefinition per entity. Entities are requeued for another
// attempt only when something else in the schema changed, never on a
// fixed interval or via naive recursion, and the declaration order is
// preserved throughout so results are deterministic (spec §5).
package resolver

import (
	"github.com/windrift-orm/windrift/internal/dbtype"
	"github.com/windrift-orm/windrift/internal/diag"
	"github.com/windrift-orm/windrift/internal/rtype"
	"github.com/windrift-orm/windrift/internal/schema/entity"
	"github.com/windrift-orm/windrift/internal/schema/field"
	"github.com/windrift-orm/windrift/internal/token"
)

// ImmutableSchemaResolver accumulates entity declarations and resolves
// them to a fixed point exactly once; its result is immutable afterward,
// matching the teacher's pattern of a one-shot resolve-then-freeze pass
// over a declaration set.
type ImmutableSchemaResolver struct {
	registry     *rtype.Registry
	order        []string
	accumulators map[string]*entity.Accumulator
	resolved     map[string]*dbtype.TableDefinition
}

// NewImmutableSchemaResolver creates a resolver that registers an
// AssociatedEntityResolver into reg for each entity it successfully
// resolves, so the type checker can type-check associated-entity field
// comparisons once schema resolution completes.
func NewImmutableSchemaResolver(reg *rtype.Registry) *ImmutableSchemaResolver {
	return &ImmutableSchemaResolver{
		registry:     reg,
		accumulators: map[string]*entity.Accumulator{},
		resolved:     map[string]*dbtype.TableDefinition{},
	}
}

// AddEntity registers one entity declaration's field resolvers. Entities
// must be added before Resolve is called; declaration order becomes the
// deterministic processing order.
func (r *ImmutableSchemaResolver) AddEntity(name string, fields []field.Resolver) {
	if _, exists := r.accumulators[name]; exists {
		return
	}
	r.order = append(r.order, name)
	r.accumulators[name] = entity.New(name, fields)
}

// Resolve drives every entity to StatusDone or reports why it could not
// be. It returns the resolved tables (by entity name) and every
// diagnostic produced along the way; a non-empty Diagnostics.HasErrors()
// means the schema is incomplete.
func (r *ImmutableSchemaResolver) Resolve() (map[string]*dbtype.TableDefinition, *diag.Diagnostics) {
	d := diag.New()
	queue := append([]string(nil), r.order...)
	inQueue := map[string]bool{}
	for _, name := range queue {
		inQueue[name] = true
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		inQueue[name] = false

		if _, done := r.resolved[name]; done {
			continue
		}
		acc := r.accumulators[name]
		ctx := &field.Context{Entities: r.resolved}

		progressed, err := acc.Step(ctx)
		if err != nil {
			d.AddErrorf(token.Span{}, diag.ErrFieldResolverIsNotFinished, "entity %q: %s", name, err)
			continue
		}

		if acc.Status() == field.StatusWaitingToAssemble {
			table, err := acc.Achieve()
			if err != nil {
				d.AddErrorf(token.Span{}, diag.ErrUnsuitableColumnDataTypeForPrimaryKey, "entity %q: %s", name, err)
				continue
			}
			r.resolved[name] = table
			r.registry.Register(rtype.AssociatedEntityResolver{EntityName: name})

			// A new entity just became available; give every other
			// pending entity another chance to progress past
			// waiting-for-entity, but only those not already queued.
			for _, other := range r.order {
				if other == name || r.resolved[other] != nil || inQueue[other] {
					continue
				}
				queue = append(queue, other)
				inQueue[other] = true
			}
			continue
		}

		if progressed {
			queue = append(queue, name)
			inQueue[name] = true
		}
	}

	for _, name := range r.order {
		if _, ok := r.resolved[name]; !ok {
			d.AddErrorf(token.Span{}, diag.ErrEntityResolverIsNotFinished,
				"entity %q could not be resolved to a fixed point (missing or cyclic dependency)", name)
		}
	}

	return r.resolved, d
}

// Resolved returns the table resolved for name, if Resolve has completed
// and succeeded for it.
func (r *ImmutableSchemaResolver) Resolved(name string) (*dbtype.TableDefinition, bool) {
	t, ok := r.resolved[name]
	return t, ok
}
