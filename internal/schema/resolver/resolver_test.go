package resolver

import (
	"testing"

	"github.com/windrift-orm/windrift/internal/dbtype"
	"github.com/windrift-orm/windrift/internal/rtype"
	"github.com/windrift-orm/windrift/internal/schema/field"
)

func TestResolveSimpleEntityReachesFixedPoint(t *testing.T) {
	r := NewImmutableSchemaResolver(rtype.NewRegistry())
	r.AddEntity("User", []field.Resolver{
		field.NewScalar("id", "id", dbtype.TypeBigInt, false, true, nil),
		field.NewScalar("email", "email", dbtype.TypeVarChar, false, false, nil),
	})
	resolved, d := r.Resolve()
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	if _, ok := resolved["User"]; !ok {
		t.Fatal("expected User to resolve")
	}
}

func TestResolveOrdersEntitiesAcrossAssociation(t *testing.T) {
	r := NewImmutableSchemaResolver(rtype.NewRegistry())
	// Declared out of dependency order: User references Organization, but
	// Organization is added second. The worklist must still converge.
	r.AddEntity("User", []field.Resolver{
		field.NewScalar("id", "id", dbtype.TypeBigInt, false, true, nil),
		field.NewAssociatedEntity("organization", "organization_id", "Organization", false),
	})
	r.AddEntity("Organization", []field.Resolver{
		field.NewScalar("id", "id", dbtype.TypeBigInt, false, true, nil),
	})
	resolved, d := r.Resolve()
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	user, ok := resolved["User"]
	if !ok {
		t.Fatal("expected User to resolve")
	}
	col, ok := user.Column("organization_id")
	if !ok || col.Type != dbtype.TypeBigInt {
		t.Fatalf("got %+v, want a mirrored bigint foreign key column", col)
	}
}

func TestResolveMissingDependencyReportsUnresolvedEntity(t *testing.T) {
	r := NewImmutableSchemaResolver(rtype.NewRegistry())
	r.AddEntity("User", []field.Resolver{
		field.NewScalar("id", "id", dbtype.TypeBigInt, false, true, nil),
		field.NewAssociatedEntity("organization", "organization_id", "Organization", false),
	})
	resolved, d := r.Resolve()
	if !d.HasErrors() {
		t.Fatal("expected an error for a dangling entity reference")
	}
	if _, ok := resolved["User"]; ok {
		t.Fatal("User should not resolve without its dependency")
	}
}

func TestResolveRegistersAssociatedEntityResolverInRegistry(t *testing.T) {
	reg := rtype.NewRegistry()
	r := NewImmutableSchemaResolver(reg)
	r.AddEntity("Organization", []field.Resolver{
		field.NewScalar("id", "id", dbtype.TypeBigInt, false, true, nil),
	})
	if _, d := r.Resolve(); d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	if _, ok := reg.Lookup("Organization"); !ok {
		t.Fatal("expected an AssociatedEntityResolver registered under the entity name")
	}
}

func TestResolveDuplicateEntityNameIsIgnored(t *testing.T) {
	r := NewImmutableSchemaResolver(rtype.NewRegistry())
	r.AddEntity("User", []field.Resolver{
		field.NewScalar("id", "id", dbtype.TypeBigInt, false, true, nil),
	})
	r.AddEntity("User", []field.Resolver{
		field.NewScalar("other_id", "other_id", dbtype.TypeBigInt, false, true, nil),
	})
	resolved, d := r.Resolve()
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	user := resolved["User"]
	if _, ok := user.Column("other_id"); ok {
		t.Fatal("the second AddEntity call for the same name should have been ignored")
	}
}

func TestResolvedReturnsFalseBeforeResolve(t *testing.T) {
	r := NewImmutableSchemaResolver(rtype.NewRegistry())
	r.AddEntity("User", []field.Resolver{
		field.NewScalar("id", "id", dbtype.TypeBigInt, false, true, nil),
	})
	if _, ok := r.Resolved("User"); ok {
		t.Fatal("did not expect a resolved table before Resolve is called")
	}
}
