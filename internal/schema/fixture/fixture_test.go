package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/windrift-orm/windrift/internal/rtype"
)

func TestParseEntitySpecRejectsMissingEntityName(t *testing.T) {
	if _, err := ParseEntitySpec([]byte(`{"fields": []}`)); err == nil {
		t.Fatal("expected an error for a missing entity name")
	}
}

func TestParseEntitySpecRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseEntitySpec([]byte(`not json`)); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestResolversBuildsScalarField(t *testing.T) {
	spec := &EntitySpec{Entity: "User", Fields: []FieldSpec{
		{Name: "id", Column: "id", Kind: "scalar", Type: "bigint", PrimaryKey: true},
	}}
	resolvers, err := spec.Resolvers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolvers) != 1 || resolvers[0].FieldName() != "id" {
		t.Fatalf("got %+v, want one resolver named id", resolvers)
	}
}

func TestResolversRejectsUnknownScalarType(t *testing.T) {
	spec := &EntitySpec{Entity: "User", Fields: []FieldSpec{
		{Name: "id", Column: "id", Kind: "scalar", Type: "not-a-real-type"},
	}}
	if _, err := spec.Resolvers(); err == nil {
		t.Fatal("expected an error for an unknown scalar type")
	}
}

func TestResolversAssociatedFieldRequiresReferences(t *testing.T) {
	spec := &EntitySpec{Entity: "User", Fields: []FieldSpec{
		{Name: "organization", Column: "organization_id", Kind: "associated"},
	}}
	if _, err := spec.Resolvers(); err == nil {
		t.Fatal("expected an error for an associated field with no references target")
	}
}

func TestResolversCollectionField(t *testing.T) {
	spec := &EntitySpec{Entity: "Organization", Fields: []FieldSpec{
		{Name: "users", Kind: "collection", References: "User"},
	}}
	resolvers, err := spec.Resolvers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolvers) != 1 || resolvers[0].FieldName() != "users" {
		t.Fatalf("got %+v", resolvers)
	}
}

func TestResolversUnknownKindIsAnError(t *testing.T) {
	spec := &EntitySpec{Entity: "User", Fields: []FieldSpec{
		{Name: "id", Kind: "mystery"},
	}}
	if _, err := spec.Resolvers(); err == nil {
		t.Fatal("expected an error for an unknown field kind")
	}
}

func TestLoadDirResolvesEntitiesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "01_organization.json", `{
		"entity": "Organization",
		"fields": [{"name": "id", "column": "id", "kind": "scalar", "type": "bigint", "primary_key": true}]
	}`)
	writeFixture(t, dir, "02_user.json", `{
		"entity": "User",
		"fields": [
			{"name": "id", "column": "id", "kind": "scalar", "type": "bigint", "primary_key": true},
			{"name": "organization", "column": "organization_id", "kind": "associated", "references": "Organization"}
		]
	}`)

	r, err := LoadDir(dir, rtype.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved, d := r.Resolve()
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	user, ok := resolved["User"]
	if !ok {
		t.Fatal("expected User to resolve")
	}
	if _, ok := user.Column("organization_id"); !ok {
		t.Fatal("expected the associated field's column to be present")
	}
}

func TestLoadDirIgnoresNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "readme.txt", "not an entity declaration")
	writeFixture(t, dir, "org.json", `{
		"entity": "Organization",
		"fields": [{"name": "id", "column": "id", "kind": "scalar", "type": "bigint", "primary_key": true}]
	}`)
	r, err := LoadDir(dir, rtype.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolved, d := r.Resolve()
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %v", d.Errors())
	}
	if len(resolved) != 1 {
		t.Fatalf("got %d resolved entities, want 1", len(resolved))
	}
}

func TestLoadDirRejectsBadFixture(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "bad.json", `{"fields": []}`)
	if _, err := LoadDir(dir, rtype.NewRegistry()); err == nil {
		t.Fatal("expected an error for a fixture with no entity name")
	}
}

func writeFixture(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}
