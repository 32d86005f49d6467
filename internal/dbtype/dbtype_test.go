package dbtype

import "testing"

func TestSuitableAsPrimaryKey(t *testing.T) {
	cases := []struct {
		typ  DatabaseType
		want bool
	}{
		{TypeBigInt, true},
		{TypeUUID, true},
		{TypeVarChar, true},
		{TypeText, false},
		{TypeBytes, false},
		{TypeJSON, false},
		{TypeFloat, false},
		{TypeDouble, false},
	}
	for _, c := range cases {
		if got := c.typ.SuitableAsPrimaryKey(); got != c.want {
			t.Errorf("%s.SuitableAsPrimaryKey() = %v, want %v", c.typ, got, c.want)
		}
	}
}

func TestHashForPrimaryKeyRejectsUnsuitableType(t *testing.T) {
	v := DatabaseValue{Type: TypeText, Str: "hello"}
	if _, err := v.HashForPrimaryKey(); err == nil {
		t.Fatal("expected an error hashing a text value as a primary key")
	}
}

func TestHashForPrimaryKeyIsStableForEqualValues(t *testing.T) {
	a := DatabaseValue{Type: TypeBigInt, Int64: 42}
	b := DatabaseValue{Type: TypeBigInt, Int64: 42}
	ha, err := a.HashForPrimaryKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hb, err := b.HashForPrimaryKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ha != hb {
		t.Fatalf("hashes differ for equal values: %d vs %d", ha, hb)
	}
}

func TestHashForPrimaryKeyDiffersForDifferentValues(t *testing.T) {
	a := DatabaseValue{Type: TypeBigInt, Int64: 1}
	b := DatabaseValue{Type: TypeBigInt, Int64: 2}
	ha, _ := a.HashForPrimaryKey()
	hb, _ := b.HashForPrimaryKey()
	if ha == hb {
		t.Fatal("expected different hashes for different values")
	}
}

func TestTableDefinitionColumnLookup(t *testing.T) {
	table := &TableDefinition{Columns: []ColumnDefinition{
		{Name: "id", Type: TypeBigInt, PrimaryKey: true},
		{Name: "email", Type: TypeVarChar},
	}}
	col, ok := table.Column("email")
	if !ok {
		t.Fatal("expected to find the email column")
	}
	if col.Type != TypeVarChar {
		t.Fatalf("got type %s, want VARCHAR", col.Type)
	}
	if _, ok := table.Column("missing"); ok {
		t.Fatal("did not expect to find a nonexistent column")
	}
}

func TestDatabaseTypeStringUnknown(t *testing.T) {
	var unknown DatabaseType = 999
	if got := unknown.String(); got != "UNKNOWN" {
		t.Fatalf("got %q, want UNKNOWN", got)
	}
}
