// Package dbtype models the relational data model that the schema
// resolver produces (spec §3): column/value types, and the table, index
// and foreign-key definitions a resolved entity assembles into.
package dbtype

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// DatabaseType is the closed enum of column types the resolver can assign
// to a field (spec §3).
type DatabaseType int

const (
	TypeBool DatabaseType = iota
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDouble
	TypeVarChar
	TypeText
	TypeBytes
	TypeDate
	TypeDateTime
	TypeTimestamp
	TypeUUID
	TypeJSON
)

var typeNames = map[DatabaseType]string{
	TypeBool: "BOOL", TypeSmallInt: "SMALLINT", TypeInt: "INT", TypeBigInt: "BIGINT",
	TypeFloat: "FLOAT", TypeDouble: "DOUBLE", TypeVarChar: "VARCHAR", TypeText: "TEXT",
	TypeBytes: "BYTES", TypeDate: "DATE", TypeDateTime: "DATETIME", TypeTimestamp: "TIMESTAMP",
	TypeUUID: "UUID", TypeJSON: "JSON",
}

func (t DatabaseType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// unsuitablePrimaryKeyTypes lists types excluded from primary-key columns:
// unbounded or lossy storage (text/bytes/json) and floating point, whose
// equality comparisons are unreliable for key lookups.
var unsuitablePrimaryKeyTypes = map[DatabaseType]bool{
	TypeText: true, TypeBytes: true, TypeJSON: true, TypeFloat: true, TypeDouble: true,
}

// SuitableAsPrimaryKey reports whether a column of this type may
// participate in a primary key (spec §3).
func (t DatabaseType) SuitableAsPrimaryKey() bool {
	return !unsuitablePrimaryKeyTypes[t]
}

// DatabaseValue is a typed value drawn from the DatabaseType enum. Exactly
// one of the typed fields is meaningful, selected by Type, unless Null is
// set.
type DatabaseValue struct {
	Type    DatabaseType
	Null    bool
	Bool    bool
	Int64   int64
	Float64 float64
	Str     string
	Bytes   []byte
	Time    time.Time
}

// HashForPrimaryKey produces a stable hash of v, used to key in-memory
// identity maps and caches by primary-key value. It rejects values whose
// type is not primary-key suitable.
func (v DatabaseValue) HashForPrimaryKey() (uint64, error) {
	if !v.Type.SuitableAsPrimaryKey() {
		return 0, fmt.Errorf("%s is not suitable as a primary key", v.Type)
	}
	return hashstructure.Hash(v, hashstructure.FormatV2, nil)
}

// ColumnDefinition is one resolved column of a table (spec §3).
type ColumnDefinition struct {
	Name       string
	Type       DatabaseType
	Nullable   bool
	PrimaryKey bool
	Default    *DatabaseValue
}

// IndexDefinition is a secondary index over one or more columns.
type IndexDefinition struct {
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKeyDefinition links this table's columns to another table's.
type ForeignKeyDefinition struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

// TableDefinition is the fully assembled schema for one entity (spec §3,
// the output of component H's Achieve operation).
type TableDefinition struct {
	Name        string
	Columns     []ColumnDefinition
	PrimaryKey  []string
	Indexes     []IndexDefinition
	ForeignKeys []ForeignKeyDefinition
}

// Column looks up a column by name.
func (t *TableDefinition) Column(name string) (*ColumnDefinition, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}
