// Package dbvalue bridges dbtype's engine-neutral value model to a real
// driver: converting DatabaseValue to and from pgx's wire representation,
// and rendering a TableDefinition as Postgres DDL so a resolved schema can
// actually be applied. Grounded on the teacher runtime's Postgres adapter,
// which draws the same line between the engine-neutral Database interface
// and pgx-specific plumbing.
package dbvalue

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/windrift-orm/windrift/internal/dbtype"
)

// ToDriverArg converts a DatabaseValue into whatever pgx expects as a
// query argument.
func ToDriverArg(v dbtype.DatabaseValue) any {
	if v.Null {
		return nil
	}
	switch v.Type {
	case dbtype.TypeBool:
		return v.Bool
	case dbtype.TypeSmallInt, dbtype.TypeInt, dbtype.TypeBigInt:
		return v.Int64
	case dbtype.TypeFloat, dbtype.TypeDouble:
		return v.Float64
	case dbtype.TypeVarChar, dbtype.TypeText, dbtype.TypeUUID, dbtype.TypeJSON:
		return v.Str
	case dbtype.TypeBytes:
		return v.Bytes
	case dbtype.TypeDate, dbtype.TypeDateTime, dbtype.TypeTimestamp:
		return pgtype.Timestamp{Time: v.Time, Valid: true}
	default:
		return nil
	}
}

// FromDriverValue converts a scanned driver value back into a
// DatabaseValue typed according to typ.
func FromDriverValue(typ dbtype.DatabaseType, raw any) (dbtype.DatabaseValue, error) {
	if raw == nil {
		return dbtype.DatabaseValue{Type: typ, Null: true}, nil
	}
	switch typ {
	case dbtype.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return dbtype.DatabaseValue{}, fmt.Errorf("expected bool, got %T", raw)
		}
		return dbtype.DatabaseValue{Type: typ, Bool: b}, nil
	case dbtype.TypeSmallInt, dbtype.TypeInt, dbtype.TypeBigInt:
		i, err := asInt64(raw)
		if err != nil {
			return dbtype.DatabaseValue{}, err
		}
		return dbtype.DatabaseValue{Type: typ, Int64: i}, nil
	case dbtype.TypeFloat, dbtype.TypeDouble:
		f, err := asFloat64(raw)
		if err != nil {
			return dbtype.DatabaseValue{}, err
		}
		return dbtype.DatabaseValue{Type: typ, Float64: f}, nil
	case dbtype.TypeVarChar, dbtype.TypeText, dbtype.TypeUUID, dbtype.TypeJSON:
		s, ok := raw.(string)
		if !ok {
			return dbtype.DatabaseValue{}, fmt.Errorf("expected string, got %T", raw)
		}
		return dbtype.DatabaseValue{Type: typ, Str: s}, nil
	case dbtype.TypeBytes:
		b, ok := raw.([]byte)
		if !ok {
			return dbtype.DatabaseValue{}, fmt.Errorf("expected []byte, got %T", raw)
		}
		return dbtype.DatabaseValue{Type: typ, Bytes: b}, nil
	case dbtype.TypeDate, dbtype.TypeDateTime, dbtype.TypeTimestamp:
		ts, ok := raw.(pgtype.Timestamp)
		if !ok {
			return dbtype.DatabaseValue{}, fmt.Errorf("expected pgtype.Timestamp, got %T", raw)
		}
		return dbtype.DatabaseValue{Type: typ, Time: ts.Time}, nil
	default:
		return dbtype.DatabaseValue{}, fmt.Errorf("unsupported database type %s", typ)
	}
}

func asInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func asFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected float, got %T", raw)
	}
}

var postgresColumnTypes = map[dbtype.DatabaseType]string{
	dbtype.TypeBool: "boolean", dbtype.TypeSmallInt: "smallint", dbtype.TypeInt: "integer",
	dbtype.TypeBigInt: "bigint", dbtype.TypeFloat: "real", dbtype.TypeDouble: "double precision",
	dbtype.TypeVarChar: "varchar", dbtype.TypeText: "text", dbtype.TypeBytes: "bytea",
	dbtype.TypeDate: "date", dbtype.TypeDateTime: "timestamp", dbtype.TypeTimestamp: "timestamptz",
	dbtype.TypeUUID: "uuid", dbtype.TypeJSON: "jsonb",
}

// TableDDL renders a CREATE TABLE statement for t, using Postgres column
// types. It does not render foreign keys or secondary indexes. Foreign
// keys are emitted separately by ConstraintDDL so a caller can apply them
// only after every referenced table exists; secondary indexes are
// rendered by neither function.
func TableDDL(t *dbtype.TableDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(t.Name))
	lines := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		line := fmt.Sprintf("  %s %s", quoteIdent(col.Name), postgresColumnTypes[col.Type])
		if !col.Nullable {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", quoteIdentList(t.PrimaryKey)))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	return b.String()
}

// ConstraintDDL renders ALTER TABLE statements adding t's foreign keys.
func ConstraintDDL(t *dbtype.TableDefinition) []string {
	stmts := make([]string, 0, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		stmts = append(stmts, fmt.Sprintf(
			"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdent(t.Name), quoteIdent(fk.Name), quoteIdentList(fk.Columns),
			quoteIdent(fk.RefTable), quoteIdentList(fk.RefColumns),
		))
	}
	return stmts
}

func quoteIdent(name string) string { return `"` + strings.ReplaceAll(name, `"`, `""`) + `"` }

func quoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
