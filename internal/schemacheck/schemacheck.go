// Package schemacheck compares a live PostgreSQL schema with the one the
// store's queries are written against. It reports missing tables and
// columns, and foreign keys whose delete rule would break the delete order
// of a layer (a CASCADE where the store expects NO ACTION, or the reverse).
//
//	problems, err := schemacheck.Check(ctx, dsn)
package schemacheck

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

type ForeignKey struct {
	Column     string
	RefTable   string
	RefColumn  string
	DeleteRule string
}

type Table struct {
	Name        string
	Columns     []string
	ForeignKeys []ForeignKey
}

type Schema struct {
	Tables []Table
}

func (s Schema) table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Table{}, false
}

// Problem is one difference between the expected and the live schema.
type Problem struct {
	Table  string `json:"table"`
	Column string `json:"column,omitempty"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

const (
	MissingTable      = "missing_table"
	MissingColumn     = "missing_column"
	MissingForeignKey = "missing_foreign_key"
	DeleteRule        = "delete_rule"
)

func (p Problem) String() string {
	where := p.Table
	if p.Column != "" {
		where += "." + p.Column
	}
	if p.Detail == "" {
		return fmt.Sprintf("%s: %s", where, p.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", where, p.Kind, p.Detail)
}

// Compare lists what actual lacks or gets wrong relative to expected.
// Names compare case-insensitively, since unquoted identifiers are folded.
// Extra tables and columns in actual are not problems.
func Compare(expected, actual Schema) []Problem {
	var out []Problem
	for _, want := range expected.Tables {
		got, ok := actual.table(want.Name)
		if !ok {
			out = append(out, Problem{Table: want.Name, Kind: MissingTable})
			continue
		}
		have := map[string]bool{}
		for _, c := range got.Columns {
			have[strings.ToLower(c)] = true
		}
		for _, c := range want.Columns {
			if !have[strings.ToLower(c)] {
				out = append(out, Problem{Table: want.Name, Column: c, Kind: MissingColumn})
			}
		}
		for _, fk := range want.ForeignKeys {
			found, ok := findForeignKey(got.ForeignKeys, fk)
			if !ok {
				out = append(out, Problem{
					Table: want.Name, Column: fk.Column, Kind: MissingForeignKey,
					Detail: "references " + fk.RefTable + "." + fk.RefColumn,
				})
				continue
			}
			if !strings.EqualFold(found.DeleteRule, fk.DeleteRule) {
				out = append(out, Problem{
					Table: want.Name, Column: fk.Column, Kind: DeleteRule,
					Detail: fmt.Sprintf("want ON DELETE %s, have %s", fk.DeleteRule, found.DeleteRule),
				})
			}
		}
	}
	return out
}

func findForeignKey(fks []ForeignKey, want ForeignKey) (ForeignKey, bool) {
	for _, fk := range fks {
		if strings.EqualFold(fk.Column, want.Column) &&
			strings.EqualFold(fk.RefTable, want.RefTable) &&
			strings.EqualFold(fk.RefColumn, want.RefColumn) {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// Introspect reads the tables, columns and single-column foreign keys of one schema.
func Introspect(ctx context.Context, db *sql.DB, schemaName string) (Schema, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	tables, err := getTables(ctx, db, schemaName)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to get tables for schema %s: %w", schemaName, err)
	}
	for i := range tables {
		t := &tables[i]
		if t.Columns, err = getColumns(ctx, db, schemaName, t.Name); err != nil {
			return Schema{}, fmt.Errorf("failed to get columns for table %s.%s: %w", schemaName, t.Name, err)
		}
		if t.ForeignKeys, err = getForeignKeys(ctx, db, schemaName, t.Name); err != nil {
			return Schema{}, fmt.Errorf("failed to get foreign keys for table %s.%s: %w", schemaName, t.Name, err)
		}
	}
	return Schema{Tables: tables}, nil
}

func getTables(ctx context.Context, db *sql.DB, schemaName string) ([]Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, Table{Name: name})
	}
	return tables, rows.Err()
}

func getColumns(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func getForeignKeys(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT
			kcu1.column_name,
			kcu2.table_name,
			kcu2.column_name,
			rc.delete_rule
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu1
			ON kcu1.constraint_name = rc.constraint_name
			AND kcu1.table_schema = rc.constraint_schema
		JOIN information_schema.key_column_usage kcu2
			ON kcu2.constraint_name = rc.unique_constraint_name
			AND kcu2.table_schema = rc.unique_constraint_schema
			AND kcu2.ordinal_position = kcu1.ordinal_position
		WHERE kcu1.table_schema = $1 AND kcu1.table_name = $2
	`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn, &fk.DeleteRule); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(fks, func(i, j int) bool { return fks[i].Column < fks[j].Column })
	return fks, nil
}

// Check connects with lib/pq and compares the public schema with Expected.
func Check(ctx context.Context, dsn string) ([]Problem, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	actual, err := Introspect(ctx, db, "public")
	if err != nil {
		return nil, err
	}
	return Compare(Expected(), actual), nil
}
