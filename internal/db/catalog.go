package db

import (
	"context"
	"fmt"
	"strings"
)

// Column is a column name/type pair as reported by the catalog
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QuoteIdent quotes an identifier for use in SQL
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes a string literal for use in SQL
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ShowTables returns the tables in the main schema, sorted by name
func ShowTables(ctx context.Context, d Database) ([]string, error) {
	rows, err := d.QueryContext(ctx, `SHOW TABLES`)
	if err != nil {
		return nil, fmt.Errorf("테이블 목록 조회 실패: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TableExists reports whether a table with the given name exists
func TableExists(ctx context.Context, d Database, table string) (bool, error) {
	var n int
	err := d.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'main' AND table_name = ?
	`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("테이블 확인 실패 (%s): %w", table, err)
	}
	return n > 0, nil
}

// DescribeTable returns the column name/type pairs of a table in declaration order
func DescribeTable(ctx context.Context, d Database, table string) ([]Column, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'main' AND table_name = ?
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("스키마 조회 실패 (%s): %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// CountRows returns COUNT(*) of a table
func CountRows(ctx context.Context, d Database, table string) (int64, error) {
	var n int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, QuoteIdent(table))
	if err := d.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("행 수 조회 실패 (%s): %w", table, err)
	}
	return n, nil
}

// CountDistinct returns COUNT(DISTINCT column) of a table
func CountDistinct(ctx context.Context, d Database, table, column string) (int64, error) {
	var n int64
	q := fmt.Sprintf(`SELECT COUNT(DISTINCT %s) FROM %s`, QuoteIdent(column), QuoteIdent(table))
	if err := d.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("고유값 개수 조회 실패 (%s.%s): %w", table, column, err)
	}
	return n, nil
}

// DistinctValues returns the distinct values of a column in ascending order.
// NULL sorts last and is rendered as "NULL".
func DistinctValues(ctx context.Context, d Database, table, column string) ([]string, error) {
	col := QuoteIdent(column)
	q := fmt.Sprintf(`SELECT DISTINCT %s FROM %s ORDER BY %s NULLS LAST`, col, QuoteIdent(table), col)
	rows, err := d.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("고유값 조회 실패 (%s.%s): %w", table, column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v == nil {
			values = append(values, "NULL")
			continue
		}
		values = append(values, fmt.Sprint(v))
	}
	return values, rows.Err()
}
