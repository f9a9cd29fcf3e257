// Package schema decides how CSV column types are determined when a file is
// loaded. The default lets DuckDB sniff types; Fixed pins them explicitly.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/n0roo/trail-trekker/internal/db"
)

// Inferrer turns a CSV path into the relation expression a table is built from
type Inferrer interface {
	Source(path string) (string, error)
}

// Column is a declared column of a fixed schema
type Column struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// AutoDetect lets the engine infer column names and types from the file
type AutoDetect struct{}

// Source returns a read_csv_auto expression
func (AutoDetect) Source(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("CSV 경로가 비어 있습니다")
	}
	// 문자열만 있는 파일은 헤더 추론이 틀릴 수 있어 고정
	return fmt.Sprintf("read_csv_auto(%s, header = true)", db.QuoteLiteral(path)), nil
}

// typePattern accepts DuckDB type keywords such as VARCHAR, BIGINT or DECIMAL(10,2)
var typePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_ ]*(\(\s*\d+\s*(,\s*\d+\s*)?\))?$`)

// Fixed declares the columns of a file up front
type Fixed struct {
	Columns []Column
}

// NewFixed builds a Fixed schema and validates it
func NewFixed(cols ...Column) (*Fixed, error) {
	f := &Fixed{Columns: cols}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks for empty, duplicate or malformed columns
func (f *Fixed) Validate() error {
	if len(f.Columns) == 0 {
		return fmt.Errorf("고정 스키마에 컬럼이 없습니다")
	}

	seen := make(map[string]bool, len(f.Columns))
	for i, c := range f.Columns {
		if c.Name == "" {
			return fmt.Errorf("%d번째 컬럼 이름이 비어 있습니다", i+1)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return fmt.Errorf("컬럼 이름 중복: %s", c.Name)
		}
		seen[key] = true

		if !typePattern.MatchString(strings.ToUpper(strings.TrimSpace(c.Type))) {
			return fmt.Errorf("알 수 없는 타입 (%s): %q", c.Name, c.Type)
		}
	}
	return nil
}

// Source returns a read_csv expression with an explicit columns struct
func (f *Fixed) Source(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("CSV 경로가 비어 있습니다")
	}
	if err := f.Validate(); err != nil {
		return "", err
	}

	parts := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		parts[i] = fmt.Sprintf("%s: %s",
			db.QuoteLiteral(c.Name),
			db.QuoteLiteral(strings.ToUpper(strings.TrimSpace(c.Type))))
	}
	return fmt.Sprintf("read_csv(%s, header = true, columns = {%s})",
		db.QuoteLiteral(path), strings.Join(parts, ", ")), nil
}

// Registry maps table names to inferrers, falling back to AutoDetect
type Registry struct {
	byTable map[string]Inferrer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byTable: make(map[string]Inferrer)}
}

// Set assigns an inferrer to a table
func (r *Registry) Set(table string, inf Inferrer) *Registry {
	r.byTable[table] = inf
	return r
}

// For returns the inferrer for a table
func (r *Registry) For(table string) Inferrer {
	if r != nil {
		if inf, ok := r.byTable[table]; ok {
			return inf
		}
	}
	return AutoDetect{}
}
