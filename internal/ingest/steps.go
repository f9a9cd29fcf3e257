package ingest

import (
	"context"
	"fmt"

	"github.com/n0roo/trail-trekker/internal/config"
	"github.com/n0roo/trail-trekker/internal/db"
	"github.com/n0roo/trail-trekker/internal/schema"
)

// Sentinel plan_id used as a placeholder row in plans.csv
const SentinelPlanID = "000000"

// RawPlansTable is the transient table plans.csv is loaded into before filtering
const RawPlansTable = "plans_raw"

// Source is the CSV a step reads and how its columns are typed
type Source struct {
	Path     string
	Inferrer schema.Inferrer
}

func (s Source) relation() (string, error) {
	inf := s.Inferrer
	if inf == nil {
		inf = schema.AutoDetect{}
	}
	return inf.Source(s.Path)
}

// TableReport is the post-load state of one table
type TableReport struct {
	Table            string      `json:"table"`
	Rows             int64       `json:"rows"`
	RawRows          int64       `json:"raw_rows,omitempty"`
	Columns          []db.Column `json:"columns,omitempty"`
	PlanLevels       []string    `json:"plan_levels,omitempty"`
	UniqueCustomers  int64       `json:"unique_customers,omitempty"`
	DifficultyLevels []string    `json:"difficulty_levels,omitempty"`
	Statements       []string    `json:"statements,omitempty"`
}

// LoadFunc builds one table and reports on it
type LoadFunc func(ctx context.Context, database db.Database, src Source) (*TableReport, error)

// PlanFunc returns the statements a step would execute
type PlanFunc func(src Source) ([]string, error)

// Step is one table-creation step of the pipeline
type Step struct {
	Table string
	Load  LoadFunc
	Plan  PlanFunc
}

// DefaultSteps returns the five steps in load order:
// features, plans, customers, plan_features, subscriptions.
// plan_features references plans and subscriptions references customers and plans.
func DefaultSteps() []Step {
	return []Step{
		{Table: config.TableFeatures, Load: LoadFeatures, Plan: replacePlan(config.TableFeatures)},
		{Table: config.TablePlans, Load: LoadPlans, Plan: plansPlan},
		{Table: config.TableCustomers, Load: LoadCustomers, Plan: replacePlan(config.TableCustomers)},
		{Table: config.TablePlanFeatures, Load: LoadPlanFeatures, Plan: replacePlan(config.TablePlanFeatures)},
		{Table: config.TableSubscriptions, Load: LoadSubscriptions, Plan: replacePlan(config.TableSubscriptions)},
	}
}

func replaceSQL(table, relation string) string {
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", db.QuoteIdent(table), relation)
}

func replacePlan(table string) PlanFunc {
	return func(src Source) ([]string, error) {
		rel, err := src.relation()
		if err != nil {
			return nil, err
		}
		return []string{replaceSQL(table, rel)}, nil
	}
}

func plansPlan(src Source) ([]string, error) {
	rel, err := src.relation()
	if err != nil {
		return nil, err
	}
	return []string{
		replaceSQL(RawPlansTable, rel),
		fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS SELECT * FROM %s WHERE plan_id != %s AND plan_id IS NOT NULL`,
			db.QuoteIdent(config.TablePlans), db.QuoteIdent(RawPlansTable), db.QuoteLiteral(SentinelPlanID)),
		dropSQL(RawPlansTable),
	}, nil
}

func dropSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", db.QuoteIdent(table))
}

// replaceTable creates or replaces table from the source CSV and returns its row count
func replaceTable(ctx context.Context, database db.Database, table string, src Source) (int64, error) {
	stmts, err := replacePlan(table)(src)
	if err != nil {
		return 0, err
	}
	if _, err := database.ExecContext(ctx, stmts[0]); err != nil {
		return 0, fmt.Errorf("%s 테이블 생성 실패: %w", table, err)
	}
	return db.CountRows(ctx, database, table)
}

// LoadFeatures replaces features and reports its row count and column types
func LoadFeatures(ctx context.Context, database db.Database, src Source) (*TableReport, error) {
	count, err := replaceTable(ctx, database, config.TableFeatures, src)
	if err != nil {
		return nil, err
	}

	cols, err := db.DescribeTable(ctx, database, config.TableFeatures)
	if err != nil {
		return nil, err
	}

	return &TableReport{Table: config.TableFeatures, Rows: count, Columns: cols}, nil
}

// LoadPlans loads plans.csv into plans_raw, keeps rows whose plan_id is present
// and not the sentinel, then drops plans_raw.
func LoadPlans(ctx context.Context, database db.Database, src Source) (report *TableReport, err error) {
	stmts, err := plansPlan(src)
	if err != nil {
		return nil, err
	}

	// plans_raw는 실패해도 남지 않아야 함
	defer func() {
		if _, dropErr := database.ExecContext(ctx, dropSQL(RawPlansTable)); dropErr != nil {
			if err == nil {
				report, err = nil, fmt.Errorf("%s 삭제 실패: %w", RawPlansTable, dropErr)
			}
			return
		}
		if err != nil {
			return
		}
		left, existsErr := db.TableExists(ctx, database, RawPlansTable)
		switch {
		case existsErr != nil:
			report, err = nil, existsErr
		case left:
			report, err = nil, fmt.Errorf("%s 가 삭제 후에도 남아 있습니다", RawPlansTable)
		}
	}()

	if _, err := database.ExecContext(ctx, stmts[0]); err != nil {
		return nil, fmt.Errorf("%s 테이블 생성 실패: %w", RawPlansTable, err)
	}
	raw, err := db.CountRows(ctx, database, RawPlansTable)
	if err != nil {
		return nil, err
	}

	if _, err := database.ExecContext(ctx, stmts[1]); err != nil {
		return nil, fmt.Errorf("%s 정제 실패: %w", config.TablePlans, err)
	}

	count, err := db.CountRows(ctx, database, config.TablePlans)
	if err != nil {
		return nil, err
	}

	levels, err := db.DistinctValues(ctx, database, config.TablePlans, "plan_level")
	if err != nil {
		return nil, err
	}

	return &TableReport{
		Table:      config.TablePlans,
		Rows:       count,
		RawRows:    raw,
		PlanLevels: levels,
	}, nil
}

// LoadCustomers replaces customers and reports distinct ids and difficulty levels
func LoadCustomers(ctx context.Context, database db.Database, src Source) (*TableReport, error) {
	count, err := replaceTable(ctx, database, config.TableCustomers, src)
	if err != nil {
		return nil, err
	}

	unique, err := db.CountDistinct(ctx, database, config.TableCustomers, "customer_id")
	if err != nil {
		return nil, err
	}

	difficulties, err := db.DistinctValues(ctx, database, config.TableCustomers, "preferred_difficulty")
	if err != nil {
		return nil, err
	}

	return &TableReport{
		Table:            config.TableCustomers,
		Rows:             count,
		UniqueCustomers:  unique,
		DifficultyLevels: difficulties,
	}, nil
}

// LoadPlanFeatures replaces the plan_features junction table
func LoadPlanFeatures(ctx context.Context, database db.Database, src Source) (*TableReport, error) {
	count, err := replaceTable(ctx, database, config.TablePlanFeatures, src)
	if err != nil {
		return nil, err
	}
	return &TableReport{Table: config.TablePlanFeatures, Rows: count}, nil
}

// LoadSubscriptions replaces subscriptions
func LoadSubscriptions(ctx context.Context, database db.Database, src Source) (*TableReport, error) {
	count, err := replaceTable(ctx, database, config.TableSubscriptions, src)
	if err != nil {
		return nil, err
	}
	return &TableReport{Table: config.TableSubscriptions, Rows: count}, nil
}
