package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0roo/trail-trekker/internal/config"
	"github.com/n0roo/trail-trekker/internal/db"
	"github.com/n0roo/trail-trekker/internal/schema"
)

var fixtures = map[string]string{
	"features": `feature_id,feature_name,description
F01,Offline Maps,Download trail maps
F02,Trail Alerts,Closure and weather alerts
F03,Group Hikes,Plan hikes with friends
`,
	"plans": `plan_id,plan_name,plan_level,price
P001,Basic Monthly,basic,4.99
P002,Pro Monthly,pro,9.99
000000,Placeholder,none,0
P003,Premium Annual,premium,99.00
,Orphan,pro,1.00
`,
	"customers": `customer_id,first_name,email,preferred_difficulty
C001,Ana,ana@example.com,moderate
C002,Ben,ben@example.com,easy
C003,Caro,caro@example.com,hard
C001,Ana,ana@example.com,moderate
`,
	"plan_features": `plan_id,feature_id
P001,F01
P002,F01
P002,F02
P003,F01
P003,F02
P003,F03
`,
	"subscriptions": `subscription_id,customer_id,plan_id,status
S001,C001,P001,active
S002,C002,P003,cancelled
S003,C003,P002,active
`,
}

func writeFixtures(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for table, content := range files {
		path := filepath.Join(dir, table+".csv")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func setupRun(t *testing.T) (*db.DuckDB, string) {
	t.Helper()
	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	writeFixtures(t, dataDir, fixtures)

	database, err := db.OpenDuckDB(filepath.Join(tmpDir, "trail_trekker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return database, dataDir
}

func pathsIn(dir string) func(string) string {
	return func(table string) string {
		return filepath.Join(dir, table+".csv")
	}
}

func csvRows(t *testing.T, path string) int64 {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return int64(len(records) - 1)
}

func dumpTable(t *testing.T, database db.Database, table string) []string {
	t.Helper()
	rows, err := database.QueryContext(context.Background(),
		fmt.Sprintf("SELECT * FROM %s ORDER BY ALL", db.QuoteIdent(table)))
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	var out []string
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		fields := make([]string, len(vals))
		for i, v := range vals {
			fields[i] = fmt.Sprint(v)
		}
		out = append(out, strings.Join(fields, "|"))
	}
	require.NoError(t, rows.Err())
	return out
}

func TestRun(t *testing.T) {
	database, dataDir := setupRun(t)
	ctx := context.Background()

	run, err := NewRunner(database, pathsIn(dataDir)).Run(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, run.RunID)
	assert.Empty(t, run.TablesBefore)
	assert.ElementsMatch(t, config.Tables(), run.TablesAfter)
	require.Len(t, run.Tables, 5)
	for i, table := range config.Tables() {
		assert.Equal(t, table, run.Tables[i].Table)
	}

	features := run.Table(config.TableFeatures)
	assert.EqualValues(t, 3, features.Rows)
	require.Len(t, features.Columns, 3)
	assert.Equal(t, "feature_id", features.Columns[0].Name)
	assert.Equal(t, "VARCHAR", features.Columns[0].Type)

	plans := run.Table(config.TablePlans)
	assert.EqualValues(t, 3, plans.Rows)
	assert.EqualValues(t, 5, plans.RawRows)
	assert.Equal(t, []string{"basic", "premium", "pro"}, plans.PlanLevels)

	customers := run.Table(config.TableCustomers)
	assert.EqualValues(t, 4, customers.Rows)
	assert.EqualValues(t, 3, customers.UniqueCustomers)
	assert.Equal(t, []string{"easy", "hard", "moderate"}, customers.DifficultyLevels)

	assert.EqualValues(t, 6, run.Table(config.TablePlanFeatures).Rows)
	assert.EqualValues(t, 3, run.Table(config.TableSubscriptions).Rows)
}

func TestRowCountConservation(t *testing.T) {
	database, dataDir := setupRun(t)
	ctx := context.Background()

	_, err := NewRunner(database, pathsIn(dataDir)).Run(ctx)
	require.NoError(t, err)

	for _, table := range []string{config.TableFeatures, config.TableCustomers, config.TablePlanFeatures, config.TableSubscriptions} {
		n, err := db.CountRows(ctx, database, table)
		require.NoError(t, err)
		assert.Equal(t, csvRows(t, filepath.Join(dataDir, table+".csv")), n, table)
	}
}

func TestIdempotentRerun(t *testing.T) {
	database, dataDir := setupRun(t)
	ctx := context.Background()
	runner := NewRunner(database, pathsIn(dataDir))

	first, err := runner.Run(ctx)
	require.NoError(t, err)
	snapshot := map[string][]string{}
	for _, table := range config.Tables() {
		snapshot[table] = dumpTable(t, database, table)
	}

	second, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.ElementsMatch(t, config.Tables(), second.TablesBefore)
	assert.Equal(t, first.TablesAfter, second.TablesAfter)
	for _, table := range config.Tables() {
		assert.Equal(t, snapshot[table], dumpTable(t, database, table), table)
		assert.Equal(t, first.Table(table).Rows, second.Table(table).Rows, table)
	}
}

func TestLoadPlansFilter(t *testing.T) {
	database, _ := setupRun(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFixtures(t, dir, map[string]string{"plans": "plan_id,plan_level\nP1,gold\n000000,none\n,x\n"})

	fixed, err := schema.NewFixed(
		schema.Column{Name: "plan_id", Type: "VARCHAR"},
		schema.Column{Name: "plan_level", Type: "VARCHAR"},
	)
	require.NoError(t, err)

	for name, inf := range map[string]schema.Inferrer{"auto": schema.AutoDetect{}, "fixed": fixed} {
		t.Run(name, func(t *testing.T) {
			report, err := LoadPlans(ctx, database, Source{Path: filepath.Join(dir, "plans.csv"), Inferrer: inf})
			require.NoError(t, err)

			assert.EqualValues(t, 1, report.Rows)
			assert.EqualValues(t, 3, report.RawRows)
			assert.Equal(t, []string{"gold"}, report.PlanLevels)
			assert.Equal(t, []string{"P1|gold"}, dumpTable(t, database, config.TablePlans))

			exists, err := db.TableExists(ctx, database, RawPlansTable)
			require.NoError(t, err)
			assert.False(t, exists, "plans_raw must be dropped")
		})
	}
}

func TestLoadPlansKeepsEveryOtherRow(t *testing.T) {
	database, _ := setupRun(t)
	ctx := context.Background()

	var b strings.Builder
	b.WriteString("plan_id,plan_level\n")
	ids := []string{"000000", "0000000", "00000", "P000000", "000000X", "P9", "000000", ""}
	for i, id := range ids {
		fmt.Fprintf(&b, "%s,level%d\n", id, i)
	}
	dir := t.TempDir()
	writeFixtures(t, dir, map[string]string{"plans": b.String()})

	fixed, err := schema.NewFixed(
		schema.Column{Name: "plan_id", Type: "VARCHAR"},
		schema.Column{Name: "plan_level", Type: "VARCHAR"},
	)
	require.NoError(t, err)

	report, err := LoadPlans(ctx, database, Source{Path: filepath.Join(dir, "plans.csv"), Inferrer: fixed})
	require.NoError(t, err)

	// 000000 두 개와 빈 plan_id 하나만 제외
	assert.EqualValues(t, len(ids)-3, report.Rows)
	assert.NotContains(t, report.PlanLevels, "level0")
	assert.NotContains(t, report.PlanLevels, "level6")
	assert.NotContains(t, report.PlanLevels, "level7")
	assert.Contains(t, report.PlanLevels, "level1")
}

func TestLoadCustomersDistinct(t *testing.T) {
	database, _ := setupRun(t)
	ctx := context.Background()

	var b strings.Builder
	b.WriteString("customer_id,preferred_difficulty\n")
	ids := []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8", "C2", "C5"}
	levels := []string{"easy", "moderate", "hard"}
	for i, id := range ids {
		fmt.Fprintf(&b, "%s,%s\n", id, levels[i%len(levels)])
	}
	dir := t.TempDir()
	writeFixtures(t, dir, map[string]string{"customers": b.String()})

	report, err := LoadCustomers(ctx, database, Source{Path: filepath.Join(dir, "customers.csv")})
	require.NoError(t, err)

	assert.EqualValues(t, 10, report.Rows)
	assert.EqualValues(t, 8, report.UniqueCustomers)
	assert.Equal(t, []string{"easy", "hard", "moderate"}, report.DifficultyLevels)
}

func TestRunMissingSource(t *testing.T) {
	database, dataDir := setupRun(t)
	ctx := context.Background()
	require.NoError(t, os.Remove(filepath.Join(dataDir, "customers.csv")))

	var seen []string
	obs := &recordingObserver{onDone: func(r *TableReport) { seen = append(seen, r.Table) }}

	run, err := NewRunner(database, pathsIn(dataDir)).SetObserver(obs).Run(ctx)
	require.Error(t, err)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, ErrSourceMissing)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "customers")

	// 이전 단계의 테이블은 그대로 남음
	assert.Equal(t, []string{"features", "plans"}, seen)
	tables, err := db.ShowTables(ctx, database)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"features", "plans"}, tables)
}

func TestRunQueryFailureDropsRawPlans(t *testing.T) {
	database, dataDir := setupRun(t)
	ctx := context.Background()
	writeFixtures(t, dataDir, map[string]string{"plans": "id,plan_level\nP1,gold\n"})

	_, err := NewRunner(database, pathsIn(dataDir)).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoad)
	assert.Contains(t, err.Error(), "plans")

	exists, err := db.TableExists(ctx, database, RawPlansTable)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunMalformedCSV(t *testing.T) {
	database, dataDir := setupRun(t)
	ctx := context.Background()
	// UTF-8 이 아닌 바이트는 DuckDB CSV 리더가 거부함
	writeFixtures(t, dataDir, map[string]string{"features": "feature_id,feature_name\nF01,\xff\xfe Maps\n"})

	var seen []string
	obs := &recordingObserver{onDone: func(r *TableReport) { seen = append(seen, r.Table) }}

	run, err := NewRunner(database, pathsIn(dataDir)).SetObserver(obs).Run(ctx)
	require.Error(t, err)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, ErrLoad)
	assert.NotErrorIs(t, err, ErrSourceMissing)
	assert.Contains(t, err.Error(), "features")

	// 첫 단계에서 멈추므로 테이블이 없음
	assert.Empty(t, seen)
	tables, err := db.ShowTables(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestRunDryRun(t *testing.T) {
	database, dataDir := setupRun(t)
	ctx := context.Background()

	run, err := NewRunner(database, pathsIn(dataDir)).SetDryRun(true).Run(ctx)
	require.NoError(t, err)

	assert.True(t, run.DryRun)
	assert.Empty(t, run.TablesAfter)

	plans := run.Table(config.TablePlans)
	require.Len(t, plans.Statements, 3)
	assert.Contains(t, plans.Statements[0], `CREATE OR REPLACE TABLE "plans_raw"`)
	assert.Contains(t, plans.Statements[1], `plan_id != '000000' AND plan_id IS NOT NULL`)
	assert.Equal(t, `DROP TABLE IF EXISTS "plans_raw"`, plans.Statements[2])

	require.Len(t, run.Table(config.TableFeatures).Statements, 1)
}

func TestRunWithFixedSchema(t *testing.T) {
	database, dataDir := setupRun(t)
	ctx := context.Background()

	fixed, err := schema.NewFixed(
		schema.Column{Name: "feature_id", Type: "VARCHAR"},
		schema.Column{Name: "feature_name", Type: "VARCHAR"},
		schema.Column{Name: "description", Type: "TEXT"},
	)
	require.NoError(t, err)

	run, err := NewRunner(database, pathsIn(dataDir)).
		SetSchemas(schema.NewRegistry().Set(config.TableFeatures, fixed)).
		Run(ctx)
	require.NoError(t, err)

	cols := run.Table(config.TableFeatures).Columns
	require.Len(t, cols, 3)
	for _, c := range cols {
		assert.Equal(t, "VARCHAR", c.Type, c.Name)
	}
}

type recordingObserver struct {
	onDone func(*TableReport)
}

func (o *recordingObserver) RunStarted(*RunReport) {}
func (o *recordingObserver) StepStarted(Step)      {}
func (o *recordingObserver) StepDone(r *TableReport) {
	if o.onDone != nil {
		o.onDone(r)
	}
}
