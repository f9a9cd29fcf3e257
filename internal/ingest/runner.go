package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/n0roo/trail-trekker/internal/db"
	"github.com/n0roo/trail-trekker/internal/schema"
)

var (
	// ErrSourceMissing marks a CSV that does not exist or cannot be read
	ErrSourceMissing = errors.New("CSV 파일을 읽을 수 없습니다")
	// ErrLoad marks a step whose statements or validation queries failed
	ErrLoad = errors.New("테이블 적재 실패")
)

// RunReport is the outcome of one complete run
type RunReport struct {
	RunID        string         `json:"run_id"`
	DBPath       string         `json:"db_path"`
	DryRun       bool           `json:"dry_run,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      time.Time      `json:"ended_at"`
	TablesBefore []string       `json:"tables_before"`
	TablesAfter  []string       `json:"tables_after"`
	Tables       []*TableReport `json:"tables"`
}

// Duration returns the wall time of the run
func (r *RunReport) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Table returns the report of a table, or nil
func (r *RunReport) Table(name string) *TableReport {
	for _, t := range r.Tables {
		if t.Table == name {
			return t
		}
	}
	return nil
}

// Observer receives progress as the run advances
type Observer interface {
	RunStarted(run *RunReport)
	StepStarted(step Step)
	StepDone(report *TableReport)
}

type nopObserver struct{}

func (nopObserver) RunStarted(*RunReport) {}
func (nopObserver) StepStarted(Step)      {}
func (nopObserver) StepDone(*TableReport) {}

// Runner executes the steps in order against one open database.
// The caller owns the connection and closes it.
type Runner struct {
	db       db.Database
	paths    func(table string) string
	steps    []Step
	schemas  *schema.Registry
	dryRun   bool
	logger   *zap.Logger
	observer Observer
}

// NewRunner creates a runner for the default steps.
// paths maps a table name to its CSV path.
func NewRunner(database db.Database, paths func(table string) string) *Runner {
	return &Runner{
		db:       database,
		paths:    paths,
		steps:    DefaultSteps(),
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
}

// SetSteps replaces the step list
func (r *Runner) SetSteps(steps []Step) *Runner {
	r.steps = steps
	return r
}

// SetSchemas sets per-table type inference
func (r *Runner) SetSchemas(reg *schema.Registry) *Runner {
	r.schemas = reg
	return r
}

// SetDryRun enables dry run mode (statements are planned, not executed)
func (r *Runner) SetDryRun(dryRun bool) *Runner {
	r.dryRun = dryRun
	return r
}

// SetLogger sets the diagnostic logger
func (r *Runner) SetLogger(logger *zap.Logger) *Runner {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// SetObserver sets the progress observer
func (r *Runner) SetObserver(o Observer) *Runner {
	if o != nil {
		r.observer = o
	}
	return r
}

// Run lists the existing tables, runs every step in order and lists the tables again.
// The first failure aborts the run; tables built by earlier steps are left in place.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	run := &RunReport{
		RunID:     uuid.New().String(),
		DBPath:    r.db.Path(),
		DryRun:    r.dryRun,
		StartedAt: time.Now(),
	}
	log := r.logger.With(zap.String("run_id", run.RunID))

	before, err := db.ShowTables(ctx, r.db)
	if err != nil {
		return nil, err
	}
	run.TablesBefore = before
	r.observer.RunStarted(run)

	for _, step := range r.steps {
		r.observer.StepStarted(step)
		start := time.Now()

		report, err := r.runStep(ctx, step)
		if err != nil {
			log.Error("step failed", zap.String("table", step.Table), zap.Error(err))
			return nil, err
		}

		log.Info("step done",
			zap.String("table", step.Table),
			zap.Int64("rows", report.Rows),
			zap.Duration("elapsed", time.Since(start)))
		run.Tables = append(run.Tables, report)
		r.observer.StepDone(report)
	}

	after, err := db.ShowTables(ctx, r.db)
	if err != nil {
		return nil, err
	}
	run.TablesAfter = after
	run.EndedAt = time.Now()

	return run, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) (*TableReport, error) {
	src := Source{Path: r.paths(step.Table), Inferrer: r.schemas.For(step.Table)}

	if _, err := os.Stat(src.Path); err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrSourceMissing, step.Table, err)
	}

	if r.dryRun {
		if step.Plan == nil {
			return &TableReport{Table: step.Table}, nil
		}
		stmts, err := step.Plan(src)
		if err != nil {
			return nil, fmt.Errorf("%w (%s): %w", ErrLoad, step.Table, err)
		}
		return &TableReport{Table: step.Table, Statements: stmts}, nil
	}

	report, err := step.Load(ctx, r.db, src)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrLoad, step.Table, err)
	}
	return report, nil
}
