package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/n0roo/trail-trekker/internal/config"
	"github.com/n0roo/trail-trekker/internal/ingest"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	mutedColor     = lipgloss.Color("#6B7280") // Gray
)

type styles struct {
	title   lipgloss.Style
	step    lipgloss.Style
	success lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(primaryColor),
		step:    r.NewStyle().Foreground(primaryColor),
		success: r.NewStyle().Foreground(secondaryColor).Bold(true),
		muted:   r.NewStyle().Foreground(mutedColor),
	}
}

// Printer writes run progress as console text. It implements ingest.Observer.
type Printer struct {
	w      io.Writer
	styles styles
}

var _ ingest.Observer = (*Printer)(nil)

// NewPrinter creates a printer; colors are dropped when w is not a terminal
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: newStyles(lipgloss.NewRenderer(w))}
}

func (p *Printer) line(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// RunStarted prints the banner and the tables present before loading
func (p *Printer) RunStarted(run *ingest.RunReport) {
	p.line("%s", p.styles.title.Render("Starting Trail Trekker Data Pipeline"))
	p.line("%s", p.styles.muted.Render("run "+run.RunID))
	p.line("Connected to DuckDB database (%s)", run.DBPath)
	p.line("Current tables: %d", len(run.TablesBefore))
	if run.DryRun {
		p.line("%s", p.styles.muted.Render("dry run: statements are printed, not executed"))
	}
}

// StepStarted prints the step header
func (p *Printer) StepStarted(step ingest.Step) {
	p.line("")
	p.line("%s", p.styles.step.Render(fmt.Sprintf("Creating %s table...", step.Table)))
}

// StepDone prints the validation results of one table
func (p *Printer) StepDone(t *ingest.TableReport) {
	if len(t.Statements) > 0 {
		for _, s := range t.Statements {
			p.line("  %s;", s)
		}
		return
	}

	name := strings.ToUpper(t.Table[:1]) + t.Table[1:]
	switch t.Table {
	case config.TableFeatures:
		p.line("%s table created with %d rows", name, t.Rows)
		p.line("Data types:")
		for _, c := range t.Columns {
			p.line("%s: %s", c.Name, c.Type)
		}
	case config.TablePlans:
		p.line("%s table created with %d rows (cleaned, %d removed)", name, t.Rows, t.RawRows-t.Rows)
		p.line("Plan levels: %s", list(t.PlanLevels))
	case config.TableCustomers:
		p.line("%s table created with %d rows", name, t.Rows)
		p.line("Unique customers: %d", t.UniqueCustomers)
		p.line("Difficulty levels: %s", list(t.DifficultyLevels))
	default:
		p.line("%s table created with %d rows", name, t.Rows)
	}
}

// Finish prints the final table set
func (p *Printer) Finish(run *ingest.RunReport) {
	p.line("")
	p.line("Tables after creation: %d", len(run.TablesAfter))
	for _, t := range run.TablesAfter {
		p.line(" - %s", t)
	}
	p.line("%s %s",
		p.styles.success.Render("Database setup complete!"),
		p.styles.muted.Render(fmt.Sprintf("(%s)", run.Duration().Round(time.Millisecond))))
}

func list(values []string) string {
	return "[" + strings.Join(values, ", ") + "]"
}

// WriteJSON writes the run report as indented JSON
func WriteJSON(w io.Writer, run *ingest.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
