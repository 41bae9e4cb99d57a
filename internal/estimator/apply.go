package estimator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "gfrcli/internal/errors"
	"gfrcli/internal/table"
)

// Column names read and written by Apply. Matching is exact.
const (
	ColumnAge             = "Age"
	ColumnFemale          = "Female"
	ColumnAfricanAmerican = "African American"
	ColumnCreatininePre   = "sCR Pre"
	ColumnCreatininePost  = "sCR Post"
	ColumnRatePre         = "GMR Pre"
	ColumnRatePost        = "GMR Post"
)

// Derivation pairs a creatinine input column with the rate column it feeds
type Derivation struct {
	Creatinine string
	Rate       string
}

// Derivations lists the derived columns in output order
var Derivations = []Derivation{
	{Creatinine: ColumnCreatininePre, Rate: ColumnRatePre},
	{Creatinine: ColumnCreatininePost, Rate: ColumnRatePost},
}

// RequiredColumns returns the input columns Apply needs
func RequiredColumns() []string {
	return []string{ColumnAge, ColumnFemale, ColumnAfricanAmerican, ColumnCreatininePre, ColumnCreatininePost}
}

// cancelCheckInterval is how many rows a worker handles between context checks
const cancelCheckInterval = 256

// RowIssue records a derived cell left undefined
type RowIssue struct {
	// Line is the 1-based line of the row in the source file; the header is line 1
	Line   int    `json:"line"`
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// Result summarizes an Apply call
type Result struct {
	Rows    int        `json:"rows"`
	Invalid int        `json:"invalid"`
	Issues  []RowIssue `json:"issues,omitempty"`
}

// InvalidByColumn counts undefined derived cells per rate column
func (r Result) InvalidByColumn() map[string]int {
	counts := make(map[string]int, len(Derivations))
	for _, d := range Derivations {
		counts[d.Rate] = 0
	}
	for _, issue := range r.Issues {
		counts[issue.Column]++
	}
	return counts
}

// Option configures an Estimator
type Option func(*Estimator)

// WithTracer sets the tracer used for Apply spans
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Estimator) {
		e.tracer = tracer
	}
}

// Estimator applies the rate formula across tables
type Estimator struct {
	workers int
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates an Estimator that processes rows with up to workers
// goroutines. workers <= 0 means one per CPU.
func New(workers int, logger *slog.Logger, opts ...Option) *Estimator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Estimator{
		workers: workers,
		logger:  logger.With(slog.String("component", "estimator")),
		tracer:  otel.Tracer("gfrcli/estimator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the goroutine limit of a pass
func (e *Estimator) Workers() int {
	return e.workers
}

// columns holds resolved column positions for one table
type columns struct {
	age, female, africanAmerican int
	creatinine, rate             []int
}

// Apply writes GMR Pre and GMR Post into every row of t, appending the
// columns when absent and overwriting them in place otherwise. A table
// missing any required column is rejected with a SCHEMA error before any row
// is touched. If ctx is cancelled, Apply returns the context error and t may
// be partially updated.
func (e *Estimator) Apply(ctx context.Context, t *table.Table) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "estimator.Apply", trace.WithAttributes(
		attribute.Int("table.rows", t.Len()),
		attribute.Int("estimator.workers", e.workers),
	))
	defer span.End()

	// Check the schema before touching any row
	if missing := t.Missing(RequiredColumns()...); len(missing) > 0 {
		err := apperrors.NewSchemaError("missing required columns: "+strings.Join(missing, ", ")).
			WithContext("missing", missing)
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema mismatch")
		return Result{}, err
	}

	cols := columns{
		age:             t.Index(ColumnAge),
		female:          t.Index(ColumnFemale),
		africanAmerican: t.Index(ColumnAfricanAmerican),
	}
	for _, d := range Derivations {
		cols.creatinine = append(cols.creatinine, t.Index(d.Creatinine))
	}
	// Existing GMR columns are reused, so rerunning a pass overwrites them
	for _, d := range Derivations {
		cols.rate = append(cols.rate, t.EnsureColumn(d.Rate))
	}

	// Each worker owns a disjoint row range and its own issue slot, so no
	// locking is needed and issues come back in row order
	chunks := e.partition(t.Len())
	issues := make([][]RowIssue, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range chunks {
		g.Go(func() error {
			found, err := e.applyRows(gctx, t, cols, c[0], c[1])
			issues[i] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply cancelled")
		return Result{}, err
	}

	result := Result{Rows: t.Len()}
	for _, chunk := range issues {
		result.Issues = append(result.Issues, chunk...)
	}
	result.Invalid = len(result.Issues)

	// Log after the workers finish so lines appear in row order
	for _, issue := range result.Issues {
		e.logger.WarnContext(ctx, "derived value left undefined",
			slog.Int("line", issue.Line),
			slog.String("column", issue.Column),
			slog.String("reason", issue.Reason))
	}

	span.SetAttributes(attribute.Int("estimator.invalid", result.Invalid))
	return result, nil
}

// partition splits n rows into at most e.workers contiguous [start, end) ranges
func (e *Estimator) partition(n int) [][2]int {
	if n == 0 {
		return nil
	}
	// Round up so at most e.workers ranges cover all n rows; the last may be short
	size := (n + e.workers - 1) / e.workers
	chunks := make([][2]int, 0, e.workers)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}

func (e *Estimator) applyRows(ctx context.Context, t *table.Table, cols columns, start, end int) ([]RowIssue, error) {
	var issues []RowIssue
	for r := start; r < end; r++ {
		// Check for cancellation every few rows, not on every cell
		if (r-start)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		subject, subjectProblems := parseSubject(t, r, cols)
		for i, d := range Derivations {
			value, problems := evaluate(subject, subjectProblems, t.Cell(r, cols.creatinine[i]), d)
			t.SetCell(r, cols.rate[i], table.FormatFloat(value))
			if len(problems) > 0 {
				issues = append(issues, RowIssue{
					Line:   r + 2,
					Column: d.Rate,
					Reason: strings.Join(problems, "; "),
				})
			}
		}
	}
	return issues, nil
}

// parseSubject reads the shared demographic cells of row r
func parseSubject(t *table.Table, r int, cols columns) (Subject, []string) {
	var (
		s        Subject
		problems []string
		err      error
	)
	if s.Age, err = parseNumber(t.Cell(r, cols.age)); err != nil {
		problems = append(problems, fmt.Sprintf("%s: %v", ColumnAge, err))
	}
	if s.Female, err = parseIndicator(t.Cell(r, cols.female)); err != nil {
		problems = append(problems, fmt.Sprintf("%s: %v", ColumnFemale, err))
	}
	if s.AfricanAmerican, err = parseIndicator(t.Cell(r, cols.africanAmerican)); err != nil {
		problems = append(problems, fmt.Sprintf("%s: %v", ColumnAfricanAmerican, err))
	}
	return s, problems
}

// evaluate computes one derived cell. Any problem makes the value NaN.
func evaluate(subject Subject, subjectProblems []string, cell string, d Derivation) (float64, []string) {
	problems := append([]string(nil), subjectProblems...)

	creatinine, err := parseNumber(cell)
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s: %v", d.Creatinine, err))
	}
	if len(problems) > 0 {
		return math.NaN(), problems
	}

	rate, err := Sample{Subject: subject, Creatinine: creatinine}.Rate()
	if err != nil {
		if verrs, ok := err.(ValidationErrors); ok {
			for _, ve := range verrs {
				problems = append(problems, fmt.Sprintf("%s: %s", columnFor(ve.Field, d), ve.Message))
			}
		} else {
			problems = append(problems, err.Error())
		}
		return math.NaN(), problems
	}
	return rate, nil
}

// columnFor maps a Sample field name back to its table column
func columnFor(field string, d Derivation) string {
	switch field {
	case "age":
		return ColumnAge
	case "female":
		return ColumnFemale
	case "african_american":
		return ColumnAfricanAmerican
	case "creatinine":
		return d.Creatinine
	default:
		return field
	}
}

func parseNumber(cell string) (float64, error) {
	if strings.TrimSpace(cell) == "" {
		return 0, fmt.Errorf("empty")
	}
	v, err := table.ParseFloat(cell)
	if err != nil {
		return 0, fmt.Errorf("not a number (%q)", cell)
	}
	// strconv accepts "inf" and "nan" spellings
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("not a finite number (%q)", cell)
	}
	return v, nil
}

// parseIndicator accepts any numeric spelling of 0 or 1, such as "1" or "1.0"
func parseIndicator(cell string) (int, error) {
	v, err := parseNumber(cell)
	if err != nil {
		return 0, err
	}
	switch v {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	default:
		return 0, fmt.Errorf("must be 0 or 1, got %q", cell)
	}
}
