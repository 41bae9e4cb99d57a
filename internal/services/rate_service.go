package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gfrcli/internal/estimator"
	"gfrcli/internal/infrastructure"
	"gfrcli/internal/table"
	"gfrcli/internal/validation"
)

// Pass sources used as the metrics "source" label
const (
	SourceBatch = "batch"
	SourceWatch = "watch"
	SourceHTTP  = "http"
)

// Job describes one file-to-file pass
type Job struct {
	Input  string
	Output string
	Load   table.LoadOptions
	Save   table.SaveOptions
	// Source labels the pass in metrics. Empty means SourceBatch.
	Source string
}

// Summary reports the outcome of a pass
type Summary struct {
	TraceID         string               `json:"trace_id"`
	Input           string               `json:"input,omitempty"`
	Output          string               `json:"output,omitempty"`
	Rows            int                  `json:"rows"`
	Invalid         int                  `json:"invalid"`
	InvalidByColumn map[string]int       `json:"invalid_by_column,omitempty"`
	Issues          []estimator.RowIssue `json:"issues,omitempty"`
	Duration        time.Duration        `json:"duration"`
}

// RateService runs the estimator over tables
type RateService struct {
	estimator *estimator.Estimator
	files     *validation.FileValidator
	metrics   *infrastructure.PassMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewRateService creates a RateService. metrics may be nil.
func NewRateService(est *estimator.Estimator, metrics *infrastructure.PassMetrics, logger *slog.Logger) *RateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateService{
		estimator: est,
		files:     validation.NewFileValidator(logger),
		metrics:   metrics,
		tracer:    otel.Tracer("gfrcli/services"),
		logger:    logger.With(slog.String("component", "rate_service")),
	}
}

// Run loads job.Input, adds the derived columns and saves job.Output. Nothing
// is written when any step fails or ctx is cancelled before the save.
func (s *RateService) Run(ctx context.Context, job Job) (Summary, error) {
	if job.Source == "" {
		job.Source = SourceBatch
	}
	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := s.tracer.Start(ctx, "services.Run", trace.WithAttributes(
		attribute.String("pass.input", job.Input),
		attribute.String("pass.output", job.Output),
		attribute.String("pass.source", job.Source),
	))
	defer span.End()

	start := time.Now()
	summary := Summary{
		TraceID: infrastructure.GetTraceID(ctx),
		Input:   job.Input,
		Output:  job.Output,
	}

	s.logger.InfoContext(ctx, "pass started",
		slog.String("input", job.Input),
		slog.String("output", job.Output),
		slog.String("source", job.Source),
		slog.Int("workers", s.estimator.Workers()))

	result, err := s.run(ctx, job)
	summary.Duration = time.Since(start)
	s.metrics.RecordPass(ctx, job.Source, result.Rows, result.InvalidByColumn(), summary.Duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "pass failed",
			slog.String("input", job.Input),
			slog.String("error", err.Error()),
			slog.Duration("duration", summary.Duration))
		return summary, err
	}

	summary.fill(result)
	s.logger.InfoContext(ctx, "pass complete",
		slog.String("output", job.Output),
		slog.Int("rows", summary.Rows),
		slog.Int("invalid", summary.Invalid),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

func (s *RateService) run(ctx context.Context, job Job) (estimator.Result, error) {
	if err := s.files.ValidateInput(job.Input); err != nil {
		return estimator.Result{}, err
	}
	if err := s.files.ValidateOutput(job.Output, job.Input); err != nil {
		return estimator.Result{}, err
	}

	t, err := table.Load(job.Input, job.Load)
	if err != nil {
		return estimator.Result{}, err
	}
	s.logger.DebugContext(ctx, "table loaded",
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Header)))

	result, err := s.estimator.Apply(ctx, t)
	if err != nil {
		return estimator.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return estimator.Result{}, err
	}

	if err := table.Save(job.Output, t, job.Save); err != nil {
		return estimator.Result{}, err
	}
	return result, nil
}

// ProcessTable reads delimited text from r, adds the derived columns and
// writes the result to w with the same delimiter. Nothing is written to w
// when reading or applying fails.
func (s *RateService) ProcessTable(ctx context.Context, r io.Reader, w io.Writer, delimiter rune) (Summary, error) {
	ctx, span := s.tracer.Start(ctx, "services.ProcessTable")
	defer span.End()

	start := time.Now()
	summary := Summary{TraceID: infrastructure.GetTraceID(ctx)}

	result, err := s.processTable(ctx, r, w, delimiter)
	summary.Duration = time.Since(start)
	s.metrics.RecordPass(ctx, SourceHTTP, result.Rows, result.InvalidByColumn(), summary.Duration, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return summary, err
	}

	summary.fill(result)
	s.logger.InfoContext(ctx, "table processed",
		slog.Int("rows", summary.Rows),
		slog.Int("invalid", summary.Invalid),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}

func (s *RateService) processTable(ctx context.Context, r io.Reader, w io.Writer, delimiter rune) (estimator.Result, error) {
	t, err := table.ReadDelimited(r, delimiter)
	if err != nil {
		return estimator.Result{}, err
	}
	result, err := s.estimator.Apply(ctx, t)
	if err != nil {
		return estimator.Result{}, err
	}
	if err := table.WriteDelimited(w, t, delimiter); err != nil {
		return estimator.Result{}, fmt.Errorf("write table: %w", err)
	}
	return result, nil
}

// Estimate validates one sample and returns its rate
func (s *RateService) Estimate(ctx context.Context, sample estimator.Sample) (float64, error) {
	rate, err := sample.Rate()
	s.metrics.RecordEstimate(ctx, err == nil)
	if err != nil {
		s.logger.DebugContext(ctx, "estimate rejected", slog.String("error", err.Error()))
	}
	return rate, err
}

func (s *Summary) fill(result estimator.Result) {
	s.Rows = result.Rows
	s.Invalid = result.Invalid
	s.InvalidByColumn = result.InvalidByColumn()
	s.Issues = result.Issues
}
