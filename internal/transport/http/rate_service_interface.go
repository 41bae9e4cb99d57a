package http

import (
	"context"
	"io"

	"gfrcli/internal/estimator"
	"gfrcli/internal/services"
)

// RateServiceInterface defines the estimator operations used by RateHandler
type RateServiceInterface interface {
	ProcessTable(ctx context.Context, r io.Reader, w io.Writer, delimiter rune) (services.Summary, error)
	Estimate(ctx context.Context, sample estimator.Sample) (float64, error)
}
