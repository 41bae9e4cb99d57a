package http

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gfrcli/internal/errors"
	"gfrcli/internal/estimator"
	"gfrcli/internal/infrastructure"
	"gfrcli/internal/middleware"
)

// Response headers carrying the table summary
const (
	HeaderRows    = "X-GFR-Rows"
	HeaderInvalid = "X-GFR-Invalid"
)

var delimiters = map[string]rune{
	"comma":     ',',
	"tab":       '\t',
	"semicolon": ';',
}

// EstimateRequest is the body of POST /estimate. Fields are pointers so a
// missing field is distinguishable from zero.
type EstimateRequest struct {
	Age             *float64 `json:"age" validate:"required"`
	Female          *int     `json:"female" validate:"required"`
	AfricanAmerican *int     `json:"african_american" validate:"required"`
	Creatinine      *float64 `json:"creatinine" validate:"required"`
}

// Sample converts a validated request to an estimator sample
func (req EstimateRequest) Sample() estimator.Sample {
	return estimator.Sample{
		Subject: estimator.Subject{
			Age:             *req.Age,
			Female:          *req.Female,
			AfricanAmerican: *req.AfricanAmerican,
		},
		Creatinine: *req.Creatinine,
	}
}

// EstimateResponse is returned by POST /estimate. Rate is null and Overflow
// is set when the estimate is too large to represent, which happens as
// creatinine approaches zero.
type EstimateResponse struct {
	Rate     *float64 `json:"rate"`
	Overflow bool     `json:"overflow,omitempty"`
	TraceID  string   `json:"trace_id,omitempty"`
}

// newEstimateResponse maps an estimate onto the JSON response. JSON has no
// infinity, so an overflowed rate is reported through the Overflow flag.
func newEstimateResponse(rate float64, traceID string) EstimateResponse {
	resp := EstimateResponse{TraceID: traceID}
	if math.IsInf(rate, 0) {
		resp.Overflow = true
		return resp
	}
	resp.Rate = &rate
	return resp
}

// RateHandler serves single estimates and whole-table processing
type RateHandler struct {
	service      RateServiceInterface
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewRateHandler creates a rate handler. Request bodies are capped at maxBodySize.
func NewRateHandler(service RateServiceInterface, maxBodySize int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RateHandler {
	return &RateHandler{
		service:      service,
		validation:   middleware.NewValidationMiddleware(maxBodySize, errorHandler, logger),
		query:        middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "rate_handler")),
	}
}

// Routes returns the estimator routes
func (h *RateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.validation.LimitBody)

	r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).
		Post("/estimate", h.Estimate)
	r.With(middleware.ContentTypeValidator(h.errorHandler, "text/csv", "text/plain", "text/tab-separated-values")).
		Post("/tables", h.ProcessTable)

	return r
}

// Estimate handles POST /estimate
func (h *RateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rate, err := h.service.Estimate(r.Context(), req.Sample())
	if err != nil {
		var verrs estimator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]apierrors.ValidationError, len(verrs))
			for i, ve := range verrs {
				details[i] = apierrors.ValidationError{Field: ve.Field, Message: ve.Message}
			}
			h.errorHandler.HandleError(w, r, apierrors.NewValidationErrors(details))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := newEstimateResponse(rate, infrastructure.GetTraceID(r.Context()))
	if resp.Overflow {
		h.logger.WarnContext(r.Context(), "estimate overflowed",
			slog.Float64("creatinine", *req.Creatinine))
	}
	render.JSON(w, r, resp)
}

// ProcessTable handles POST /tables. The body is a delimited table chosen by
// the delimiter query parameter (comma, tab or semicolon; default comma).
// The response is the same table with GMR Pre and GMR Post filled in.
func (h *RateHandler) ProcessTable(w http.ResponseWriter, r *http.Request) {
	name, ok := h.query.ValidateEnum(w, r, "delimiter", []string{"comma", "tab", "semicolon"}, "comma")
	if !ok {
		return
	}

	var out bytes.Buffer
	summary, err := h.service.ProcessTable(r.Context(), r.Body, &out, delimiters[name])
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if name == "tab" {
		contentType = "text/tab-separated-values; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set(HeaderRows, strconv.Itoa(summary.Rows))
	w.Header().Set(HeaderInvalid, strconv.Itoa(summary.Invalid))
	w.WriteHeader(http.StatusOK)
	if _, err := out.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write table response", slog.String("error", err.Error()))
	}
}
