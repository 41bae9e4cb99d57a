package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfrcli/internal/infrastructure"
	"gfrcli/internal/shared/testutil"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewErrorHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	h := NewErrorHandler(logger, true)
	assert.True(t, h.includeStack)
	assert.NotNil(t, h.logger)

	assert.NotNil(t, NewErrorHandler(nil, false).logger, "nil logger falls back to default")
}

func TestErrorHandler_HandleError(t *testing.T) {
	maxBytes := &http.MaxBytesError{Limit: 10}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantDetail string
		wantExt    map[string]interface{}
	}{
		{
			name:       "schema app error",
			err:        NewSchemaError("missing columns: Age, sCR Pre"),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSchema,
			wantDetail: "missing columns: Age, sCR Pre",
			wantExt:    map[string]interface{}{"error_type": "SCHEMA"},
		},
		{
			name:       "io app error",
			err:        NewIOError("parse csv", errors.New("wrong number of fields")),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantDetail: "wrong number of fields",
		},
		{
			name:       "storage error stays opaque",
			err:        NewStorageError("rename /secret/path", errors.New("denied")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantDetail: "unexpected error",
		},
		{
			name:       "not found",
			err:        NewNotFoundError("sheet Data"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "body too large",
			err:        fmt.Errorf("read body: %w", maxBytes),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
			wantDetail: "10 bytes",
		},
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error keeps its code",
			err:        ErrValidation("age", "must be greater than 0"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantExt:    map[string]interface{}{"error_code": "VALIDATION_FAILED"},
		},
		{
			name:       "unsupported media",
			err:        ErrUnsupportedMedia,
			wantStatus: http.StatusUnsupportedMediaType,
			wantType:   TypeUnsupportedType,
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			r := httptest.NewRequest(http.MethodPost, "/api/v1/tables", nil)
			r = r.WithContext(infrastructure.WithTraceID(r.Context(), "trace-123"))
			w := httptest.NewRecorder()

			h.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/tables", body["instance"])
			assert.Equal(t, "trace-123", body["trace_id"])
			assert.NotContains(t, body, "stack")
			if tt.wantDetail != "" {
				assert.Contains(t, body["detail"], tt.wantDetail)
			}
			for k, v := range tt.wantExt {
				assert.Equal(t, v, body[k], k)
			}
			testutil.AssertLogged(t, logs, slog.LevelError, "request failed")
		})
	}
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)
	w := httptest.NewRecorder()

	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Zero(t, w.Body.Len())
	assert.Empty(t, logs.Records())
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)
	w := httptest.NewRecorder()

	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))

	body := decodeProblem(t, w)
	assert.Contains(t, body, "stack")
}

func TestErrorHandler_NotFoundAndMethod(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/v1/estimate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.True(t, strings.Contains(decodeProblem(t, w)["detail"].(string), "DELETE"))
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("estimator exploded")
	})
	w := httptest.NewRecorder()

	RecoveryMiddleware(h)(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/estimate", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, TypeInternal, decodeProblem(t, w)["type"])
	testutil.AssertLogged(t, logs, slog.LevelError, "panic recovered")
}
