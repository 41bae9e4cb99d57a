package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gfrcli/internal/errors"
	"gfrcli/internal/shared/testutil"
)

func newValidation(t *testing.T, maxBody int64) (*ValidationMiddleware, *apperrors.ErrorHandler) {
	logger, _ := testutil.NewTestLogger(t)
	eh := apperrors.NewErrorHandler(logger, false)
	return NewValidationMiddleware(maxBody, eh, logger), eh
}

func TestLimitBody_DeclaredLength(t *testing.T) {
	vm, _ := newValidation(t, 4)
	called := false
	handler := vm.LimitBody(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))

	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestLimitBody_StreamedLength(t *testing.T) {
	vm, _ := newValidation(t, 4)
	var readErr error
	handler := vm.LimitBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("0123456789")))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	require.True(t, errors.As(readErr, &maxErr))
	assert.Equal(t, int64(4), maxErr.Limit)
}

func TestValidateStruct(t *testing.T) {
	type request struct {
		Age    *float64 `json:"age" validate:"required"`
		Female *int     `json:"female" validate:"required,oneof=0 1"`
	}
	vm, _ := newValidation(t, 1024)

	one := 1
	age := 40.0
	assert.NoError(t, vm.ValidateStruct(request{Age: &age, Female: &one}))

	two := 2
	err := vm.ValidateStruct(request{Female: &two})
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	details, ok := apiErr.Details.([]apperrors.ValidationError)
	require.True(t, ok)
	require.Len(t, details, 2)
	assert.Equal(t, apperrors.ValidationError{Field: "age", Message: "age is required"}, details[0])
	assert.Equal(t, apperrors.ValidationError{Field: "female", Message: "female must be one of: 0, 1"}, details[1])
}

func TestContentTypeValidator(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{name: "allowed", method: http.MethodPost, contentType: "text/csv", wantStatus: http.StatusNoContent},
		{name: "allowed with params", method: http.MethodPost, contentType: "text/csv; charset=utf-8", wantStatus: http.StatusNoContent},
		{name: "case insensitive", method: http.MethodPost, contentType: "Text/CSV", wantStatus: http.StatusNoContent},
		{name: "missing", method: http.MethodPost, contentType: "", wantStatus: http.StatusUnsupportedMediaType},
		{name: "wrong type", method: http.MethodPost, contentType: "application/json", wantStatus: http.StatusUnsupportedMediaType},
		{name: "get skipped", method: http.MethodGet, contentType: "", wantStatus: http.StatusNoContent},
	}

	_, eh := newValidation(t, 1024)
	handler := ContentTypeValidator(eh, "text/csv", "text/plain")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader("a,b\n"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestQueryParamValidator_ValidateEnum(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantOK  bool
		wantErr bool
	}{
		{name: "absent uses default", query: "", want: "comma", wantOK: true},
		{name: "allowed", query: "?delimiter=tab", want: "tab", wantOK: true},
		{name: "rejected", query: "?delimiter=pipe", wantOK: false, wantErr: true},
	}

	_, eh := newValidation(t, 1024)
	v := NewQueryParamValidator(eh)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			got, ok := v.ValidateEnum(w, httptest.NewRequest(http.MethodPost, "/"+tt.query, nil),
				"delimiter", []string{"comma", "tab", "semicolon"}, "comma")

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), "delimiter must be one of: comma, tab, semicolon")
			}
		})
	}
}
