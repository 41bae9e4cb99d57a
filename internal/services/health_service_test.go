package services

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthService_HealthCheck(t *testing.T) {
	hs := NewHealthService("1.2.3")

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.False(t, status.Timestamp.IsZero())
	assert.Equal(t, runtime.Version(), status.Runtime["go_version"])
	assert.Contains(t, status.Runtime, "goroutines")
}

func TestHealthService_Version(t *testing.T) {
	info := NewHealthService("1.2.3").Version()

	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, runtime.GOOS, info["os"])
	assert.NotEmpty(t, info["start_time"])
}
