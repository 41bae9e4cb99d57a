package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureHandler(t *testing.T) {
	t.Run("captures records and attrs", func(t *testing.T) {
		logger, h := NewTestLogger(t)

		logger.Info("loaded table", slog.Int("rows", 2))
		logger.Warn("invalid row", slog.Int("row", 1))

		require.Len(t, h.Records(), 2)
		assert.True(t, h.ContainsMessage("loaded"))
		assert.True(t, h.ContainsAttr("rows", int64(2)))
		AssertLogged(t, h, slog.LevelWarn, "invalid row")
		AssertNoErrors(t, h)
	})

	t.Run("derived loggers share the recorder", func(t *testing.T) {
		logger, h := NewTestLogger(t)

		logger.With(slog.String("component", "estimator")).WithGroup("row").Info("skip", slog.Int("index", 3))

		records := h.Records()
		require.Len(t, records, 1)
		assert.Equal(t, "estimator", records[0].Attrs["component"])
		assert.Equal(t, int64(3), records[0].Attrs["row.index"])
	})

	t.Run("filters by level and resets", func(t *testing.T) {
		logger, h := NewTestLogger(t)

		logger.Debug("d")
		logger.Error("e")

		assert.Len(t, h.RecordsAt(slog.LevelError), 1)
		assert.Len(t, h.RecordsAt(slog.LevelInfo), 0)

		h.Reset()
		assert.Empty(t, h.Records())
	})
}

func TestCSV(t *testing.T) {
	got := CSV([]string{"Age", "Female"}, []string{"50", "1"})
	assert.Equal(t, "Age,Female\n50,1\n", got)
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "nested/GFR.csv", SampleInput())
	assert.FileExists(t, path)
}
