package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved, absolute locations used by one process
type Paths struct {
	BaseDir         string
	InputFile       string
	OutputFile      string
	LogsDir         string
	MetricsTextfile string
}

// ResolvePaths resolves every configured path against the base directory.
// An empty base directory means the current working directory.
func ResolvePaths(cfg *Config) (*Paths, error) {
	base := cfg.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", base, err)
	}

	p := &Paths{
		BaseDir:    base,
		InputFile:  resolve(base, cfg.Paths.InputFile),
		OutputFile: resolve(base, cfg.Paths.OutputFile),
		LogsDir:    resolve(base, cfg.Paths.LogsDir),
	}
	if cfg.Telemetry.MetricsTextfile != "" {
		p.MetricsTextfile = resolve(base, cfg.Telemetry.MetricsTextfile)
	}

	return p, nil
}

// Resolve returns path joined to the base directory unless it is already absolute
func (p *Paths) Resolve(path string) string {
	return resolve(p.BaseDir, path)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// EnsureDirectories creates the directories a pass writes into
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.LogsDir,
		filepath.Dir(p.OutputFile),
	}
	if p.MetricsTextfile != "" {
		directories = append(directories, filepath.Dir(p.MetricsTextfile))
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Resolved paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("input_file", p.InputFile),
		slog.Bool("input_exists", FileExists(p.InputFile)),
		slog.String("output_file", p.OutputFile),
		slog.String("logs_dir", p.LogsDir),
		slog.String("metrics_textfile", p.MetricsTextfile))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
