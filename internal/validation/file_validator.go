package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "gfrcli/internal/errors"
)

// FileValidator checks input and output table paths before a pass starts
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateInput checks that path is a readable table file. Legacy .xls
// workbooks and office lock files are rejected.
func (v *FileValidator) ValidateInput(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Input file does not exist", slog.String("file", path))
		return apperrors.NewIOError("input file does not exist", err).WithContext("path", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat input file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewIOError("stat input file", err).WithContext("path", path)
	}
	if info.IsDir() {
		v.logger.Error("Input path is a directory", slog.String("path", path))
		return apperrors.NewIOError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Refusing office lock file", slog.String("file", path))
		return apperrors.NewIOError(fmt.Sprintf("%s is a temporary office lock file", path), nil)
	}
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		v.logger.Error("Unsupported workbook format", slog.String("file", path))
		return apperrors.NewIOError(fmt.Sprintf("%s: legacy .xls workbooks are not supported, save as .xlsx", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Input file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewIOError("input file is not readable", err).WithContext("path", path)
	}
	file.Close()

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutput checks that path can be written: its directory exists or can
// be created and accepts new files, path is not a directory, and path does not
// name the input file.
func (v *FileValidator) ValidateOutput(path, input string) error {
	if input != "" && samePath(path, input) {
		return apperrors.NewAppValidationError("output file must differ from input file").
			WithContext("path", path)
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apperrors.NewStorageError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	dir := filepath.Dir(path)
	if err := v.ValidateOutputDirectory(dir); err != nil {
		return apperrors.NewStorageError("output directory is not usable", err).WithContext("path", path)
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
