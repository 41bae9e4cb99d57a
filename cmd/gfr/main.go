package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gfrcli/internal/config"
	"gfrcli/internal/estimator"
	"gfrcli/internal/files"
	"gfrcli/internal/infrastructure"
	"gfrcli/internal/services"
	"gfrcli/internal/table"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	configPath string
	in         string
	out        string
	sheet      string
	delimiter  string
	workers    int
	watch      bool
	bom        bool
	version    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("gfr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "config file (default: config.yaml if present)")
	fs.StringVar(&opts.in, "in", "", "input table (default "+config.DefaultInputFile+")")
	fs.StringVar(&opts.out, "out", "", "output table (default "+config.DefaultOutputFile+")")
	fs.StringVar(&opts.sheet, "sheet", "", "workbook sheet to read and write")
	fs.StringVar(&opts.delimiter, "delimiter", "", "field separator overriding the file extension")
	fs.IntVar(&opts.workers, "workers", -1, "rows processed in parallel by this many goroutines (0 = one per CPU)")
	fs.BoolVar(&opts.watch, "watch", false, "re-run whenever the input file changes")
	fs.BoolVar(&opts.bom, "bom", false, "prefix delimited output with a UTF-8 BOM")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintf(stdout, "%s %s\n", config.AppName, config.AppVersion)
		return exitOK
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	paths, err := config.ResolvePaths(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	cfg.Logging.FilePath = paths.Resolve(cfg.Logging.FilePath)
	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitFailure
	}
	if logFile != nil {
		defer logFile.Close()
	}
	paths.LogPathResolution(logger)

	telemetry, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.String("error", err.Error()))
		return exitFailure
	}
	defer func() {
		if err := telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	est := estimator.New(cfg.Estimator.Workers, logger, estimator.WithTracer(telemetry.Tracer))
	r := &runner{
		service:   services.NewRateService(est, telemetry.Metrics, logger),
		telemetry: telemetry,
		textfile:  paths.MetricsTextfile,
		stdout:    stdout,
		logger:    logger,
	}

	delimiter := firstRune(cfg.Paths.Delimiter)
	job := services.Job{
		Input:  paths.InputFile,
		Output: paths.OutputFile,
		Load:   table.LoadOptions{Delimiter: delimiter, Sheet: cfg.Paths.Sheet},
		Save:   table.SaveOptions{Delimiter: delimiter, Sheet: cfg.Paths.Sheet, BOMPrefix: opts.bom},
		Source: services.SourceBatch,
	}

	if !opts.watch {
		if err := r.pass(ctx, job); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	if err := r.pass(ctx, job); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}

	job.Source = services.SourceWatch
	watcher := files.NewWatcher(job.Input, files.DefaultDebounce, logger)
	logger.Info("watching input for changes", slog.String("input", job.Input))
	err = watcher.Watch(ctx, func(ctx context.Context) {
		if err := r.pass(ctx, job); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
	})
	if err != nil {
		logger.Error("watch failed", slog.String("error", err.Error()))
		return exitFailure
	}
	return exitOK
}

// loadConfig loads configuration and applies command-line overrides
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.in != "" {
		cfg.Paths.InputFile = opts.in
	}
	if opts.out != "" {
		cfg.Paths.OutputFile = opts.out
	}
	if opts.sheet != "" {
		cfg.Paths.Sheet = opts.sheet
	}
	if opts.delimiter != "" {
		if len([]rune(opts.delimiter)) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character: %q", opts.delimiter)
		}
		cfg.Paths.Delimiter = opts.delimiter
	}
	if opts.workers >= 0 {
		cfg.Estimator.Workers = opts.workers
	}
	return cfg, nil
}

type runner struct {
	service   *services.RateService
	telemetry *infrastructure.Telemetry
	textfile  string
	stdout    io.Writer
	logger    *slog.Logger
}

// pass runs one job, prints its summary and refreshes the metrics textfile
func (r *runner) pass(ctx context.Context, job services.Job) error {
	summary, err := r.service.Run(ctx, job)
	if r.textfile != "" {
		if werr := r.telemetry.WriteTextfile(r.textfile); werr != nil {
			r.logger.Warn("failed to write metrics textfile", slog.String("error", werr.Error()))
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(r.stdout, "wrote %s: %d rows, %d undefined values\n", summary.Output, summary.Rows, summary.Invalid)
	for _, issue := range summary.Issues {
		fmt.Fprintf(r.stdout, "  line %d %s: %s\n", issue.Line, issue.Column, issue.Reason)
	}
	return nil
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
