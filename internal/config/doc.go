// Package config provides centralized configuration management for gfrcli.
// It handles loading configuration from multiple sources, validation, and
// path resolution for the input and output tables.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern GFR_<SECTION>_<FIELD>:
//
//	GFR_PATHS_INPUT_FILE=data/GFR.csv
//	GFR_PATHS_OUTPUT_FILE=data/GFR2.csv
//	GFR_ESTIMATOR_WORKERS=4
//	GFR_LOGGING_LEVEL=debug
//	GFR_TELEMETRY_METRICS_TEXTFILE=/var/lib/node_exporter/gfr.prom
//
// GFR_CONFIG points at an explicit YAML file; otherwise config.yaml and
// configs/config.yaml are tried.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := config.ResolvePaths(cfg)
//
// For tests, config.Default() returns a configuration that needs no
// environment variables or files.
package config
