// Command ubigeo-sql writes the SQL seed script that inserts every Peruvian
// district into the distritos table, resolving province and department ids
// by name at execution time.
//
// With no arguments it reads the embedded district table and writes
// 003_insert_distritos_COMPLETOS.sql in the working directory. A JSON or
// YAML job file (-config) and flags can point it at another table, apply the
// script to Postgres, MySQL or SQLite, and push run metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"ubigeo/internal/config"
	"ubigeo/internal/generate"
	"ubigeo/internal/metrics"
	"ubigeo/internal/metrics/datadog"
	"ubigeo/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "ubigeo/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes the job and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ubigeo-sql", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath        = fs.String("config", "", "job config path, .json or .yaml (optional)")
		dataPath       = fs.String("data", "", "pipe-delimited district table, file path or http(s) URL; overrides the embedded one")
		encoding       = fs.String("encoding", "", "character encoding of -data, e.g. windows-1252 (default UTF-8)")
		outPath        = fs.String("out", "", "output script path (default "+config.DefaultOutputPath+")")
		storageKind    = fs.String("storage", "", "apply the script to a database: none, postgres, mysql, sqlite")
		dsn            = fs.String("dsn", "", "database DSN for -storage")
		metricsBackend = fs.String("metrics-backend", "", "metrics backend: none, pushgateway, datadog (env METRICS_BACKEND)")
		pushGatewayURL = fs.String("pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
		datadogAddr    = fs.String("datadog-addr", "", "DogStatsD address (env DD_AGENT_ADDR)")
		strict         = fs.Bool("strict", false, "fail when any non-blank line is malformed")
		validate       = fs.Bool("validate", false, "validate the configuration and exit")
		verbose        = fs.Bool("v", false, "enable verbose logs")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log.SetOutput(stderr)
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	job := config.Default()
	if *cfgPath != "" {
		var err error
		if job, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
	}

	// Flags override the job file.
	switch {
	case strings.HasPrefix(*dataPath, "http://"), strings.HasPrefix(*dataPath, "https://"):
		job.Source = config.Source{Kind: config.SourceKindHTTP, HTTP: config.SourceHTTP{URL: *dataPath, MaxRetries: 2}, Encoding: *encoding}
	case *dataPath != "":
		job.Source = config.Source{Kind: config.SourceKindFile, File: config.SourceFile{Path: *dataPath}, Encoding: *encoding}
	case *encoding != "":
		job.Source.Encoding = *encoding
	}
	if *outPath != "" {
		job.Output.Path = *outPath
	}
	if *storageKind != "" {
		job.Storage.Kind = *storageKind
	}
	if *dsn != "" {
		job.Storage.DB.DSN = *dsn
	}
	if *strict {
		job.Parser.Options["strict"] = true
	}
	job.Metrics = resolveMetrics(job.Metrics, *metricsBackend, *pushGatewayURL, *datadogAddr)

	issues := config.ValidateJob(job)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "configuration is invalid\n")
		return 1
	}
	if *validate {
		fmt.Fprintf(stdout, "configuration is valid\n")
		return 0
	}

	if flush := setupMetrics(job); flush != nil {
		defer flush()
	}

	start := time.Now()
	sum, err := generate.Run(ctx, job)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Archivo generado: %s\n", sum.OutputPath)
	fmt.Fprintf(stdout, "Total distritos procesados: %d\n", sum.Emitted)
	fmt.Fprintf(stdout, "Listo para ejecutar en Supabase\n")
	if sum.Skipped > 0 {
		fmt.Fprintf(stdout, "Lineas omitidas: %d (%s)\n", sum.Skipped, joinInts(sum.SkippedLines))
	}
	if sum.Applied > 0 {
		fmt.Fprintf(stdout, "Sentencias aplicadas: %d (%s: %d filas)\n", sum.Applied, job.Storage.Kind, sum.Counted)
	}
	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	return 0
}

// resolveMetrics applies flag → env → job precedence to the metrics section.
func resolveMetrics(m config.Metrics, backend, gwURL, ddAddr string) config.Metrics {
	if backend != "" {
		m.Backend = backend
	} else if env := os.Getenv("METRICS_BACKEND"); env != "" && (m.Backend == "" || m.Backend == config.MetricsNone) {
		m.Backend = env
	}
	if gwURL != "" {
		m.PushgatewayURL = gwURL
	}
	if m.PushgatewayURL == "" {
		m.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
	if ddAddr != "" {
		m.DatadogAddr = ddAddr
	}
	if m.DatadogAddr == "" {
		m.DatadogAddr = os.Getenv("DD_AGENT_ADDR")
	}
	return m
}

// setupMetrics installs the configured backend and returns a function that
// flushes it, or nil when metrics are disabled.
func setupMetrics(job config.Job) func() {
	m := job.Metrics

	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case config.MetricsPushgateway:
		gwURL := m.PushgatewayURL
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(job.Job, gwURL)
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, m.Backend, job.Job)
	case config.MetricsDatadog:
		addr := m.DatadogAddr
		if addr == "" {
			addr = datadog.DefaultAddr
		}
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "ubigeo.",
			GlobalTags: append([]string{"job:" + job.Job}, m.DatadogTags...),
		})
		log.Printf("metrics: addr=%v, backend=%v", addr, m.Backend)
	case "", config.MetricsNone:
		log.Printf("metrics: disabled")
		return nil
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return nil
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", m.Backend, err)
		return nil
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
