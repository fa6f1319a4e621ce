// Package generate runs one job end to end: read the district table, parse
// it, write the INSERT script and, when a storage backend is configured,
// apply the statements to it. The CLI stays thin and never imports drivers.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"ubigeo/internal/config"
	"ubigeo/internal/datasource"
	"ubigeo/internal/datasource/embedded"
	"ubigeo/internal/datasource/file"
	"ubigeo/internal/datasource/httpds"
	"ubigeo/internal/district"
	"ubigeo/internal/metrics"
	"ubigeo/internal/parser"
	"ubigeo/internal/parser/pipe"
	"ubigeo/internal/sqlgen"
	"ubigeo/internal/storage"
)

// Summary describes a finished run.
type Summary struct {
	Source     string
	OutputPath string

	// Emitted is the number of INSERT statements written.
	Emitted int
	// Skipped and SkippedLines report non-blank lines that were not records.
	Skipped      int
	SkippedLines []int
	Blank        int
	Duplicates   int

	// Bytes is the size of the generated script.
	Bytes int64

	// Applied and Counted are set only when a storage backend is configured.
	// Counted is SELECT COUNT(*) of the configured table after applying.
	Applied int64
	Counted int64

	Elapsed time.Duration
}

// Test seams. Production values open real sources and repositories.
var (
	newRepositoryFn = storage.New
	openSourceFn    = openSource
)

// Run executes job. The output file is written before any statement is
// applied, so a failing database still leaves the script on disk.
func Run(ctx context.Context, job config.Job) (Summary, error) {
	start := time.Now()
	sum := Summary{OutputPath: job.Output.Path}

	src, err := openSourceFn(job.Source)
	if err != nil {
		return sum, err
	}
	sum.Source = src.Name()

	p, err := newParser(job.Parser)
	if err != nil {
		return sum, err
	}

	log.Printf("generate: job=%s source=%s output=%s storage=%s",
		job.Job, sum.Source, sum.OutputPath, storageKind(job))

	encoding := job.Source.Encoding
	if job.Source.Kind == "" || job.Source.Kind == config.SourceKindEmbedded {
		encoding = ""
	}
	recs, stats, err := load(ctx, job.Job, src, encoding, p)
	sum.Skipped = stats.Skipped()
	sum.SkippedLines = stats.SkippedLines
	sum.Blank = stats.Blank
	sum.Duplicates = stats.Duplicates
	if err != nil {
		return sum, err
	}
	for _, n := range stats.SkippedLines {
		log.Printf("generate: skipped malformed line %d", n)
	}
	if stats.Duplicates > 0 {
		log.Printf("generate: %d duplicate district triple(s) emitted", stats.Duplicates)
	}

	stepStart := time.Now()
	sum.Emitted, sum.Bytes, err = writeScript(job.Output.Path, recs)
	metrics.RecordStep(job.Job, "write", err, time.Since(stepStart))
	if err != nil {
		return sum, err
	}
	metrics.RecordRecords(job.Job, "emitted", int64(sum.Emitted))
	metrics.RecordOutputBytes(job.Job, sum.Bytes)
	log.Printf("generate: wrote %d statements (%d bytes) to %s in %s",
		sum.Emitted, sum.Bytes, sum.OutputPath, time.Since(stepStart).Truncate(time.Millisecond))

	if storageKind(job) != config.StorageNone {
		if err := apply(ctx, job, recs, &sum); err != nil {
			return sum, err
		}
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

// load opens src, decodes it to UTF-8 and parses it, recording the load
// and parse steps.
func load(ctx context.Context, job string, src datasource.Source, encoding string, p parser.Parser) ([]district.Record, parser.Stats, error) {
	stepStart := time.Now()
	rc, err := src.Open(ctx)
	if err != nil {
		metrics.RecordStep(job, "load", err, time.Since(stepStart))
		return nil, parser.Stats{}, fmt.Errorf("generate: load %s: %w", src.Name(), err)
	}
	defer rc.Close()
	r, err := datasource.Decode(rc, encoding)
	metrics.RecordStep(job, "load", err, time.Since(stepStart))
	if err != nil {
		return nil, parser.Stats{}, fmt.Errorf("generate: load %s: %w", src.Name(), err)
	}

	stepStart = time.Now()
	recs, stats, err := p.Parse(r)
	metrics.RecordStep(job, "parse", err, time.Since(stepStart))
	metrics.RecordRecords(job, "parsed", int64(stats.Records))
	metrics.RecordRecords(job, "skipped", int64(stats.Skipped()))
	metrics.RecordRecords(job, "duplicates", int64(stats.Duplicates))
	if err != nil {
		var se *pipe.SkipError
		if errors.As(err, &se) {
			return recs, stats, fmt.Errorf("generate: strict mode: %w", err)
		}
		return recs, stats, fmt.Errorf("generate: parse %s: %w", src.Name(), err)
	}
	return recs, stats, nil
}

// writeScript creates path and streams the full document into it.
func writeScript(path string, recs []district.Record) (int, int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, fmt.Errorf("generate: create output: %w", err)
	}

	w := sqlgen.NewWriter(f)
	for _, rec := range recs {
		if _, err := w.Add(rec); err != nil {
			f.Close()
			return w.Count(), w.Bytes(), fmt.Errorf("generate: write %s: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		f.Close()
		return w.Count(), w.Bytes(), fmt.Errorf("generate: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return w.Count(), w.Bytes(), fmt.Errorf("generate: close %s: %w", path, err)
	}
	return w.Count(), w.Bytes(), nil
}

// apply executes the rendered statements against the configured backend and
// reads back the row count of the configured table.
func apply(ctx context.Context, job config.Job, recs []district.Record, sum *Summary) error {
	db := job.Storage.DB

	stepStart := time.Now()
	stmts := sqlgen.Statements(recs)
	metrics.RecordStep(job.Job, "render", nil, time.Since(stepStart))

	stepStart = time.Now()
	repo, err := newRepositoryFn(ctx, storage.Config{Kind: job.Storage.Kind, DSN: db.DSN})
	if err != nil {
		metrics.RecordStep(job.Job, "apply", err, time.Since(stepStart))
		return fmt.Errorf("generate: open %s: %w", job.Storage.Kind, err)
	}
	defer repo.Close()

	sum.Applied, err = storage.Apply(ctx, repo, stmts, db.ProgressEvery)
	metrics.RecordRecords(job.Job, "applied", sum.Applied)
	if err != nil {
		metrics.RecordStep(job.Job, "apply", err, time.Since(stepStart))
		return fmt.Errorf("generate: apply: %w", err)
	}

	table := db.Table
	if table == "" {
		table = config.DefaultTable
	}
	sum.Counted, err = repo.Count(ctx, table)
	metrics.RecordStep(job.Job, "apply", err, time.Since(stepStart))
	if err != nil {
		return fmt.Errorf("generate: verify: %w", err)
	}
	log.Printf("generate: applied=%d %s rows=%d elapsed=%s",
		sum.Applied, table, sum.Counted, time.Since(stepStart).Truncate(time.Millisecond))
	return nil
}

// openSource maps the source section to a datasource.Source.
func openSource(s config.Source) (datasource.Source, error) {
	switch s.Kind {
	case "", config.SourceKindEmbedded:
		return embedded.Default(), nil
	case config.SourceKindFile:
		if s.File.Path == "" {
			return nil, fmt.Errorf("generate: source.file.path is required")
		}
		return file.NewLocal(s.File.Path), nil
	case config.SourceKindHTTP:
		if s.HTTP.URL == "" {
			return nil, fmt.Errorf("generate: source.http.url is required")
		}
		return httpds.New(httpds.Config{
			URL:        s.HTTP.URL,
			Timeout:    time.Duration(s.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries: s.HTTP.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("generate: unsupported source kind %q", s.Kind)
	}
}

// newParser maps the parser section to a parser.Parser.
func newParser(p config.Parser) (parser.Parser, error) {
	switch p.Kind {
	case "", "pipe":
		return pipe.NewParser(pipe.Options{
			Comma:     p.Options.Rune("delimiter", pipe.DefaultComma),
			Normalize: p.Options.Bool("normalize", true),
			Strict:    p.Options.Bool("strict", false),
		}), nil
	default:
		return nil, fmt.Errorf("generate: unsupported parser kind %q", p.Kind)
	}
}

func storageKind(job config.Job) string {
	if job.Storage.Kind == "" {
		return config.StorageNone
	}
	return job.Storage.Kind
}
