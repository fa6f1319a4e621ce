package config

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the job,
// e.g. "storage.db.dsn".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateJob lints j without mutating it.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics",
		})
	}
	issues = append(issues, validateSource(j.Source)...)
	issues = append(issues, validateParser(j.Parser)...)
	issues = append(issues, validateOutput(j.Output)...)
	issues = append(issues, validateStorage(j.Storage)...)
	issues = append(issues, validateMetrics(j.Metrics)...)
	return issues
}

func validateSource(s Source) []Issue {
	issues := validateSourceKind(s)
	if enc := strings.TrimSpace(s.Encoding); enc != "" {
		if _, err := htmlindex.Get(enc); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.encoding",
				Message:  fmt.Sprintf("unknown encoding %q", s.Encoding),
			})
		} else if s.Kind == SourceKindEmbedded {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.encoding",
				Message:  "ignored for embedded source",
			})
		}
	}
	return issues
}

func validateSourceKind(s Source) []Issue {
	switch s.Kind {
	case SourceKindEmbedded:
		if s.File.Path != "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "source.file.path",
				Message:  "ignored for embedded source",
			}}
		}
	case SourceKindFile:
		if strings.TrimSpace(s.File.Path) == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			}}
		}
	case SourceKindHTTP:
		u, err := url.Parse(s.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "source.http.url",
				Message:  fmt.Sprintf("http source requires an absolute http(s) url, got %q", s.HTTP.URL),
			}}
		}
		if s.HTTP.TimeoutSeconds < 0 || s.HTTP.MaxRetries < 0 {
			return []Issue{{
				Severity: SeverityError,
				Path:     "source.http",
				Message:  "timeout_seconds and max_retries must be >= 0",
			}}
		}
	case "":
		return []Issue{{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		}}
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q (want %q, %q or %q)", s.Kind, SourceKindEmbedded, SourceKindFile, SourceKindHTTP),
		}}
	}
	return nil
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	if p.Kind != "pipe" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q (want \"pipe\")", p.Kind),
		})
	}
	if d, ok := p.Options["delimiter"]; ok {
		s, isStr := d.(string)
		switch {
		case !isStr:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.delimiter",
				Message:  "delimiter must be a string",
			})
		case utf8.RuneCountInString(s) != 1:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.delimiter",
				Message:  fmt.Sprintf("delimiter must be a single character, got %q", s),
			})
		case s == "'":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.delimiter",
				Message:  "single quote cannot be used as delimiter",
			})
		}
	}
	for _, key := range []string{"normalize", "strict"} {
		if v, ok := p.Options[key]; ok {
			if _, isBool := v.(bool); !isBool {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "parser.options." + key,
					Message:  key + " must be a boolean",
				})
			}
		}
	}
	return issues
}

func validateOutput(o Output) []Issue {
	if strings.TrimSpace(o.Path) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "output.path",
			Message:  "output.path must not be empty",
		}}
	}
	if !strings.HasSuffix(strings.ToLower(o.Path), ".sql") {
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "output.path",
			Message:  "output file does not end in .sql",
		}}
	}
	return nil
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	switch s.Kind {
	case "", StorageNone:
		return nil
	case StoragePostgres, StorageMySQL, StorageSQLite:
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q", s.Kind),
		}}
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  fmt.Sprintf("%s storage requires a dsn", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.table",
			Message:  fmt.Sprintf("empty; row count will read %q", DefaultTable),
		})
	}
	if s.DB.ProgressEvery < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.progress_every",
			Message:  "must be >= 0",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", MetricsNone:
	case MetricsPushgateway:
		if m.PushgatewayURL == "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "metrics.pushgateway_url",
				Message:  "empty; PUSHGATEWAY_URL or http://localhost:9091 will be used",
			}}
		}
	case MetricsDatadog:
		if m.DatadogAddr == "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "empty; DD_AGENT_ADDR or 127.0.0.1:8125 will be used",
			}}
		}
	default:
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown backend %q; metrics disabled", m.Backend),
		}}
	}
	return nil
}
