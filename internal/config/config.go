// Package config defines the job description for the district script
// generator. A job says where the district table comes from,
// how it is parsed, where the script is written, and optionally which
// database the statements are applied to and where metrics go.
//
// Example:
//
//	{
//	  "job":     "ubigeo_distritos",
//	  "source":  { "kind": "file", "file": { "path": "data/distritos.txt" }, "encoding": "windows-1252" },
//	  "parser":  { "kind": "pipe", "options": { "delimiter": "|", "normalize": true } },
//	  "output":  { "path": "003_insert_distritos_COMPLETOS.sql" },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgres://...", "table": "distritos" } },
//	  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://localhost:9091" }
//	}
//
// Jobs may also be written in YAML with the same keys. Every section is
// optional; Default fills the gaps.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values used when a job omits a field.
const (
	DefaultJob        = "ubigeo_distritos"
	DefaultOutputPath = "003_insert_distritos_COMPLETOS.sql"
	DefaultTable      = "distritos"
)

// Source kinds.
const (
	SourceKindEmbedded = "embedded"
	SourceKindFile     = "file"
	SourceKindHTTP     = "http"
)

// Storage kinds. StorageNone disables apply mode.
const (
	StorageNone     = "none"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
	StorageSQLite   = "sqlite"
)

// Metrics backends.
const (
	MetricsNone        = "none"
	MetricsPushgateway = "pushgateway"
	MetricsDatadog     = "datadog"
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job names the run; it labels metrics.
	Job string `json:"job" yaml:"job"`

	Source  Source  `json:"source" yaml:"source"`
	Parser  Parser  `json:"parser" yaml:"parser"`
	Output  Output  `json:"output" yaml:"output"`
	Storage Storage `json:"storage" yaml:"storage"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// Source selects the district table.
type Source struct {
	// Kind is "embedded" (the table compiled into the binary), "file" or
	// "http".
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http"`

	// Encoding is a WHATWG label such as "windows-1252". Empty means UTF-8.
	// The embedded table is always UTF-8.
	Encoding string `json:"encoding" yaml:"encoding"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL            string `json:"url" yaml:"url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `json:"max_retries" yaml:"max_retries"`
}

// Parser selects how lines are turned into records.
type Parser struct {
	// Kind selects the parser implementation. Current value: "pipe".
	Kind string `json:"kind" yaml:"kind"`

	// Options for "pipe": delimiter (string), normalize (bool), strict (bool).
	Options Options `json:"options" yaml:"options"`
}

// Output configures the generated script.
type Output struct {
	Path string `json:"path" yaml:"path"`
}

// Storage optionally applies the generated statements to a database.
type Storage struct {
	// Kind is "none", "postgres", "mysql" or "sqlite".
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the apply target.
type DBConfig struct {
	// DSN is the connection string passed to the driver.
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is read back with SELECT COUNT(*) after applying. It does not
	// change the generated statements, which always target distritos.
	Table string `json:"table" yaml:"table"`

	// ProgressEvery logs apply progress after this many statements.
	ProgressEvery int `json:"progress_every" yaml:"progress_every"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr" yaml:"datadog_addr"`
	DatadogTags    []string `json:"datadog_tags" yaml:"datadog_tags"`
}

// Default returns the job used when no file is given: the embedded table,
// the pipe parser with NFC normalization, the historical output file name,
// no storage and no metrics.
func Default() Job {
	return Job{
		Job:     DefaultJob,
		Source:  Source{Kind: SourceKindEmbedded},
		Parser:  Parser{Kind: "pipe", Options: Options{"delimiter": "|", "normalize": true}},
		Output:  Output{Path: DefaultOutputPath},
		Storage: Storage{Kind: StorageNone, DB: DBConfig{Table: DefaultTable, ProgressEvery: 50}},
		Metrics: Metrics{Backend: MetricsNone},
	}
}

// Decode reads a job from r on top of Default, so omitted fields keep their
// defaults. Unknown fields are rejected.
func Decode(r io.Reader) (Job, error) {
	j := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if j.Parser.Options == nil {
		j.Parser.Options = Options{}
	}
	return j, nil
}

// DecodeYAML is Decode for YAML job files. Keys are the same as in JSON.
func DecodeYAML(r io.Reader) (Job, error) {
	j := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&j); err != nil && !errors.Is(err, io.EOF) {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if j.Parser.Options == nil {
		j.Parser.Options = Options{}
	}
	return j, nil
}

// Load opens path and decodes it with DecodeYAML for .yaml/.yml files and
// with Decode otherwise.
func Load(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("open job: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(f)
	default:
		return Decode(f)
	}
}

// Options fetches typed values from a free-form JSON object. Missing keys
// and values of the wrong type yield the supplied default.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Rune returns the first rune of the string value for key, or def when the
// key is missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && len(s) > 0 {
		return []rune(s)[0]
	}
	return def
}

// UnmarshalJSON decodes a null or missing object to an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
