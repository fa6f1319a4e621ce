package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecode_OverlaysDefaults(t *testing.T) {
	t.Parallel()

	const js = `{
	  "source":  { "kind": "file", "file": { "path": "data/distritos.txt" } },
	  "storage": { "kind": "sqlite", "db": { "dsn": "file:seed.db" } }
	}`

	j, err := Decode(strings.NewReader(js))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if j.Source.Kind != SourceKindFile || j.Source.File.Path != "data/distritos.txt" {
		t.Fatalf("source = %+v", j.Source)
	}
	if j.Storage.Kind != StorageSQLite || j.Storage.DB.DSN != "file:seed.db" {
		t.Fatalf("storage = %+v", j.Storage)
	}
	// Omitted fields keep their defaults.
	if j.Job != DefaultJob {
		t.Fatalf("job = %q, want %q", j.Job, DefaultJob)
	}
	if j.Output.Path != DefaultOutputPath {
		t.Fatalf("output.path = %q, want %q", j.Output.Path, DefaultOutputPath)
	}
	if j.Storage.DB.Table != DefaultTable {
		t.Fatalf("storage.db.table = %q, want %q", j.Storage.DB.Table, DefaultTable)
	}
	if j.Parser.Options.Rune("delimiter", 0) != '|' {
		t.Fatalf("default delimiter lost: %v", j.Parser.Options)
	}
}

func TestDecode_SourceKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		js   string
		want Source
	}{
		{
			name: "embedded",
			js:   `{"source": {"kind": "embedded"}}`,
			want: Source{Kind: SourceKindEmbedded},
		},
		{
			name: "file",
			js:   `{"source": {"kind": "file", "file": {"path": "d.txt"}, "encoding": "latin1"}}`,
			want: Source{Kind: SourceKindFile, File: SourceFile{Path: "d.txt"}, Encoding: "latin1"},
		},
		{
			name: "http",
			js:   `{"source": {"kind": "http", "http": {"url": "https://example.test/d.txt", "timeout_seconds": 5, "max_retries": 1}}}`,
			want: Source{Kind: SourceKindHTTP, HTTP: SourceHTTP{URL: "https://example.test/d.txt", TimeoutSeconds: 5, MaxRetries: 1}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			j, err := Decode(strings.NewReader(tc.js))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if j.Source != tc.want {
				t.Fatalf("source = %+v, want %+v", j.Source, tc.want)
			}
			if j.Source.Kind != tc.name {
				t.Fatalf("kind = %q, want %q", j.Source.Kind, tc.name)
			}
		})
	}

	if Default().Source.Kind != SourceKindEmbedded {
		t.Fatalf("default source kind = %q", Default().Source.Kind)
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(`{"sauce": {}}`))
	if err == nil || !strings.Contains(err.Error(), "sauce") {
		t.Fatalf("err = %v, want unknown field error", err)
	}
}

func TestDecode_NullOptionsIsEmptyMap(t *testing.T) {
	t.Parallel()

	j, err := Decode(strings.NewReader(`{"parser": {"kind": "pipe", "options": null}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if j.Parser.Options == nil {
		t.Fatal("options decoded to nil map")
	}
	if got := j.Parser.Options.Bool("normalize", true); !got {
		t.Fatal("missing normalize should fall back to the supplied default")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "job.json")
	if err := os.WriteFile(p, []byte(`{"job": "seed", "output": {"path": "out.sql"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	j, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if j.Job != "seed" || j.Output.Path != "out.sql" {
		t.Fatalf("job = %+v", j)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestOptions_TypedAccessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"delimiter": ";",
		"empty":     "",
		"normalize": false,
		"name":      "pipe",
		"number":    float64(3),
	}

	if got := o.Rune("delimiter", '|'); got != ';' {
		t.Errorf("Rune(delimiter) = %q", got)
	}
	if got := o.Rune("empty", '|'); got != '|' {
		t.Errorf("Rune(empty) = %q, want default", got)
	}
	if got := o.Rune("number", '|'); got != '|' {
		t.Errorf("Rune(number) = %q, want default", got)
	}
	if got := o.Bool("normalize", true); got {
		t.Errorf("Bool(normalize) = true, want false")
	}
	if got := o.Bool("missing", true); !got {
		t.Errorf("Bool(missing) = false, want default true")
	}
	if got := o.String("name", "x"); got != "pipe" {
		t.Errorf("String(name) = %q", got)
	}
	if got := o.String("number", "x"); got != "x" {
		t.Errorf("String(number) = %q, want default", got)
	}
}

// TestSampleJobs keeps the job files under configs/jobs loadable and valid.
func TestSampleJobs(t *testing.T) {
	t.Parallel()

	var paths []string
	for _, pattern := range []string{"*.json", "*.yaml"} {
		m, err := filepath.Glob(filepath.Join("..", "..", "configs", "jobs", pattern))
		if err != nil {
			t.Fatal(err)
		}
		paths = append(paths, m...)
	}
	if len(paths) == 0 {
		t.Fatal("no sample jobs found")
	}

	for _, p := range paths {
		p := p
		t.Run(filepath.Base(p), func(t *testing.T) {
			t.Parallel()

			j, err := Load(p)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if issues := ValidateJob(j); HasErrors(issues) {
				t.Fatalf("issues = %+v", issues)
			}
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	t.Parallel()

	const y = `
job: seed
source:
  kind: file
  file: {path: data/distritos.txt}
  encoding: windows-1252
parser:
  options: {strict: true}
storage:
  kind: postgres
  db: {dsn: "postgres://localhost/ubigeo", progress_every: 10}
`
	j, err := DecodeYAML(strings.NewReader(y))
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	if j.Job != "seed" || j.Source.File.Path != "data/distritos.txt" || j.Source.Encoding != "windows-1252" {
		t.Fatalf("job = %+v", j)
	}
	if j.Storage.DB.ProgressEvery != 10 || j.Storage.DB.Table != DefaultTable {
		t.Fatalf("storage = %+v", j.Storage)
	}
	if !j.Parser.Options.Bool("strict", false) {
		t.Fatalf("strict not decoded: %v", j.Parser.Options)
	}
	// YAML mappings merge into the default options.
	if j.Parser.Options.Rune("delimiter", 0) != '|' {
		t.Fatalf("default delimiter lost: %v", j.Parser.Options)
	}
}

func TestDecodeYAML_Errors(t *testing.T) {
	t.Parallel()

	if _, err := DecodeYAML(strings.NewReader("sauce: {}\n")); err == nil {
		t.Fatal("unknown field accepted")
	}

	j, err := DecodeYAML(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty document: %v", err)
	}
	if j.Output.Path != DefaultOutputPath {
		t.Fatalf("empty document did not yield defaults: %+v", j)
	}
}

func TestLoad_YAMLByExtension(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "job.yml")
	if err := os.WriteFile(p, []byte("job: seed\noutput: {path: out.sql}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	j, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if j.Job != "seed" || j.Output.Path != "out.sql" {
		t.Fatalf("job = %+v", j)
	}
}
