package sqlgen

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"ubigeo/internal/district"
)

// Header opens every generated script.
//
//go:embed header.sql
var Header string

// Verification returns the trailing block: a row count, a per-department
// rollup and the expected total.
func Verification(total int) string {
	var b strings.Builder
	b.WriteString("\n-- =====================================================\n")
	b.WriteString("-- VERIFICACI\u00d3N FINAL\n")
	b.WriteString("-- =====================================================\n")
	b.WriteString(`SELECT COUNT(*) as "Total distritos insertados" FROM ` + Table + ";\n")
	b.WriteString("\n")
	b.WriteString("SELECT \n")
	b.WriteString("    d.nombre as departamento,\n")
	b.WriteString("    COUNT(DISTINCT p.id) as total_provincias,\n")
	b.WriteString("    COUNT(dt.id) as total_distritos\n")
	b.WriteString("FROM departamentos d\n")
	b.WriteString("LEFT JOIN provincias p ON d.id = p.departamento_id\n")
	b.WriteString("LEFT JOIN " + Table + " dt ON p.id = dt.provincia_id\n")
	b.WriteString("GROUP BY d.id, d.nombre\n")
	b.WriteString("ORDER BY d.nombre;\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "-- RESULTADO ESPERADO: %d distritos insertados\n", total)
	b.WriteString("-- ESTADO: SISTEMA COMPLETO DE UBIGEOS PERUANOS\n")
	return b.String()
}

// Writer assembles a script incrementally: the header on first use, one
// statement per Add, and the verification block on Close. Codes follow the
// order of Add calls.
//
// Writer is not safe for concurrent use. After the first error every method
// returns that error.
type Writer struct {
	bw      *bufio.Writer
	n       int
	bytes   int64
	started bool
	closed  bool
	err     error
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Add renders rec with the next code and returns that code.
func (w *Writer) Add(rec district.Record) (string, error) {
	if w.closed {
		return "", fmt.Errorf("sqlgen: add after close")
	}
	w.start()
	code := district.Code(w.n + 1)
	w.write(Statement(rec, code))
	w.write("\n")
	if w.err != nil {
		return "", w.err
	}
	w.n++
	return code, nil
}

// Close writes the verification block and flushes. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	w.start()
	w.write(Verification(w.n))
	if w.err == nil {
		if err := w.bw.Flush(); err != nil {
			w.err = fmt.Errorf("sqlgen: flush: %w", err)
		}
	}
	return w.err
}

// Count returns the number of statements written so far.
func (w *Writer) Count() int { return w.n }

// Bytes returns the number of bytes handed to the underlying writer's buffer.
func (w *Writer) Bytes() int64 { return w.bytes }

func (w *Writer) start() {
	if w.started {
		return
	}
	w.started = true
	w.write(Header)
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	n, err := w.bw.WriteString(s)
	w.bytes += int64(n)
	if err != nil {
		w.err = fmt.Errorf("sqlgen: write: %w", err)
	}
}

// Write renders the full script for recs to w and returns the number of
// statements emitted.
func Write(w io.Writer, recs []district.Record) (int, error) {
	sw := NewWriter(w)
	for _, rec := range recs {
		if _, err := sw.Add(rec); err != nil {
			return sw.Count(), err
		}
	}
	return sw.Count(), sw.Close()
}

// Render returns the full script for recs as a string.
func Render(recs []district.Record) string {
	var b strings.Builder
	_, _ = Write(&b, recs)
	return b.String()
}
