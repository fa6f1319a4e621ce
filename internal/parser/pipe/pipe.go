// Package pipe parses delimiter-separated district tables of the form
//
//	DISTRICT|PROVINCE|DEPARTMENT
//
// one record per line. Lines that do not split into exactly three non-empty
// fields are dropped and their line numbers reported in parser.Stats; strict
// mode turns them into an error.
package pipe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/unicode/norm"

	"ubigeo/internal/district"
	"ubigeo/internal/parser"
)

// DefaultComma is the field delimiter used when Options.Comma is zero.
const DefaultComma = '|'

// fieldsPerLine is the number of fields a line must split into.
const fieldsPerLine = 3

// maxLineBytes bounds a single input line. Longer lines are skipped.
const maxLineBytes = 1 << 20

// utf8BOM is stripped from the first line if present.
const utf8BOM = "\uFEFF"

// Options configures the parser. The zero value parses '|' separated input
// without normalization and without strict mode.
type Options struct {
	// Comma is the field delimiter. When zero, DefaultComma is used.
	Comma rune

	// Normalize converts every line to Unicode NFC before splitting so that
	// decomposed sequences (N + U+0303) compare equal to precomposed ones (Ñ).
	// Precomposed input is left untouched.
	Normalize bool

	// Strict makes Parse return a *SkipError when any non-blank line was
	// dropped. The records that did parse are still returned.
	Strict bool
}

// Parser implements parser.Parser for delimiter-separated district tables.
// It is safe to reuse across inputs but not for concurrent use.
type Parser struct {
	opt Options

	// hash buckets record keys for duplicate detection. Nil means xxh3.
	hash func(string) uint64
}

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.Comma == 0 {
		opt.Comma = DefaultComma
	}
	return &Parser{opt: opt}
}

// SkipError reports the lines dropped in strict mode.
type SkipError struct {
	Lines []int
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("pipe: %d malformed line(s), first at line %d", len(e.Lines), e.Lines[0])
}

// Parse reads r line by line and returns the records in source order.
//
// Behavior:
//   - A line that does not split into exactly three non-empty fields is
//     dropped and its line number recorded in Stats.SkippedLines.
//   - A line longer than 1 MiB is dropped the same way; the rest of the input
//     is still parsed.
//   - Lines that are empty after trimming count as Blank, not as skipped.
//   - Repeated triples are emitted and counted in Stats.Duplicates.
//
// A read error from r ends the parse and is returned with the records
// collected so far. In strict mode a clean read with skipped lines returns a
// *SkipError.
func (p *Parser) Parse(r io.Reader) ([]district.Record, parser.Stats, error) {
	var (
		out   []district.Record
		stats parser.Stats
		seen  = newKeySet(p.hash)
		sep   = string(p.opt.Comma)
		lr    = newLineReader(r)
	)

	for {
		line, tooLong, err := lr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, stats, fmt.Errorf("pipe: read line %d: %w", stats.Lines+1, err)
		}
		stats.Lines++
		if tooLong {
			stats.SkippedLines = append(stats.SkippedLines, stats.Lines)
			continue
		}
		if stats.Lines == 1 {
			line = strings.TrimPrefix(line, utf8BOM)
		}
		if p.opt.Normalize {
			line = norm.NFC.String(line)
		}

		rec, ok := splitLine(line, sep)
		if !ok {
			if strings.TrimSpace(line) == "" {
				stats.Blank++
			} else {
				stats.SkippedLines = append(stats.SkippedLines, stats.Lines)
			}
			continue
		}

		if !seen.add(rec.Key()) {
			stats.Duplicates++
		}

		out = append(out, rec)
		stats.Records++
	}

	if p.opt.Strict && stats.Skipped() > 0 {
		return out, stats, &SkipError{Lines: stats.SkippedLines}
	}
	return out, stats, nil
}

// ParseString parses s with default options. Malformed and oversized lines
// are dropped and counted. Without strict mode Parse only fails on a read
// error, which a string reader never produces.
func ParseString(s string) ([]district.Record, parser.Stats) {
	recs, stats, _ := NewParser(Options{}).Parse(strings.NewReader(s))
	return recs, stats
}

// lineReader yields lines without their terminator. Lines over maxLineBytes
// are consumed to the next newline and reported as too long instead of
// aborting the read.
type lineReader struct {
	br  *bufio.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 64*1024)}
}

// next returns io.EOF once the input is exhausted.
func (lr *lineReader) next() (string, bool, error) {
	lr.buf = lr.buf[:0]
	started, tooLong := false, false
	for {
		frag, more, err := lr.br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && started {
				break
			}
			return "", false, err
		}
		started = true
		if !tooLong {
			if len(lr.buf)+len(frag) > maxLineBytes {
				tooLong = true
				lr.buf = lr.buf[:0]
			} else {
				lr.buf = append(lr.buf, frag...)
			}
		}
		if !more {
			break
		}
	}
	if tooLong {
		return "", true, nil
	}
	return string(lr.buf), false, nil
}

// keySet is an exact set of record keys. Keys are bucketed by a 64-bit hash
// and compared in full within a bucket, so colliding hashes never merge two
// distinct triples.
type keySet struct {
	hash    func(string) uint64
	buckets map[uint64][]string
}

func newKeySet(hash func(string) uint64) *keySet {
	if hash == nil {
		hash = xxh3.HashString
	}
	return &keySet{hash: hash, buckets: make(map[uint64][]string)}
}

// add inserts k and reports whether it was absent.
func (s *keySet) add(k string) bool {
	h := s.hash(k)
	for _, e := range s.buckets[h] {
		if e == k {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], k)
	return true
}

// splitLine applies the record rule: the line must contain sep and split into
// exactly three fields that are non-empty after trimming.
func splitLine(line, sep string) (district.Record, bool) {
	if !strings.Contains(line, sep) {
		return district.Record{}, false
	}
	parts := strings.Split(line, sep)
	if len(parts) != fieldsPerLine {
		return district.Record{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return district.Record{}, false
		}
	}
	return district.Record{
		District:   parts[0],
		Province:   parts[1],
		Department: parts[2],
	}, true
}
