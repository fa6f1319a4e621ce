// Package parser defines the contract shared by record parsers and the
// statistics they report about the lines they could not use.
package parser

import (
	"io"

	"ubigeo/internal/district"
)

// Parser turns raw input into district records, preserving source order.
type Parser interface {
	Parse(r io.Reader) ([]district.Record, Stats, error)
}

// Stats summarizes one parse run.
type Stats struct {
	// Lines is the number of lines read, blank ones included.
	Lines int

	// Records is the number of records emitted.
	Records int

	// Blank counts lines that were empty after trimming. They are dropped
	// but not reported as skipped.
	Blank int

	// SkippedLines lists 1-based line numbers of non-blank lines that did not
	// produce a record, oversized lines included.
	SkippedLines []int

	// Duplicates counts records whose triple already appeared earlier in the
	// input. Duplicates are still emitted.
	Duplicates int
}

// Skipped returns the number of non-blank lines that were dropped.
func (s Stats) Skipped() int { return len(s.SkippedLines) }
