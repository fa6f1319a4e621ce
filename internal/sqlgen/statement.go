// Package sqlgen renders district records as the INSERT ... SELECT seed script
// consumed by the distritos schema (provincias, departamentos, distritos).
//
// Names are embedded as SQL string literals with single quotes doubled; the
// output is plain text and is never executed here.
package sqlgen

import (
	"strings"

	"ubigeo/internal/district"
)

// Table is the target table of every generated INSERT.
const Table = "distritos"

// FullNamePrefix is prepended to the district name to form nombre_completo.
const FullNamePrefix = "Distrito de "

// Statement renders the INSERT for rec using code as both codigo and
// ubigeo_inei. The leading comment carries the raw district name.
//
// Lines end with the same trailing spaces as earlier generated scripts so
// diffs against them stay empty.
func Statement(rec district.Record, code string) string {
	var b strings.Builder
	b.Grow(384)

	b.WriteString("-- ")
	b.WriteString(rec.District)
	b.WriteString("\n")

	b.WriteString("INSERT INTO " + Table + " (provincia_id, departamento_id, codigo, nombre, nombre_completo, ubigeo_inei, activo) \n")

	b.WriteString("SELECT p.id, d.id, ")
	b.WriteString(quote(code))
	b.WriteString(", ")
	b.WriteString(quote(rec.District))
	b.WriteString(", ")
	b.WriteString(quote(FullNamePrefix + rec.District))
	b.WriteString(", ")
	b.WriteString(quote(code))
	b.WriteString(", true\n")

	b.WriteString("FROM provincias p JOIN departamentos d ON p.departamento_id = d.id \n")

	b.WriteString("WHERE p.nombre = ")
	b.WriteString(quote(rec.Province))
	b.WriteString(" AND d.nombre = ")
	b.WriteString(quote(rec.Department))
	b.WriteString(";\n")

	return b.String()
}

// Statements renders one INSERT per record, numbering codes from 1.
func Statements(recs []district.Record) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = Statement(rec, district.Code(i+1))
	}
	return out
}
