// Package dataset embeds the reference table of Peruvian districts published
// by INEI, one DISTRICT|PROVINCE|DEPARTMENT line per district.
package dataset

import _ "embed"

// Name identifies the embedded table in logs.
const Name = "embedded:distritos.txt"

//go:embed distritos.txt
var distritos string

// Text returns the raw embedded table.
func Text() string { return distritos }
