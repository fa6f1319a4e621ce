// Package district holds the value types shared by the parser, the SQL
// renderer and the storage layer: one Record per district line and the
// sequential code derived from a record's position.
package district

// Record is one (district, province, department) triple. It has no identity
// beyond its position in the source sequence.
type Record struct {
	District   string
	Province   string
	Department string
}

// Key joins the three names with a unit separator. Two records with equal
// keys describe the same district.
func (r Record) Key() string {
	return r.District + "\x1f" + r.Province + "\x1f" + r.Department
}
