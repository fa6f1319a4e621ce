// Package sqlitetest creates the reference tables the generated INSERT
// statements expect, so they can be applied to a scratch database.
package sqlitetest

import (
	"context"
	"fmt"
	"strings"

	"ubigeo/internal/district"
	"ubigeo/internal/sqlgen"
	"ubigeo/internal/storage"
)

// Schema is the minimal layout of the three ubigeo tables.
const Schema = `
CREATE TABLE departamentos (
	id     INTEGER PRIMARY KEY,
	nombre TEXT NOT NULL UNIQUE
);
CREATE TABLE provincias (
	id              INTEGER PRIMARY KEY,
	nombre          TEXT NOT NULL,
	departamento_id INTEGER NOT NULL REFERENCES departamentos(id)
);
CREATE TABLE distritos (
	id              INTEGER PRIMARY KEY,
	provincia_id    INTEGER NOT NULL REFERENCES provincias(id),
	departamento_id INTEGER NOT NULL REFERENCES departamentos(id),
	codigo          TEXT NOT NULL,
	nombre          TEXT NOT NULL,
	nombre_completo TEXT NOT NULL,
	ubigeo_inei     TEXT NOT NULL,
	activo          BOOLEAN NOT NULL
);
`

// Seed creates the schema and inserts every department and province named
// by recs. Districts are left for the generated statements.
func Seed(ctx context.Context, repo storage.Repository, recs []district.Record) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if err := repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("sqlitetest: schema: %w", err)
		}
	}

	deptIDs := map[string]int{}
	provIDs := map[[2]string]int{}
	for _, rec := range recs {
		dID, ok := deptIDs[rec.Department]
		if !ok {
			dID = len(deptIDs) + 1
			deptIDs[rec.Department] = dID
			q := fmt.Sprintf("INSERT INTO departamentos (id, nombre) VALUES (%d, '%s')",
				dID, sqlgen.Escape(rec.Department))
			if err := repo.Exec(ctx, q); err != nil {
				return fmt.Errorf("sqlitetest: seed department: %w", err)
			}
		}
		pk := [2]string{rec.Province, rec.Department}
		if _, ok := provIDs[pk]; ok {
			continue
		}
		pID := len(provIDs) + 1
		provIDs[pk] = pID
		q := fmt.Sprintf("INSERT INTO provincias (id, nombre, departamento_id) VALUES (%d, '%s', %d)",
			pID, sqlgen.Escape(rec.Province), dID)
		if err := repo.Exec(ctx, q); err != nil {
			return fmt.Errorf("sqlitetest: seed province: %w", err)
		}
	}
	return nil
}
