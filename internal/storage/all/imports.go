// Package all wires all built-in storage backends into the storage factory.
// Import it for side effects to make "postgres", "mysql" and "sqlite"
// available to storage.New.
package all

import (
	_ "ubigeo/internal/storage/mysql"
	_ "ubigeo/internal/storage/postgres"
	_ "ubigeo/internal/storage/sqlite"
)
