// Package storage contains the backend-agnostic contract used to apply
// generated statements to a database, plus a registry that maps storage
// kinds ("postgres", "mysql", "sqlite") to constructors.
//
// Backends register themselves in init. Import ubigeo/internal/storage/all to
// enable every backend, or a single backend package to keep the binary small.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is the minimal surface the generator needs from a database.
//
// Statements arrive exactly as they are written to the seed script: one
// INSERT ... SELECT per district, each preceded by a "-- <district>" comment
// line. Apply feeds them to Exec one at a time.
//
// Behavior expected of implementations:
//   - Exec runs each statement in its own implicit transaction. A failing
//     statement leaves earlier ones committed.
//   - Exec treats a blank statement as a no-op.
//   - Driver errors are wrapped with the backend name and keep the driver's
//     own error type reachable through errors.As (*pgconn.PgError,
//     *mysql.MySQLError).
//   - Count quotes the table name, which may be schema-qualified
//     ("public.distritos").
//   - Close is idempotent.
type Repository interface {
	// Exec runs a single SQL statement.
	Exec(ctx context.Context, sql string) error
	// Count returns SELECT COUNT(*) for table.
	Count(ctx context.Context, table string) (int64, error)
	// Close releases the underlying connections.
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory constructs a Repository for a given Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds or replaces the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
