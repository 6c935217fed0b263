// Package storage defines the data-access capability the CRUD dispatcher
// consumes and the stores that implement it.
//
// A DataAccess resolves a model name to a ModelClient. Stores that own a
// schema (MemoryStore, SQLStore) also implement Provisioner and must be
// handed each resource before its client resolves.
package storage

import (
	"context"
	"errors"

	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/resource"
)

// ErrNotFound is returned by Update and Delete when no record has the id.
var ErrNotFound = errors.New("record not found")

// Reserved column names every provisioned store maintains.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// SortOrder is an ORDER BY direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// OrderBy sorts by one column.
type OrderBy struct {
	Field string
	Order SortOrder
}

// FindManyArgs configures FindMany. Records come back in OrderBy order,
// later entries breaking ties.
type FindManyArgs struct {
	OrderBy []OrderBy
}

// Where filters FindFirst. A record matches when every Equals entry is
// equal and, if Not is non-empty, not every Not entry is equal.
type Where struct {
	Equals record.Record
	Not    record.Record
}

// Matches reports whether rec satisfies w.
func (w Where) Matches(rec record.Record) bool {
	for k, v := range w.Equals {
		if !rec[k].Equal(v) {
			return false
		}
	}
	if len(w.Not) == 0 {
		return true
	}
	for k, v := range w.Not {
		if !rec[k].Equal(v) {
			return true
		}
	}
	return false
}

// ModelClient performs CRUD for one model.
type ModelClient interface {
	FindMany(ctx context.Context, args FindManyArgs) ([]record.Record, error)

	// FindUnique returns nil, nil when no record has the id.
	FindUnique(ctx context.Context, id record.Value) (record.Record, error)

	// FindFirst returns nil, nil when nothing matches.
	FindFirst(ctx context.Context, where Where) (record.Record, error)

	Create(ctx context.Context, data record.Record) (record.Record, error)
	Update(ctx context.Context, id record.Value, data record.Record) (record.Record, error)
	Delete(ctx context.Context, id record.Value) (record.Record, error)
}

// DataAccess resolves model names to clients.
type DataAccess interface {
	Model(name string) (ModelClient, bool)
}

// Provisioner prepares backing storage for a resource, creating its table
// when missing. It never alters an existing table.
type Provisioner interface {
	Ensure(ctx context.Context, res *resource.Resource) error
}

// Models is a DataAccess over a fixed set of clients, useful for wiring
// external stores and test doubles.
type Models map[string]ModelClient

// Model implements DataAccess.
func (m Models) Model(name string) (ModelClient, bool) {
	c, ok := m[name]
	return c, ok
}
