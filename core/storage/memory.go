package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/resource"
)

// MemoryStore keeps records in process memory. It is safe for concurrent
// use and is the default store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable
	now    func() time.Time
}

type memTable struct {
	idKind resource.IDKind
	nextID int64
	rows   map[string]record.Record
	keys   []string // insertion order
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*memTable),
		now:    time.Now,
	}
}

// Ensure implements Provisioner. Calling it twice for a model keeps the
// existing records.
func (s *MemoryStore) Ensure(_ context.Context, res *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[res.Model()]; ok {
		return nil
	}
	s.tables[res.Model()] = &memTable{
		idKind: res.IDKind(),
		rows:   make(map[string]record.Record),
	}
	return nil
}

// Model implements DataAccess.
func (s *MemoryStore) Model(name string) (ModelClient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tables[name]; !ok {
		return nil, false
	}
	return &memModel{store: s, name: name}, true
}

type memModel struct {
	store *MemoryStore
	name  string
}

func (m *memModel) table() *memTable {
	return m.store.tables[m.name]
}

func (m *memModel) FindMany(_ context.Context, args FindManyArgs) ([]record.Record, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	t := m.table()
	out := make([]record.Record, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, t.rows[k].Clone())
	}

	if len(args.OrderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range args.OrderBy {
				c := Compare(out[i][o.Field], out[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Order == Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	return out, nil
}

func (m *memModel) FindUnique(_ context.Context, id record.Value) (record.Record, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	if row, ok := m.table().rows[id.Text()]; ok {
		return row.Clone(), nil
	}
	return nil, nil
}

func (m *memModel) FindFirst(_ context.Context, where Where) (record.Record, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	t := m.table()
	for _, k := range t.keys {
		if row := t.rows[k]; where.Matches(row) {
			return row.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memModel) Create(_ context.Context, data record.Record) (record.Record, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	t := m.table()
	row := data.Clone()

	id, supplied := row[ColumnID]
	if !supplied || id.IsBlank() {
		if t.idKind == resource.IDString {
			id = record.String(uuid.NewString())
		} else {
			t.nextID++
			id = record.Int(t.nextID)
		}
	}
	key := id.Text()
	if _, exists := t.rows[key]; exists {
		return nil, fmt.Errorf("duplicate id %s", key)
	}
	if n, ok := id.AsNumber(); ok && int64(n) > t.nextID {
		t.nextID = int64(n)
	}

	now := m.store.now().UTC()
	row[ColumnID] = id
	row[ColumnCreatedAt] = record.Date(now)
	row[ColumnUpdatedAt] = record.Date(now)

	t.rows[key] = row
	t.keys = append(t.keys, key)
	return row.Clone(), nil
}

func (m *memModel) Update(_ context.Context, id record.Value, data record.Record) (record.Record, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	row, ok := m.table().rows[id.Text()]
	if !ok {
		return nil, fmt.Errorf("update %s %s: %w", m.name, id, ErrNotFound)
	}
	for k, v := range data {
		if k == ColumnID || k == ColumnCreatedAt {
			continue
		}
		row[k] = v
	}
	row[ColumnUpdatedAt] = record.Date(m.store.now().UTC())
	return row.Clone(), nil
}

func (m *memModel) Delete(_ context.Context, id record.Value) (record.Record, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	t := m.table()
	key := id.Text()
	row, ok := t.rows[key]
	if !ok {
		return nil, fmt.Errorf("delete %s %s: %w", m.name, id, ErrNotFound)
	}
	delete(t.rows, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return row, nil
}

// Compare orders two values: null first, then strings, numbers, booleans
// and dates. Values of the same kind compare naturally.
func Compare(a, b record.Value) int {
	if a.Kind() != b.Kind() {
		return int(a.Kind()) - int(b.Kind())
	}
	switch a.Kind() {
	case record.KindNumber:
		x, _ := a.AsNumber()
		y, _ := b.AsNumber()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case record.KindString:
		x, _ := a.AsString()
		y, _ := b.AsString()
		return strings.Compare(x, y)
	case record.KindBool:
		x, _ := a.AsBool()
		y, _ := b.AsBool()
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case record.KindDate:
		x, _ := a.AsDate()
		y, _ := b.AsDate()
		return x.Compare(y)
	default:
		return 0
	}
}
