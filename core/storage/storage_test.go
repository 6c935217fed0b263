package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/resource"
	"github.com/artpar/anvil/core/schema"
)

func productResource(idKind resource.IDKind) *resource.Resource {
	form := schema.MustForm(
		schema.Entry("name", schema.Text(schema.TextOptions{FieldOptions: schema.FieldOptions{Label: "Name", Required: true}})),
		schema.Entry("sku", schema.Text(schema.TextOptions{Unique: true})),
		schema.Entry("price", schema.Number(schema.NumberOptions{})),
		schema.Entry("releasedOn", schema.Date(schema.DateOptions{})),
		schema.Entry("tenant", schema.Hidden(schema.HiddenOptions{Value: "acme"})),
	)
	table := schema.NewTable(schema.Column{Name: "name"})
	return resource.MustDefine(resource.Config{Model: "Product", Form: &form, Table: &table, IDKind: idKind})
}

type provisionedStore interface {
	DataAccess
	Provisioner
}

type storeFactory struct {
	name string
	open func(t *testing.T) provisionedStore
}

func stores() []storeFactory {
	return []storeFactory{
		{"memory", func(t *testing.T) provisionedStore {
			return NewMemoryStore()
		}},
		{"sqlite3", func(t *testing.T) provisionedStore {
			return openSQLite(t, DriverSQLite3)
		}},
		{"sqlite", func(t *testing.T) provisionedStore {
			return openSQLite(t, DriverSQLite)
		}},
	}
}

func openSQLite(t *testing.T, driver string) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), driver, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(%s) failed: %v", driver, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustClient(t *testing.T, s provisionedStore, res *resource.Resource) ModelClient {
	t.Helper()
	if err := s.Ensure(context.Background(), res); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	c, ok := s.Model(res.Model())
	if !ok {
		t.Fatalf("Model(%s) not found after Ensure", res.Model())
	}
	return c
}

func TestStores_CRUD(t *testing.T) {
	for _, sf := range stores() {
		t.Run(sf.name, func(t *testing.T) {
			ctx := context.Background()
			c := mustClient(t, sf.open(t), productResource(resource.IDNumeric))

			released := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
			created, err := c.Create(ctx, record.Record{
				"name":       record.String("Widget"),
				"sku":        record.String("WGT-1"),
				"price":      record.Number(9.5),
				"releasedOn": record.Date(released),
			})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			id := created[ColumnID]
			if n, ok := id.AsNumber(); !ok || n != 1 {
				t.Fatalf("id = %v, want 1", id)
			}
			if s, _ := created["name"].AsString(); s != "Widget" {
				t.Errorf("name = %v", created["name"])
			}
			if p, _ := created["price"].AsNumber(); p != 9.5 {
				t.Errorf("price = %v", created["price"])
			}
			if d, ok := created["releasedOn"].AsDate(); !ok || !d.Equal(released) {
				t.Errorf("releasedOn = %v, want %v", created["releasedOn"], released)
			}
			if _, ok := created[ColumnCreatedAt].AsDate(); !ok {
				t.Errorf("created_at = %v, want date", created[ColumnCreatedAt])
			}

			got, err := c.FindUnique(ctx, record.Int(1))
			if err != nil {
				t.Fatalf("FindUnique failed: %v", err)
			}
			if got == nil || !got["sku"].Equal(record.String("WGT-1")) {
				t.Fatalf("FindUnique = %v", got)
			}

			updated, err := c.Update(ctx, record.Int(1), record.Record{"price": record.Number(12), "releasedOn": record.Null()})
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if p, _ := updated["price"].AsNumber(); p != 12 {
				t.Errorf("updated price = %v", updated["price"])
			}
			if !updated["releasedOn"].IsNull() {
				t.Errorf("releasedOn = %v, want null", updated["releasedOn"])
			}
			if !updated["name"].Equal(record.String("Widget")) {
				t.Errorf("update dropped name: %v", updated["name"])
			}

			deleted, err := c.Delete(ctx, record.Int(1))
			if err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if !deleted["sku"].Equal(record.String("WGT-1")) {
				t.Errorf("Delete returned %v", deleted)
			}

			if got, err := c.FindUnique(ctx, record.Int(1)); err != nil || got != nil {
				t.Errorf("FindUnique after delete = %v, %v", got, err)
			}
		})
	}
}

func TestStores_NotFound(t *testing.T) {
	for _, sf := range stores() {
		t.Run(sf.name, func(t *testing.T) {
			ctx := context.Background()
			c := mustClient(t, sf.open(t), productResource(resource.IDNumeric))

			if got, err := c.FindUnique(ctx, record.Int(99)); err != nil || got != nil {
				t.Errorf("FindUnique = %v, %v; want nil, nil", got, err)
			}
			if _, err := c.Update(ctx, record.Int(99), record.Record{"name": record.String("x")}); !errors.Is(err, ErrNotFound) {
				t.Errorf("Update error = %v, want ErrNotFound", err)
			}
			if _, err := c.Delete(ctx, record.Int(99)); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStores_FindManyOrder(t *testing.T) {
	for _, sf := range stores() {
		t.Run(sf.name, func(t *testing.T) {
			ctx := context.Background()
			c := mustClient(t, sf.open(t), productResource(resource.IDNumeric))

			for _, name := range []string{"a", "b", "c"} {
				if _, err := c.Create(ctx, record.Record{"name": record.String(name)}); err != nil {
					t.Fatalf("Create failed: %v", err)
				}
			}

			rows, err := c.FindMany(ctx, FindManyArgs{OrderBy: []OrderBy{{Field: ColumnID, Order: Desc}}})
			if err != nil {
				t.Fatalf("FindMany failed: %v", err)
			}
			if len(rows) != 3 {
				t.Fatalf("len(rows) = %d, want 3", len(rows))
			}
			for i, want := range []string{"c", "b", "a"} {
				if s, _ := rows[i]["name"].AsString(); s != want {
					t.Errorf("rows[%d].name = %q, want %q", i, s, want)
				}
			}
		})
	}
}

func TestStores_FindFirst(t *testing.T) {
	for _, sf := range stores() {
		t.Run(sf.name, func(t *testing.T) {
			ctx := context.Background()
			c := mustClient(t, sf.open(t), productResource(resource.IDNumeric))

			first, err := c.Create(ctx, record.Record{"name": record.String("Widget"), "sku": record.String("W")})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			got, err := c.FindFirst(ctx, Where{Equals: record.Record{"sku": record.String("W")}})
			if err != nil {
				t.Fatalf("FindFirst failed: %v", err)
			}
			if got == nil || !got[ColumnID].Equal(first[ColumnID]) {
				t.Fatalf("FindFirst = %v, want first record", got)
			}

			got, err = c.FindFirst(ctx, Where{
				Equals: record.Record{"sku": record.String("W")},
				Not:    record.Record{ColumnID: first[ColumnID]},
			})
			if err != nil {
				t.Fatalf("FindFirst with Not failed: %v", err)
			}
			if got != nil {
				t.Errorf("FindFirst excluding self = %v, want nil", got)
			}

			if got, _ := c.FindFirst(ctx, Where{Equals: record.Record{"sku": record.String("none")}}); got != nil {
				t.Errorf("FindFirst(none) = %v, want nil", got)
			}
		})
	}
}

func TestStores_StringIDs(t *testing.T) {
	for _, sf := range stores() {
		t.Run(sf.name, func(t *testing.T) {
			ctx := context.Background()
			c := mustClient(t, sf.open(t), productResource(resource.IDString))

			created, err := c.Create(ctx, record.Record{"name": record.String("Widget")})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			id, ok := created[ColumnID].AsString()
			if !ok || len(id) != 36 {
				t.Fatalf("id = %v, want uuid string", created[ColumnID])
			}

			got, err := c.FindUnique(ctx, record.String(id))
			if err != nil || got == nil {
				t.Fatalf("FindUnique = %v, %v", got, err)
			}

			explicit, err := c.Create(ctx, record.Record{ColumnID: record.String("custom"), "name": record.String("Gadget")})
			if err != nil {
				t.Fatalf("Create with id failed: %v", err)
			}
			if !explicit[ColumnID].Equal(record.String("custom")) {
				t.Errorf("id = %v, want custom", explicit[ColumnID])
			}
		})
	}
}

func TestStores_EnsureIsIdempotent(t *testing.T) {
	for _, sf := range stores() {
		t.Run(sf.name, func(t *testing.T) {
			ctx := context.Background()
			s := sf.open(t)
			res := productResource(resource.IDNumeric)
			c := mustClient(t, s, res)

			if _, err := c.Create(ctx, record.Record{"name": record.String("Widget")}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			c = mustClient(t, s, res)
			rows, err := c.FindMany(ctx, FindManyArgs{})
			if err != nil {
				t.Fatalf("FindMany failed: %v", err)
			}
			if len(rows) != 1 {
				t.Errorf("len(rows) = %d after second Ensure, want 1", len(rows))
			}
		})
	}
}

func TestStores_UnknownModel(t *testing.T) {
	for _, sf := range stores() {
		if _, ok := sf.open(t).Model("Nope"); ok {
			t.Errorf("%s: Model(Nope) should not resolve", sf.name)
		}
	}
}

func TestSQLStore_UniqueConstraint(t *testing.T) {
	ctx := context.Background()
	c := mustClient(t, openSQLite(t, DriverSQLite3), productResource(resource.IDNumeric))

	if _, err := c.Create(ctx, record.Record{"name": record.String("a"), "sku": record.String("X")}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := c.Create(ctx, record.Record{"name": record.String("b"), "sku": record.String("X")}); err == nil {
		t.Error("expected constraint error for duplicate sku")
	}
}

func TestSQLStore_UnknownOrderColumn(t *testing.T) {
	c := mustClient(t, openSQLite(t, DriverSQLite3), productResource(resource.IDNumeric))

	_, err := c.FindMany(context.Background(), FindManyArgs{OrderBy: []OrderBy{{Field: "name; DROP TABLE products"}}})
	if err == nil {
		t.Error("expected error for unknown order column")
	}
}

func TestSQLStore_CreateTableSQL(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		contains []string
	}{
		{"sqlite", SQLiteDialect, []string{
			`CREATE TABLE IF NOT EXISTS "products"`,
			`"id" INTEGER PRIMARY KEY AUTOINCREMENT`,
			`"price" REAL`,
			`"releasedOn" TIMESTAMP`,
			`UNIQUE ("sku")`,
		}},
		{"postgres", PostgresDialect, []string{
			`"id" BIGSERIAL PRIMARY KEY`,
			`"price" DOUBLE PRECISION`,
			`"releasedOn" TIMESTAMPTZ`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := buildTable(productResource(resource.IDNumeric))
			if err != nil {
				t.Fatalf("buildTable failed: %v", err)
			}
			s := NewSQLStore(nil, tt.dialect)
			ddl := s.createTableSQL(tbl)
			for _, want := range tt.contains {
				if !strings.Contains(ddl, want) {
					t.Errorf("DDL missing %q:\n%s", want, ddl)
				}
			}
			if strings.Contains(ddl, "tenant") {
				t.Errorf("hidden field got a column:\n%s", ddl)
			}
		})
	}
}

func TestArgList_Placeholders(t *testing.T) {
	q := &argList{style: PlaceholderQuestion}
	if q.add(1) != "?" || q.add(2) != "?" {
		t.Error("question style should render ?")
	}

	d := &argList{style: PlaceholderDollar}
	if d.add(1) != "$1" || d.add(2) != "$2" {
		t.Error("dollar style should number parameters")
	}
	if len(d.args) != 2 {
		t.Errorf("len(args) = %d, want 2", len(d.args))
	}
}

func TestWhere_Matches(t *testing.T) {
	rec := record.Record{"id": record.Int(1), "sku": record.String("W")}

	tests := []struct {
		name  string
		where Where
		want  bool
	}{
		{"empty", Where{}, true},
		{"equal", Where{Equals: record.Record{"sku": record.String("W")}}, true},
		{"different", Where{Equals: record.Record{"sku": record.String("X")}}, false},
		{"excluded", Where{Equals: record.Record{"sku": record.String("W")}, Not: record.Record{"id": record.Int(1)}}, false},
		{"not other", Where{Not: record.Record{"id": record.Int(2)}}, true},
	}

	for _, tt := range tests {
		if got := tt.where.Matches(rec); got != tt.want {
			t.Errorf("%s: Matches = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	if Compare(record.Number(1), record.Number(2)) >= 0 {
		t.Error("1 should sort before 2")
	}
	if Compare(record.String("b"), record.String("a")) <= 0 {
		t.Error("b should sort after a")
	}
	if Compare(record.Null(), record.String("a")) >= 0 {
		t.Error("null should sort first")
	}
	if Compare(record.Bool(true), record.Bool(true)) != 0 {
		t.Error("equal bools should compare 0")
	}
}

func TestModels(t *testing.T) {
	store := NewMemoryStore()
	res := productResource(resource.IDNumeric)
	c := mustClient(t, store, res)

	m := Models{"Product": c}
	if got, ok := m.Model("Product"); !ok || got != c {
		t.Error("Models should resolve registered clients")
	}
	if _, ok := m.Model("Other"); ok {
		t.Error("Models should not resolve unknown names")
	}
}
