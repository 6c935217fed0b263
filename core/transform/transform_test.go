package transform

import (
	"testing"
	"time"

	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/resource"
	"github.com/artpar/anvil/core/schema"
)

func eventResource(t *testing.T) *resource.Resource {
	t.Helper()
	form := schema.MustForm(
		schema.Entry("title", schema.Text(schema.TextOptions{})),
		schema.Entry("attendees", schema.Number(schema.NumberOptions{})),
		schema.Entry("startsOn", schema.Date(schema.DateOptions{})),
		schema.Entry("kind", schema.Select(schema.SelectOptions{Options: []any{"talk", "workshop"}})),
		schema.Entry("notes", schema.Textarea(schema.TextareaOptions{})),
		schema.Entry("tenant", schema.Hidden(schema.HiddenOptions{Value: "acme"})),
		schema.Entry("createdAt", schema.Date(schema.DateOptions{FieldOptions: schema.FieldOptions{ReadOnly: true}})),
	)
	table := schema.NewTable(schema.Column{Name: "title"})
	return resource.MustDefine(resource.Config{Model: "Event", Form: &form, Table: &table})
}

func TestTransform_DateString(t *testing.T) {
	res := eventResource(t)

	out := Transform(res, record.Record{"startsOn": record.String("2024-03-01")}, resource.ModeCreate)

	got, ok := out["startsOn"].AsDate()
	if !ok {
		t.Fatalf("startsOn = %v, want date", out["startsOn"])
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("startsOn = %v, want %v", got, want)
	}
}

func TestTransform_DateValuePassesThrough(t *testing.T) {
	res := eventResource(t)
	when := time.Date(2023, 7, 4, 15, 30, 0, 0, time.UTC)

	out := Transform(res, record.Record{"startsOn": record.Date(when)}, resource.ModeCreate)

	if got, _ := out["startsOn"].AsDate(); !got.Equal(when) {
		t.Errorf("startsOn = %v, want %v", got, when)
	}
}

func TestTransform_DateEmptyStringBecomesNull(t *testing.T) {
	res := eventResource(t)

	out := Transform(res, record.Record{"startsOn": record.String("")}, resource.ModeUpdate)

	v, ok := out["startsOn"]
	if !ok {
		t.Fatal("startsOn missing, want explicit null")
	}
	if !v.IsNull() {
		t.Errorf("startsOn = %v, want null", v)
	}
}

func TestTransform_DateAbsentStaysAbsent(t *testing.T) {
	res := eventResource(t)

	for _, in := range []record.Record{{}, {"startsOn": record.Null()}} {
		out := Transform(res, in, resource.ModeUpdate)
		if _, ok := out["startsOn"]; ok {
			t.Errorf("Transform(%v) kept startsOn", in)
		}
	}
}

func TestTransform_UnparseableDateDropped(t *testing.T) {
	res := eventResource(t)

	for _, s := range []string{"not-a-date", "2024-13-01", "01/03/2024", "2024-03-01T10:00:00Z"} {
		out := Transform(res, record.Record{"startsOn": record.String(s)}, resource.ModeCreate)
		if _, ok := out["startsOn"]; ok {
			t.Errorf("%q: startsOn kept as %v", s, out["startsOn"])
		}
	}
	out := Transform(res, record.Record{"startsOn": record.Number(5)}, resource.ModeCreate)
	if _, ok := out["startsOn"]; ok {
		t.Error("numeric date input should be dropped")
	}
}

func TestTransform_PassThroughAndFiltering(t *testing.T) {
	res := eventResource(t)
	in := record.Record{
		"title":     record.String("Launch"),
		"attendees": record.Number(40),
		"kind":      record.String("talk"),
		"notes":     record.String(""),
		"tenant":    record.String("evil"),
		"unknown":   record.String("x"),
	}

	out := Transform(res, in, resource.ModeCreate)

	if len(out) != 3 {
		t.Fatalf("out = %v, want title, attendees and kind only", out)
	}
	if !out["title"].Equal(record.String("Launch")) {
		t.Errorf("title = %v", out["title"])
	}
	if !out["attendees"].Equal(record.Number(40)) {
		t.Errorf("attendees = %v", out["attendees"])
	}
	if _, ok := in["unknown"]; !ok {
		t.Error("input record was mutated")
	}
}

func TestTransform_ReadOnlyAsymmetry(t *testing.T) {
	res := eventResource(t)
	in := record.Record{"createdAt": record.String("2020-01-01")}

	if out := Transform(res, in, resource.ModeCreate); len(out) != 0 {
		t.Errorf("create: out = %v, want read-only field skipped", out)
	}
	out := Transform(res, in, resource.ModeUpdate)
	if _, ok := out["createdAt"].AsDate(); !ok {
		t.Errorf("update: createdAt = %v, want date", out["createdAt"])
	}
}

func TestParseDate(t *testing.T) {
	if _, ok := ParseDate(record.String("2024-02-30")); ok {
		t.Error("2024-02-30 should not parse")
	}
	v, ok := ParseDate(record.String("2024-02-29"))
	if !ok {
		t.Fatal("2024-02-29 should parse")
	}
	if d, _ := v.AsDate(); d.Day() != 29 || d.Hour() != 0 {
		t.Errorf("ParseDate = %v", d)
	}
}
