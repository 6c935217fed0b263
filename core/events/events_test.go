package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/anvil/core/record"
)

func TestName(t *testing.T) {
	if got := Name("categories", ActionCreated); got != "categories.created" {
		t.Errorf("Name() = %q", got)
	}
}

func TestPublish_ExactAndWildcards(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var order []string
	var mu sync.Mutex
	track := func(tag string) Handler {
		return func(ctx context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, tag)
			return nil
		}
	}

	bus.Subscribe("*", track("global"))
	bus.Subscribe("categories.*", track("resource"))
	bus.Subscribe("categories.created", track("exact"))
	bus.Subscribe("categories.deleted", track("other"))
	bus.Subscribe("users.*", track("users"))

	bus.Publish(context.Background(), Event{Name: "categories.created"})

	want := []string{"exact", "resource", "global"}
	if len(order) != len(want) {
		t.Fatalf("handlers called = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestPublish_CarriesPayload(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got Event
	bus.Subscribe("tags.updated", func(ctx context.Context, e Event) error {
		got = e
		return nil
	})

	bus.Publish(context.Background(), Event{
		Name:     "tags.updated",
		Resource: "tags",
		Model:    "Tag",
		Action:   ActionUpdated,
		ID:       record.Int(3),
		Data:     record.Record{"label": record.String("go")},
	})

	if got.Model != "Tag" || !got.ID.Equal(record.Int(3)) {
		t.Errorf("event = %+v", got)
	}
	if !got.Data["label"].Equal(record.String("go")) {
		t.Errorf("data = %v", got.Data)
	}
}

func TestPublish_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var calls int32
	bus.Subscribe("x.created", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	bus.Publish(context.Background(), Event{Name: "x.created"})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var calls int32
	unsubscribe := bus.Subscribe("a.created", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	keep := bus.Subscribe("a.created", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 10)
		return nil
	})
	defer keep()

	unsubscribe()
	unsubscribe()

	bus.Publish(context.Background(), Event{Name: "a.created"})
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
}

func TestHasSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	if bus.HasSubscribers("a.created") {
		t.Error("empty bus should have no subscribers")
	}

	unsubscribe := bus.Subscribe("a.*", func(ctx context.Context, e Event) error { return nil })
	if !bus.HasSubscribers("a.created") {
		t.Error("wildcard subscriber should match")
	}
	if bus.HasSubscribers("b.created") {
		t.Error("a.* should not match b.created")
	}

	unsubscribe()
	if bus.HasSubscribers("a.created") {
		t.Error("unsubscribed handler still matches")
	}
	if len(bus.handlers) != 0 {
		t.Errorf("handlers = %v, want empty map", bus.handlers)
	}
}

func TestPublish_Concurrent(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var calls int64
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		atomic.AddInt64(&calls, 1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe("n.created", func(ctx context.Context, e Event) error { return nil })
			bus.Publish(context.Background(), Event{Name: "n.created"})
			unsub()
		}()
	}
	wg.Wait()

	if calls != 50 {
		t.Errorf("calls = %d, want 50", calls)
	}
}
