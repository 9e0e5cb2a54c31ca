package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	contractsv1 "crystalgive/contracts/gen/events/v1"

	"go.uber.org/goleak"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := NewBus([]string{"localhost:9092"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	return bus
}

func envelope(id string) contractsv1.Envelope {
	return contractsv1.Envelope{EventID: id, EventType: "donation.received", SchemaVersion: 1}
}

func TestPublishRejectsUnroutableEvents(t *testing.T) {
	keyless := envelope("evt-2")
	keyless.PartitionKeyPath = "campaign_id"

	cases := []struct {
		name  string
		topic string
		event contractsv1.Envelope
		want  error
	}{
		{"incomplete envelope", "crowdfunding.events", contractsv1.Envelope{EventID: "evt-1"}, contractsv1.ErrIncompleteEnvelope},
		{"partition path without key", "crowdfunding.events", keyless, contractsv1.ErrMissingPartitionKey},
		{"blank topic", " ", envelope("evt-3"), ErrEmptyTopic},
	}
	bus := newTestBus(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := bus.Publish(context.Background(), tc.topic, tc.event); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan contractsv1.Envelope, 2)
	err := bus.Subscribe(ctx, "crowdfunding.events", "audit", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(ctx, "crowdfunding.events", envelope("evt-1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(ctx, "other.topic", envelope("evt-2")); err != nil {
		t.Fatalf("publish other topic: %v", err)
	}

	select {
	case event := <-received:
		if event.EventID != "evt-1" {
			t.Fatalf("unexpected event %q", event.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
	select {
	case event := <-received:
		t.Fatalf("unexpected delivery from another topic: %q", event.EventID)
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
}

func TestHandlerErrorsDoNotStopDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan string, 2)
	err := bus.Subscribe(ctx, "crowdfunding.events", "audit", func(_ context.Context, event contractsv1.Envelope) error {
		calls <- event.EventID
		return errors.New("handler failed")
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	for _, id := range []string{"evt-1", "evt-2"} {
		if err := bus.Publish(ctx, "crowdfunding.events", envelope(id)); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	for _, want := range []string{"evt-1", "evt-2"} {
		select {
		case got := <-calls:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
	cancel()
}

func TestCancelledSubscriptionIsRemoved(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	if err := bus.Subscribe(ctx, "crowdfunding.events", "audit", func(context.Context, contractsv1.Envelope) error { return nil }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		bus.mu.RLock()
		remaining := len(bus.subscribers["crowdfunding.events"])
		bus.mu.RUnlock()
		if remaining == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber was not removed after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
