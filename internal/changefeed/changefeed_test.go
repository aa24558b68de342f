package changefeed

import (
	"context"
	"testing"
)

func TestLocalFansOutToEverySubscriber(t *testing.T) {
	feed := NewLocal()
	var a, b []Change
	feed.Subscribe(func(ch Change) { a = append(a, ch) })
	feed.Subscribe(func(ch Change) { b = append(b, ch) })

	if err := feed.Publish(context.Background(), Change{Resource: "grants", Action: ActionCreated, ID: 7}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one delivery each, got %d and %d", len(a), len(b))
	}
	if a[0].ID != 7 || a[0].At.IsZero() {
		t.Fatalf("unexpected change %+v", a[0])
	}
}

func TestLocalSurvivesPanickingSubscriber(t *testing.T) {
	feed := NewLocal()
	delivered := false
	feed.Subscribe(func(Change) { panic("boom") })
	feed.Subscribe(func(Change) { delivered = true })

	_ = feed.Publish(context.Background(), Change{Resource: "events", Action: ActionDeleted})
	if !delivered {
		t.Fatalf("second subscriber was not called")
	}
}
