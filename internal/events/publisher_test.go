package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

func TestNewEnvelope(t *testing.T) {
	a := NewEnvelope(BookingConfirmed, map[string]int64{"booking_id": 7})
	b := NewEnvelope(BookingConfirmed, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("envelope ids must be unique, got %q and %q", a.ID, b.ID)
	}
	if a.Type != BookingConfirmed || a.OccurredAt.IsZero() {
		t.Fatalf("unexpected envelope: %+v", a)
	}

	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != BookingConfirmed {
		t.Fatalf("type not serialized: %s", raw)
	}
}

func TestRecorderConcurrentPublish(t *testing.T) {
	var rec Recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := ScreeningSubmitted
			if i%2 == 0 {
				key = ScreeningCompleted
			}
			_ = rec.Publish(context.Background(), key, i)
		}(i)
	}
	wg.Wait()

	if rec.Count(ScreeningSubmitted) != 10 || rec.Count(ScreeningCompleted) != 10 {
		t.Fatalf("unexpected counts: %d/%d", rec.Count(ScreeningSubmitted), rec.Count(ScreeningCompleted))
	}
	if err := (Noop{}).Publish(context.Background(), BookingConfirmed, nil); err != nil {
		t.Fatalf("noop must not fail: %v", err)
	}
}
