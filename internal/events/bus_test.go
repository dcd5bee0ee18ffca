package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/spooldock/spooldock/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvEvent(t *testing.T, ch <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func seqOf(t *testing.T, evt Event) int {
	t.Helper()
	var body struct {
		Seq int `json:"seq"`
	}
	if err := json.Unmarshal(evt.Payload, &body); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return body.Seq
}

func TestHubDeliversToBroadcastAndInstanceKeys(t *testing.T) {
	hub := NewHub(mustTestLogger(t))

	broadcast := hub.NewClient()
	hub.Subscribe(broadcast, BroadcastKey("spool"))
	instance := hub.NewClient()
	hub.Subscribe(instance, InstanceKey("spool", "7"))
	other := hub.NewClient()
	hub.Subscribe(other, InstanceKey("spool", "8"))

	hub.Publish(EventUpdated, "spool", "7", map[string]any{"seq": 1})

	got := recvEvent(t, broadcast.Outbound, time.Second)
	if got.Type != EventUpdated || got.Resource != "spool" {
		t.Fatalf("broadcast got type=%s resource=%s", got.Type, got.Resource)
	}
	got = recvEvent(t, instance.Outbound, time.Second)
	if seqOf(t, got) != 1 {
		t.Fatalf("instance subscriber got wrong payload")
	}

	select {
	case evt := <-other.Outbound:
		t.Fatalf("subscriber on spool/8 should not receive spool/7 event, got %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubPerKeyOrdering(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	client := hub.NewClient()
	hub.Subscribe(client, BroadcastKey("filament"))

	for i := 1; i <= 5; i++ {
		hub.Publish(EventUpdated, "filament", "3", map[string]any{"seq": i})
	}
	for i := 1; i <= 5; i++ {
		if got := seqOf(t, recvEvent(t, client.Outbound, time.Second)); got != i {
			t.Fatalf("delivery order broken: want seq=%d got=%d", i, got)
		}
	}
}

func TestHubSubscriberOnBothKeysReceivesTwoCopies(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	client := hub.NewClient()
	hub.Subscribe(client, BroadcastKey("vendor"))
	hub.Subscribe(client, InstanceKey("vendor", "2"))

	hub.Publish(EventAdded, "vendor", "2", map[string]any{"seq": 1})

	recvEvent(t, client.Outbound, time.Second)
	recvEvent(t, client.Outbound, time.Second)
}

func TestHubFullBufferDropsDeliveryWithoutBlocking(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	client := hub.NewClient()
	hub.Subscribe(client, BroadcastKey("spool"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(client.Outbound)+10; i++ {
			hub.Publish(EventUpdated, "spool", "1", map[string]any{"seq": i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}

func TestHubCloseClientDetachesAndCloses(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	client := hub.NewClient()
	hub.Subscribe(client, BroadcastKey("spool"))
	hub.Subscribe(client, InstanceKey("spool", "1"))

	hub.CloseClient(client)
	// Close is idempotent.
	hub.CloseClient(client)

	select {
	case _, ok := <-client.Outbound:
		if ok {
			t.Fatalf("outbound should be closed after detach")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for channel close")
	}

	// A publish after detach must not panic on the closed channel.
	hub.Publish(EventUpdated, "spool", "1", map[string]any{"seq": 1})
}
