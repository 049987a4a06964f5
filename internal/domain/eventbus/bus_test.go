package eventbus

import (
	"sync"
	"testing"
	"time"

	"pilotforce-server-go/internal/platform/logging"
)

func TestPublishAsyncDelivers(t *testing.T) {
	bus := New(WithWorkers(2))
	t.Cleanup(bus.Close)

	got := make(chan ResourceEvent, 1)
	err := bus.Subscribe(EventResourceCreated, func(ev ResourceEvent) {
		got <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	bus.PublishAsync(EventResourceCreated, ResourceEvent{
		ResourceID: "res-1",
		BookingID:  "booking-1",
		ObjectKey:  "bookings/booking-1/photo.jpg",
		IsImage:    true,
	})

	select {
	case ev := <-got:
		if ev.ResourceID != "res-1" || !ev.IsImage {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event never delivered")
	}
}

func TestPublishSyncReachesAllSubscribers(t *testing.T) {
	bus := New()
	t.Cleanup(bus.Close)

	var mutex sync.Mutex
	count := 0
	for i := 0; i < 3; i++ {
		if err := bus.Subscribe(EventManifestStored, func(ManifestEvent) {
			mutex.Lock()
			count++
			mutex.Unlock()
		}); err != nil {
			t.Fatalf("Subscribe error: %v", err)
		}
	}

	bus.Publish(EventManifestStored, ManifestEvent{SessionID: "s1"})

	mutex.Lock()
	defer mutex.Unlock()
	if count != 3 {
		t.Fatalf("expected 3 deliveries, got %d", count)
	}
}

func TestPanickingSubscriberDoesNotKillWorker(t *testing.T) {
	bus := New(WithWorkers(1))
	t.Cleanup(bus.Close)

	if err := bus.Subscribe("boom", func() {
		panic("subscriber bug")
	}); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	survived := make(chan struct{}, 1)
	if err := bus.Subscribe("after", func() {
		survived <- struct{}{}
	}); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	bus.PublishAsync("boom")
	bus.PublishAsync("after")

	select {
	case <-survived:
	case <-time.After(time.Second):
		t.Fatalf("worker died after subscriber panic")
	}
}

func TestRegisterAuditLogCoversAllTopics(t *testing.T) {
	bus := New()
	t.Cleanup(bus.Close)

	logger, err := logging.New(logging.Config{Level: "error", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("logging.New error: %v", err)
	}
	if err := RegisterAuditLog(bus, logger); err != nil {
		t.Fatalf("RegisterAuditLog error: %v", err)
	}

	for _, topic := range []string{
		EventResourceCreated,
		EventResourceDeleted,
		EventManifestStored,
		EventGeoTIFFReady,
		EventURLRefreshed,
	} {
		if !bus.HasSubscribers(topic) {
			t.Fatalf("topic %s has no audit subscriber", topic)
		}
	}

	// Deliveries with the real payload types must not panic.
	bus.Publish(EventResourceCreated, ResourceEvent{ResourceID: "res-1"})
	bus.Publish(EventResourceDeleted, ResourceEvent{ResourceID: "res-1"})
	bus.Publish(EventManifestStored, ManifestEvent{SessionID: "s1"})
	bus.Publish(EventGeoTIFFReady, ResourceEvent{ObjectKey: "reassembled/b/f.tif"})
	bus.Publish(EventURLRefreshed, RefreshEvent{Count: 3, Elapsed: time.Millisecond})
}

func TestHasSubscribers(t *testing.T) {
	bus := New()
	t.Cleanup(bus.Close)

	if bus.HasSubscribers(EventGeoTIFFReady) {
		t.Fatalf("expected no subscribers yet")
	}
	handler := func(ManifestEvent) {}
	if err := bus.Subscribe(EventGeoTIFFReady, handler); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if !bus.HasSubscribers(EventGeoTIFFReady) {
		t.Fatalf("expected a subscriber")
	}
	if err := bus.Unsubscribe(EventGeoTIFFReady, handler); err != nil {
		t.Fatalf("Unsubscribe error: %v", err)
	}
}
