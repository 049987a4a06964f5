package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

const (
	defaultWorkers = 10
	queueCapacity  = 1000
)

// Bus wraps a topic bus with a worker pool so publishers never block on
// slow subscribers. PublishAsync drops events when the queue is full
// rather than stalling the request path.
type Bus struct {
	inner    evbus.Bus
	workers  int
	queue    chan asyncEvent
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  func(topic string)
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

// Option tweaks bus construction.
type Option func(*Bus)

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithDropCallback is invoked when a full queue forces an event drop.
func WithDropCallback(fn func(topic string)) Option {
	return func(b *Bus) {
		b.dropped = fn
	}
}

func New(opts ...Option) *Bus {
	b := &Bus{
		inner:   evbus.New(),
		workers: defaultWorkers,
		queue:   make(chan asyncEvent, queueCapacity),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stop:
			return
		case event := <-b.queue:
			b.deliver(event)
		}
	}
}

func (b *Bus) deliver(event asyncEvent) {
	defer func() {
		// A panicking subscriber must not take the worker down.
		_ = recover()
	}()
	b.inner.Publish(event.topic, event.args...)
}

// Publish delivers an event synchronously to all subscribers.
func (b *Bus) Publish(topic string, args ...interface{}) {
	b.inner.Publish(topic, args...)
}

// PublishAsync queues an event for worker delivery without blocking.
func (b *Bus) PublishAsync(topic string, args ...interface{}) {
	select {
	case b.queue <- asyncEvent{topic: topic, args: args}:
	default:
		if b.dropped != nil {
			b.dropped(topic)
		}
	}
}

// Subscribe registers fn for the topic.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.inner.Subscribe(topic, fn)
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.inner.Unsubscribe(topic, fn)
}

// HasSubscribers reports whether anyone listens on the topic.
func (b *Bus) HasSubscribers(topic string) bool {
	return b.inner.HasCallback(topic)
}

// Close stops the workers. Queued events not yet delivered are discarded.
func (b *Bus) Close() {
	b.stopOnce.Do(func() {
		close(b.stop)
	})
	b.wg.Wait()
}
