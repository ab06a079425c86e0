package events

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DefaultSubscriberBuffer is the per-subscriber queue depth.
const DefaultSubscriberBuffer = 256

// Handler consumes a delivered event.
type Handler func(Event)

type subscriber struct {
	id       uint64
	name     string
	category Category
	ch       chan Event
	handler  Handler
}

// Bus is a bounded publish/subscribe channel per event category.
//
// Every subscriber owns a buffered queue drained by its own goroutine, so a
// slow or failing subscriber never blocks Publish or other subscribers. When a
// queue is full the event is dropped for that subscriber and the drop is logged.
type Bus struct {
	mu         sync.RWMutex
	subs       map[Category]map[uint64]*subscriber
	nextID     uint64
	bufferSize int
	closed     bool
	wg         sync.WaitGroup
	dropped    atomic.Int64
	failures   atomic.Int64
	log        zerolog.Logger
}

// NewBus creates an event bus. bufferSize <= 0 uses DefaultSubscriberBuffer.
func NewBus(bufferSize int, log zerolog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriberBuffer
	}
	return &Bus{
		subs:       make(map[Category]map[uint64]*subscriber),
		bufferSize: bufferSize,
		log:        log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus      *Bus
	id       uint64
	category Category
	once     sync.Once
}

// Unsubscribe stops delivery and releases the subscriber goroutine.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.category, s.id)
	})
}

// Subscribe registers handler for a category (or CategoryAll). name labels the
// subscriber in logs.
func (b *Bus) Subscribe(category Category, name string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.log.Warn().Str("subscriber", name).Msg("Subscribe on closed bus ignored")
		return &Subscription{}
	}

	b.nextID++
	sub := &subscriber{
		id:       b.nextID,
		name:     name,
		category: category,
		ch:       make(chan Event, b.bufferSize),
		handler:  handler,
	}

	if b.subs[category] == nil {
		b.subs[category] = make(map[uint64]*subscriber)
	}
	b.subs[category][sub.id] = sub

	b.wg.Add(1)
	go b.run(sub)

	b.log.Debug().
		Str("subscriber", name).
		Str("category", string(category)).
		Msg("Subscriber registered")

	return &Subscription{bus: b, id: sub.id, category: category}
}

// Publish enqueues the event for every subscriber of its category and for
// CategoryAll subscribers. It never blocks.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	b.deliver(b.subs[event.Category], event)
	if event.Category != CategoryAll {
		b.deliver(b.subs[CategoryAll], event)
	}
}

func (b *Bus) deliver(subs map[uint64]*subscriber, event Event) {
	for _, sub := range subs {
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
			b.log.Warn().
				Str("subscriber", sub.name).
				Str("event_type", string(event.Type)).
				Msg("Subscriber queue full, dropping event")
		}
	}
}

func (b *Bus) run(sub *subscriber) {
	defer b.wg.Done()
	for event := range sub.ch {
		b.dispatch(sub, event)
	}
}

func (b *Bus) dispatch(sub *subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.failures.Add(1)
			b.log.Error().
				Interface("panic", r).
				Str("subscriber", sub.name).
				Str("event_type", string(event.Type)).
				Msg("Subscriber failed handling event")
		}
	}()
	sub.handler(event)
}

func (b *Bus) remove(category Category, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[category]
	sub, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	close(sub.ch)
}

// SubscriberCount returns the number of live subscribers across categories.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

// Dropped returns how many deliveries were discarded because a queue was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Failures returns how many handler invocations panicked.
func (b *Bus) Failures() int64 {
	return b.failures.Load()
}

// Close stops accepting events and waits for subscribers to drain their queues.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for category, subs := range b.subs {
		for id, sub := range subs {
			close(sub.ch)
			delete(subs, id)
		}
		delete(b.subs, category)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.log.Info().Msg("Event bus closed")
}
