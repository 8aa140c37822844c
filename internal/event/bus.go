package event

import (
	"log/slog"
	"sync"
)

type HandlerFunc func(raw any)

// subscriber delivers its queue in publish order on one goroutine at a time.
type subscriber struct {
	handler HandlerFunc

	mu      sync.Mutex
	queue   []delivery
	running bool
}

type delivery struct {
	name string
	evt  any
}

// Bus fans events out to subscribers off the publisher's goroutine. Each
// subscriber sees its events in publish order; a panicking handler is logged,
// not propagated.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*subscriber
	inflight sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]*subscriber),
	}
}

func (b *Bus) Subscribe(eventName string, handler HandlerFunc) {
	b.SubscribeAll([]string{eventName}, handler)
}

// SubscribeAll registers one handler for several events. Events of different
// names still reach it in the order they were published.
func (b *Bus) SubscribeAll(eventNames []string, handler HandlerFunc) {
	sub := &subscriber{handler: handler}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range eventNames {
		b.handlers[name] = append(b.handlers[name], sub)
	}
}

func (b *Bus) Publish(eventName string, evt any) {
	b.mu.RLock()
	subs := make([]*subscriber, len(b.handlers[eventName]))
	copy(subs, b.handlers[eventName])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.inflight.Add(1)
		sub.mu.Lock()
		sub.queue = append(sub.queue, delivery{name: eventName, evt: evt})
		start := !sub.running
		sub.running = true
		sub.mu.Unlock()
		if start {
			go b.drain(sub)
		}
	}
}

func (b *Bus) drain(sub *subscriber) {
	for {
		sub.mu.Lock()
		if len(sub.queue) == 0 {
			sub.running = false
			sub.mu.Unlock()
			return
		}
		d := sub.queue[0]
		sub.queue[0] = delivery{}
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		b.deliver(sub.handler, d)
	}
}

func (b *Bus) deliver(h HandlerFunc, d delivery) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked", "event", d.name, "panic", r)
		}
	}()
	h(d.evt)
}

// Wait blocks until every event published so far has been handled.
func (b *Bus) Wait() {
	b.inflight.Wait()
}
