// Package events delivers lifecycle events to a sink without ever
// blocking the producers. A full buffer drops the event and counts it.
package events

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"quintos/internal/domain"
	"quintos/internal/port"
)

const writeTimeout = 5 * time.Second

// Emitter fans events from producers to a single sink goroutine.
type Emitter struct {
	sink port.EventSink
	ch   chan *domain.SystemEvent
	done chan struct{}

	dropped   atomic.Int64
	closeOnce sync.Once
}

// NewEmitter starts the delivery goroutine. bufferSize bounds how many
// events may be in flight before Emit starts dropping.
func NewEmitter(sink port.EventSink, bufferSize int) *Emitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	e := &Emitter{
		sink: sink,
		ch:   make(chan *domain.SystemEvent, bufferSize),
		done: make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit queues an event for delivery. Never blocks: a full buffer drops
// the event. Missing ID and CreatedAt are filled in here so producers
// can build bare events.
func (e *Emitter) Emit(ev *domain.SystemEvent) {
	if ev == nil {
		return
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	select {
	case e.ch <- ev:
	default:
		if n := e.dropped.Add(1); n%100 == 1 {
			log.Printf("events.Emitter: buffer full, %d events dropped so far", n)
		}
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops accepting events and drains what is already buffered.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() {
		close(e.ch)
		<-e.done
	})
}

func (e *Emitter) run() {
	defer close(e.done)
	for ev := range e.ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := e.sink.Write(ctx, ev); err != nil {
			log.Printf("events.Emitter: sink write failed for %s: %v", ev.EventType, err)
		}
		cancel()
	}
}
