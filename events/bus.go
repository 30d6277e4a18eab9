package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sink receives events from the bus on its worker goroutine.
type Sink interface {
	Handle(ctx context.Context, event Event)
}

// Bus is a bounded fire-and-forget publisher. Publish never blocks:
// when the queue is full the event is dropped and logged.
type Bus struct {
	queue chan Event
	sinks []Sink
	done  chan struct{}
}

func NewBus(queueSize int, sinks ...Sink) *Bus {
	if queueSize <= 0 {
		queueSize = 256
	}
	b := &Bus{
		queue: make(chan Event, queueSize),
		sinks: sinks,
		done:  make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	select {
	case b.queue <- event:
	default:
		log.Printf("⚠️  Event queue full, dropping %s", event.Type)
	}
}

// Close stops the worker after draining queued events.
func (b *Bus) Close() {
	close(b.queue)
	<-b.done
}

func (b *Bus) run() {
	defer close(b.done)
	for event := range b.queue {
		for _, sink := range b.sinks {
			b.deliver(sink, event)
		}
	}
}

func (b *Bus) deliver(sink Sink, event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sink.Handle(ctx, event)
}

// RedisSink publishes events to a Redis channel for other processes.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Handle(ctx context.Context, event Event) {
	if s.client == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Event marshal error: %v", err)
		return
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		log.Printf("⚠️  Redis publish failed for %s: %v", event.Type, err)
	}
}
