// Package signal carries fire-and-forget notifications about new
// catalog entries. Delivery is best effort: there is no acknowledgement
// and no ordering guarantee relative to later catalog operations.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/nainya/howcatalog/pkg/substrate"
)

// Message types
const (
	NewUnit     = "NewUnit"
	NewDocument = "NewDocument"
)

// Message is the payload of a signal.
type Message struct {
	Type   string            `json:"type"`
	Record *substrate.Record `json:"record"`
}

// Signal announces an entry by its content address.
type Signal struct {
	Hash    substrate.Address `json:"hash"`
	Message Message           `json:"message"`
}

// Emitter delivers signals.
type Emitter interface {
	Emit(ctx context.Context, s Signal) error
}

// Nop discards every signal.
type Nop struct{}

func (Nop) Emit(context.Context, Signal) error { return nil }

// Bus fans signals out to in-process subscribers. A subscriber whose
// buffer is full misses the signal; Emit never blocks.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Signal
	next   int
	buffer int
}

// NewBus creates a bus whose subscriber channels hold buffer signals.
func NewBus(buffer int) *Bus {
	return &Bus{subs: make(map[int]chan Signal), buffer: buffer}
}

// Subscribe returns a channel of signals and a function that ends the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Signal, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Signal, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Emit(_ context.Context, s Signal) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
	return nil
}

// RedisPublisher publishes signals as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher publishes on channel through client.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Emit(ctx context.Context, s Signal) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish signal to %s: %w", p.channel, err)
	}
	return nil
}

// Multi emits to every emitter in order and returns the first error.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, s Signal) error {
	for _, e := range m {
		if err := e.Emit(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
