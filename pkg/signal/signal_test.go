package signal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/howcatalog/pkg/substrate"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(4)
	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	s := Signal{Hash: substrate.Address{1}, Message: Message{Type: NewUnit}}
	require.NoError(t, bus.Emit(context.Background(), s))

	assert.Equal(t, s, <-a)
	assert.Equal(t, s, <-b)
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	ctx := context.Background()
	require.NoError(t, bus.Emit(ctx, Signal{Hash: substrate.Address{1}}))
	require.NoError(t, bus.Emit(ctx, Signal{Hash: substrate.Address{2}}))

	assert.Equal(t, substrate.Address{1}, (<-ch).Hash)
	assert.Empty(t, ch)
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	require.NoError(t, bus.Emit(context.Background(), Signal{}))
}

type failing struct{ err error }

func (f failing) Emit(context.Context, Signal) error { return f.err }

func TestMultiStopsAtFirstError(t *testing.T) {
	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	boom := errors.New("boom")
	err := Multi{bus, failing{boom}, Nop{}}.Emit(context.Background(), Signal{Hash: substrate.Address{3}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, substrate.Address{3}, (<-ch).Hash)
}
