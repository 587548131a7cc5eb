package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polypredict/dashd/internal/domain"
)

type fakeBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string]chan []byte)}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	ch, ok := b.subs[channel]
	b.mu.Unlock()
	if ok {
		ch <- payload
	}
	return nil
}

func (b *fakeBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 8)
	b.subs[channel] = ch
	return ch, nil
}

func (b *fakeBus) hasSub(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[channel]
	return ok
}

func testHub(bus *fakeBus) *Hub {
	return NewHub(bus, "full", slog.New(slog.DiscardHandler))
}

func TestRun_BroadcastsEnvelopedFrames(t *testing.T) {
	bus := newFakeBus()
	h := testHub(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &client{hub: h, send: make(chan []byte, 1), subs: map[string]bool{domain.ChannelPrices: true}}
	h.register <- c

	require.Eventually(t, func() bool { return bus.hasSub(domain.ChannelPrices) }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(ctx, domain.ChannelPrices, []byte(`{"market_id":1}`)))

	select {
	case frame := <-c.send:
		var env envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		assert.Equal(t, domain.ChannelPrices, env.Channel)
		assert.JSONEq(t, `{"market_id":1}`, string(env.Payload))
	case <-time.After(time.Second):
		t.Fatal("no frame delivered to subscribed client")
	}
}

func TestRun_SkipsUnsubscribedClients(t *testing.T) {
	bus := newFakeBus()
	h := testHub(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &client{hub: h, send: make(chan []byte, 1), subs: map[string]bool{domain.ChannelMarkets: true}}
	h.register <- c

	require.Eventually(t, func() bool { return bus.hasSub(domain.ChannelPrices) }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(ctx, domain.ChannelPrices, []byte(`{}`)))

	select {
	case <-c.send:
		t.Fatal("frame delivered to client not subscribed to the channel")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPump_ExitsOnCancelWhenBroadcastFull(t *testing.T) {
	bus := newFakeBus()
	h := testHub(bus)

	// Fill the broadcast buffer with nobody draining it, as happens when Run
	// has already returned during shutdown.
	for i := 0; i < cap(h.broadcast); i++ {
		h.broadcast <- broadcastMsg{channel: domain.ChannelPrices, data: []byte("x")}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.pump(ctx, domain.ChannelPrices)
	}()

	require.Eventually(t, func() bool { return bus.hasSub(domain.ChannelPrices) }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(ctx, domain.ChannelPrices, []byte("tick")))
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not exit after cancellation")
	}
}
