package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingProvider struct {
	mu      sync.Mutex
	seqs    []uint64
	cleared int
}

func (p *recordingProvider) SetAnnotatedFrame(seq uint64, _ []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seqs = append(p.seqs, seq)
}

func (p *recordingProvider) ClearFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
}

func TestEventBusDeliversInOrder(t *testing.T) {
	bus := NewEventBus()
	var got []uint64
	unsubscribe := bus.Subscribe(EventHandlerFunc(func(ev *Event) {
		got = append(got, ev.Tick.Seq)
	}))

	for i := uint64(1); i <= 5; i++ {
		bus.Publish(&Event{Kind: EventTick, Tick: &TickResult{Seq: i}})
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, got)

	unsubscribe()
	bus.Publish(&Event{Kind: EventTick, Tick: &TickResult{Seq: 6}})
	assert.Len(t, got, 5)
	assert.Zero(t, bus.SubscriberCount())
}

func TestEventBusKindFilter(t *testing.T) {
	bus := NewEventBus()
	var sessions int
	bus.SubscribeKind(EventSession, EventHandlerFunc(func(ev *Event) { sessions++ }))

	bus.Publish(&Event{Kind: EventTick, Tick: &TickResult{}})
	bus.Publish(&Event{Kind: EventSession, Session: &Snapshot{}})
	bus.Publish(nil)
	assert.Equal(t, 1, sessions)
}

func TestEventBusChannelDropsWhenFull(t *testing.T) {
	bus := NewEventBus()
	ch, unsubscribe := bus.SubscribeChannel(1)

	bus.Publish(&Event{Kind: EventTick, Tick: &TickResult{Seq: 1}})
	bus.Publish(&Event{Kind: EventTick, Tick: &TickResult{Seq: 2}})

	ev := <-ch
	assert.Equal(t, uint64(1), ev.Tick.Seq)

	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
	unsubscribe()
}

func TestEventBusClose(t *testing.T) {
	bus := NewEventBus()
	ch, _ := bus.SubscribeChannel(1)
	bus.Close()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, bus.SubscriberCount())
}

func TestStreamingBridge(t *testing.T) {
	first := &recordingProvider{}
	bridge := NewStreamingBridge(first)
	second := &recordingProvider{}
	bridge.AddProvider(second)

	bridge.OnEvent(&Event{Kind: EventTick, Tick: &TickResult{Seq: 7, ImageData: []byte{1}}})
	bridge.OnEvent(&Event{Kind: EventTick, Tick: &TickResult{Seq: 8}}) // nothing rendered
	bridge.OnEvent(&Event{Kind: EventSession, Session: &Snapshot{Running: true}})
	bridge.OnEvent(&Event{Kind: EventSession, Session: &Snapshot{Running: false}})

	for _, p := range []*recordingProvider{first, second} {
		assert.Equal(t, []uint64{7}, p.seqs)
		assert.Equal(t, 1, p.cleared)
	}
}
