package pipeline

import (
	"sync"
)

// StreamingBridge forwards rendered frames from the bus to stream providers
type StreamingBridge struct {
	providers []StreamProvider
	mu        sync.RWMutex
}

// NewStreamingBridge creates a new streaming bridge
func NewStreamingBridge(providers ...StreamProvider) *StreamingBridge {
	return &StreamingBridge{
		providers: providers,
	}
}

// AddProvider adds a stream provider to the bridge
func (b *StreamingBridge) AddProvider(provider StreamProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, provider)
}

// OnEvent implements EventHandler. Ticks push their rendered frame; a
// session that is no longer running clears the providers.
func (b *StreamingBridge) OnEvent(ev *Event) {
	if ev == nil {
		return
	}

	b.mu.RLock()
	providers := b.providers
	b.mu.RUnlock()

	for _, provider := range providers {
		if provider == nil {
			continue
		}

		switch ev.Kind {
		case EventTick:
			if ev.Tick != nil && len(ev.Tick.ImageData) > 0 {
				provider.SetAnnotatedFrame(ev.Tick.Seq, ev.Tick.ImageData)
			}
		case EventSession:
			if ev.Session != nil && !ev.Session.Running {
				provider.ClearFrame()
			}
		}
	}
}

// Ensure StreamingBridge implements EventHandler
var _ EventHandler = (*StreamingBridge)(nil)
