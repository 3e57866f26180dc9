package bus

import (
	"sync"

	"github.com/jkaberg/saj-hass/internal/sensors"
)

// Bus provides fan-out pub/sub semantics for *sensors.Snapshot* messages.
// Each Subscribe call gets its own channel that receives every future
// publication. Past messages are not replayed. The implementation is safe for
// concurrent publishers and subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan *sensors.Snapshot
	closed      bool
}

// New creates a ready-to-use Bus.
func New() *Bus { return &Bus{} }

// Subscribe returns a read-only channel that will receive all future
// snapshots. The channel is closed by Close.
func (b *Bus) Subscribe() <-chan *sensors.Snapshot {
	ch := make(chan *sensors.Snapshot, 1) // small buffer avoids blocking
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish delivers the snapshot to all subscribers without blocking. A
// subscriber that is still busy with the previous snapshot skips this one.
func (b *Bus) Publish(s *sensors.Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}

// Close closes every subscriber channel. Publishing afterwards is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
