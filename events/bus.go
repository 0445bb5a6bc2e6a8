package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is the notification shape shared by the registry, the print spooler
// and the daemon's WebSocket bridge. Data carries the payload for the event
// type: a device list for devices-detected, a ScanResult for barcode-scanned,
// a job record for job-completed, and so on. Payloads must be JSON-friendly
// because the bridge forwards events to clients verbatim.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Event type constants. These names are the external contract; the POS
// front-end switches on them.
const (
	EventDevicesDetected  = "devices-detected"
	EventScannerConnected = "scanner-connected"
	EventScannerError     = "scanner-error"
	EventBarcodeScanned   = "barcode-scanned"
	EventPrinterConnected = "printer-connected"
	EventPrinterError     = "printer-error"
	EventJobCompleted     = "job-completed"
	EventJobFailed        = "job-failed"
)

// Bus fans events out to named subscribers. Broadcast never blocks: if a
// subscriber's channel is full the event is dropped for that subscriber and
// counted. Device callbacks publish here instead of mutating shared state.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string]chan Event
	register   chan subscription
	unregister chan string
	broadcast  chan Event
	shutdown   chan struct{}
	stopOnce   sync.Once
	dropped    atomic.Uint64
}

type subscription struct {
	id string
	ch chan Event
}

// NewBus creates and starts a Bus.
func NewBus() *Bus {
	b := &Bus{
		subs:       make(map[string]chan Event),
		register:   make(chan subscription),
		unregister: make(chan string),
		broadcast:  make(chan Event, 100),
		shutdown:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			if old, ok := b.subs[sub.id]; ok {
				close(old)
			}
			b.subs[sub.id] = sub.ch
			b.mu.Unlock()
		case id := <-b.unregister:
			b.mu.Lock()
			if ch, ok := b.subs[id]; ok {
				close(ch)
				delete(b.subs, id)
			}
			b.mu.Unlock()
		case ev := <-b.broadcast:
			b.mu.RLock()
			for _, ch := range b.subs {
				select {
				case ch <- ev:
				default:
					b.dropped.Add(1)
				}
			}
			b.mu.RUnlock()
		case <-b.shutdown:
			b.mu.Lock()
			for id, ch := range b.subs {
				close(ch)
				delete(b.subs, id)
			}
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe registers a named subscriber and returns its receive channel.
// The channel is closed on Unsubscribe or Stop. A zero buffer is allowed but
// such a subscriber only sees events it is already waiting for.
func (b *Bus) Subscribe(id string, buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	select {
	case b.register <- subscription{id: id, ch: ch}:
	case <-b.shutdown:
		close(ch)
	}
	return ch
}

// Unsubscribe removes the named subscriber and closes its channel.
// Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	select {
	case b.unregister <- id:
	case <-b.shutdown:
	}
}

// Publish broadcasts an event to all subscribers (non-blocking per subscriber).
func (b *Bus) Publish(eventType string, data interface{}) {
	ev := Event{Type: eventType, Data: data, Timestamp: time.Now()}
	select {
	case b.broadcast <- ev:
	default:
		b.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because a subscriber or the
// broadcast queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Stop shuts the bus down and closes all subscriber channels.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.shutdown)
	})
}
