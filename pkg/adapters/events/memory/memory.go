package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/aescanero/fftdetect/pkg/domain"
)

// Hub fans detections out to in-process subscribers
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan domain.Detection
	nextID      uint64
	closed      bool

	buffer int
	logger *zap.Logger
}

// NewHub creates a hub whose subscriber channels hold up to buffer events
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subscribers: make(map[uint64]chan domain.Detection),
		buffer:      buffer,
		logger:      logger,
	}
}

// Publish delivers d to every subscriber without blocking. Subscribers whose
// buffer is full miss the event.
func (h *Hub) Publish(ctx context.Context, d domain.Detection) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- d:
		default:
			h.logger.Warn("subscriber channel full, dropping detection",
				zap.Uint64("subscriber", id),
				zap.String("received_at", d.ReceivedAt))
		}
	}

	return nil
}

// Subscribe registers a subscriber until ctx is done. The returned channel
// is closed when the subscription ends or the hub is closed.
func (h *Hub) Subscribe(ctx context.Context) <-chan domain.Detection {
	ch := make(chan domain.Detection, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unsubscribe(id)
	}()

	return ch
}

// Subscribers returns the number of active subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close ends every subscription
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
	h.closed = true
	return nil
}

// unsubscribe removes and closes a subscriber channel
func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}
