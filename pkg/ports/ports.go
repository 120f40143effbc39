// Package ports declares the interfaces the application layer depends on.
// Adapters under pkg/adapters implement them.
package ports

import (
	"context"

	"github.com/aescanero/fftdetect/pkg/domain"
)

// EventPublisher forwards recorded detections to a sink
type EventPublisher interface {
	// Publish hands a detection to the sink. It must not block on slow
	// consumers.
	Publish(ctx context.Context, d domain.Detection) error

	// Close releases resources owned by the publisher
	Close() error
}

// DetectionJournal appends accepted detections to durable text storage
type DetectionJournal interface {
	AppendDetection(d domain.Detection) error
}

// DetectionMetrics receives detection counters
type DetectionMetrics interface {
	RecordDetection(frequency, magnitude float64)
	RecordRejection(reason string)
}

// HostProbe reports host facts for the health endpoint
type HostProbe interface {
	NetworkInfo() (domain.NetworkInfo, error)
	Memory(ctx context.Context) (domain.MemoryStats, error)
	BootTime(ctx context.Context) (uint64, error)
}
