package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/aescanero/fftdetect/pkg/domain"
	"github.com/aescanero/fftdetect/pkg/ports"
)

// Sink is a named publisher
type Sink struct {
	Name      string
	Publisher ports.EventPublisher
}

// Multi publishes every event to all of its sinks
type Multi struct {
	sinks     []Sink
	onFailure func(sink string)
}

// NewMulti creates a publisher fanning out to sinks. onFailure, when not
// nil, is called with the sink name for every failed publish.
func NewMulti(onFailure func(sink string), sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, onFailure: onFailure}
}

// Publish hands d to every sink and joins their errors. A failing sink does
// not stop delivery to the others.
func (m *Multi) Publish(ctx context.Context, d domain.Detection) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publisher.Publish(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			if m.onFailure != nil {
				m.onFailure(s.Name)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
