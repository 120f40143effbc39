package detections

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/fftdetect/pkg/domain"
	"github.com/aescanero/fftdetect/pkg/ports"
)

// Rejection reasons reported to metrics
const (
	RejectMissingFields = "missing_fields"
	RejectInvalidBody   = "invalid_body"
	RejectInternal      = "internal"
)

// Recorder validates and records detections
type Recorder struct {
	journal   ports.DetectionJournal
	publisher ports.EventPublisher
	metrics   ports.DetectionMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecorder creates a recorder. publisher may be nil when no event sink
// is configured.
func NewRecorder(
	journal ports.DetectionJournal,
	publisher ports.EventPublisher,
	metrics ports.DetectionMetrics,
	logger *zap.Logger,
) *Recorder {
	return &Recorder{
		journal:   journal,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Decode parses a request body, counting undecodable bodies as rejections
func (r *Recorder) Decode(body []byte) (*Request, error) {
	req, err := DecodeRequest(body)
	if err != nil {
		r.metrics.RecordRejection(RejectInvalidBody)
		return nil, err
	}
	return req, nil
}

// Record validates req and records the resulting detection for a client.
// A *ValidationError is returned when required fields are missing; a truthy
// field that is not a number yields a plain error.
func (r *Recorder) Record(ctx context.Context, req *Request, clientIP string) (domain.Detection, error) {
	if err := Validate(req); err != nil {
		r.metrics.RecordRejection(RejectMissingFields)
		return domain.Detection{}, err
	}

	frequency, magnitude, err := req.Values()
	if err != nil {
		r.metrics.RecordRejection(RejectInvalidBody)
		return domain.Detection{}, err
	}

	receivedAt := domain.FormatTimestamp(r.now())

	// An explicit null timestamp falls back to server time like an absent one
	timestamp := receivedAt
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	d := domain.Detection{
		Frequency:  frequency,
		Magnitude:  magnitude,
		Timestamp:  timestamp,
		ReceivedAt: receivedAt,
		ClientIP:   clientIP,
	}

	r.logger.Info(fmt.Sprintf("Detection received - Frequency: %v Hz, Magnitude: %v, Client: %s",
		d.Frequency, d.Magnitude, d.ClientIP))

	if err := r.journal.AppendDetection(d); err != nil {
		r.metrics.RecordRejection(RejectInternal)
		return domain.Detection{}, fmt.Errorf("failed to journal detection: %w", err)
	}

	r.metrics.RecordDetection(d.Frequency, d.Magnitude)

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, d); err != nil {
			r.logger.Warn("failed to publish detection",
				zap.String("client_ip", clientIP),
				zap.Error(err))
		}
	}

	return d, nil
}
