package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/fftdetect/pkg/domain"
)

// StreamsPublisher forwards detections to a Redis Stream
type StreamsPublisher struct {
	client *redis.Client
	logger *zap.Logger
	stream string
	maxLen int64
}

// NewStreamsPublisher creates a publisher appending to stream. A positive
// maxLen trims the stream approximately to that many entries.
func NewStreamsPublisher(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamsPublisher {
	return &StreamsPublisher{
		client: client,
		logger: logger,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish appends d to the stream as a JSON "data" field
func (p *StreamsPublisher) Publish(ctx context.Context, d domain.Detection) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal detection: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	p.logger.Debug("detection forwarded",
		zap.String("stream", p.stream),
		zap.String("message_id", id))

	return nil
}

// Close is a no-op; the Redis client is closed by its owner
func (p *StreamsPublisher) Close() error {
	return nil
}
