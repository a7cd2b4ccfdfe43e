package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ishmeetPD247/PD247-code-share/internal/metrics"
)

const fanoutChannel = "codeshare:updates"

// fanoutEvent is the cross-instance update notification. It carries only
// the mutated path; receivers re-read the snapshot from the shared store.
type fanoutEvent struct {
	Origin string `json:"origin"`
	Path   string `json:"path"`
}

// RedisFanout bridges accepted writes between server instances over Redis
// pub/sub so subscribers converge no matter which instance took the write.
type RedisFanout struct {
	client *redis.Client
	origin string
	logger zerolog.Logger
	cancel context.CancelFunc
}

// NewRedisFanout connects to Redis and verifies the connection.
func NewRedisFanout(ctx context.Context, redisURL string, logger zerolog.Logger) (*RedisFanout, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisFanout{
		client: client,
		origin: uuid.New().String(),
		logger: logger,
	}, nil
}

// Close stops the listen loop and closes the Redis connection.
func (f *RedisFanout) Close() error {
	if f.cancel != nil {
		f.cancel()
	}
	return f.client.Close()
}

// Ping checks the Redis connection.
func (f *RedisFanout) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

// Client exposes the underlying Redis client for the rate limiter.
func (f *RedisFanout) Client() *redis.Client {
	return f.client
}

// Notify publishes an update event. Best effort: a lost event only delays
// remote subscribers until the next write to the same path.
func (f *RedisFanout) Notify(ctx context.Context, path string) {
	data, err := json.Marshal(fanoutEvent{Origin: f.origin, Path: path})
	if err != nil {
		return
	}
	if err := f.client.Publish(ctx, fanoutChannel, data).Err(); err != nil {
		f.logger.Warn().Err(err).Str("path", path).Msg("fanout publish failed")
		return
	}
	metrics.FanoutEvents.WithLabelValues("sent").Inc()
}

// Listen starts the subscription loop, invoking apply for every event that
// originated on another instance.
func (f *RedisFanout) Listen(apply func(path string)) {
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	pubsub := f.client.Subscribe(ctx, fanoutChannel)

	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var ev fanoutEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					f.logger.Warn().Err(err).Msg("bad fanout event")
					continue
				}
				if ev.Origin == f.origin {
					continue
				}
				metrics.FanoutEvents.WithLabelValues("received").Inc()
				apply(ev.Path)
			}
		}
	}()
}
