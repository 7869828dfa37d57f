package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feichai0017/content-analyzer/config"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

const channelPrefix = "progress:"

// publishTimeout bounds a single Publish so a slow broker cannot stall a run
const publishTimeout = 2 * time.Second

// Publisher fans progress events out to remote observers
type Publisher interface {
	Publish(ctx context.Context, state models.ProgressState) error
	Close() error
}

type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher sends every event on the Redis channel progress:<runId>.
// Nothing is stored; subscribers that join late miss earlier events.
type RedisPublisher struct {
	client redisClient
	logger logger.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisPublisher(client, log), nil
}

func newRedisPublisher(client redisClient, log logger.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: log.Named("progress")}
}

// Channel returns the pub/sub channel for a run
func Channel(runID string) string {
	return channelPrefix + runID
}

func (p *RedisPublisher) Publish(ctx context.Context, state models.ProgressState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(state.RunID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}
	return nil
}

// Observer adapts the publisher to the pipeline's observer signature.
// Publish failures are logged and never interrupt extraction.
func (p *RedisPublisher) Observer(ctx context.Context) func(models.ProgressState) {
	return func(state models.ProgressState) {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := p.Publish(pubCtx, state); err != nil {
			p.logger.Warn("Dropped progress event",
				logger.String("runId", state.RunID),
				logger.Int("page", state.CurrentPage),
				logger.Error(err),
			)
		}
	}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
