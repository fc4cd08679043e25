package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/persistence/file"
	"github.com/dukex/autoflow/pkg/persistence/memory"
	"github.com/dukex/autoflow/pkg/persistence/postgresql"
	"github.com/dukex/autoflow/pkg/persistence/redis"
	goredis "github.com/redis/go-redis/v9"
)

var supportedPersistenceProviders = []string{"file", "memory", "postgres", "postgresql", "redis"}

var ErrUnsupportedProvider = errors.New("unsupported persistence provider")

// NewPersistence opens the backend named by databaseURL's scheme. A redis:// queueURL
// moves the job queue and the entity store to Redis.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL, queueURL string) (persistence.Persistence, error) {
	base, err := newBasePersistence(ctx, logger, databaseURL)
	if err != nil {
		return nil, err
	}

	if queueURL == "" {
		return base, nil
	}

	if parsePersistenceProvider(queueURL) != "redis" {
		_ = base.Close(ctx)

		return nil, fmt.Errorf("%w for queue: %s", ErrUnsupportedProvider, queueURL)
	}

	client, err := redis.NewClient(ctx, queueURL)
	if err != nil {
		_ = base.Close(ctx)

		return nil, err
	}

	logger.InfoContext(ctx, "Using Redis for the job queue and entity store")

	return &redisOverlay{
		Persistence: base,
		client:      client,
		queue:       redis.NewQueueRepository(client, redis.DefaultPrefix),
		entities:    redis.NewEntityStore(client, redis.DefaultPrefix),
	}, nil
}

func newBasePersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		pg, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return pg, nil
	case "memory":
		return memory.NewPersistence(), nil
	case "redis":
		return nil, fmt.Errorf("%w: redis only serves the queue, use --queue-url", ErrUnsupportedProvider)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}

// redisOverlay replaces the queue and entity store of a base backend.
type redisOverlay struct {
	persistence.Persistence

	client   *goredis.Client
	queue    persistence.QueueRepository
	entities persistence.EntityStore
}

func (p *redisOverlay) QueueRepository() persistence.QueueRepository {
	return p.queue
}

func (p *redisOverlay) EntityStore() persistence.EntityStore {
	return p.entities
}

func (p *redisOverlay) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return p.Persistence.HealthCheck(ctx)
}

func (p *redisOverlay) Close(ctx context.Context) error {
	return errors.Join(p.client.Close(), p.Persistence.Close(ctx))
}
