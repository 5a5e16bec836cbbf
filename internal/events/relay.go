package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// Channel is the Redis pub/sub channel carrying match status changes.
const Channel = "match_events"

const defaultBatch = 100

// Outbox is the unpublished side of the match_events table.
type Outbox interface {
	ListUnpublished(ctx context.Context, limit int) ([]*models.MatchEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publishes through a go-redis client.
type RedisPublisher struct {
	Client *redis.Client
}

func (p RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.Client.Publish(ctx, channel, payload).Err()
}

// Connect establishes a connection to Redis.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Relay moves committed outbox rows to subscribers. Delivery is at least
// once: a row is marked published only after Publish succeeded.
type Relay struct {
	Outbox    Outbox
	Publisher Publisher
	Channel   string
	BatchSize int
	Logger    *slog.Logger

	sched gocron.Scheduler
}

func NewRelay(outbox Outbox, pub Publisher, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{Outbox: outbox, Publisher: pub, Channel: Channel, BatchSize: defaultBatch, Logger: logger}
}

// RelayOnce publishes one batch in id order and returns how many rows were
// marked published. It stops at the first publish failure.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	batch, err := r.Outbox.ListUnpublished(ctx, r.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unpublished events: %w", err)
	}

	var sent []int64
	var pubErr error
	for _, e := range batch {
		payload, err := json.Marshal(e)
		if err != nil {
			pubErr = fmt.Errorf("encode event %d: %w", e.ID, err)
			break
		}
		if err := r.Publisher.Publish(ctx, r.Channel, payload); err != nil {
			pubErr = fmt.Errorf("publish event %d: %w", e.ID, err)
			break
		}
		sent = append(sent, e.ID)
	}

	if len(sent) > 0 {
		if err := r.Outbox.MarkPublished(ctx, sent); err != nil {
			return 0, fmt.Errorf("mark events published: %w", err)
		}
	}
	return len(sent), pubErr
}

// Start runs RelayOnce every interval until Stop.
func (r *Relay) Start(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			n, err := r.RelayOnce(ctx)
			if err != nil {
				r.Logger.Warn("event relay", "published", n, "error", err)
				return
			}
			if n > 0 {
				r.Logger.Debug("event relay", "published", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule relay: %w", err)
	}
	sched.Start()
	r.sched = sched
	return nil
}

func (r *Relay) Stop() error {
	if r.sched == nil {
		return nil
	}
	return r.sched.Shutdown()
}
