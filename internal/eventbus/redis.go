package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ami-notifications/notifier/internal/config"
	"github.com/ami-notifications/notifier/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	relayPublishTimeout = 3 * time.Second
	relayMinBackoff     = 500 * time.Millisecond
	relayMaxBackoff     = 30 * time.Second
)

// NewRedisClient builds the client used by RedisRelay.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// RedisRelay shares events between API instances. Publish forwards events to
// a Redis channel; Run delivers everything received on that channel, own
// events included, into the local Bus.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   *Bus
	out     chan models.Event
	logger  zerolog.Logger

	// subscribed is true while Run is draining out.
	subscribed atomic.Bool
}

func NewRedisRelay(client *redis.Client, channel string, local *Bus, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		local:   local,
		out:     make(chan models.Event, 256),
		logger:  logger.With().Str("component", "redis_relay").Logger(),
	}
}

// Publish never blocks; events are dropped when the outbound queue is full.
// While the relay is not subscribed, events go to the local bus only.
func (r *RedisRelay) Publish(evt models.Event) {
	if !r.subscribed.Load() {
		r.local.Publish(evt)
		return
	}
	select {
	case r.out <- evt:
	default:
		r.logger.Warn().
			Str("user_id", evt.UserID).
			Str("notification_id", evt.NotificationID).
			Msg("relay queue full, event dropped")
	}
}

// Run subscribes to the channel and pumps events both ways until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	r.subscribed.Store(true)
	defer r.drainLocal()

	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info().Str("channel", r.channel).Msg("event relay subscribed")

	incoming := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-r.out:
			r.forward(ctx, evt)
		case msg, ok := <-incoming:
			if !ok {
				return fmt.Errorf("subscription to %s closed", r.channel)
			}
			var evt models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				r.logger.Warn().Err(err).Msg("discarding malformed relay message")
				continue
			}
			r.local.Publish(evt)
		}
	}
}

func (r *RedisRelay) forward(ctx context.Context, evt models.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to encode event")
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
	defer cancel()
	if err := r.client.Publish(pubCtx, r.channel, data).Err(); err != nil {
		// Local subscribers still get the event.
		r.logger.Error().Err(err).Str("notification_id", evt.NotificationID).Msg("failed to relay event")
		r.local.Publish(evt)
	}
}

// drainLocal marks the relay unsubscribed and hands queued events to the
// local bus.
func (r *RedisRelay) drainLocal() {
	r.subscribed.Store(false)
	for {
		select {
		case evt := <-r.out:
			r.local.Publish(evt)
		default:
			return
		}
	}
}

// Serve keeps the relay running until ctx is done, resubscribing with
// exponential backoff whenever Run returns.
func (r *RedisRelay) Serve(ctx context.Context) {
	backoff := relayMinBackoff
	for {
		start := time.Now()
		err := r.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) > relayMaxBackoff {
			backoff = relayMinBackoff
		}
		r.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("event relay stopped, local delivery only")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff *= 2
		if backoff > relayMaxBackoff {
			backoff = relayMaxBackoff
		}
	}
}
