package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/wzstats-client/internal/config"
	"github.com/Sternrassler/wzstats-client/pkg/client"
	"github.com/Sternrassler/wzstats-client/pkg/logging"
	"github.com/Sternrassler/wzstats-client/pkg/provider"
	"github.com/Sternrassler/wzstats-client/pkg/provider/live"
	"github.com/Sternrassler/wzstats-client/pkg/provider/replay"
	"github.com/Sternrassler/wzstats-client/pkg/ratelimit"
)

// app owns the client and the connections behind it.
type app struct {
	client *client.Client
	redis  *redis.Client
	logger zerolog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.NewLogger("wzstats")

	p, rdb, err := buildProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c, err := client.New(p, cfg.ClientConfig())
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("create client: %w", err)
	}

	logger.Info().
		Str("provider", cfg.Provider.Mode).
		Bool("throttle_store", rdb != nil).
		Int("detail_concurrency", cfg.Client.DetailConcurrency).
		Int("max_pages", cfg.Client.MaxPages).
		Msg("Client ready")

	return &app{client: c, redis: rdb, logger: logger}, nil
}

// buildProvider selects the record provider once, from configuration.
func buildProvider(ctx context.Context, cfg *config.Config) (provider.Provider, *redis.Client, error) {
	switch cfg.Provider.Mode {
	case config.ModeReplay:
		p, err := replay.Load(cfg.Provider.Replay, replay.WithLogger(logging.NewLogger("replay-provider")))
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil

	case config.ModeLive:
		opts := []live.Option{live.WithLogger(logging.NewLogger("live-provider"))}

		var rdb *redis.Client
		if cfg.Redis.Enabled() {
			rdb = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err := rdb.Ping(ctx).Err(); err != nil {
				_ = rdb.Close()
				return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
			}
			tracker := ratelimit.NewTracker(rdb, logging.NewLogger("throttle-tracker"))
			opts = append(opts, live.WithTracker(tracker))
		}

		p, err := live.New(cfg.Provider.Live, opts...)
		if err != nil {
			if rdb != nil {
				_ = rdb.Close()
			}
			return nil, nil, err
		}
		return p, rdb, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownMode, cfg.Provider.Mode)
	}
}

// Close releases the client caches and the redis connection.
func (a *app) Close() error {
	if err := a.client.Close(); err != nil {
		return err
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
