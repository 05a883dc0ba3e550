package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"

	goredis "github.com/go-redis/redis/v8"

	"github.com/randomtoy/readingd/internal/adapters/decks"
	"github.com/randomtoy/readingd/internal/adapters/llm/assistant"
	"github.com/randomtoy/readingd/internal/adapters/llm/openrouter"
	"github.com/randomtoy/readingd/internal/adapters/store/memory"
	"github.com/randomtoy/readingd/internal/adapters/store/postgres"
	redisstore "github.com/randomtoy/readingd/internal/adapters/store/redis"
	"github.com/randomtoy/readingd/internal/app"
	"github.com/randomtoy/readingd/internal/config"
	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/metrics"
	"github.com/randomtoy/readingd/internal/ports"
)

// stdRNG delegates to math/rand/v2 (auto-seeded).
type stdRNG struct{}

func (stdRNG) Intn(n int) int { return rand.IntN(n) }

// noRuns backs the poller for providers that always answer synchronously.
type noRuns struct{}

func (noRuns) Status(context.Context, domain.JobHandle) (domain.JobSnapshot, error) {
	return domain.JobSnapshot{}, fmt.Errorf("%w: provider does not create runs", domain.ErrUnknownConversation)
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

type deps struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	service *app.ReadingService
	purger  purger
	closers []func() error
}

func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// wireFunc builds the pipeline. Logs go to logOut.
type wireFunc func(ctx context.Context, logOut io.Writer) (*deps, error)

func wireFromEnv(ctx context.Context, logOut io.Writer) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	d := &deps{cfg: cfg, logger: logger, metrics: metrics.New()}

	var (
		client ports.ConversationClient
		reader ports.StatusReader
	)
	switch cfg.LLMProvider {
	case config.ProviderAssistant:
		c := assistant.NewClient(&http.Client{}, cfg.AssistantBaseURL, cfg.AssistantAPIKey, cfg.LLMTimeout, logger)
		client, reader = c, c
	case config.ProviderOpenRouter:
		store, err := d.conversationStore(ctx)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		client = openrouter.NewClient(
			&http.Client{Timeout: cfg.LLMTimeout},
			cfg.OpenRouterAPIKey,
			cfg.OpenRouterBaseURL,
			cfg.LLMModel,
			cfg.LLMFallbackModels,
			store,
			logger,
		)
		reader = noRuns{}
	}

	poller := app.NewStatusPoller(reader, app.PollConfig{
		MaxAttempts: cfg.PollMaxAttempts,
		Interval:    cfg.PollInterval,
	}, d.metrics, logger)
	d.service = app.NewReadingService(client, poller, decks.NewEmbeddedStore(), stdRNG{}, d.metrics, logger)

	logger.Info("pipeline wired", "provider", cfg.LLMProvider, "store", cfg.StoreDriver)
	return d, nil
}

// conversationStore opens the history store used by blocking providers.
func (d *deps) conversationStore(ctx context.Context) (ports.ConversationStore, error) {
	cfg := d.cfg
	switch cfg.StoreDriver {
	case config.StoreRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		d.closers = append(d.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return redisstore.NewStore(rdb, cfg.ConversationTTL), nil
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, db.Close)
		store := postgres.NewStore(db, cfg.ConversationTTL)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		d.purger = store
		return store, nil
	default:
		store := memory.NewStore(cfg.ConversationTTL)
		d.purger = store
		return store, nil
	}
}
