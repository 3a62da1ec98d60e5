package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taskbridge/internal/clients/forward"
	"github.com/sawpanic/taskbridge/internal/clients/todoist"
	"github.com/sawpanic/taskbridge/internal/clients/ynab"
	"github.com/sawpanic/taskbridge/internal/config"
	"github.com/sawpanic/taskbridge/internal/ledger"
	"github.com/sawpanic/taskbridge/internal/metrics"
	netclient "github.com/sawpanic/taskbridge/internal/net/client"
	"github.com/sawpanic/taskbridge/internal/persistence"
	"github.com/sawpanic/taskbridge/internal/persistence/memory"
	"github.com/sawpanic/taskbridge/internal/persistence/postgres"
	"github.com/sawpanic/taskbridge/internal/persistence/redis"
	"github.com/sawpanic/taskbridge/internal/reconcile"
	"github.com/sawpanic/taskbridge/internal/secrets"
)

// app holds every long-lived component built from the configuration.
type app struct {
	cfg     config.Config
	metrics *metrics.Registry
	secrets secrets.SecretProvider

	store      persistence.KV
	closeStore func() error

	todoist   *todoist.Client
	ynab      *ynab.Client
	forwarder *forward.Forwarder
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	applyLogLevel(cfg.LogLevel)
	return cfg, nil
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	provider := secrets.NewEnvProvider("")
	a := &app{
		cfg:        cfg,
		metrics:    metrics.New(),
		secrets:    provider,
		store:      store,
		closeStore: closeStore,
		todoist:    todoist.New(cfg.Todoist, provider),
		ynab:       ynab.New(cfg.YNAB, provider),
		forwarder: forward.New(cfg.Poller.Endpoint, netclient.WrapperConfig{RPS: 1, Burst: 1}, provider),
	}

	log.Info().
		Str("store", cfg.Store.Driver).
		Strs("ledgers", cfg.YNAB.Budgets).
		Str("owner", cfg.GitHub.OwnerLogin).
		Msg("Components initialized")
	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (persistence.KV, func() error, error) {
	switch cfg.Driver {
	case config.StoreRedis:
		kv := redis.New(redis.Options{
			Addr:      cfg.RedisAddr,
			DB:        cfg.RedisDB,
			Namespace: cfg.Namespace,
			Timeout:   cfg.QueryTimeout,
		})
		if err := kv.Ping(ctx); err != nil {
			kv.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		return kv, kv.Close, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		kv := postgres.NewKV(db, cfg.Namespace, cfg.QueryTimeout)
		if err := kv.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return kv, db.Close, nil

	default:
		log.Warn().Msg("Using in-memory store; cursors are lost on restart")
		return memory.New(), func() error { return nil }, nil
	}
}

func (a *app) close() {
	if err := a.closeStore(); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}
}

func (a *app) reconciler() *reconcile.Reconciler {
	return reconcile.New(reconcile.Config{
		OwnerLogin: a.cfg.GitHub.OwnerLogin,
		Labels:     a.cfg.GitHub.Labels,
	}, a.todoist, a.metrics)
}

func (a *app) transformer() *ledger.Transformer {
	return ledger.NewTransformer(ledger.TransformerConfig{
		ProjectID:      a.cfg.Todoist.OwedProjectID,
		CategoryName:   a.cfg.YNAB.CategoryName,
		AmountUnit:     a.cfg.YNAB.AmountUnit,
		MaxConcurrency: a.cfg.Transformer.MaxConcurrency,
		Dedup:          a.cfg.Transformer.Dedup,
		DedupTTL:       a.cfg.Transformer.DedupTTL,
	}, a.ynab, a.todoist, a.store, a.metrics)
}

func (a *app) poller() *ledger.Poller {
	return ledger.NewPoller(
		a.cfg.YNAB.Budgets,
		a.ynab,
		a.forwarder,
		persistence.NewCursorStore(a.store),
		a.cfg.Poller.MaxConcurrency,
		a.metrics,
	)
}
