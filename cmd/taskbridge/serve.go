package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpserver "github.com/sawpanic/taskbridge/internal/interfaces/http"
	"github.com/sawpanic/taskbridge/internal/interfaces/http/handlers"
	"github.com/sawpanic/taskbridge/internal/scheduler"
)

const pollLockKey = "poll_lock"

func newServeCmd(flags *globalFlags) *cobra.Command {
	var noPoll bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhooks and run the scheduled ledger poll",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if noPoll {
				cfg.Poller.Enabled = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			deps := handlers.Deps{
				Secrets:     a.secrets,
				Projects:    a.todoist,
				Reconciler:  a.reconciler(),
				Transformer: a.transformer(),
				Metrics:     a.metrics,
				Store:       a.store,
				StoreDriver: cfg.Store.Driver,
				Breakers:    []handlers.Breaker{a.todoist.Breaker(), a.ynab.Breaker()},
				Version:     version,
			}

			var sched *scheduler.Scheduler
			if cfg.Poller.Enabled {
				sched = scheduler.New(scheduler.Config{
					Name:       "ledger-poll",
					Interval:   cfg.Poller.Interval,
					Timeout:    cfg.Poller.Timeout,
					RunOnStart: true,
				}, a.poller().Run, nil)
				if cfg.Poller.Lock {
					sched.WithStoreLock(a.store, pollLockKey, cfg.Poller.LockTTL)
				}
				deps.Poller = sched.GetStatus
			}

			server := httpserver.NewServer(cfg.Server, deps)

			errs := make(chan error, 2)
			go func() {
				if err := server.Start(); err != nil {
					errs <- fmt.Errorf("server error: %w", err)
				}
			}()
			if sched != nil {
				go func() {
					// the first poll hits our own endpoint; give the listener a moment
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
						return
					}
					_ = sched.Start(ctx)
				}()
			}

			select {
			case <-ctx.Done():
				log.Info().Msg("Shutdown signal received")
			case err := <-errs:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Server shutdown error")
				return err
			}
			log.Info().Msg("Shutdown complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noPoll, "no-poll", false, "Serve webhooks only, without the scheduled poll")
	return cmd
}
