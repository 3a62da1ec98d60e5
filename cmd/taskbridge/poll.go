package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sawpanic/taskbridge/internal/persistence"
)

func newPollCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one ledger poll cycle and exit",
		Long: `Fetches every configured ledger since its stored cursor, forwards the
transactions to the poller endpoint and commits the new cursors on success.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Poller.Timeout)
			defer cancel()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if cfg.Poller.Lock {
				lock := persistence.NewLock(a.store, pollLockKey, cfg.Poller.LockTTL)
				ok, err := lock.TryAcquire(ctx)
				if err != nil {
					return err
				}
				if !ok {
					cmd.PrintErrln("another poll holds the lock, skipping")
					return nil
				}
				defer lock.Release(context.WithoutCancel(ctx))
			}

			return a.poller().Run(ctx)
		},
	}
}
