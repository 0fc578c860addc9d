package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/myagiz61/backend/internal/app/bootstrap"
	"github.com/myagiz61/backend/internal/infra/logging"
	"github.com/myagiz61/backend/internal/infra/sched"
	"github.com/myagiz61/backend/internal/infra/scheduler"
)

var sweepJobs = map[string]string{
	"expiry": "expiry",
	"stale":  "stale_payments",
}

func sweepCmd() *cobra.Command {
	var noLock bool
	cmd := &cobra.Command{
		Use:       "sweep [expiry|stale|all]",
		Short:     "Run a reconciler pass now, under the same leader lock as the server",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"expiry", "stale", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Log.Level, "console", false, cfg.Runtime.Dev)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()
			// notifications queued by the sweep are flushed before exit
			app.Workers.Start(ctx)
			defer app.Workers.Stop()

			names := []string{args[0]}
			if args[0] == "all" {
				names = []string{"expiry", "stale"}
			}
			direct := map[string]scheduler.Job{
				"expiry": sched.NewExpiryWorker(app.Expiry, logger).Run,
				"stale":  sched.NewPaymentReconciler(app.Stale, logger).Run,
			}
			for _, n := range names {
				started := time.Now()
				run := func() error { return app.Scheduler.RunNow(ctx, sweepJobs[n]) }
				if noLock {
					run = func() error { return direct[n](ctx, time.Now()) }
				}
				if err := run(); err != nil {
					if errors.Is(err, scheduler.ErrSkipped) {
						cmd.Printf("sweep %s is running on another instance (use --no-lock to force)\n", n)
						continue
					}
					return fmt.Errorf("sweep %s: %w", n, err)
				}
				cmd.Printf("sweep %s done in %s\n", n, time.Since(started).Round(time.Millisecond))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noLock, "no-lock", false, "skip the leader lock (single instance or stuck lock only)")
	return cmd
}
