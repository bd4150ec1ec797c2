package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sleeptimer/internal/app"
)

const stopTimeout = 10 * time.Second

func newRunCmd(o *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sleep timer daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []app.Option
			if dryRun {
				opts = append(opts, app.WithDryRun())
			}
			a, err := app.New(o.cfgPath, opts...)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := a.Start(ctx); err != nil {
				stopApp(a, app.StopFatalError)
				return err
			}

			reason := app.StopSignal
			select {
			case <-ctx.Done():
			case <-a.Done():
				reason = app.StopFatalError
			}
			stopApp(a, reason)
			return a.Err()
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log instead of suspending the machine")
	return cmd
}

func stopApp(a *app.App, reason app.StopReason) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	_ = a.Stop(ctx, reason)
}
