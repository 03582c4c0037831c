package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/tweet-automation/internal/api"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and deliver scheduled records",
	Long: `Start the scheduler, re-dispatch every stored record that has not been
delivered yet, and serve the HTTP API until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second,
		"How long to wait for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	a.sched.Start()

	if _, err := a.auto.Resume(ctx); err != nil {
		// Pending records stay queued until the next start.
		slog.Warn("resume skipped", "error", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Address,
		Handler:           loggingMiddleware(api.Router(api.NewHandler(a.sched, a.auto, a.sink))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("tweet automation listening",
			"addr", a.cfg.Server.Address,
			"backend", string(a.cfg.Store.Backend),
			"max_in_flight", a.cfg.Scheduler.MaxInFlight,
			"redis", a.cfg.Redis.Enabled,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
