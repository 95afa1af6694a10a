package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giygas/drugbase-api/data"
	"github.com/giygas/drugbase-api/handlers"
	"github.com/giygas/drugbase-api/health"
	"github.com/giygas/drugbase-api/ingest"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
	"github.com/giygas/drugbase-api/scheduler"
	"github.com/giygas/drugbase-api/server"
	"github.com/giygas/drugbase-api/validation"
)

const shutdownTimeout = 30 * time.Second

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API on ADDRESS:PORT.

When INGEST_DIR is set the directory is loaded at startup and again at
every INGEST_SCHEDULE time; /health then also reports data freshness.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	validator := validation.NewDataValidator()
	tracker := data.NewUpdateTracker()
	tracker.SetServerStartTime(time.Now())

	// Without an ingest directory the catalog only changes through the dev
	// endpoints, so data age is not a health signal
	var (
		updates  interfaces.UpdateStatus
		schedule string
	)
	if cfg.IngestDir != "" {
		loader := ingest.NewLoader(cat.store, validator, cat.invalidator())
		sched := scheduler.NewScheduler(tracker, ingest.NewDirRefresher(cfg.IngestDir, loader), cfg.IngestSchedule)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
		updates, schedule = tracker, cfg.IngestSchedule
	}

	healthChecker := health.NewHealthChecker(cat.store, updates, schedule)
	handler := handlers.NewHTTPHandler(cat.Catalog(), validator, healthChecker)
	srv := server.NewServer(cfg, handler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error("Server failed to start", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
