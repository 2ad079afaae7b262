package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapequation/infomap-go/internal/clusterapi"
	"github.com/mapequation/infomap-go/internal/jobqueue"
	"github.com/mapequation/infomap-go/internal/jobrepo"
	"github.com/mapequation/infomap-go/internal/netstore"
	"github.com/mapequation/infomap-go/pkg/config"
)

const serveShutdownGrace = 10 * time.Second

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clustering job queue behind an HTTP API",
	Long: `serve starts a worker pool that pulls clustering jobs from an
in-process submission queue, runs each one through the Infomap engine,
persists its outcome to a run-history database, and optionally
fetches the network input from, and publishes result artifacts to,
object storage. It exposes the same operations as the run command over HTTP
for a pool of workers instead of one local invocation.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a config file (defaults built in)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("infomap-cli: loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("infomap-cli: preparing data dir: %w", err)
	}

	db, err := jobrepo.NewGormDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("infomap-cli: opening run-history database: %w", err)
	}
	if err := db.AutoMigrate(&jobrepo.ClusterRun{}); err != nil {
		return fmt.Errorf("infomap-cli: migrating run-history schema: %w", err)
	}
	runs := jobrepo.NewGormRepository(db)

	store, err := netstore.New(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("infomap-cli: building object storage backend: %w", err)
	}

	processor := jobqueue.NewClusterProcessor(GetLogger()).WithStore(store)
	source := jobqueue.NewMemorySource("http", cfg.Scheduler.TaskBatchSize)
	aggregator := jobqueue.NewAggregator(source)

	queueCfg := jobqueue.Config{
		WorkerCount:   cfg.Scheduler.WorkerCount,
		PrioritySlots: cfg.Scheduler.PrioritySlots,
		QueueSize:     cfg.Scheduler.TaskBatchSize,
	}
	queue := jobqueue.New(queueCfg, aggregator, processor, GetLogger())

	api := clusterapi.New(servePort, cfg.Infomap.DataDir, GetLogger(), source, queue, runs, cfg.APM)

	queue.OnResult(func(job *jobqueue.ClusterJob, res *jobqueue.Result) {
		run := jobqueue.RunFromResult(job, res)
		if err := runs.SaveRun(context.Background(), run); err != nil {
			GetLogger().Warn("infomap-cli: saving run %s: %v", res.JobUUID, err)
		}
		api.NotifyCompletion(res)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("infomap-cli: starting job queue: %w", err)
	}
	defer queue.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- api.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownGrace)
		defer cancel()
		return api.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
