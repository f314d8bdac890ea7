package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	redisqueue "github.com/custodia-labs/bookchat/internal/adapters/driven/queue/redis"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/logger"
)

var workerRecover bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume ingestion jobs from Redis",
	Long: `Runs ingestion and index removal jobs pushed by "bookchat serve" onto
the Redis queue. Requires queue.backend = "redis".`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerRecover, "recover", false,
		"requeue jobs left in flight by a crashed worker (run with no other workers active)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Settings.Queue.Backend != domain.QueueBackendRedis {
		return errors.New(`worker needs queue.backend = "redis"; the local queue runs inside "bookchat serve"`)
	}
	if q, ok := app.Queue.(*redisqueue.Queue); ok {
		if err := q.Ping(ctx); err != nil {
			return err
		}
		if workerRecover {
			n, err := q.Recover(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Requeued %d in-flight jobs\n", n)
		}
	}

	logger.Info("Worker started with %d consumers", app.Settings.Queue.Workers)
	g, gctx := errgroup.WithContext(ctx)
	watchPrompts(gctx, g, app)
	g.Go(func() error { return app.Queue.Run(gctx, app.Dispatcher.Handler(app.Ingestion)) })
	return g.Wait()
}
