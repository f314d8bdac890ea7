package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bookchat/internal/adapters/driving/api"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the catalogue, chat sessions and streamed answers over HTTP.
With the local queue, ingestion jobs run inside this process. With the redis
queue they are picked up by separate "bookchat worker" processes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Settings.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not set (or export BOOKCHAT_JWT_SECRET)")
	}
	server, err := api.New(api.Services{
		Books:    app.Catalog,
		Sessions: app.Guard,
		Chat:     app.Chat,
		Jobs:     app.Dispatcher,
	}, api.Config{
		JWTSecret:       app.Settings.Auth.JWTSecret,
		ShutdownTimeout: time.Duration(app.Settings.Server.ShutdownTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	addr := app.Settings.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Listen(gctx, addr) })
	watchPrompts(gctx, g, app)
	if app.Settings.Queue.Backend == domain.QueueBackendLocal {
		g.Go(func() error {
			err := app.Queue.Run(gctx, app.Dispatcher.Handler(app.Ingestion))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// watchPrompts reloads prompt templates when their files change.
func watchPrompts(ctx context.Context, g *errgroup.Group, app *App) {
	store, ok := app.Prompts.(*file.PromptStore)
	if !ok {
		return
	}
	g.Go(func() error {
		if err := store.Watch(ctx); err != nil {
			logger.Warn("Prompt hot reload disabled: %v", err)
		}
		return nil
	})
}
