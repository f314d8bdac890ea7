package api

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/core/ports/driving"
	"github.com/custodia-labs/bookchat/internal/logger"
)

// Services are the core ports the API drives.
type Services struct {
	Books    driving.BookService
	Sessions driving.SessionService
	Chat     driving.ChatService
	Jobs     driving.Dispatcher
}

// Config configures the HTTP server.
type Config struct {
	// JWTSecret verifies bearer tokens. Required.
	JWTSecret string

	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	app      *fiber.App
	svc      Services
	secret   []byte
	validate *validator.Validate
	shutdown time.Duration
}

// New builds the server and registers its routes.
func New(svc Services, cfg Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		svc:      svc,
		secret:   []byte(cfg.JWTSecret),
		validate: validator.New(),
		shutdown: cfg.ShutdownTimeout,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "bookchat",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestLogger)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api", s.authenticate)

	books := api.Group("/books")
	books.Get("/", s.require(domain.PermReadBooks), s.listBooks)
	books.Get("/:id", s.require(domain.PermReadBooks), s.getBook)
	books.Post("/", s.require(domain.PermManageBooks), s.createBook)
	books.Patch("/:id", s.require(domain.PermManageBooks), s.updateBook)
	books.Delete("/:id", s.require(domain.PermManageBooks), s.deleteBook)

	api.Get("/jobs/:id", s.require(domain.PermViewJobs), s.jobStatus)

	sessions := api.Group("/sessions", s.require(domain.PermChat))
	sessions.Post("/", s.createSession)
	sessions.Get("/", s.listSessions)
	sessions.Get("/:id/messages", s.listMessages)
	sessions.Post("/:id/chat", s.chat)
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", addr)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
		return s.app.ShutdownWithTimeout(s.shutdown)
	}
}

// requestLogger logs each request with its status and duration.
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	logger.Debug("%s %s status=%d dur=%s", c.Method(), c.OriginalURL(), status, time.Since(start))
	return err
}
