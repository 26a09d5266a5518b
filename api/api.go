package api

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/lincode/api/worker"
	"github.com/papercomputeco/lincode/pkg/chat"
	"github.com/papercomputeco/lincode/pkg/eventstream"
	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/storage"
)

const defaultShutdownTimeout = 5 * time.Second

// Server is the lincode chat server.
type Server struct {
	config    Config
	completer llm.Completer
	storer    storage.Driver
	pool      *worker.Pool
	host      string
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new chat server.
// The storer and publisher are injected so callers choose the backends; the
// server closes neither.
func NewServer(config Config, completer llm.Completer, storer storage.Driver, publisher eventstream.Publisher, logger *zap.Logger) (*Server, error) {
	if completer == nil {
		return nil, errors.New("chat server requires a completer")
	}
	if storer == nil {
		return nil, errors.New("chat server requires a storage driver")
	}
	if publisher == nil {
		return nil, errors.New("chat server requires an eventstream publisher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher:  publisher,
		NumWorkers: config.NumWorkers,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	host, _ := os.Hostname()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		completer: completer,
		storer:    storer,
		pool:      pool,
		host:      host,
		logger:    logger,
		app:       app,
	}

	app.Get(chat.HealthPath, s.handleHealth)
	app.Post(chat.ChatPath, s.handleChat)
	app.Delete(chat.SessionPath, s.handleClearSession)

	return s, nil
}

// Handler exposes the server as a net/http handler, for embedding it in
// another mux or serving it from httptest.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Run starts the chat server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting chat server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("provider", s.completer.Name()),
		zap.String("model", s.config.Model),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the chat server, then drains pending turn
// events.
func (s *Server) Shutdown() error {
	err := s.app.ShutdownWithTimeout(s.config.ShutdownTimeout)
	s.pool.Close()
	return err
}
