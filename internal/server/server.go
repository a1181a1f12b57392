package server

import (
	"context"
	"embed"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollTimeout     = 25 * time.Second
	defaultHistorySize     = 256
	defaultShutdownTimeout = 5 * time.Second
)

//go:embed views/*.html
var views embed.FS

// Config holds relay server settings.
type Config struct {
	Addr        string
	HistorySize int
	PollTimeout time.Duration
}

// Server is the relay's HTTP front: a status page, the websocket endpoint
// and the long-polling endpoints, all backed by one Hub.
type Server struct {
	cfg       Config
	app       *fiber.App
	hub       *Hub
	backplane *Backplane
	logger    zerolog.Logger

	stopOnce sync.Once
	stopping chan struct{}
}

func New(cfg Config, backplane *Backplane, logger zerolog.Logger) (*Server, error) {
	if backplane == nil {
		return nil, errors.New("backplane is required")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	cfg.PollTimeout = pollTimeoutOrDefault(cfg.PollTimeout)

	sub, err := fs.Sub(views, "views")
	if err != nil {
		return nil, errors.Wrap(err, "load views")
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")

	s := &Server{
		cfg:       cfg,
		backplane: backplane,
		logger:    logger.With().Str("component", "server").Logger(),
		stopping:  make(chan struct{}),
		app: fiber.New(fiber.Config{
			AppName:               "relaychat",
			Views:                 engine,
			DisableStartupMessage: true,
		}),
	}
	s.hub = NewHub(backplane.Publisher, backplane.Subscriber, cfg.HistorySize, logger)
	s.routes()
	return s, nil
}

func (s *Server) App() *fiber.App { return s.app }
func (s *Server) Hub() *Hub       { return s.hub }

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the relay on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.HandleMessages(ctx)
	})
	g.Go(func() error {
		select {
		case <-s.hub.Ready():
		case <-ctx.Done():
			_ = ln.Close()
			return nil
		}
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("relay listening")
		if err := s.app.Listener(ln); err != nil {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.stopOnce.Do(func() { close(s.stopping) })
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("forced shutdown")
		}
		if err := s.backplane.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("closing backplane")
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info().Msg("relay exited")
	return err
}
