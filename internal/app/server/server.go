package server

import (
	"context"
	"time"

	"github.com/cloudflying87/qrgenerator/config"
	"github.com/cloudflying87/qrgenerator/internal/app/service"
	inthttp "github.com/cloudflying87/qrgenerator/internal/http/handler"
	"github.com/cloudflying87/qrgenerator/internal/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure and domain dependencies required by the
// HTTP server.
type Dependencies struct {
	Logger    *zap.Logger
	Config    *config.Config
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	NATS      *nats.Conn
	JetStream nats.JetStreamContext
	Codes     service.QRCodeService
	Analytics service.AnalyticsService
	Recorder  *service.ScanRecorder
	Filter    *service.CodeFilter
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())

	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, s.rateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) rateLimitConfig() middleware.RateLimitConfig {
	cfg := middleware.DefaultRateLimitConfig()
	if s.deps.Config == nil {
		return cfg
	}
	if s.deps.Config.App.RateLimitMax > 0 {
		cfg.MaxRequests = s.deps.Config.App.RateLimitMax
	}
	if window, err := time.ParseDuration(s.deps.Config.App.RateLimitWindow); err == nil && window > 0 {
		cfg.Window = window
	}
	return cfg
}

// registerRoutes wires the management API before the catch-all short-code
// route so /api paths are never treated as codes.
func (s *Server) registerRoutes() {
	baseURL := ""
	if s.deps.Config != nil {
		baseURL = s.deps.Config.App.BaseURL
	}

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:    s.deps.Logger,
		Codes:     s.deps.Codes,
		Analytics: s.deps.Analytics,
		BaseURL:   baseURL,
	})
	apiHandler.Register(s.app)

	resolveDeps := inthttp.ResolveDeps{
		Logger:   s.deps.Logger,
		Recorder: s.deps.Recorder,
		Filter:   s.deps.Filter,
	}
	if s.deps.Postgres != nil {
		resolveDeps.DB = s.deps.Postgres
	}
	resolveHandler := inthttp.NewResolveHandler(resolveDeps)
	resolveHandler.Register(s.app)
}
