package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/middleware"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sandbox"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/transport"
)

// Server wraps the HTTP bridge and its dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	service *Service
	pool    *sandbox.Pool
	sender  *transport.Client
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing script runner",
		zap.String("port", cfg.Server.Port),
		zap.Int("pool_size", cfg.Sandbox.PoolSize),
		zap.Duration("script_timeout", cfg.Sandbox.Timeout()),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("scripting", logger)

	sender, err := transport.NewClient(transport.Config{
		Timeout:           cfg.Transport.Timeout,
		Retries:           cfg.Transport.Retries,
		RequestsPerSecond: cfg.Transport.RequestsPerSecond,
		UserAgent:         cfg.Transport.UserAgent,
		Logger:            logger,
		Metrics:           metrics,
		Tracer:            tracer,
	})
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	runner := sandbox.NewRunner(sandbox.Config{
		Timeout:      cfg.Sandbox.Timeout(),
		MaxCallStack: cfg.Sandbox.MaxCallStack,
		PoolSize:     cfg.Sandbox.PoolSize,
		Logger:       logger,
		Sender:       sender,
	})
	pool := sandbox.NewPool(runner, cfg.Sandbox.PoolSize)
	service := NewService(pool, metrics, logger)

	if !cfg.Logging.Development && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := NewHandlers(service, metrics, sender.BreakerStates)
	wsHandler := NewWSHandler(service, metrics, logger)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/metrics", handlers.MetricsJSON)
	v1.POST("/scripts/run", handlers.RunScript)
	v1.GET("/scripts/ws", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		service: service,
		pool:    pool,
		sender:  sender,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Service returns the script service behind the routes
func (s *Server) Service() *Service {
	return s.service
}

// Run serves until Shutdown is called
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, waits for in-flight runs and
// releases the pool and tracer.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var err error
	if shutdownErr := s.http.Shutdown(ctx); shutdownErr != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(shutdownErr))
		err = fmt.Errorf("failed to shut down http server: %w", shutdownErr)
	}
	_ = s.pool.Close()
	s.tracer.Close()

	_ = s.logger.Sync()
	return err
}
