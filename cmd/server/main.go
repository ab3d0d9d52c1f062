package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	grpcserver "github.com/iho/financeager/internal/adapter/grpc/server"
	httpAdapter "github.com/iho/financeager/internal/adapter/http"
	"github.com/iho/financeager/internal/adapter/http/handler"
	"github.com/iho/financeager/internal/adapter/http/middleware"
	"github.com/iho/financeager/internal/adapter/repository"
	"github.com/iho/financeager/internal/infrastructure/config"
	"github.com/iho/financeager/internal/infrastructure/logger"
	"github.com/iho/financeager/internal/infrastructure/metrics"
	"github.com/iho/financeager/internal/usecase"
)

const rateLimiterIdle = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, log.Logger, prometheus.DefaultRegisterer, promhttp.Handler())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	if err := srv.run(ctx); err != nil {
		srv.close()
		log.Fatal().Err(err).Msg("server failed")
	}

	if err := srv.close(); err != nil {
		log.Error().Err(err).Msg("failed to release resources")
	}
	log.Info().Msg("server stopped")
}

// server runs the HTTP and gRPC services over one store until its context
// ends or a client sends the stop command.
type server struct {
	cfg    *config.Config
	logger zerolog.Logger

	http    *http.Server
	grpc    *grpcserver.Server
	limiter *middleware.RateLimiter

	// stopped is closed by the stop command.
	stopped  chan struct{}
	stopOnce sync.Once
	closers  []func() error
}

func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer, metricsHandler http.Handler) (*server, error) {
	s := &server{cfg: cfg, logger: logger, stopped: make(chan struct{})}

	storeCfg := repository.ConfigFromAppConfig(cfg)
	factory := repository.NewFactory(logger)

	// Connect to the store
	repo, err := factory.Open(ctx, storeCfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, repo.Close)
	logger.Info().Str("store", cfg.Store).Msg("store opened")

	idempotency, closeIdempotency, err := factory.OpenIdempotencyStore(ctx, storeCfg)
	if err != nil {
		s.close()
		return nil, err
	}
	s.closers = append(s.closers, closeIdempotency)

	m := metrics.NewWithRegisterer(reg)

	// Initialize use cases
	ledger := usecase.NewLedgerUseCase(repo, cfg.DefaultCategory)
	commands := usecase.NewCommandService(ledger,
		usecase.WithLogger(logger),
		usecase.WithMetrics(m),
		usecase.WithStopHook(s.requestStop),
	)

	if cfg.HTTPRateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.HTTPRateLimit, cfg.HTTPRateBurst)
	}

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		EntryHandler: handler.NewEntryHandler(ledger, logger),
		HealthHandler: handler.NewHealthHandler(handler.HealthCheck{
			Name: "store",
			Check: func(ctx context.Context) error {
				_, err := repo.Periods(ctx)
				return err
			},
		}),
		IdempotencyStore: idempotency,
		RateLimiter:      s.limiter,
		Metrics:          m,
		MetricsHandler:   metricsHandler,
		Logger:           logger,
	})

	s.http = &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	s.grpc = grpcserver.New(commands, grpcserver.Options{
		Logger:      logger,
		Metrics:     m,
		Idempotency: idempotency,
	})

	return s, nil
}

// run listens on the configured ports and serves until ctx is done.
func (s *server) run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", ":"+s.cfg.HTTPPort)
	if err != nil {
		return err
	}

	grpcLis, err := net.Listen("tcp", ":"+s.cfg.GRPCPort)
	if err != nil {
		httpLis.Close()
		return err
	}

	return s.serve(ctx, httpLis, grpcLis)
}

func (s *server) serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-s.stopped:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		s.logger.Info().Str("address", httpLis.Addr().String()).Msg("starting HTTP server")
		if err := s.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTPShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return s.grpc.Serve(gctx, grpcLis)
	})

	if s.limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(rateLimiterIdle)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					s.limiter.Cleanup(rateLimiterIdle)
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	return g.Wait()
}

func (s *server) requestStop() error {
	s.logger.Info().Msg("stop command received")
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

func (s *server) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
