package server

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/iho/financeager/internal/adapter/grpc/middleware"
	pb "github.com/iho/financeager/internal/adapter/grpc/pb/financeager/v1"
	"github.com/iho/financeager/internal/infrastructure/metrics"
	"github.com/iho/financeager/internal/usecase"
)

// Options configures the interceptors of a Server. Nil Metrics or
// Idempotency disable the corresponding interceptor.
type Options struct {
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	Idempotency usecase.IdempotencyStore
}

// Server serves the LedgerService.
type Server struct {
	grpcServer *grpc.Server
	logger     zerolog.Logger
}

// New creates a Server executing commands with commands.
func New(commands usecase.CommandRunner, opts Options) *Server {
	interceptors := []grpc.UnaryServerInterceptor{
		middleware.RecoveryInterceptor(opts.Logger),
		middleware.LoggingInterceptor(opts.Logger),
	}
	if opts.Metrics != nil {
		interceptors = append(interceptors, middleware.MetricsInterceptor(opts.Metrics))
	}
	if opts.Idempotency != nil {
		interceptors = append(interceptors, middleware.IdempotencyInterceptor(opts.Idempotency, opts.Logger))
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	pb.RegisterLedgerServiceServer(srv, NewLedgerServer(commands))

	return &Server{
		grpcServer: srv,
		logger:     opts.Logger.With().Str("module", "grpc_server").Logger(),
	}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("stopping gRPC server")
			s.grpcServer.GracefulStop()
		case <-done:
		}
	}()

	s.logger.Info().Str("address", lis.Addr().String()).Msg("starting gRPC server")

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
