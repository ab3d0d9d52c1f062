package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/iho/financeager/internal/adapter/grpc/converter"
	grpcmiddleware "github.com/iho/financeager/internal/adapter/grpc/middleware"
	pb "github.com/iho/financeager/internal/adapter/grpc/pb/financeager/v1"
	grpcserver "github.com/iho/financeager/internal/adapter/grpc/server"
	"github.com/iho/financeager/internal/adapter/repository"
	"github.com/iho/financeager/internal/adapter/repository/memory"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
)

// RPC runs commands on a remote LedgerService over gRPC. The connection is
// created on the first command; target resolution and connection failures
// surface from Run.
type RPC struct {
	target     string
	listenAddr string
	timeout    time.Duration
	dialOpts   []grpc.DialOption
	logger     zerolog.Logger

	cfg Config

	mu     sync.Mutex
	conn   *grpc.ClientConn
	client pb.LedgerServiceClient
}

// NewRPC creates an RPC proxy for cfg.RPCTarget. Extra dial options are
// appended to the defaults.
func NewRPC(cfg Config, opts ...grpc.DialOption) *RPC {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	return &RPC{
		target:     cfg.RPCTarget,
		listenAddr: cfg.RPCListenAddr,
		timeout:    cfg.Timeout,
		dialOpts:   dialOpts,
		logger:     cfg.Logger.With().Str("backend", BackendRPC.String()).Logger(),
		cfg:        cfg,
	}
}

// Run sends command to the remote service.
func (p *RPC) Run(ctx context.Context, command string, params domain.Params) (*domain.Response, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	client, err := p.dial()
	if err != nil {
		return nil, p.fail(command, err)
	}

	req, err := converter.RequestToPb(command, params)
	if err != nil {
		return nil, p.fail(command, err)
	}

	if command == domain.CommandAdd {
		ctx = metadata.AppendToOutgoingContext(ctx, grpcmiddleware.IdempotencyKeyHeader, ulid.Make().String())
	}

	out, err := client.Run(ctx, req)
	if err != nil {
		return nil, p.fail(command, err)
	}

	resp, err := converter.ResponseFromPb(out)
	if err != nil {
		return nil, p.fail(command, err)
	}
	return resp, nil
}

// Launch serves the LedgerService on the configured listen address over
// the configured store. It blocks until ctx is done or a client sends the
// stop command.
func (p *RPC) Launch(ctx context.Context) error {
	lis, err := net.Listen("tcp", p.listenAddr)
	if err != nil {
		return p.fail(domain.CommandStart, err)
	}

	if err := p.serve(ctx, lis); err != nil {
		return p.fail(domain.CommandStart, err)
	}
	return nil
}

// Close closes the client connection.
func (p *RPC) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	p.client = nil
	return err
}

func (p *RPC) dial() (pb.LedgerServiceClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	conn, err := grpc.NewClient(p.target, p.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %q: %w", p.target, err)
	}

	p.conn = conn
	p.client = pb.NewLedgerServiceClient(conn)
	return p.client, nil
}

func (p *RPC) serve(ctx context.Context, lis net.Listener) error {
	repo, err := repository.NewFactory(p.cfg.Logger).Open(ctx, p.cfg.Store)
	if err != nil {
		_ = lis.Close()
		return err
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	commands := usecase.NewCommandService(
		usecase.NewLedgerUseCase(repo, p.cfg.DefaultCategory),
		usecase.WithLogger(p.logger),
		usecase.WithStopHook(func() error {
			p.logger.Info().Msg("stop requested")
			cancel()
			return nil
		}),
	)

	srv := grpcserver.New(commands, grpcserver.Options{
		Logger:      p.logger,
		Idempotency: memory.NewIdempotencyStore(),
	})
	return srv.Serve(ctx, lis)
}

func (p *RPC) fail(command string, err error) error {
	return &CommunicationError{Backend: BackendRPC, Command: command, Err: err}
}
