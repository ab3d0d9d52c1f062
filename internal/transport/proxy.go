// Package transport runs ledger commands against a backend: an in-process
// command service, a gRPC service or an HTTP service. Every backend
// satisfies Proxy and reports transport failures as *CommunicationError.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/adapter/repository"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/infrastructure/config"
)

// ErrUnknownBackend is returned for backend names ParseBackend does not know.
var ErrUnknownBackend = errors.New("unknown backend")

// Backend selects a transport.
type Backend int

const (
	BackendLocal Backend = iota
	BackendRPC
	BackendHTTP
)

func (b Backend) String() string {
	switch b {
	case BackendLocal:
		return "local"
	case BackendRPC:
		return "rpc"
	case BackendHTTP:
		return "http"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend parses a configured backend name. "none" is an alias of
// "local" and "grpc" an alias of "rpc".
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "local":
		return BackendLocal, nil
	case "rpc", "grpc":
		return BackendRPC, nil
	case "http":
		return BackendHTTP, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Proxy executes commands against a backend.
type Proxy interface {
	// Run executes command and returns its response. A nil response
	// carries nothing to display.
	Run(ctx context.Context, command string, params domain.Params) (*domain.Response, error)
	// Launch starts the service behind the proxy and blocks until it stops.
	// Backends whose service is managed elsewhere return immediately.
	Launch(ctx context.Context) error
	// Close releases connections and stores held by the proxy.
	Close() error
}

// CommunicationError reports that a command could not be carried out by
// the transport.
type CommunicationError struct {
	Backend Backend
	Command string
	// Status is the HTTP status of a failed request, zero otherwise.
	Status int
	Err    error
}

func (e *CommunicationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s backend: status %d: %v", e.Backend, e.Status, e.Err)
	}
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// Config configures a proxy.
type Config struct {
	Backend Backend
	// Timeout bounds each Run; zero leaves calls unbounded.
	Timeout time.Duration

	RPCTarget string
	// RPCListenAddr is where Launch serves the gRPC service.
	RPCListenAddr string
	HTTPURL       string

	DefaultCategory string
	Store           repository.Config
	Logger          zerolog.Logger
}

// ConfigFromAppConfig builds a proxy config for backend from the
// application config.
func ConfigFromAppConfig(cfg *config.Config, backend Backend, logger zerolog.Logger) Config {
	return Config{
		Backend:         backend,
		Timeout:         cfg.CommandTimeout,
		RPCTarget:       cfg.RPCTarget,
		RPCListenAddr:   ":" + cfg.GRPCPort,
		HTTPURL:         cfg.HTTPURL,
		DefaultCategory: cfg.DefaultCategory,
		Store:           repository.ConfigFromAppConfig(cfg),
		Logger:          logger,
	}
}

// New creates the proxy for cfg.Backend.
func New(cfg Config) (Proxy, error) {
	switch cfg.Backend {
	case BackendLocal:
		return NewLocal(cfg), nil
	case BackendRPC:
		return NewRPC(cfg), nil
	case BackendHTTP:
		return NewHTTP(cfg, http.DefaultTransport), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownBackend, cfg.Backend)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
