package transport

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/adapter/repository"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
)

type openFunc func(ctx context.Context) (usecase.EntryRepository, error)

// Local runs commands on an in-process command service. The store is
// opened on the first command and closed by the stop command.
type Local struct {
	mu sync.Mutex

	open            openFunc
	defaultCategory string
	timeout         time.Duration
	logger          zerolog.Logger

	repo     usecase.EntryRepository
	commands usecase.CommandRunner
}

// NewLocal creates a Local proxy over the store configured in cfg.
func NewLocal(cfg Config) *Local {
	factory := repository.NewFactory(cfg.Logger)
	return newLocal(cfg, func(ctx context.Context) (usecase.EntryRepository, error) {
		return factory.Open(ctx, cfg.Store)
	})
}

func newLocal(cfg Config, open openFunc) *Local {
	return &Local{
		open:            open,
		defaultCategory: cfg.DefaultCategory,
		timeout:         cfg.Timeout,
		logger:          cfg.Logger.With().Str("backend", BackendLocal.String()).Logger(),
	}
}

// Run executes command in process.
func (p *Local) Run(ctx context.Context, command string, params domain.Params) (*domain.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Nothing to stop before the store was opened.
	if command == domain.CommandStop && p.repo == nil {
		return nil, nil
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.ensureOpen(ctx); err != nil {
		return nil, &CommunicationError{Backend: BackendLocal, Command: command, Err: err}
	}

	resp, err := p.commands.Run(ctx, command, params)
	if err != nil {
		return nil, &CommunicationError{Backend: BackendLocal, Command: command, Err: err}
	}
	return resp, nil
}

// Launch is a no-op; the in-process service lives as long as the proxy.
func (p *Local) Launch(context.Context) error {
	return nil
}

// Close closes the store if it is open.
func (p *Local) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeStore()
}

func (p *Local) ensureOpen(ctx context.Context) error {
	if p.repo != nil {
		return nil
	}

	repo, err := p.open(ctx)
	if err != nil {
		return err
	}

	p.repo = repo
	p.commands = usecase.NewCommandService(
		usecase.NewLedgerUseCase(repo, p.defaultCategory),
		usecase.WithLogger(p.logger),
		usecase.WithStopHook(p.closeStore),
		// Run applies the proxy timeout.
		usecase.WithTimeout(0),
	)
	p.logger.Debug().Msg("store opened")
	return nil
}

// closeStore runs with p.mu held, either from Close or as the stop hook
// inside Run.
func (p *Local) closeStore() error {
	if p.repo == nil {
		return nil
	}

	err := p.repo.Close()
	p.repo = nil
	p.commands = nil
	p.logger.Debug().Err(err).Msg("store closed")
	return err
}
