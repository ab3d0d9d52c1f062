package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/infrastructure/metrics"
)

// CommandService executes named commands against the ledger. It is the
// server side of every transport.
type CommandService struct {
	ledger  LedgerService
	onStop  func() error
	logger  zerolog.Logger
	timeout time.Duration
	metrics *metrics.Metrics
}

// CommandServiceOption configures a CommandService.
type CommandServiceOption func(*CommandService)

// WithStopHook sets the function run by the stop command.
func WithStopHook(fn func() error) CommandServiceOption {
	return func(s *CommandService) { s.onStop = fn }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) CommandServiceOption {
	return func(s *CommandService) { s.logger = logger }
}

// WithTimeout bounds each command; zero disables the bound.
func WithTimeout(timeout time.Duration) CommandServiceOption {
	return func(s *CommandService) { s.timeout = timeout }
}

// WithMetrics records command outcomes and durations.
func WithMetrics(m *metrics.Metrics) CommandServiceOption {
	return func(s *CommandService) { s.metrics = m }
}

// NewCommandService creates a new CommandService.
func NewCommandService(ledger LedgerService, opts ...CommandServiceOption) *CommandService {
	s := &CommandService{
		ledger:  ledger,
		logger:  zerolog.Nop(),
		timeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type entryParams struct {
	Period string `mapstructure:"period"`
	EID    *int64 `mapstructure:"eid"`
}

type addParams struct {
	Value    *float64 `mapstructure:"value"`
	Period   string   `mapstructure:"period"`
	Name     string   `mapstructure:"name"`
	Category string   `mapstructure:"category"`
	Date     string   `mapstructure:"date"`
}

type updateParams struct {
	Name     *string  `mapstructure:"name"`
	Value    *float64 `mapstructure:"value"`
	Category *string  `mapstructure:"category"`
	Date     *string  `mapstructure:"date"`
	EID      *int64   `mapstructure:"eid"`
	Period   string   `mapstructure:"period"`
}

type listParams struct {
	Period   string `mapstructure:"period"`
	Name     string `mapstructure:"name"`
	Category string `mapstructure:"category"`
	Date     string `mapstructure:"date"`
}

// Run executes command. Failures the caller can act on (validation, unknown
// entries, bad parameters) are reported in the response's error field; any
// other failure is returned as an error. The stop command returns a nil
// response.
func (s *CommandService) Run(ctx context.Context, command string, params domain.Params) (*domain.Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.run(ctx, command, params)

	elapsed := time.Since(start)

	if isCommandError(err) {
		s.observe(command, metrics.OutcomeRejected, elapsed)
		s.logger.Debug().Str("command", command).Err(err).Msg("command rejected")
		return domain.ErrorResponse(err), nil
	}
	if err != nil {
		s.observe(command, metrics.OutcomeFailed, elapsed)
		s.logger.Error().Str("command", command).Err(err).Msg("command failed")
		return nil, err
	}

	s.observe(command, metrics.OutcomeOK, elapsed)
	s.logger.Debug().Str("command", command).Dur("duration", elapsed).Msg("command completed")
	return resp, nil
}

func (s *CommandService) observe(command, outcome string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	// Unknown names would grow the label set without bound.
	if !domain.IsKnownCommand(command) {
		command = "unknown"
	}
	s.metrics.Commands.WithLabelValues(command, outcome).Inc()
	s.metrics.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (s *CommandService) run(ctx context.Context, command string, params domain.Params) (*domain.Response, error) {
	switch command {
	case domain.CommandAdd:
		var p addParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Value == nil {
			return nil, fmt.Errorf("%w: value is required", domain.ErrInvalidParams)
		}
		id, err := s.ledger.AddEntry(ctx, AddEntryInput{
			Period:   p.Period,
			Name:     p.Name,
			Category: p.Category,
			Date:     p.Date,
			Value:    *p.Value,
		})
		if err != nil {
			return nil, err
		}
		return &domain.Response{ID: &id}, nil

	case domain.CommandGet:
		period, id, err := decodeEntryParams(params)
		if err != nil {
			return nil, err
		}
		record, err := s.ledger.GetEntry(ctx, period, id)
		if err != nil {
			return nil, err
		}
		return &domain.Response{Element: record}, nil

	case domain.CommandRemove:
		period, id, err := decodeEntryParams(params)
		if err != nil {
			return nil, err
		}
		if err := s.ledger.RemoveEntry(ctx, period, id); err != nil {
			return nil, err
		}
		return &domain.Response{ID: &id}, nil

	case domain.CommandUpdate:
		var p updateParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		id, err := checkEID(p.EID)
		if err != nil {
			return nil, err
		}
		err = s.ledger.UpdateEntry(ctx, UpdateEntryInput{
			Name:     p.Name,
			Value:    p.Value,
			Category: p.Category,
			Date:     p.Date,
			Period:   p.Period,
			ID:       id,
		})
		if err != nil {
			return nil, err
		}
		return &domain.Response{ID: &id}, nil

	case domain.CommandList:
		var p listParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		elements, err := s.ledger.ListEntries(ctx, ListEntriesInput(p))
		if err != nil {
			return nil, err
		}
		return &domain.Response{Elements: elements}, nil

	case domain.CommandPeriods:
		periods, err := s.ledger.ListPeriods(ctx)
		if err != nil {
			return nil, err
		}
		return &domain.Response{Periods: periods}, nil

	case domain.CommandStop:
		if s.onStop != nil {
			if err := s.onStop(); err != nil {
				return nil, fmt.Errorf("failed to stop: %w", err)
			}
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, command)
	}
}

func decodeParams(params domain.Params, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(map[string]any(params)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}
	return nil
}

func decodeEntryParams(params domain.Params) (string, uint64, error) {
	var p entryParams
	if err := decodeParams(params, &p); err != nil {
		return "", 0, err
	}
	id, err := checkEID(p.EID)
	if err != nil {
		return "", 0, err
	}
	return p.Period, id, nil
}

func checkEID(eid *int64) (uint64, error) {
	if eid == nil {
		return 0, fmt.Errorf("%w: eid is required", domain.ErrInvalidParams)
	}
	if *eid < 0 {
		return 0, fmt.Errorf("%w: eid must not be negative", domain.ErrInvalidParams)
	}
	return uint64(*eid), nil
}

func isCommandError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrEntryNotFound) ||
		errors.Is(err, domain.ErrPeriodNotFound) ||
		errors.Is(err, domain.ErrInvalidParams) ||
		errors.Is(err, domain.ErrUnknownCommand)
}
