// Package cli dispatches user commands to a transport and prints the
// results.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/transport"
)

// Outcome classifies how a dispatched command ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeCommandError means the command reached the service and was
	// rejected, e.g. for an unknown entry.
	OutcomeCommandError
	// OutcomeTransportError means the command could not be carried out.
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeCommandError:
		return "command_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options configures a Dispatcher. Nil writers default to stdout and
// stderr.
type Options struct {
	Backend transport.Backend
	Layout  domain.Layout
	Stacked bool
	Out     io.Writer
	Err     io.Writer
	Logger  zerolog.Logger
}

// Dispatcher sends one command at a time through a proxy and prints its
// response.
type Dispatcher struct {
	proxy   transport.Proxy
	backend transport.Backend
	layout  domain.Layout
	stacked bool
	out     io.Writer
	errOut  io.Writer
	logger  zerolog.Logger
}

// NewDispatcher creates a Dispatcher over proxy.
func NewDispatcher(proxy transport.Proxy, opts Options) *Dispatcher {
	d := &Dispatcher{
		proxy:   proxy,
		backend: opts.Backend,
		layout:  opts.Layout,
		stacked: opts.Stacked,
		out:     opts.Out,
		errOut:  opts.Err,
		logger:  opts.Logger,
	}
	if d.out == nil {
		d.out = os.Stdout
	}
	if d.errOut == nil {
		d.errOut = os.Stderr
	}
	return d
}

// Run executes command and prints its outcome. Failures are reported, never
// returned. With the local backend the in-process service is stopped after
// every command.
func (d *Dispatcher) Run(ctx context.Context, command string, params domain.Params) Outcome {
	logger := d.logger.With().Str("command", command).Str("backend", d.backend.String()).Logger()

	if command == domain.CommandStart {
		if err := d.proxy.Launch(ctx); err != nil {
			return d.transportFailure(logger, command, err)
		}
		return OutcomeOK
	}

	outcome := d.run(ctx, logger, command, params)

	if d.backend == transport.BackendLocal && command != domain.CommandStop {
		if _, err := d.proxy.Run(ctx, domain.CommandStop, nil); err != nil {
			logger.Warn().Err(err).Msg("failed to stop local service")
		}
	}

	return outcome
}

func (d *Dispatcher) run(ctx context.Context, logger zerolog.Logger, command string, params domain.Params) Outcome {
	resp, err := d.proxy.Run(ctx, command, params)
	if err != nil {
		return d.transportFailure(logger, command, err)
	}
	if resp == nil {
		logger.Debug().Msg("command completed without response")
		return OutcomeOK
	}

	if resp.Error != nil {
		logger.Warn().Str("kind", "command").Str("error", *resp.Error).Msg("command returned an error")
		fmt.Fprintf(d.errOut, "Command '%s' returned an error: %s\n", command, *resp.Error)
		return OutcomeCommandError
	}

	text, err := Format(resp, d.layout, d.stacked)
	if err != nil {
		return d.transportFailure(logger, command, fmt.Errorf("malformed response: %w", err))
	}
	if text != "" {
		fmt.Fprintln(d.out, text)
	}

	logger.Debug().Msg("command completed")
	return OutcomeOK
}

func (d *Dispatcher) transportFailure(logger zerolog.Logger, command string, err error) Outcome {
	logger.Error().Str("kind", "transport").Err(err).Msg("command failed")
	fmt.Fprintf(d.errOut, "Error running command '%s': %v\n", command, err)
	return OutcomeTransportError
}
