package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/transport"
)

type call struct {
	command string
	params  domain.Params
}

type fakeProxy struct {
	calls     []call
	responses map[string]*domain.Response
	errs      map[string]error
	launched  int
	launchErr error
}

func (p *fakeProxy) Run(_ context.Context, command string, params domain.Params) (*domain.Response, error) {
	p.calls = append(p.calls, call{command: command, params: params})
	return p.responses[command], p.errs[command]
}

func (p *fakeProxy) Launch(context.Context) error {
	p.launched++
	return p.launchErr
}

func (p *fakeProxy) Close() error { return nil }

func (p *fakeProxy) commands() []string {
	names := make([]string, len(p.calls))
	for i, c := range p.calls {
		names[i] = c.command
	}
	return names
}

type harness struct {
	proxy  *fakeProxy
	out    *bytes.Buffer
	errOut *bytes.Buffer
	logs   *bytes.Buffer
	d      *Dispatcher
}

func newHarness(backend transport.Backend, proxy *fakeProxy) *harness {
	h := &harness{proxy: proxy, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, logs: &bytes.Buffer{}}
	h.d = NewDispatcher(proxy, Options{
		Backend: backend,
		Layout:  domain.DefaultLayout(),
		Out:     h.out,
		Err:     h.errOut,
		Logger:  zerolog.New(h.logs),
	})
	return h
}

func TestDispatcher_PrintsPeriods(t *testing.T) {
	h := newHarness(transport.BackendHTTP, &fakeProxy{
		responses: map[string]*domain.Response{domain.CommandPeriods: {Periods: []string{"2023", "2024"}}},
	})

	outcome := h.d.Run(context.Background(), domain.CommandPeriods, nil)

	assert.Equal(t, OutcomeOK, outcome)
	assert.Equal(t, "2023\n2024\n", h.out.String())
	assert.Empty(t, h.errOut.String())
	assert.Equal(t, []string{domain.CommandPeriods}, h.proxy.commands())
}

func TestDispatcher_PassesParamsThrough(t *testing.T) {
	h := newHarness(transport.BackendRPC, &fakeProxy{
		responses: map[string]*domain.Response{domain.CommandAdd: {ID: ptr(uint64(0))}},
	})
	params := domain.Params{"name": "bread", "value": "-2", "category": "food"}

	outcome := h.d.Run(context.Background(), domain.CommandAdd, params)

	assert.Equal(t, OutcomeOK, outcome)
	require.Len(t, h.proxy.calls, 1)
	assert.Equal(t, params, h.proxy.calls[0].params)
	assert.Empty(t, h.out.String())
}

func TestDispatcher_CommandError(t *testing.T) {
	h := newHarness(transport.BackendHTTP, &fakeProxy{
		responses: map[string]*domain.Response{domain.CommandRemove: {Error: ptr("entry not found")}},
	})

	outcome := h.d.Run(context.Background(), domain.CommandRemove, domain.Params{"eid": 0})

	assert.Equal(t, OutcomeCommandError, outcome)
	assert.Equal(t, "Command 'remove' returned an error: entry not found\n", h.errOut.String())
	assert.Empty(t, h.out.String())
	assert.Contains(t, h.logs.String(), `"kind":"command"`)
	assert.Contains(t, h.logs.String(), `"level":"warn"`)
}

func TestDispatcher_TransportError(t *testing.T) {
	commErr := &transport.CommunicationError{Backend: transport.BackendRPC, Command: domain.CommandList, Err: errors.New("connection refused")}
	h := newHarness(transport.BackendRPC, &fakeProxy{
		errs: map[string]error{domain.CommandList: commErr},
	})

	outcome := h.d.Run(context.Background(), domain.CommandList, nil)

	assert.Equal(t, OutcomeTransportError, outcome)
	assert.Equal(t, "Error running command 'list': rpc backend: connection refused\n", h.errOut.String())
	assert.Contains(t, h.logs.String(), `"kind":"transport"`)
	assert.Contains(t, h.logs.String(), `"level":"error"`)
}

func TestDispatcher_NilResponse(t *testing.T) {
	h := newHarness(transport.BackendHTTP, &fakeProxy{})

	outcome := h.d.Run(context.Background(), domain.CommandStop, nil)

	assert.Equal(t, OutcomeOK, outcome)
	assert.Empty(t, h.out.String())
	assert.Empty(t, h.errOut.String())
}

func TestDispatcher_PrintsElement(t *testing.T) {
	h := newHarness(transport.BackendHTTP, &fakeProxy{
		responses: map[string]*domain.Response{domain.CommandGet: {
			Element: &domain.EntryRecord{Name: "rent", Value: -500, Date: "2024-03-01", Category: "home"},
		}},
	})

	outcome := h.d.Run(context.Background(), domain.CommandGet, domain.Params{"eid": 1})

	assert.Equal(t, OutcomeOK, outcome)
	assert.True(t, strings.HasPrefix(h.out.String(), "Name    : Rent\n"))
	assert.Contains(t, h.out.String(), "Value   : -500.00\n")
}

func TestDispatcher_MalformedResponse(t *testing.T) {
	h := newHarness(transport.BackendHTTP, &fakeProxy{
		responses: map[string]*domain.Response{domain.CommandList: {
			Elements: &domain.Elements{Categories: []domain.CategoryRecord{{Name: ""}}},
		}},
	})

	outcome := h.d.Run(context.Background(), domain.CommandList, nil)

	assert.Equal(t, OutcomeTransportError, outcome)
	assert.Contains(t, h.errOut.String(), "Error running command 'list': malformed response")
}

func TestDispatcher_LocalBackendStopsAfterEachCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		proxy   *fakeProxy
		want    []string
		outcome Outcome
	}{
		{
			name:    "success",
			command: domain.CommandPeriods,
			proxy:   &fakeProxy{responses: map[string]*domain.Response{domain.CommandPeriods: {Periods: []string{"2024"}}}},
			want:    []string{domain.CommandPeriods, domain.CommandStop},
			outcome: OutcomeOK,
		},
		{
			name:    "command error",
			command: domain.CommandGet,
			proxy:   &fakeProxy{responses: map[string]*domain.Response{domain.CommandGet: {Error: ptr("entry not found")}}},
			want:    []string{domain.CommandGet, domain.CommandStop},
			outcome: OutcomeCommandError,
		},
		{
			name:    "transport error",
			command: domain.CommandList,
			proxy:   &fakeProxy{errs: map[string]error{domain.CommandList: errors.New("disk full")}},
			want:    []string{domain.CommandList, domain.CommandStop},
			outcome: OutcomeTransportError,
		},
		{
			name:    "explicit stop is sent once",
			command: domain.CommandStop,
			proxy:   &fakeProxy{},
			want:    []string{domain.CommandStop},
			outcome: OutcomeOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(transport.BackendLocal, tt.proxy)

			outcome := h.d.Run(context.Background(), tt.command, nil)

			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.want, tt.proxy.commands())
		})
	}
}

func TestDispatcher_RemoteBackendsAreNotStopped(t *testing.T) {
	for _, backend := range []transport.Backend{transport.BackendRPC, transport.BackendHTTP} {
		t.Run(backend.String(), func(t *testing.T) {
			h := newHarness(backend, &fakeProxy{})

			h.d.Run(context.Background(), domain.CommandPeriods, nil)

			assert.Equal(t, []string{domain.CommandPeriods}, h.proxy.commands())
		})
	}
}

func TestDispatcher_Start(t *testing.T) {
	t.Run("launches without running a command", func(t *testing.T) {
		h := newHarness(transport.BackendRPC, &fakeProxy{})

		outcome := h.d.Run(context.Background(), domain.CommandStart, nil)

		assert.Equal(t, OutcomeOK, outcome)
		assert.Equal(t, 1, h.proxy.launched)
		assert.Empty(t, h.proxy.calls)
	})

	t.Run("launch failure", func(t *testing.T) {
		h := newHarness(transport.BackendRPC, &fakeProxy{launchErr: errors.New("address already in use")})

		outcome := h.d.Run(context.Background(), domain.CommandStart, nil)

		assert.Equal(t, OutcomeTransportError, outcome)
		assert.Equal(t, "Error running command 'start': address already in use\n", h.errOut.String())
	})
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "command_error", OutcomeCommandError.String())
	assert.Equal(t, "transport_error", OutcomeTransportError.String())
}
