package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/adapter/http/dto"
	apimiddleware "github.com/iho/financeager/internal/adapter/http/middleware"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
)

const maxResponseSize = 4 << 20

// HTTP runs commands against the REST service under /api/v1. The service
// is managed elsewhere; Launch does nothing.
type HTTP struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHTTP creates an HTTP proxy for cfg.HTTPURL sending requests through rt.
func NewHTTP(cfg Config, rt http.RoundTripper) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(cfg.HTTPURL, "/"),
		client:  &http.Client{Transport: rt},
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With().Str("backend", BackendHTTP.String()).Logger(),
	}
}

// Run maps command to a request and decodes the response. The stop command
// sends nothing.
func (p *HTTP) Run(ctx context.Context, command string, params domain.Params) (*domain.Response, error) {
	if command == domain.CommandStop {
		return nil, nil
	}

	route, err := newRoute(command, params)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParams) || errors.Is(err, domain.ErrUnknownCommand) {
			return domain.ErrorResponse(err), nil
		}
		return nil, p.fail(command, 0, err)
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	req, err := p.newRequest(ctx, route)
	if err != nil {
		return nil, p.fail(command, 0, err)
	}

	p.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("sending request")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, p.fail(command, 0, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, p.fail(command, 0, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, p.fail(command, res.StatusCode, decodeError(res.StatusCode, body))
	}

	var resp domain.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, p.fail(command, 0, fmt.Errorf("failed to decode response: %w", err))
	}
	return &resp, nil
}

// Launch is a no-op.
func (p *HTTP) Launch(context.Context) error {
	return nil
}

// Close drops idle connections.
func (p *HTTP) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *HTTP) newRequest(ctx context.Context, route route) (*http.Request, error) {
	target := p.baseURL + "/api/v1" + route.path
	if len(route.query) > 0 {
		target += "?" + route.query.Encode()
	}

	var body io.Reader
	if route.body != nil {
		data, err := json.Marshal(route.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, route.method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if route.method == http.MethodPost {
		req.Header.Set(apimiddleware.IdempotencyKeyHeader, ulid.Make().String())
	}
	return req, nil
}

func (p *HTTP) fail(command string, status int, err error) error {
	return &CommunicationError{Backend: BackendHTTP, Command: command, Status: status, Err: err}
}

// route is a command mapped onto the REST API.
type route struct {
	method string
	path   string
	query  url.Values
	body   any
}

type routeParams struct {
	Period string `mapstructure:"period"`
	EID    *int64 `mapstructure:"eid"`
}

type listFilter struct {
	Name     string `mapstructure:"name"`
	Category string `mapstructure:"category"`
	Date     string `mapstructure:"date"`
}

func newRoute(command string, params domain.Params) (route, error) {
	var rp routeParams
	if err := decodeParams(params, &rp); err != nil {
		return route{}, err
	}
	period := rp.Period
	if period == "" {
		period = usecase.DefaultPeriod()
	}
	periodPath := "/periods/" + url.PathEscape(period)

	switch command {
	case domain.CommandPeriods:
		return route{method: http.MethodGet, path: "/periods"}, nil

	case domain.CommandList:
		var f listFilter
		if err := decodeParams(params, &f); err != nil {
			return route{}, err
		}
		query := url.Values{}
		for key, value := range map[string]string{"name": f.Name, "category": f.Category, "date": f.Date} {
			if value != "" {
				query.Set(key, value)
			}
		}
		return route{method: http.MethodGet, path: periodPath, query: query}, nil

	case domain.CommandAdd:
		var body dto.AddEntryRequest
		if err := decodeParams(params, &body); err != nil {
			return route{}, err
		}
		if body.Value == nil {
			return route{}, fmt.Errorf("%w: value is required", domain.ErrInvalidParams)
		}
		return route{method: http.MethodPost, path: periodPath, body: body}, nil

	case domain.CommandGet, domain.CommandRemove, domain.CommandUpdate:
		eid, err := entryPath(rp.EID)
		if err != nil {
			return route{}, err
		}
		path := periodPath + eid

		switch command {
		case domain.CommandGet:
			return route{method: http.MethodGet, path: path}, nil
		case domain.CommandRemove:
			return route{method: http.MethodDelete, path: path}, nil
		}

		var body dto.UpdateEntryRequest
		if err := decodeParams(params, &body); err != nil {
			return route{}, err
		}
		return route{method: http.MethodPatch, path: path, body: body}, nil

	default:
		return route{}, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, command)
	}
}

func entryPath(eid *int64) (string, error) {
	if eid == nil {
		return "", fmt.Errorf("%w: eid is required", domain.ErrInvalidParams)
	}
	if *eid < 0 {
		return "", fmt.Errorf("%w: eid must not be negative", domain.ErrInvalidParams)
	}
	return "/" + strconv.FormatInt(*eid, 10), nil
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

// decodeError extracts the message of an error body, falling back to the
// raw body and then to the status text.
func decodeError(status int, body []byte) error {
	var e dto.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		if e.Message != "" {
			return fmt.Errorf("%s: %s", e.Error, e.Message)
		}
		return errors.New(e.Error)
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return errors.New(text)
	}
	return errors.New(strings.ToLower(http.StatusText(status)))
}
