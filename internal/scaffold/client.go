package scaffold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/ident"
)

// DefaultTimeout bounds every call to the helper service.
const DefaultTimeout = 3 * time.Second

// Client is a Generator backed by the helper service.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-call timeout. Default: DefaultTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request is the body of every POST to the helper service.
type request struct {
	ComponentID string `json:"componentId"`
	Source      string `json:"source,omitempty"`
	Markup      string `json:"markup,omitempty"`
}

// response is the body of every helper service reply.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Exists  bool   `json:"exists,omitempty"`
	Result
}

// Health checks that the helper service answers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

// Generate asks the service to generate id.
func (c *Client) Generate(ctx context.Context, id string) (Result, error) {
	if err := ident.Validate(id); err != nil {
		return Result{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/generate", &request{ComponentID: id})
	if err != nil {
		return Result{}, err
	}
	return resp.Result, nil
}

// Delete asks the service to delete id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := ident.Validate(id); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPost, "/delete", &request{ComponentID: id})
	return err
}

// WriteSourceAndMarkup asks the service to rewrite the files of id.
func (c *Client) WriteSourceAndMarkup(ctx context.Context, id, source, markup string) error {
	if err := ident.Validate(id); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPost, "/write", &request{ComponentID: id, Source: source, Markup: markup})
	return err
}

// Exists asks the service whether id has files.
func (c *Client) Exists(ctx context.Context, id string) (bool, error) {
	if err := ident.Validate(id); err != nil {
		return false, err
	}
	resp, err := c.do(ctx, http.MethodGet, "/exists/"+url.PathEscape(id), nil)
	if err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) do(ctx context.Context, method, route string, body *request) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.New("E211").WithStep(errors.StepScaffold).Wrap(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, reader)
	if err != nil {
		return nil, unavailable(err).WithDetail("bad helper service URL " + c.baseURL)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, unavailable(err).
			WithDetail(fmt.Sprintf("%s %s did not answer within %s", method, c.baseURL+route, c.timeout)).
			WithSuggestion("Start the helper with `uiforge serve`")
	}
	defer res.Body.Close()

	var out response
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		return nil, errors.New("E211").
			WithStep(errors.StepScaffold).
			WithDetail(fmt.Sprintf("%s %s: unreadable reply (status %d)", method, route, res.StatusCode)).
			Wrap(err)
	}

	if res.StatusCode >= 400 || (body != nil && !out.Success) {
		code := out.Code
		if _, ok := errors.GetTemplate(code); !ok {
			code = "E211"
		}
		fe := errors.New(code).WithStep(errors.StepScaffold)
		if out.Error != "" {
			fe.WithDetail(out.Error)
		}
		return nil, fe
	}
	return &out, nil
}
