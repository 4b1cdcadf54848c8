package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/partygpt/pkg/session"
)

// ErrUnexpectedStatus is returned when the backend answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected backend status")

// ProcessInputRequest is the body of POST /process-input.
type ProcessInputRequest struct {
	Message string `json:"message"`
}

// ProcessInputResponse carries the assistant reply; Reply is nil when the
// backend has nothing to say.
type ProcessInputResponse struct {
	Reply *string `json:"reply"`
}

// SetRecordsResponse is the body returned by GET /set-records.
type SetRecordsResponse struct {
	Message string `json:"message"`
}

// Client talks to the four HTTP endpoints of the chat backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  zerolog.Logger
}

var _ session.Backend = (*Client)(nil)

type ClientOption func(*Client) error

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) error {
		if h == nil {
			return errors.New("http client is nil")
		}
		c.http = h
		return nil
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.http.Timeout = d
		return nil
	}
}

func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid backend url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("backend url %q must use http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  log.With().Str("component", "backend").Str("url", u.String()).Logger(),
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "failed to apply client option")
		}
	}
	return c, nil
}

// NewClientFromSettings builds a client from the backend section.
func NewClientFromSettings(s Settings) (*Client, error) {
	return NewClient(s.BaseURL, WithTimeout(s.RequestTimeout()))
}

// BaseURL returns the backend root, used to derive the socket address.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

func (c *Client) ProcessInput(ctx context.Context, message string) (*string, error) {
	body, err := json.Marshal(ProcessInputRequest{Message: message})
	if err != nil {
		return nil, errors.Wrap(err, "encode process-input request")
	}
	var resp ProcessInputResponse
	if err := c.do(ctx, http.MethodPost, "/process-input", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Reply, nil
}

func (c *Client) SaveRecords(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/save-records", nil, nil, nil)
}

func (c *Client) SetRecords(ctx context.Context, flag bool) (string, error) {
	q := url.Values{}
	q.Set("flag", strconv.FormatBool(flag))
	var resp SetRecordsResponse
	if err := c.do(ctx, http.MethodGet, "/set-records", q, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) CloseSession(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/close-session", nil, nil, nil)
}

// do issues one request and decodes a JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrapf(err, "build %s request", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Wrapf(ErrUnexpectedStatus, "%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}
