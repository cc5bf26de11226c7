package harbormaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cargo-phabricator/cargo-phabricator/model"
	"github.com/rs/zerolog"
)

const (
	sendMessageMethod = "harbormaster.sendmessage"
	// DefaultRetryDelay is the pause before the single retry of a network failure
	DefaultRetryDelay = 2 * time.Second
	defaultTimeout    = 60 * time.Second
	maxResponseBytes  = 1 << 20
	maxSnippetRunes   = 200
)

var authErrorCodes = map[string]bool{
	"ERR-INVALID-AUTH":    true,
	"ERR-INVALID-SESSION": true,
	"ERR-INVALID-TOKEN":   true,
}

// Client submits reports to the Conduit API
type Client struct {
	logger     zerolog.Logger
	httpClient *http.Client
	retryDelay time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryDelay sets the pause before retrying a network failure.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// NewClient creates a Conduit client.
func NewClient(logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends payload for the build target in rc. A network failure is
// retried once after a fixed delay; auth and rejection errors are returned
// immediately. Errors are always *SubmissionError.
func (c *Client) Submit(ctx context.Context, rc *model.RunContext, payload Payload) error {
	body, err := encodeForm(rc, payload)
	if err != nil {
		return &SubmissionError{Kind: ErrorKindRejected, Err: err}
	}
	endpoint := rc.PhabricatorURI() + "/api/" + sendMessageMethod

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("build_phid", payload.BuildTargetPHID).
		Str("type", string(payload.Type)).
		Int("lint", len(payload.Lint)).
		Int("unit", len(payload.Unit)).
		Msg("Submitting report to Harbormaster")

	err = c.send(ctx, endpoint, body)
	if KindOf(err) != ErrorKindNetwork || ctx.Err() != nil {
		return err
	}

	c.logger.Warn().Err(err).Dur("delay", c.retryDelay).Msg("Submission failed, retrying once")
	select {
	case <-ctx.Done():
		return &SubmissionError{Kind: ErrorKindNetwork, Err: ctx.Err()}
	case <-time.After(c.retryDelay):
	}
	return c.send(ctx, endpoint, body)
}

func encodeForm(rc *model.RunContext, payload Payload) (string, error) {
	encoded, err := json.Marshal(params{
		Payload: payload,
		Conduit: conduitAuth{Token: rc.Token()},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode parameters: %w", err)
	}
	form := url.Values{}
	form.Set("params", string(encoded))
	form.Set("output", "json")
	form.Set("__conduit__", "1")
	return form.Encode(), nil
}

func (c *Client) send(ctx context.Context, endpoint, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return &SubmissionError{Kind: ErrorKindRejected, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SubmissionError{Kind: ErrorKindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &SubmissionError{Kind: ErrorKindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &SubmissionError{Kind: ErrorKindAuth, StatusCode: resp.StatusCode, Err: errors.New(snippet(data))}
	case resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout:
		return &SubmissionError{Kind: ErrorKindNetwork, StatusCode: resp.StatusCode, Err: errors.New(snippet(data))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &SubmissionError{Kind: ErrorKindRejected, StatusCode: resp.StatusCode, Err: errors.New(snippet(data))}
	}

	var decoded conduitResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return &SubmissionError{Kind: ErrorKindRejected, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if decoded.ErrorCode != nil && *decoded.ErrorCode != "" {
		code := *decoded.ErrorCode
		info := ""
		if decoded.ErrorInfo != nil {
			info = *decoded.ErrorInfo
		}
		kind := ErrorKindRejected
		if authErrorCodes[code] {
			kind = ErrorKindAuth
		}
		return &SubmissionError{Kind: kind, StatusCode: resp.StatusCode, Code: code, Err: errors.New(info)}
	}

	c.logger.Debug().Int("status", resp.StatusCode).Msg("Harbormaster accepted the report")
	return nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if utf8.RuneCountInString(s) > maxSnippetRunes {
		s = string([]rune(s)[:maxSnippetRunes]) + "..."
	}
	if s == "" {
		return "empty response body"
	}
	return s
}
