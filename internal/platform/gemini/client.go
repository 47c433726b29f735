// Package gemini calls the upstream generation API. One request per call, no
// retries: a blind retry of a generation call may duplicate billed work, so
// backoff policy belongs to the frontend client.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/anonymousgrouphp-collab/skillbun/internal/common/errors"
	"github.com/anonymousgrouphp-collab/skillbun/internal/common/logger"
)

// Upstream error bodies are logged at most this long and never forwarded.
const maxLoggedBody = 500

// Placeholder value from the .env template; treated the same as unset.
const placeholderAPIKey = "your_api_key_here"

// Client-safe messages for each upstream outcome.
const (
	msgTimeout = "AI service timed out. Please try again."
	msgBusy    = "AI is busy. Please try again in a moment."
	msgFailure = "Something went wrong with our AI service. Please try again."
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewClient builds an upstream client. The per-call deadline comes from the
// caller's context, so the underlying http.Client carries no timeout of its
// own.
func NewClient(apiKey, baseURL, model string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
	}
}

// Configured reports whether an upstream credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != placeholderAPIKey
}

// Generate issues exactly one generateContent call with the given body and
// returns the raw success body. The context deadline bounds the whole call,
// including reading the response; when it elapses the in-flight request is
// cancelled and its connection released. Failures come back as *AppError
// with the raw upstream detail logged here, never surfaced.
func (c *Client) Generate(ctx context.Context, body []byte) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamFailure, msgFailure)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn().Str("model", c.model).Msg("upstream generation call timed out")
			return nil, apperrors.Wrap(err, apperrors.CodeUpstreamTimeout, msgTimeout)
		}
		logger.Error().Err(err).Str("model", c.model).Msg("upstream generation call failed")
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamFailure, msgFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		logger.Error().
			Int("status", resp.StatusCode).
			Str("model", c.model).
			Str("upstream_body", string(snippet)).
			Msg("upstream generation call returned error status")

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, apperrors.New(apperrors.CodeUpstreamBusy, msgBusy)
		}
		return nil, apperrors.New(apperrors.CodeUpstreamFailure, msgFailure)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Wrap(err, apperrors.CodeUpstreamTimeout, msgTimeout)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamFailure, msgFailure)
	}

	if len(bytes.TrimSpace(data)) == 0 || !json.Valid(data) {
		logger.Error().Str("model", c.model).Int("body_len", len(data)).Msg("upstream returned empty or unparseable body")
		return nil, apperrors.New(apperrors.CodeUpstreamEmpty, msgFailure)
	}
	return data, nil
}
