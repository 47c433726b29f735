package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonymousgrouphp-collab/skillbun/internal/common/config"
	proofsvc "github.com/anonymousgrouphp-collab/skillbun/internal/features/humanproof/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type routerOptions struct {
	upstreamURL       string
	turnstileURL      string
	captchaEnabled    bool
	apiKey            string
	apiMax            int
	upstreamTimeoutMS int
}

func newTestRouter(t *testing.T, opts routerOptions) *gin.Engine {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Server.StaticDir = t.TempDir()
	cfg.Server.SecurityHeaders = true
	cfg.HumanProof.Secret = "test-proof-secret"
	cfg.HumanProof.TTLMS = 1800000
	cfg.Upstream.APIKey = opts.apiKey
	cfg.Upstream.BaseURL = opts.upstreamURL
	cfg.Upstream.Model = "gemini-2.5-flash"
	cfg.Upstream.TimeoutMS = 2000
	if opts.upstreamTimeoutMS > 0 {
		cfg.Upstream.TimeoutMS = opts.upstreamTimeoutMS
	}
	cfg.Captcha.VerifyURL = opts.turnstileURL
	cfg.Captcha.TimeoutMS = 1000
	if opts.captchaEnabled {
		cfg.Captcha.SiteKey = "test-site-key"
		cfg.Captcha.SecretKey = "test-secret-key"
	}
	cfg.RateLimit.WindowMS = 60000
	cfg.RateLimit.GeneralMax = 1000
	cfg.RateLimit.APIMax = 500
	if opts.apiMax > 0 {
		cfg.RateLimit.APIMax = opts.apiMax
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router, err := NewRouter(ctx, cfg)
	require.NoError(t, err)
	return router
}

// stubUpstream counts generateContent calls and answers with the given status
// and body.
func stubUpstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func stubTurnstile(t *testing.T, success bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"success":%t}`, success)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(router *gin.Engine, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func conversationBody(t *testing.T, turns int) string {
	t.Helper()
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	}
	payload := struct {
		Contents []content `json:"contents"`
	}{}
	for i := 0; i < turns; i++ {
		role := "user"
		if i%2 == 1 {
			role = "model"
		}
		payload.Contents = append(payload.Contents, content{Role: role, Parts: []part{{Text: "hello"}}})
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(raw)
}

func TestConfigEndpoint(t *testing.T) {
	t.Run("challenge disabled", func(t *testing.T) {
		router := newTestRouter(t, routerOptions{apiKey: "k"})
		w := doJSON(router, http.MethodGet, "/api/config", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"captcha":{"provider":"turnstile","enabled":false,"siteKey":""}}`, w.Body.String())
	})

	t.Run("challenge enabled", func(t *testing.T) {
		router := newTestRouter(t, routerOptions{apiKey: "k", captchaEnabled: true})
		w := doJSON(router, http.MethodGet, "/api/config", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"captcha":{"provider":"turnstile","enabled":true,"siteKey":"test-site-key"}}`, w.Body.String())
	})
}

// Scenario: no challenge mechanism configured; an empty verify body yields a
// token valid for the configured TTL.
func TestHumanVerifyWithoutChallenge(t *testing.T) {
	router := newTestRouter(t, routerOptions{apiKey: "k"})

	w := doJSON(router, http.MethodPost, "/api/human/verify", "{}", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		CaptchaEnabled bool   `json:"captchaEnabled"`
		HumanToken     string `json:"humanToken"`
		ExpiresAt      int64  `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.CaptchaEnabled)
	assert.Contains(t, resp.HumanToken, ".")
	assert.InDelta(t, time.Now().Add(30*time.Minute).UnixMilli(), resp.ExpiresAt, float64(5*time.Second.Milliseconds()))

	// The issued token is bound to this caller's address.
	svc := proofsvc.New("test-proof-secret", 30*time.Minute)
	assert.True(t, svc.Verify(resp.HumanToken, svc.HashAddr("192.0.2.1")))
}

// Scenario: challenge configured and the verification service rejects the
// response; no token is issued.
func TestHumanVerifyChallengeFailure(t *testing.T) {
	turnstile := stubTurnstile(t, false)
	router := newTestRouter(t, routerOptions{apiKey: "k", captchaEnabled: true, turnstileURL: turnstile.URL})

	w := doJSON(router, http.MethodPost, "/api/human/verify",
		`{"token":"challenge-response-token"}`, nil)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "humanToken")
}

func TestHumanVerifyChallengeSuccess(t *testing.T) {
	turnstile := stubTurnstile(t, true)
	router := newTestRouter(t, routerOptions{apiKey: "k", captchaEnabled: true, turnstileURL: turnstile.URL})

	w := doJSON(router, http.MethodPost, "/api/human/verify",
		`{"token":"challenge-response-token"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "humanToken")
}

func issueToken(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/human/verify",
		`{"token":"challenge-response-token"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		HumanToken string `json:"humanToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.HumanToken
}

// Scenario: valid token but 61 turns against a bound of 60; rejected before
// the upstream service is ever contacted.
func TestGenerateRejectsOversizedConversationBeforeUpstream(t *testing.T) {
	upstream, calls := stubUpstream(t, http.StatusOK, `{"ok":true}`)
	turnstile := stubTurnstile(t, true)
	router := newTestRouter(t, routerOptions{
		apiKey: "k", captchaEnabled: true,
		upstreamURL: upstream.URL, turnstileURL: turnstile.URL,
	})
	token := issueToken(t, router)

	w := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 61),
		map[string]string{proofsvc.Header: token})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), calls.Load(), "validation failures must not reach the upstream service")
}

// Scenario: valid token and payload, upstream reports 429; the gateway
// answers 429 with a generic busy message.
func TestGenerateMapsUpstreamBusy(t *testing.T) {
	upstream, _ := stubUpstream(t, http.StatusTooManyRequests, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`)
	turnstile := stubTurnstile(t, true)
	router := newTestRouter(t, routerOptions{
		apiKey: "k", captchaEnabled: true,
		upstreamURL: upstream.URL, turnstileURL: turnstile.URL,
	})
	token := issueToken(t, router)

	w := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 2),
		map[string]string{proofsvc.Header: token})

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "AI is busy")
	assert.NotContains(t, w.Body.String(), "RESOURCE_EXHAUSTED")
}

func TestGenerateSuccessPassesUpstreamBodyThrough(t *testing.T) {
	upstreamBody := `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`
	upstream, _ := stubUpstream(t, http.StatusOK, upstreamBody)
	router := newTestRouter(t, routerOptions{apiKey: "k", upstreamURL: upstream.URL})

	w := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 2), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, upstreamBody, w.Body.String())
}

func TestGenerateRequiresProofWhenChallengeEnabled(t *testing.T) {
	upstream, calls := stubUpstream(t, http.StatusOK, `{"ok":true}`)
	turnstile := stubTurnstile(t, true)
	router := newTestRouter(t, routerOptions{
		apiKey: "k", captchaEnabled: true,
		upstreamURL: upstream.URL, turnstileURL: turnstile.URL,
	})

	t.Run("missing header", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 2), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 2),
			map[string]string{proofsvc.Header: "definitely-not-a-real-token"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	assert.Equal(t, int64(0), calls.Load())
}

func TestGenerateMisconfiguredUpstreamCredential(t *testing.T) {
	upstream, calls := stubUpstream(t, http.StatusOK, `{"ok":true}`)
	router := newTestRouter(t, routerOptions{apiKey: "", upstreamURL: upstream.URL})

	w := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 2), nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, int64(0), calls.Load())
}

func TestGenerateUpstreamTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)

	router := newTestRouter(t, routerOptions{apiKey: "k", upstreamURL: slow.URL, upstreamTimeoutMS: 100})

	w := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 2), nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestGenerateMalformedBody(t *testing.T) {
	upstream, calls := stubUpstream(t, http.StatusOK, `{"ok":true}`)
	router := newTestRouter(t, routerOptions{apiKey: "k", upstreamURL: upstream.URL})

	for name, body := range map[string]string{
		"not json":        "this is not json",
		"empty body":      "",
		"wrong shape":     `{"contents":"nope"}`,
		"missing content": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/gemini", body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Equal(t, int64(0), calls.Load())
}

func TestGenerateBodySizeCap(t *testing.T) {
	upstream, calls := stubUpstream(t, http.StatusOK, `{"ok":true}`)
	router := newTestRouter(t, routerOptions{apiKey: "k", upstreamURL: upstream.URL})

	// Structurally plausible JSON padded past the 100 KB body cap.
	padded := `{"contents":[{"role":"user","parts":[{"text":"hi"}]}]` +
		strings.Repeat(" ", 110<<10) + `}`
	w := doJSON(router, http.MethodPost, "/api/gemini", padded, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), calls.Load())
}

func TestGenerateRateLimitTier(t *testing.T) {
	upstream, _ := stubUpstream(t, http.StatusOK, `{"ok":true}`)
	router := newTestRouter(t, routerOptions{apiKey: "k", upstreamURL: upstream.URL, apiMax: 1})

	first := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 2), nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(router, http.MethodPost, "/api/gemini", conversationBody(t, 2), nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// The general tier still serves other endpoints for the same caller.
	cfgResp := doJSON(router, http.MethodGet, "/api/config", "", nil)
	assert.Equal(t, http.StatusOK, cfgResp.Code)
}

func TestSecurityHeadersAndDotfileBlocking(t *testing.T) {
	router := newTestRouter(t, routerOptions{apiKey: "k"})

	w := doJSON(router, http.MethodGet, "/api/config", "", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")

	for _, target := range []string{"/.env", "/static/.git/config", "/sub/.GITIGNORE"} {
		blocked := doJSON(router, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusForbidden, blocked.Code, "path %s must be blocked", target)
	}
}

func TestUnknownAPIRouteIsJSON404(t *testing.T) {
	router := newTestRouter(t, routerOptions{apiKey: "k"})

	w := doJSON(router, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found."}`, w.Body.String())
}
