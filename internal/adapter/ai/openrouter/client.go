// Package openrouter implements domain.AIClient against the OpenRouter
// chat completions API.
package openrouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tutorstack/essay-tutor/internal/adapter/ai/tokencount"
	"github.com/tutorstack/essay-tutor/internal/adapter/observability"
	"github.com/tutorstack/essay-tutor/internal/config"
	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/service/ratelimiter"
)

// RateLimitKey is the shared limiter bucket all worker replicas draw from.
const RateLimitKey = "openrouter.chat"

// Client calls OpenRouter with retry, rate limiting, and a local prompt
// token budget.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	limiter ratelimiter.Limiter
	counter *tokencount.Counter

	mu       sync.Mutex
	lastCall time.Time
}

// New constructs a Client. limiter may be nil, in which case only the local
// minimum spacing and provider 429 handling apply.
func New(cfg config.Config, limiter ratelimiter.Limiter) *Client {
	timeout := 60 * time.Second
	if cfg.IsDev() {
		timeout = 300 * time.Second
	}
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("OpenRouter %s %s", r.Method, r.URL.Host)
		}),
	)
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter: limiter,
		counter: tokencount.NewCounter(),
	}
}

// waitMinInterval enforces OPENROUTER_MIN_INTERVAL between successive
// provider call attempts from this process, independent of the shared
// limiter. Free-tier keys throttle by spacing as well as by quota.
func (c *Client) waitMinInterval(ctx domain.Context) error {
	interval := c.cfg.OpenRouterMinInterval
	if interval <= 0 {
		return nil
	}
	c.mu.Lock()
	wait := interval - time.Since(c.lastCall)
	if wait <= 0 {
		c.lastCall = time.Now()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, ctx.Err())
	case <-time.After(wait):
	}
	c.mu.Lock()
	c.lastCall = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *Client) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// waitForBudget blocks until the shared rate limiter admits the call or the
// context expires.
func (c *Client) waitForBudget(ctx domain.Context) error {
	if c.limiter == nil {
		return nil
	}
	for {
		allowed, retryAfter, err := c.limiter.Allow(ctx, RateLimitKey, 1)
		if err != nil || allowed {
			// Limiter errors fail open.
			return nil
		}
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		slog.Debug("ai rate limit wait", slog.Duration("retry_after", retryAfter))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, ctx.Err())
		case <-time.After(retryAfter):
		}
	}
}

// ChatJSON sends a two-message chat completion and returns the raw content
// of the first choice.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrInvalidArgument)
	}
	model := c.cfg.OpenRouterModel

	if budget := c.cfg.AIPromptTokenBudget; budget > 0 {
		n, err := c.counter.CountChatTokens(systemPrompt, userPrompt, model)
		if err != nil {
			n = tokencount.EstimateTokens(systemPrompt + userPrompt)
		}
		if n > budget {
			return "", fmt.Errorf("%w: prompt of %d tokens exceeds budget %d", domain.ErrInvalidArgument, n, budget)
		}
	}

	if err := c.waitForBudget(ctx); err != nil {
		return "", err
	}

	body, _ := json.Marshal(map[string]any{
		"model":       model,
		"temperature": 0.2,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	})

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	var rateLimited bool
	op := func() error {
		if err := c.waitMinInterval(ctx); err != nil {
			return backoff.Permanent(err)
		}
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.OpenRouterReferer != "" {
			req.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
		}
		if c.cfg.OpenRouterTitle != "" {
			req.Header.Set("X-Title", c.cfg.OpenRouterTitle)
		}
		resp, err := c.hc.Do(req)
		observability.AIRequestDuration.WithLabelValues("openrouter").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.AIRequestsTotal.WithLabelValues("openrouter", "error").Inc()
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			observability.AIRequestsTotal.WithLabelValues("openrouter", "error").Inc()
			return err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			rateLimited = true
			observability.AIRequestsTotal.WithLabelValues("openrouter", "rate_limited").Inc()
			slog.Warn("ai provider rate limited", slog.String("provider", "openrouter"), slog.String("model", model))
			return errors.New("rate limited: 429")
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			observability.AIRequestsTotal.WithLabelValues("openrouter", "client_error").Inc()
			slog.Warn("ai provider 4xx",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("model", model),
				slog.String("body", snippet(respBody, 512)))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			observability.AIRequestsTotal.WithLabelValues("openrouter", "server_error").Inc()
			slog.Error("ai provider non-2xx",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("model", model),
				slog.String("body", snippet(respBody, 512)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(respBody, &out); err != nil {
			observability.AIRequestsTotal.WithLabelValues("openrouter", "decode_error").Inc()
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		rateLimited = false
		observability.AIRequestsTotal.WithLabelValues("openrouter", "ok").Inc()
		return nil
	}

	bo := backoff.WithContext(c.backoffConfig(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if rateLimited {
			return "", fmt.Errorf("%w: openrouter chat: %v", domain.ErrUpstreamRateLimit, err)
		}
		if errors.Is(err, ctx.Err()) && ctx.Err() != nil {
			return "", fmt.Errorf("%w: openrouter chat: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("openrouter chat: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices from provider", domain.ErrSchemaInvalid)
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
