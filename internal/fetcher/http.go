package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/edinet-screener/internal/resilience"
)

// EDINETHost is the API host of the EDINET disclosure system.
const EDINETHost = "disclosure.edinet-fsa.go.jp"

// DefaultMaxBodyBytes caps a fully read response.
const DefaultMaxBodyBytes = 256 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Retry        resilience.RetryConfig
	// Limiters are per-host slot providers. Hosts without one use a
	// default limit of 20 requests per second.
	Limiters map[string]*AdaptiveLimiter
}

// StatusError is a non-success HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}

// AdaptiveLimiter hands out request slots at a configured rate. A 429
// halves the rate (down to a quarter of the configured one); each success
// raises it by 20% back toward the configured ceiling.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	ceiling rate.Limit
	floor   rate.Limit
	current rate.Limit
}

// NewAdaptiveLimiter creates a limiter allowing r events per second.
func NewAdaptiveLimiter(r rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(r, burst),
		ceiling: r,
		floor:   r / 4,
		current: r,
	}
}

// NewIntervalLimiter allows one request per interval.
func NewIntervalLimiter(interval time.Duration) *AdaptiveLimiter {
	if interval <= 0 {
		return NewAdaptiveLimiter(rate.Inf, 1)
	}
	return NewAdaptiveLimiter(rate.Every(interval), 1)
}

// Acquire blocks until a request slot is available.
func (a *AdaptiveLimiter) Acquire(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess moves the rate back toward the ceiling.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current >= a.ceiling {
		return
	}
	a.current = min(a.current*1.2, a.ceiling)
	a.limiter.SetLimit(a.current)
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ceiling == rate.Inf {
		return
	}
	a.current = max(a.current*0.5, a.floor)
	a.limiter.SetLimit(a.current)
	zap.L().Warn("fetcher: reducing request rate after 429",
		zap.Float64("new_rate", float64(a.current)),
	)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// EDINETLimiters returns the limiter set for the EDINET API at one request
// per interval.
func EDINETLimiters(interval time.Duration) map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{EDINETHost: NewIntervalLimiter(interval)}
}

// HTTPFetcher implements Fetcher using net/http with retry and rate limiting.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*AdaptiveLimiter

	fallbackOnce sync.Once
	fallback     *AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "edinet-screener/1.0"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	limiters := make(map[string]*AdaptiveLimiter, len(opts.Limiters))
	for host, l := range opts.Limiters {
		limiters[host] = l
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
	}
}

func (f *HTTPFetcher) limiterFor(u *url.URL) *AdaptiveLimiter {
	if l, ok := f.limiters[u.Host]; ok {
		return l
	}
	f.fallbackOnce.Do(func() {
		f.fallback = NewAdaptiveLimiter(20, 20)
	})
	return f.fallback
}

// do sends a GET, retrying transient failures. Statuses other than 200 that
// are not transient come back as *StatusError without retry.
func (f *HTTPFetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	lim := f.limiterFor(u)

	retry := f.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("fetch " + redact(u))
	}

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*http.Response, error) {
		if err := lim.Acquire(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			// *url.Error carries the raw URL, API key included.
			var ue *url.Error
			if errors.As(err, &ue) {
				ue.URL = redact(u)
			}
			return nil, eris.Wrap(err, "fetcher: request")
		}

		if resp.StatusCode == http.StatusOK {
			lim.OnSuccess()
			return resp, nil
		}

		_ = resp.Body.Close()
		serr := &StatusError{URL: redact(u), StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			lim.OnRateLimit()
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(serr, resp.StatusCode)
		}
		return nil, serr
	})
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.do(ctx, rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: download")
	}
	return resp.Body, nil
}

// Fetch reads the whole response body, up to MaxBodyBytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	resp, err := f.do(ctx, rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, eris.Errorf("fetcher: body exceeds %d bytes", f.opts.MaxBodyBytes)
	}

	return &Response{
		URL:         redact(resp.Request.URL),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// redact drops the Subscription-Key query parameter from logged URLs.
func redact(u *url.URL) string {
	q := u.Query()
	if q.Get("Subscription-Key") == "" {
		return u.String()
	}
	q.Set("Subscription-Key", "REDACTED")
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}
