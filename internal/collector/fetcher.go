package collector

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

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	apperrors "github.com/kurihiro0119/rum-count/internal/errors"
)

const (
	pageSizeParam             = "page[size]"
	defaultBreakerTimeout     = 30 * time.Second
	defaultBreakerMaxRequests = 100
)

// FetcherOptions configures a Fetcher
type FetcherOptions struct {
	BaseURL           string
	APIVersion        string
	Token             string
	PageSize          int
	Retry             RetryPolicy
	RequestsPerSecond float64
	// BreakerThreshold opens a circuit after that many consecutive fatal
	// failures; 0 disables the breaker
	BreakerThreshold uint32
	// BreakerTimeout is how long an open circuit waits before letting
	// trial requests through
	BreakerTimeout time.Duration
	// BreakerMaxRequests bounds concurrent trial requests while half-open
	BreakerMaxRequests uint32
	Timeout            time.Duration
	// HTTPClient is the base client the bearer token transport wraps
	HTTPClient *http.Client
}

// Fetcher performs paginated, rate-limit aware GETs against the API. It is
// safe for concurrent use; all state is read-only after construction.
type Fetcher struct {
	client   *http.Client
	apiURL   *url.URL
	pageSize int
	retry    RetryPolicy
	limiter  RateLimiter
	breaker  *gobreaker.CircuitBreaker[[]byte]
	logger   *zap.Logger
}

// NewFetcher creates a new Fetcher
func NewFetcher(opts FetcherOptions, logger *zap.Logger) (*Fetcher, error) {
	apiURL, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + opts.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid API address: %w", err)
	}
	if apiURL.Scheme == "" || apiURL.Host == "" {
		return nil, fmt.Errorf("invalid API address %q: must be absolute", opts.BaseURL)
	}

	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: opts.Token},
	)
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = opts.Timeout

	if opts.PageSize < 1 {
		opts.PageSize = 100
	}
	if opts.Retry.Delay <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Fetcher{
		client:   client,
		apiURL:   apiURL,
		pageSize: opts.PageSize,
		retry:    opts.Retry,
		limiter:  NewRateLimiter(opts.RequestsPerSecond),
		logger:   logger,
	}

	if opts.BreakerThreshold > 0 {
		threshold := opts.BreakerThreshold
		timeout := opts.BreakerTimeout
		if timeout <= 0 {
			timeout = defaultBreakerTimeout
		}
		maxRequests := opts.BreakerMaxRequests
		if maxRequests == 0 {
			maxRequests = defaultBreakerMaxRequests
		}
		f.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "terraform-api",
			MaxRequests: maxRequests,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// 401, 404 and 429 describe one unit of work or pacing, not the
			// health of the API
			IsSuccessful: func(err error) bool {
				return err == nil ||
					apperrors.IsUnauthorized(err) ||
					apperrors.IsNotFound(err) ||
					apperrors.IsRateLimited(err) ||
					errors.Is(err, context.Canceled) ||
					errors.Is(err, context.DeadlineExceeded)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	return f, nil
}

type listPage struct {
	Data  json.RawMessage `json:"data"`
	Links *struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// FetchAll retrieves every page of a list endpoint and returns the
// concatenated data records in page order. Follow-up pages are requested
// exactly as given by links.next; params only apply to the first request.
func (f *Fetcher) FetchAll(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	if q.Get(pageSizeParam) == "" {
		q.Set(pageSizeParam, strconv.Itoa(f.pageSize))
	}

	next := f.endpoint(path, q)
	seen := map[string]bool{}
	var records []json.RawMessage

	for next != "" {
		if seen[next] {
			return nil, apperrors.NewMalformedResponseError(next, "pagination link loops back to a fetched page", nil)
		}
		seen[next] = true

		body, err := f.get(ctx, next)
		if err != nil {
			return nil, err
		}
		apiPagesTotal.Inc()

		var page listPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, apperrors.NewMalformedResponseError(next, "invalid JSON body", err)
		}
		var data []json.RawMessage
		if len(page.Data) == 0 || bytes.Equal(page.Data, []byte("null")) {
			return nil, apperrors.NewMalformedResponseError(next, "response has no data array", nil)
		}
		if err := json.Unmarshal(page.Data, &data); err != nil {
			return nil, apperrors.NewMalformedResponseError(next, "data is not an array", err)
		}
		records = append(records, data...)

		current := next
		next = ""
		if page.Links != nil && page.Links.Next != nil && *page.Links.Next != "" {
			u, err := resolveLink(current, *page.Links.Next)
			if err != nil {
				return nil, apperrors.NewMalformedResponseError(*page.Links.Next, "invalid next link", err)
			}
			next = u
		}
	}

	return records, nil
}

// FetchOne retrieves a single-object endpoint and returns its data member
func (f *Fetcher) FetchOne(ctx context.Context, path string) (json.RawMessage, error) {
	u := f.endpoint(path, nil)
	body, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.NewMalformedResponseError(u, "invalid JSON body", err)
	}
	if len(doc.Data) == 0 || bytes.Equal(doc.Data, []byte("null")) {
		return nil, apperrors.NewMalformedResponseError(u, "response has no data object", nil)
	}
	return doc.Data, nil
}

// endpoint joins an already escaped path onto the API URL
func (f *Fetcher) endpoint(path string, params url.Values) string {
	u := strings.TrimRight(f.apiURL.String(), "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// resolveLink resolves a pagination link against the page it came from
func resolveLink(current, link string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	u, err := base.Parse(link)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// get issues one logical GET. 429 responses, and trial requests turned away
// by a saturated half-open breaker, are retried on the retry policy.
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		b, err := f.attempt(ctx, rawURL)
		if err == nil {
			body = b
			return nil
		}
		if apperrors.IsRateLimited(err) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			f.logger.Debug("circuit half-open, waiting for a trial slot",
				zap.String("url", rawURL),
				zap.Duration("retry_in", wait))
			return
		}
		apiRateLimitedTotal.Inc()
		f.logger.Warn("rate limited, throttling requests",
			zap.String("url", rawURL),
			zap.Duration("retry_in", wait))
	}

	err := backoff.RetryNotify(operation, f.retry.newBackOff(ctx), notify)
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewCircuitOpenError(rawURL, err)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// attempt sends a single request through the circuit breaker, if any
func (f *Fetcher) attempt(ctx context.Context, rawURL string) ([]byte, error) {
	if f.breaker == nil {
		return f.do(ctx, rawURL)
	}

	body, err := f.breaker.Execute(func() ([]byte, error) {
		return f.do(ctx, rawURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return nil, apperrors.NewCircuitOpenError(rawURL, err)
	}
	return body, err
}

func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")

	start := time.Now()
	resp, err := f.client.Do(req)
	apiRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		apiRequestsTotal.WithLabelValues("error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewNetworkError(rawURL, err)
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(statusClass(resp.StatusCode)).Inc()
	f.logger.Debug("api request",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperrors.FromStatus(resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError(rawURL, err)
	}
	return body, nil
}
