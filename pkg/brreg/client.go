// Package brreg queries the Brønnøysund entity and annual-accounts registers
// for employee counts and revenue.
package brreg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadmatch/internal/resilience"
)

const (
	// DefaultEntitiesURL is the Enhetsregisteret entity endpoint.
	DefaultEntitiesURL = "https://data.brreg.no/enhetsregisteret/api/enheter"
	// DefaultAccountsURL is the Regnskapsregisteret accounts endpoint.
	DefaultAccountsURL = "https://data.brreg.no/regnskapsregisteret/regnskap"
	// DefaultUserAgent identifies the tool to the registry operators.
	DefaultUserAgent = "leadmatch/1.0 (+https://github.com/sells-group/leadmatch)"
)

// ErrNotFound is returned when the registry has no record for an identifier.
var ErrNotFound = eris.New("brreg: not found")

// ErrMalformed is returned when a response body is not valid JSON.
var ErrMalformed = eris.New("brreg: malformed response")

// Client looks up live figures for one organization number. A nil figure
// with a nil error means the registry answered but reported no figure.
type Client interface {
	Employees(ctx context.Context, orgnr string) (*int64, error)
	Revenue(ctx context.Context, orgnr string) (*int64, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets the shared HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURLs overrides both endpoints. Empty values keep the defaults.
func WithBaseURLs(entities, accounts string) Option {
	return func(c *client) {
		if entities != "" {
			c.entitiesURL = strings.TrimRight(entities, "/")
		}
		if accounts != "" {
			c.accountsURL = strings.TrimRight(accounts, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithPolicy sets the retry policy used by both lookups.
func WithPolicy(p resilience.Policy) Option {
	return func(c *client) {
		c.policy = p
	}
}

// WithRateLimit caps requests per second across both endpoints. Zero or
// less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker guards each endpoint with its own breaker.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *client) {
		c.entitiesBreaker = resilience.NewCircuitBreaker(cfg)
		c.accountsBreaker = resilience.NewCircuitBreaker(cfg)
	}
}

type client struct {
	httpClient      *http.Client
	entitiesURL     string
	accountsURL     string
	userAgent       string
	policy          resilience.Policy
	limiter         *rate.Limiter
	entitiesBreaker *resilience.CircuitBreaker
	accountsBreaker *resilience.CircuitBreaker
}

// NewClient creates a registry Client.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient:  NewHTTPClient(8),
		entitiesURL: DefaultEntitiesURL,
		accountsURL: DefaultAccountsURL,
		userAgent:   DefaultUserAgent,
		policy:      resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.OnRetry == nil {
		c.policy.OnRetry = resilience.RetryLogger("brreg", "get")
	}
	return c
}

// NewHTTPClient builds an HTTP client whose transport keeps at least
// maxConns connections per host, so a worker pool of that size never waits
// on the pool itself. Deadlines come from the request context.
func NewHTTPClient(maxConns int) *http.Client {
	if maxConns < 1 {
		maxConns = 1
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxConns * 2,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// entityResponse is the part of an Enhetsregisteret entity we read.
type entityResponse struct {
	Employees json.RawMessage `json:"antallAnsatte"`
}

// Employees returns antallAnsatte for orgnr.
func (c *client) Employees(ctx context.Context, orgnr string) (*int64, error) {
	body, err := resilience.ExecuteVal(ctx, c.entitiesBreaker, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.entitiesURL+"/"+url.PathEscape(orgnr))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "brreg: employees %s", orgnr)
	}

	var resp entityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(ErrMalformed, "brreg: employees %s: %v", orgnr, err)
	}
	return ParseEmployees(resp.Employees), nil
}

// Revenue returns the latest reported operating revenue for orgnr.
func (c *client) Revenue(ctx context.Context, orgnr string) (*int64, error) {
	body, err := resilience.ExecuteVal(ctx, c.accountsBreaker, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.accountsURL+"/"+url.PathEscape(orgnr))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "brreg: revenue %s", orgnr)
	}

	payload, err := decodeAny(body)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformed, "brreg: revenue %s: %v", orgnr, err)
	}
	return ExtractRevenue(payload), nil
}

// get fetches rawURL under the retry policy and returns the body of a 200.
func (c *client) get(ctx context.Context, rawURL string) ([]byte, error) {
	return resilience.DoVal(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "brreg: rate limit")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "brreg: build request")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, resilience.NewTransientError(eris.Wrap(err, "brreg: request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound:
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, ErrNotFound
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			_, _ = io.Copy(io.Discard, resp.Body)
			zap.L().Debug("brreg: transient status",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
			)
			return nil, resilience.NewTransientError(
				eris.Errorf("brreg: status %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
		default:
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, eris.Errorf("brreg: status %d from %s", resp.StatusCode, rawURL)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "brreg: read body"), 0)
		}
		return body, nil
	})
}

func decodeAny(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
