// Package geocode resolves practice addresses to coordinates through the
// Census Geocoder.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/provdir/internal/resilience"
)

// Client geocodes a single address. An unmatched address is not an error:
// it returns a Result with Matched false.
type Client interface {
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput is a structured postal address.
type AddressInput struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// Empty reports whether no address part is set.
func (a AddressInput) Empty() bool {
	return strings.TrimSpace(a.Street+a.City+a.State+a.ZipCode) == ""
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string
	Matched   bool
}

// Option configures the Census client.
type Option func(*geocoder)

// WithHTTPClient sets the HTTP client used for Census requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			g.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps Census calls at rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy for transient Census failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

type geocoder struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a Census geocoding Client.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.LogRetry("census")
	}
	return g
}

// Geocode resolves addr, retrying transient Census failures.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if addr.Empty() {
		return &Result{Matched: false, Source: sourceCensus}, nil
	}
	return resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Result, error) {
		return g.geocodeCensus(ctx, addr)
	})
}
