package geocode

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/sells-group/provdir/internal/resilience"
)

// newTestLimiter returns a limiter that never blocks.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newTestGeocoder points a geocoder at a test server standing in for the
// Census one-line endpoint, with millisecond retry backoff.
func newTestGeocoder(t *testing.T, h http.Handler) *geocoder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &geocoder{
		httpClient: newRewriteClient(srv.URL, censusOneLineURL),
		limiter:    newTestLimiter(),
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 1,
			MaxBackoff:     1,
		},
	}
}

// newRewriteClient sends requests whose URL starts with targetPrefix to the
// test server instead.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{Transport: rewriteTransport{
		base:   http.DefaultTransport,
		target: targetPrefix,
		server: testServerURL,
	}}
}

type rewriteTransport struct {
	base   http.RoundTripper
	target string
	server string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	orig := req.URL.String()
	if !strings.HasPrefix(orig, t.target) {
		return t.base.RoundTrip(req)
	}
	u, err := req.URL.Parse(t.server + strings.TrimPrefix(orig, t.target))
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = u
	out.Host = u.Host
	return t.base.RoundTrip(out)
}
