package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provdir/internal/resilience"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
	sourceCensus     = "census"
)

type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	MatchedAddress string `json:"matchedAddress"`
}

// geocodeCensus makes one Census one-line request. Retryable statuses come
// back as resilience.TransientError.
func (g *geocoder) geocodeCensus(ctx context.Context, addr AddressInput) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census rate limit")
	}

	params := url.Values{
		"address":   {formatOneLine(addr)},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, censusOneLineURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("geocode: census returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census read body")
	}

	var parsed censusOneLineResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}

	if len(parsed.Result.AddressMatches) == 0 {
		return &Result{Matched: false, Source: sourceCensus}, nil
	}

	m := parsed.Result.AddressMatches[0]
	return &Result{
		Latitude:  m.Coordinates.Y,
		Longitude: m.Coordinates.X,
		Source:    sourceCensus,
		Matched:   true,
	}, nil
}

// formatOneLine joins the non-empty address parts with commas.
func formatOneLine(addr AddressInput) string {
	var parts []string
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.ZipCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
