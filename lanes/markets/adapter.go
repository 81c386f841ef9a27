// Package markets implements the markets lane adapter: a quote/reference
// lookup against a financial data provider.
package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/lattice-run/retrieval-orchestrator/retrieval"
)

// Config holds the adapter's endpoint and credential.
type Config struct {
	Endpoint string
	APIKey   string
}

// Adapter queries a markets data provider over HTTP.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New builds a markets adapter with an otelhttp-instrumented client.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg: cfg,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type quotesResponse struct {
	Quotes []struct {
		Symbol      string  `json:"symbol"`
		Description string  `json:"description"`
		Summary     string  `json:"summary"`
		URL         string  `json:"url"`
		Confidence  float64 `json:"confidence"`
	} `json:"quotes"`
}

// Query implements lanes.Adapter.
func (a *Adapter) Query(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error) {
	endpoint := fmt.Sprintf("%s?q=%s&count=%d", a.cfg.Endpoint, url.QueryEscape(text), topK)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.NewLaneError(core.ErrorKindInternal, err)
	}
	req.Header.Set("X-API-Key", a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewLaneError(core.ErrorKindTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, core.NewLaneError(core.ErrorKindAuth, fmt.Errorf("markets provider returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, core.NewLaneError(core.ErrorKindRateLimited, fmt.Errorf("markets provider rate limited"))
	case resp.StatusCode >= 500:
		return nil, core.NewLaneError(core.ErrorKindTransport, fmt.Errorf("markets provider returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, core.NewLaneError(core.ErrorKindBadResponse, fmt.Errorf("markets provider returned %d", resp.StatusCode))
	}

	var parsed quotesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewLaneError(core.ErrorKindBadResponse, err)
	}

	fetchedAt := time.Now()
	evidence := make([]retrieval.Evidence, 0, len(parsed.Quotes))
	for _, q := range parsed.Quotes {
		evidence = append(evidence, retrieval.Evidence{
			Lane:      retrieval.LaneMarkets,
			SourceID:  q.Symbol,
			Title:     q.Description,
			Snippet:   q.Summary,
			Score:     q.Confidence,
			URL:       q.URL,
			FetchedAt: fetchedAt,
		})
	}
	return evidence, nil
}
