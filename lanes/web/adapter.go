// Package web implements the web-search lane adapter: a REST client
// instrumented with OpenTelemetry so outbound calls appear as child spans
// of the request that triggered them.
package web

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

// Config holds the adapter's endpoint and credential. APIKey is read from
// the environment by the caller and passed in; the adapter never reads
// environment variables itself.
type Config struct {
	Endpoint string
	APIKey   string
}

// Adapter queries a web search provider over HTTP.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New builds a web search adapter with an otelhttp-instrumented client.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg: cfg,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type searchResponse struct {
	Results []struct {
		ID      string  `json:"id"`
		Title   string  `json:"title"`
		Snippet string  `json:"snippet"`
		URL     string  `json:"url"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Query implements lanes.Adapter.
func (a *Adapter) Query(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error) {
	endpoint := fmt.Sprintf("%s?q=%s&top_k=%d", a.cfg.Endpoint, url.QueryEscape(text), topK)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.NewLaneError(core.ErrorKindInternal, err)
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

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
		return nil, core.NewLaneError(core.ErrorKindAuth, fmt.Errorf("web search returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, core.NewLaneError(core.ErrorKindRateLimited, fmt.Errorf("web search rate limited"))
	case resp.StatusCode >= 500:
		return nil, core.NewLaneError(core.ErrorKindTransport, fmt.Errorf("web search returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, core.NewLaneError(core.ErrorKindBadResponse, fmt.Errorf("web search returned %d", resp.StatusCode))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewLaneError(core.ErrorKindBadResponse, err)
	}

	fetchedAt := time.Now()
	evidence := make([]retrieval.Evidence, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		evidence = append(evidence, retrieval.Evidence{
			Lane:      retrieval.LaneWeb,
			SourceID:  r.ID,
			Title:     r.Title,
			Snippet:   r.Snippet,
			Score:     r.Score,
			URL:       r.URL,
			FetchedAt: fetchedAt,
		})
	}
	return evidence, nil
}
