// Package news implements the news lane adapter, identical in shape to
// the web lane but pointed at a news aggregation provider. The provider's
// per-article publish timestamp is decoded but not copied into Evidence.
package news

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

// Adapter queries a news provider over HTTP.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New builds a news adapter with an otelhttp-instrumented client.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg: cfg,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type articlesResponse struct {
	Articles []struct {
		ID          string  `json:"id"`
		Headline    string  `json:"headline"`
		Summary     string  `json:"summary"`
		URL         string  `json:"url"`
		Relevance   float64 `json:"relevance"`
		PublishedAt string  `json:"published_at"`
	} `json:"articles"`
}

// Query implements lanes.Adapter.
func (a *Adapter) Query(ctx context.Context, text string, topK int) ([]retrieval.Evidence, error) {
	endpoint := fmt.Sprintf("%s?q=%s&limit=%d", a.cfg.Endpoint, url.QueryEscape(text), topK)

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
		return nil, core.NewLaneError(core.ErrorKindAuth, fmt.Errorf("news provider returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, core.NewLaneError(core.ErrorKindRateLimited, fmt.Errorf("news provider rate limited"))
	case resp.StatusCode >= 500:
		return nil, core.NewLaneError(core.ErrorKindTransport, fmt.Errorf("news provider returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, core.NewLaneError(core.ErrorKindBadResponse, fmt.Errorf("news provider returned %d", resp.StatusCode))
	}

	var parsed articlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewLaneError(core.ErrorKindBadResponse, err)
	}

	fetchedAt := time.Now()
	evidence := make([]retrieval.Evidence, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		evidence = append(evidence, retrieval.Evidence{
			Lane:      retrieval.LaneNews,
			SourceID:  a.ID,
			Title:     a.Headline,
			Snippet:   a.Summary,
			Score:     a.Relevance,
			URL:       a.URL,
			FetchedAt: fetchedAt,
		})
	}
	return evidence, nil
}
