// Command orchestratord runs the always-on retrieval orchestrator as an
// HTTP service: POST /retrieve fans a query out across every enabled
// lane and returns the fused evidence list; GET /health reports lane
// admission and breaker state; GET /metrics exposes a debug snapshot
// alongside the OTLP exporter configured by package telemetry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/core"
	"github.com/lattice-run/retrieval-orchestrator/lanes/keyword"
	"github.com/lattice-run/retrieval-orchestrator/lanes/kg"
	"github.com/lattice-run/retrieval-orchestrator/lanes/markets"
	"github.com/lattice-run/retrieval-orchestrator/lanes/news"
	"github.com/lattice-run/retrieval-orchestrator/lanes/vector"
	"github.com/lattice-run/retrieval-orchestrator/lanes/web"
	"github.com/lattice-run/retrieval-orchestrator/resilience"
	"github.com/lattice-run/retrieval-orchestrator/retrieval"
	"github.com/lattice-run/retrieval-orchestrator/telemetry"
)

func main() {
	ambientCfg, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := ambientCfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.NewProvider(ctx, ambientCfg.Telemetry, ambientCfg.ServiceName, logger)
	if err != nil {
		logger.Error("failed to initialize telemetry", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	retrievalCfg, err := retrieval.NewConfig(retrieval.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build retrieval configuration", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	registry, err := retrieval.NewRegistry(retrievalCfg)
	if err != nil {
		logger.Error("key gate rejected startup", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	cache := retrieval.NewCache(retrievalCfg.CacheCap)
	adapters := buildAdapters(logger)

	recorder := telemetry.NewRecorder(provider.Metrics, logger)
	snapshot := telemetry.NewSnapshotCollector()
	recorder.Subscribe(snapshot.Observe)

	orchestrator, breakers := retrieval.Build(
		registry,
		adapters,
		cache,
		recorder,
		retrieval.DefaultFusionWeights(),
		retrievalCfg.FusionCaps,
		core.SystemClock{},
		logger,
	)

	warmupResults := orchestrator.RunWarmup(ctx, 5*time.Second)
	for _, r := range warmupResults {
		logger.Info("startup warmup", map[string]interface{}{
			"lane":   string(r.Lane),
			"ready":  r.Ready,
			"reason": r.Reason,
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", telemetry.HealthHandler(healthSource{registry: registry, breakers: breakers}))
	mux.HandleFunc("/metrics", telemetry.MetricsHandler(snapshot))
	mux.HandleFunc("/retrieve", retrieveHandler(orchestrator, logger))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", ambientCfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("orchestratord listening", map[string]interface{}{"port": ambientCfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

type healthSource struct {
	registry *retrieval.Registry
	breakers map[retrieval.LaneID]*resilience.Breaker
}

func (h healthSource) LaneHealth() map[string]telemetry.LaneHealth {
	return h.registry.LaneHealth(h.breakers)
}

type retrieveRequest struct {
	Text  string   `json:"text"`
	Class string   `json:"class"`
	Lanes []string `json:"lanes,omitempty"`
}

func retrieveHandler(o *retrieval.Orchestrator, logger core.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req retrieveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		query := retrieval.NewQuery(req.Text, retrieval.QueryClass(req.Class))
		if len(req.Lanes) > 0 {
			requested := make(map[retrieval.LaneID]struct{}, len(req.Lanes))
			for _, l := range req.Lanes {
				requested[retrieval.LaneID(l)] = struct{}{}
			}
			query.RequestedLanes = requested
		}

		ctx := core.WithTraceID(r.Context(), query.TraceID)
		response, err := o.Retrieve(ctx, query)
		if err != nil {
			logger.WarnWithContext(ctx, "retrieve rejected", map[string]interface{}{"error": err.Error()})
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// buildAdapters constructs a lane adapter for every lane this process can
// actually reach. Vector and KG are omitted when their service URL is
// unset (the key gate has then already disabled them, so requests report
// them Disabled with reason "not_enabled") or when the URL does not parse
// (the lane stays enabled and is reported Disabled with reason
// "not_wired"); neither case fails startup.
func buildAdapters(logger core.Logger) map[retrieval.LaneID]retrieval.Adapter {
	adapters := map[retrieval.LaneID]retrieval.Adapter{
		retrieval.LaneWeb: web.New(web.Config{
			Endpoint: envOrDefault("RETRIEVAL_WEB_ENDPOINT", "http://localhost:9101/search"),
			APIKey:   firstNonEmpty(os.Getenv(core.EnvWebPrimarySearchKey), os.Getenv(core.EnvWebSecondarySearchKey)),
		}),
		retrieval.LaneNews: news.New(news.Config{
			Endpoint: envOrDefault("RETRIEVAL_NEWS_ENDPOINT", "http://localhost:9102/articles"),
			APIKey:   firstNonEmpty(os.Getenv(core.EnvNewsProviderAKey), os.Getenv(core.EnvNewsProviderBKey)),
		}),
		retrieval.LaneMarkets: markets.New(markets.Config{
			Endpoint: envOrDefault("RETRIEVAL_MARKETS_ENDPOINT", "http://localhost:9103/quotes"),
			APIKey:   os.Getenv(core.EnvMarketsPrimaryKey),
		}),
		retrieval.LaneKeyword: keyword.New(),
	}

	if url := os.Getenv(core.EnvVectorServiceURL); url != "" {
		adapter, err := vector.New(vector.Config{ServiceURL: url})
		if err != nil {
			logger.Warn("vector adapter unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			adapters[retrieval.LaneVector] = adapter
		}
	}

	if url := os.Getenv(core.EnvKGServiceURL); url != "" {
		adapter, err := kg.New(kg.Config{ServiceURL: url})
		if err != nil {
			logger.Warn("kg adapter unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			adapters[retrieval.LaneKG] = adapter
		}
	}

	return adapters
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
