package core

// Environment variable names read by retrieval.Config.LoadFromEnv, fixed
// per the external-interfaces section of the specification this module
// implements. Centralized here so core, retrieval, and lanes agree on
// spelling without importing each other.
const (
	// Per-lane timeout overrides (milliseconds). RETRIEVAL_TIMEOUT_MS
	// applies to every lane; lane-specific values take precedence over it
	// when both are set.
	EnvRetrievalTimeoutMS = "RETRIEVAL_TIMEOUT_MS"
	EnvVectorTimeoutMS    = "VECTOR_TIMEOUT_MS"
	EnvKGTimeoutMS        = "KG_TIMEOUT_MS"
	EnvWebTimeoutMS       = "WEB_TIMEOUT_MS"

	// EnvKeylessFallbacksEnabled toggles whether lanes with no
	// configured credentials run against a keyless/free-tier endpoint
	// instead of being gated off entirely.
	EnvKeylessFallbacksEnabled = "KEYLESS_FALLBACKS_ENABLED"

	// Provider credential variables, consumed by the Provider Key Gate
	// to decide which lanes mount at boot.
	EnvWebPrimarySearchKey   = "WEB_PRIMARY_SEARCH_KEY"
	EnvWebSecondarySearchKey = "WEB_SECONDARY_SEARCH_KEY"
	EnvNewsProviderAKey      = "NEWS_PROVIDER_A_KEY"
	EnvNewsProviderBKey      = "NEWS_PROVIDER_B_KEY"
	EnvMarketsPrimaryKey     = "MARKETS_PRIMARY_KEY"

	// Local service endpoints for the in-cluster vector and knowledge
	// graph stores. No credential is required; absence of the URL
	// itself gates the lane off.
	EnvVectorServiceURL = "VECTOR_SERVICE_URL"
	EnvKGServiceURL     = "KG_SERVICE_URL"

	// EnvCacheTTLSeconds overrides the lane-result cache TTL of every lane.
	EnvCacheTTLSeconds = "RETRIEVAL_CACHE_TTL_SECONDS"
	// EnvCacheCapacity overrides the default LRU cache entry capacity.
	EnvCacheCapacity = "RETRIEVAL_CACHE_CAPACITY"
)
