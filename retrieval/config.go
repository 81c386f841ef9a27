package retrieval

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

// Config is the orchestrator's boot-time configuration surface: per-lane
// settings, fusion weights, cache capacity, and the credential presence
// flags the key gate consumes. Like core.Config, it is built from
// defaults, then environment variables, then functional options, and is
// read-only for the life of the process.
type Config struct {
	Lanes       map[LaneID]LaneConfig
	FusionCaps  int // overall evidence cap after fusion, default 20
	CacheCap    int // max cache entries
	Credentials Credentials

	Logger core.Logger
}

// Option customizes a Config after defaults and environment loading.
type Option func(*Config) error

// DefaultLaneConfigs returns the hard-coded per-lane defaults fixed by
// the data model.
func DefaultLaneConfigs() map[LaneID]LaneConfig {
	return map[LaneID]LaneConfig{
		LaneWeb:     {Enabled: true, TimeoutMS: 1000, TopK: 10, MaxFailures: 3, CooldownMS: 30000, CacheTTL: 10 * time.Minute},
		LaneNews:    {Enabled: true, TimeoutMS: 1000, TopK: 10, MaxFailures: 3, CooldownMS: 30000, CacheTTL: 10 * time.Minute},
		LaneMarkets: {Enabled: true, TimeoutMS: 1000, TopK: 10, MaxFailures: 3, CooldownMS: 30000, CacheTTL: 10 * time.Minute},
		LaneVector:  {Enabled: true, TimeoutMS: 2000, TopK: 5, MaxFailures: 3, CooldownMS: 30000, CacheTTL: time.Hour},
		LaneKG:      {Enabled: true, TimeoutMS: 1500, TopK: 6, MaxFailures: 3, CooldownMS: 30000, CacheTTL: time.Hour},
		LaneKeyword: {Enabled: true, TimeoutMS: 1000, TopK: 10, MaxFailures: 3, CooldownMS: 30000, CacheTTL: 10 * time.Minute},
	}
}

// DefaultConfig returns a Config with the hard-coded lane defaults and a
// 20-item fusion cap, 1000-entry cache.
func DefaultConfig() *Config {
	return &Config{
		Lanes:      DefaultLaneConfigs(),
		FusionCaps: 20,
		CacheCap:   1000,
		Logger:     &core.NoOpLogger{},
	}
}

// LoadFromEnv overlays environment variables per the stable, canonical
// names fixed for this module: per-lane timeout overrides, credential
// presence, the keyless-fallback toggle, and the cache TTL and capacity.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv(core.EnvRetrievalTimeoutMS); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			for lane, cfg := range c.Lanes {
				cfg.TimeoutMS = ms
				c.Lanes[lane] = cfg
			}
		}
	}
	overrideTimeout := func(lane LaneID, env string) {
		if v := os.Getenv(env); v != "" {
			if ms, err := strconv.Atoi(v); err == nil {
				cfg := c.Lanes[lane]
				cfg.TimeoutMS = ms
				c.Lanes[lane] = cfg
			}
		}
	}
	overrideTimeout(LaneVector, core.EnvVectorTimeoutMS)
	overrideTimeout(LaneKG, core.EnvKGTimeoutMS)
	overrideTimeout(LaneWeb, core.EnvWebTimeoutMS)

	c.Credentials = Credentials{
		WebPrimarySearchKey:    os.Getenv(core.EnvWebPrimarySearchKey) != "",
		WebSecondarySearchKey:  os.Getenv(core.EnvWebSecondarySearchKey) != "",
		NewsProviderAKey:       os.Getenv(core.EnvNewsProviderAKey) != "",
		NewsProviderBKey:       os.Getenv(core.EnvNewsProviderBKey) != "",
		MarketsPrimaryKey:      os.Getenv(core.EnvMarketsPrimaryKey) != "",
		VectorServiceURL:       os.Getenv(core.EnvVectorServiceURL) != "",
		KGServiceURL:           os.Getenv(core.EnvKGServiceURL) != "",
		KeylessFallbackEnabled: parseBool(os.Getenv(core.EnvKeylessFallbacksEnabled)),
	}

	if v := os.Getenv(core.EnvCacheTTLSeconds); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			for lane, cfg := range c.Lanes {
				cfg.CacheTTL = time.Duration(secs) * time.Second
				c.Lanes[lane] = cfg
			}
		}
	}

	if v := os.Getenv(core.EnvCacheCapacity); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheCap = n
		}
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WithLogger installs the logger used by every component built from this
// config.
func WithLogger(logger core.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithLaneConfig overrides one lane's configuration wholesale.
func WithLaneConfig(lane LaneID, cfg LaneConfig) Option {
	return func(c *Config) error {
		c.Lanes[lane] = cfg
		return nil
	}
}

// WithFusionCap overrides the overall post-fusion evidence cap.
func WithFusionCap(n int) Option {
	return func(c *Config) error {
		c.FusionCaps = n
		return nil
	}
}

// NewConfig builds a Config from defaults, environment, then options.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = &core.NoOpLogger{}
	}
	return cfg, nil
}
