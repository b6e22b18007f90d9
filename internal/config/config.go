// Package config loads service configuration from defaults, an optional
// config file and SOLAR_-prefixed environment variables, in increasing order
// of precedence.
//
// Keys are dotted (sim.asteroid_count); the matching environment variable
// upper-cases the key and replaces dots with underscores
// (SOLAR_SIM_ASTEROID_COUNT). Durations use Go syntax ("250ms", "30s").
// A value that does not parse or is out of range logs a warning and falls
// back to its default.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/api"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/auth"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/cache"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/sim"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/stream"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SOLAR"

// Config is the full service configuration.
type Config struct {
	LogLevel slog.Level
	HTTP     api.Config
	Auth     auth.Config
	Sim      sim.Config
	Cache    cache.Config
	Stream   stream.Config
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LogLevel: slog.LevelInfo,
		HTTP:     api.DefaultConfig(),
		Sim:      sim.DefaultConfig(),
		Cache:    cache.DefaultConfig(),
		Stream:   stream.DefaultConfig(),
	}
}

// Load reads configuration. path names a config file (TOML, YAML or JSON by
// extension); when empty, SOLAR_CONFIG is consulted, and with neither set
// only defaults and the environment apply. A named file that cannot be read
// is an error, as is enabling auth without a token.
func Load(path string, logger *slog.Logger) (Config, error) {
	def := Default()
	v := newViper(def)

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return def, fmt.Errorf("read config %s: %w", path, err)
		}
		logger.Info("config file loaded", "path", v.ConfigFileUsed())
	}

	l := loader{v: v, logger: logger}
	cfg := def

	if s := v.GetString("log.level"); s != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(s)); err != nil {
			logger.Warn("invalid log.level value, using default", "value", s, "default", def.LogLevel.String())
			cfg.LogLevel = def.LogLevel
		}
	}

	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.HTTP.EditRate = l.float("http.edit_rate", def.HTTP.EditRate)
	cfg.HTTP.EditBurst = l.intAtLeast("http.edit_burst", 1, def.HTTP.EditBurst)
	cfg.HTTP.MaxStride = l.intAtLeast("http.max_stride", 1, def.HTTP.MaxStride)
	cfg.HTTP.TrustProxy = l.bool("http.trust_proxy", def.HTTP.TrustProxy)

	cfg.Auth.Enabled = l.bool("auth.enabled", false)
	cfg.Auth.ProtectReads = l.bool("auth.protect_reads", false)
	if cfg.Auth.Enabled {
		cfg.Auth.Token = v.GetString("auth.token")
		if cfg.Auth.Token == "" {
			return cfg, errors.New("SOLAR_AUTH_TOKEN is required when auth is enabled")
		}
	}

	cfg.Sim.MaxBeltCount = l.intAtLeast("sim.max_belt_count", 1, def.Sim.MaxBeltCount)
	cfg.Sim.AsteroidCount = l.count("sim.asteroid_count", def.Sim.AsteroidCount, cfg.Sim.MaxBeltCount)
	cfg.Sim.KuiperCount = l.count("sim.kuiper_count", def.Sim.KuiperCount, cfg.Sim.MaxBeltCount)
	cfg.Sim.Seed = l.uint64("sim.seed", def.Sim.Seed)
	cfg.Sim.Satellites = l.bool("sim.satellites", def.Sim.Satellites)
	cfg.Sim.Propagation.Workers = l.intAtLeast("sim.workers", 1, def.Sim.Propagation.Workers)
	cfg.Sim.Propagation.MinSplit = l.intAtLeast("sim.min_split", 1, def.Sim.Propagation.MinSplit)
	cfg.Sim.TickInterval = l.duration("sim.tick_interval", def.Sim.TickInterval)

	cfg.Sim.Clock.MinRate = l.float("clock.min_rate", def.Sim.Clock.MinRate)
	cfg.Sim.Clock.MaxRate = l.float("clock.max_rate", def.Sim.Clock.MaxRate)
	if cfg.Sim.Clock.MaxRate <= cfg.Sim.Clock.MinRate {
		logger.Warn("clock.max_rate must exceed clock.min_rate, using default range",
			"min_rate", cfg.Sim.Clock.MinRate,
			"max_rate", cfg.Sim.Clock.MaxRate,
		)
		cfg.Sim.Clock.MinRate, cfg.Sim.Clock.MaxRate = def.Sim.Clock.MinRate, def.Sim.Clock.MaxRate
	}
	cfg.Sim.Clock.Rate = l.float("clock.rate", def.Sim.Clock.Rate)
	cfg.Sim.Clock.MaxStep = l.duration("clock.max_step", def.Sim.Clock.MaxStep)

	cfg.Cache.Samples = l.intAtLeast("cache.samples", 3, def.Cache.Samples)
	cfg.Cache.Refresh = l.duration("cache.refresh", def.Cache.Refresh)

	cfg.Stream.MaxConcurrentPerIP = l.intAtLeast("stream.max_concurrent_per_ip", 1, def.Stream.MaxConcurrentPerIP)
	cfg.Stream.MaxConcurrent = l.intAtLeast("stream.max_concurrent", 1, def.Stream.MaxConcurrent)
	cfg.Stream.KeepaliveInterval = l.duration("stream.keepalive_interval", def.Stream.KeepaliveInterval)
	cfg.Stream.MinInterval = l.duration("stream.min_interval", def.Stream.MinInterval)
	cfg.Stream.MaxInterval = l.duration("stream.max_interval", def.Stream.MaxInterval)
	if cfg.Stream.MaxInterval < cfg.Stream.MinInterval {
		logger.Warn("stream.max_interval below stream.min_interval, using default range")
		cfg.Stream.MinInterval, cfg.Stream.MaxInterval = def.Stream.MinInterval, def.Stream.MaxInterval
	}
	cfg.Stream.DefaultInterval = l.duration("stream.default_interval", def.Stream.DefaultInterval)
	if cfg.Stream.DefaultInterval < cfg.Stream.MinInterval || cfg.Stream.DefaultInterval > cfg.Stream.MaxInterval {
		logger.Warn("stream.default_interval outside accepted range, clamping",
			"value", cfg.Stream.DefaultInterval.String())
		cfg.Stream.DefaultInterval = min(max(cfg.Stream.DefaultInterval, cfg.Stream.MinInterval), cfg.Stream.MaxInterval)
	}
	cfg.Stream.TrustProxy = cfg.HTTP.TrustProxy

	logger.Info("config",
		"http_addr", cfg.HTTP.Addr,
		"auth_enabled", cfg.Auth.Enabled,
		"asteroid_count", cfg.Sim.AsteroidCount,
		"kuiper_count", cfg.Sim.KuiperCount,
		"seed", cfg.Sim.Seed,
		"workers", cfg.Sim.Propagation.Workers,
		"tick_interval_ms", cfg.Sim.TickInterval.Milliseconds(),
		"days_per_second", cfg.Sim.Clock.Rate,
	)
	return cfg, nil
}

// newViper registers every key with its default so AutomaticEnv can see it.
func newViper(def Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("config", "")
	v.SetDefault("log.level", def.LogLevel.String())

	v.SetDefault("http.addr", def.HTTP.Addr)
	v.SetDefault("http.edit_rate", def.HTTP.EditRate)
	v.SetDefault("http.edit_burst", def.HTTP.EditBurst)
	v.SetDefault("http.max_stride", def.HTTP.MaxStride)
	v.SetDefault("http.trust_proxy", def.HTTP.TrustProxy)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.protect_reads", false)

	v.SetDefault("sim.asteroid_count", def.Sim.AsteroidCount)
	v.SetDefault("sim.kuiper_count", def.Sim.KuiperCount)
	v.SetDefault("sim.max_belt_count", def.Sim.MaxBeltCount)
	v.SetDefault("sim.seed", def.Sim.Seed)
	v.SetDefault("sim.satellites", def.Sim.Satellites)
	v.SetDefault("sim.workers", def.Sim.Propagation.Workers)
	v.SetDefault("sim.min_split", def.Sim.Propagation.MinSplit)
	v.SetDefault("sim.tick_interval", def.Sim.TickInterval.String())

	v.SetDefault("clock.min_rate", def.Sim.Clock.MinRate)
	v.SetDefault("clock.max_rate", def.Sim.Clock.MaxRate)
	v.SetDefault("clock.rate", def.Sim.Clock.Rate)
	v.SetDefault("clock.max_step", def.Sim.Clock.MaxStep.String())

	v.SetDefault("cache.samples", def.Cache.Samples)
	v.SetDefault("cache.refresh", def.Cache.Refresh.String())

	v.SetDefault("stream.max_concurrent_per_ip", def.Stream.MaxConcurrentPerIP)
	v.SetDefault("stream.max_concurrent", def.Stream.MaxConcurrent)
	v.SetDefault("stream.keepalive_interval", def.Stream.KeepaliveInterval.String())
	v.SetDefault("stream.default_interval", def.Stream.DefaultInterval.String())
	v.SetDefault("stream.min_interval", def.Stream.MinInterval.String())
	v.SetDefault("stream.max_interval", def.Stream.MaxInterval.String())
	return v
}

// loader converts raw values, warning and falling back on bad input.
type loader struct {
	v      *viper.Viper
	logger *slog.Logger
}

func (l loader) warn(key string, def any) {
	l.logger.Warn("invalid "+key+" value, using default", "value", l.v.Get(key), "default", def)
}

func (l loader) intAtLeast(key string, lo, def int) int {
	n, err := cast.ToIntE(l.v.Get(key))
	if err != nil || n < lo {
		l.warn(key, def)
		return def
	}
	return n
}

// count reads a belt size in [0, hi].
func (l loader) count(key string, def, hi int) int {
	n, err := cast.ToIntE(l.v.Get(key))
	if err != nil || n < 0 {
		l.warn(key, def)
		n = def
	}
	if n > hi {
		l.logger.Warn(key+" exceeds sim.max_belt_count, clamping", "value", n, "max", hi)
		n = hi
	}
	return n
}

func (l loader) uint64(key string, def uint64) uint64 {
	n, err := cast.ToUint64E(l.v.Get(key))
	if err != nil {
		l.warn(key, def)
		return def
	}
	return n
}

func (l loader) float(key string, def float64) float64 {
	f, err := cast.ToFloat64E(l.v.Get(key))
	if err != nil || f <= 0 {
		l.warn(key, def)
		return def
	}
	return f
}

func (l loader) bool(key string, def bool) bool {
	b, err := cast.ToBoolE(l.v.Get(key))
	if err != nil {
		l.warn(key, def)
		return def
	}
	return b
}

func (l loader) duration(key string, def time.Duration) time.Duration {
	d, err := cast.ToDurationE(l.v.Get(key))
	if err != nil || d <= 0 {
		l.warn(key, def.String())
		return def
	}
	return d
}
