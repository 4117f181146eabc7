package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"gopkg.in/yaml.v3"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	Cache          CacheConfig          `yaml:"cache"`
	Ownership      OwnershipConfig      `yaml:"ownership"`
	Subgraph       SubgraphConfig       `yaml:"subgraph"`
	OwnershipIndex OwnershipIndexConfig `yaml:"ownership_index"`
	ThirdParty     ThirdPartyConfig     `yaml:"third_party"`
	RPC            RPCConfig            `yaml:"rpc"`
	ContentServer  ContentServerConfig  `yaml:"content_server"`
	DB             DBConfig             `yaml:"db"`
	Redis          RedisConfig          `yaml:"redis"`
	Server         ServerConfig         `yaml:"server"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Log            LogConfig            `yaml:"log"`
}

type CategoryCacheConfig struct {
	MaxSize int           `yaml:"max_size"`
	TTL     time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	Backend    string              `yaml:"backend"`
	Wearables  CategoryCacheConfig `yaml:"wearables"`
	Names      CategoryCacheConfig `yaml:"names"`
	ThirdParty CategoryCacheConfig `yaml:"third_party"`
}

// For returns the cache settings of category.
func (c CacheConfig) For(category model.Category) CategoryCacheConfig {
	switch category {
	case model.CategoryNames:
		return c.Names
	case model.CategoryThirdParty:
		return c.ThirdParty
	default:
		return c.Wearables
	}
}

type OwnershipConfig struct {
	FragmentSize int `yaml:"fragment_size"`
}

type SubgraphConfig struct {
	EthereumCollectionsURL string        `yaml:"ethereum_collections_url"`
	MaticCollectionsURL    string        `yaml:"matic_collections_url"`
	MarketplaceURL         string        `yaml:"marketplace_url"`
	Timeout                time.Duration `yaml:"timeout"`
	MaxAttempts            int           `yaml:"max_attempts"`
}

// OwnershipIndexConfig is the optional cross-check service; empty URL disables it.
type OwnershipIndexConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ThirdPartyConfig struct {
	// Resolvers maps a registry id to its resolver base URL.
	Resolvers map[string]string `yaml:"resolvers"`
	Timeout   time.Duration     `yaml:"timeout"`
}

type RPCConfig struct {
	// URLs maps a network name to its JSON-RPC endpoint.
	URLs    map[string]string `yaml:"urls"`
	RPS     float64           `yaml:"rps"`
	Burst   int               `yaml:"burst"`
	Timeout time.Duration     `yaml:"timeout"`
}

// Networks returns the configured networks, sorted.
func (c RPCConfig) Networks() []model.Network {
	out := make([]model.Network, 0, len(c.URLs))
	for name := range c.URLs {
		if n, ok := model.ParseNetwork(name); ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type ContentServerConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DBConfig enables persistence of contract classifications when URL is set.
type DBConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrationsDir   string        `yaml:"migrations_dir"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type ServerConfig struct {
	AdminPort      int     `yaml:"admin_port"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps Level to a slog level; unknown values are info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads the environment, overlays the YAML file named by CONFIG_FILE
// when set, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", CacheBackendMemory),
			Wearables: CategoryCacheConfig{
				MaxSize: getEnvInt("CACHE_WEARABLES_MAX_SIZE", 1000),
				TTL:     getEnvDuration("CACHE_WEARABLES_TTL", 10*time.Minute),
			},
			Names: CategoryCacheConfig{
				MaxSize: getEnvInt("CACHE_NAMES_MAX_SIZE", 1000),
				TTL:     getEnvDuration("CACHE_NAMES_TTL", 10*time.Minute),
			},
			ThirdParty: CategoryCacheConfig{
				MaxSize: getEnvInt("CACHE_THIRD_PARTY_MAX_SIZE", 1000),
				TTL:     getEnvDuration("CACHE_THIRD_PARTY_TTL", 5*time.Minute),
			},
		},
		Ownership: OwnershipConfig{
			FragmentSize: getEnvInt("OWNERSHIP_FRAGMENT_SIZE", 10),
		},
		Subgraph: SubgraphConfig{
			EthereumCollectionsURL: getEnv("SUBGRAPH_ETHEREUM_COLLECTIONS_URL", "https://subgraph.decentraland.org/collections-ethereum-mainnet"),
			MaticCollectionsURL:    getEnv("SUBGRAPH_MATIC_COLLECTIONS_URL", "https://subgraph.decentraland.org/collections-matic-mainnet"),
			MarketplaceURL:         getEnv("SUBGRAPH_MARKETPLACE_URL", "https://subgraph.decentraland.org/marketplace"),
			Timeout:                getEnvDuration("SUBGRAPH_TIMEOUT", 10*time.Second),
			MaxAttempts:            getEnvInt("SUBGRAPH_MAX_ATTEMPTS", 3),
		},
		OwnershipIndex: OwnershipIndexConfig{
			URL:     getEnv("OWNERSHIP_INDEX_URL", ""),
			Timeout: getEnvDuration("OWNERSHIP_INDEX_TIMEOUT", time.Second),
		},
		ThirdParty: ThirdPartyConfig{
			Resolvers: map[string]string{},
			Timeout:   getEnvDuration("THIRD_PARTY_RESOLVER_TIMEOUT", 5*time.Second),
		},
		RPC: RPCConfig{
			URLs:    map[string]string{},
			RPS:     getEnvFloat("RPC_RPS", 10),
			Burst:   getEnvInt("RPC_BURST", 20),
			Timeout: getEnvDuration("RPC_TIMEOUT", 10*time.Second),
		},
		ContentServer: ContentServerConfig{
			URL:     getEnv("CONTENT_SERVER_URL", "https://peer.decentraland.org/content"),
			Timeout: getEnvDuration("CONTENT_SERVER_TIMEOUT", 10*time.Second),
		},
		DB: DBConfig{
			URL:             getEnv("DB_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			MigrationsDir:   getEnv("DB_MIGRATIONS_DIR", "internal/store/postgres/migrations"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Server: ServerConfig{
			AdminPort:      getEnvInt("ADMIN_PORT", 9090),
			RateLimitRPS:   getEnvFloat("ADMIN_RATE_LIMIT_RPS", 5),
			RateLimitBurst: getEnvInt("ADMIN_RATE_LIMIT_BURST", 10),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("TRACING_ENDPOINT", ""),
			Insecure:    getEnvBool("TRACING_INSECURE", true),
			SampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	for _, network := range model.KnownNetworks {
		if v := getEnv("RPC_URL_"+strings.ToUpper(network.String()), ""); v != "" {
			cfg.RPC.URLs[network.String()] = v
		}
	}

	resolvers, err := parseKeyValueList(getEnv("THIRD_PARTY_RESOLVERS", ""))
	if err != nil {
		return nil, fmt.Errorf("THIRD_PARTY_RESOLVERS: %w", err)
	}
	cfg.ThirdParty.Resolvers = resolvers

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFile decodes the YAML file onto cfg; keys present in the file win.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.Cache.Backend)
	}
	for _, category := range model.Categories {
		cc := c.Cache.For(category)
		if cc.MaxSize <= 0 {
			return fmt.Errorf("cache max size for %s must be positive", category)
		}
		if cc.TTL <= 0 {
			return fmt.Errorf("cache ttl for %s must be positive", category)
		}
	}
	if c.Ownership.FragmentSize <= 0 {
		return fmt.Errorf("OWNERSHIP_FRAGMENT_SIZE must be positive")
	}

	required := map[string]string{
		"SUBGRAPH_ETHEREUM_COLLECTIONS_URL": c.Subgraph.EthereumCollectionsURL,
		"SUBGRAPH_MATIC_COLLECTIONS_URL":    c.Subgraph.MaticCollectionsURL,
		"SUBGRAPH_MARKETPLACE_URL":          c.Subgraph.MarketplaceURL,
		"CONTENT_SERVER_URL":                c.ContentServer.URL,
	}
	for _, key := range sortedKeys(required) {
		if required[key] == "" {
			return fmt.Errorf("%s is required", key)
		}
		if err := validateHTTPURL(required[key]); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.OwnershipIndex.URL != "" {
		if err := validateHTTPURL(c.OwnershipIndex.URL); err != nil {
			return fmt.Errorf("OWNERSHIP_INDEX_URL: %w", err)
		}
	}
	if c.Subgraph.MaxAttempts < 1 {
		return fmt.Errorf("SUBGRAPH_MAX_ATTEMPTS must be at least 1")
	}

	for _, name := range sortedKeys(c.RPC.URLs) {
		if _, ok := model.ParseNetwork(name); !ok {
			return fmt.Errorf("rpc url for unsupported network %q", name)
		}
		if err := validateHTTPURL(c.RPC.URLs[name]); err != nil {
			return fmt.Errorf("rpc url for %s: %w", name, err)
		}
	}
	if c.RPC.RPS < 0 || c.RPC.Burst < 0 {
		return fmt.Errorf("RPC_RPS and RPC_BURST must not be negative")
	}

	for _, id := range sortedKeys(c.ThirdParty.Resolvers) {
		if !strings.HasPrefix(strings.ToLower(id), "urn:decentraland:") || !strings.Contains(strings.ToLower(id), ":collections-thirdparty:") {
			return fmt.Errorf("resolver key %q is not a third-party registry urn", id)
		}
		if err := validateHTTPURL(c.ThirdParty.Resolvers[id]); err != nil {
			return fmt.Errorf("resolver for %s: %w", id, err)
		}
	}

	if c.Server.AdminPort < 1 || c.Server.AdminPort > 65535 {
		return fmt.Errorf("ADMIN_PORT must be within [1, 65535]")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("TRACING_ENDPOINT is required when TRACING_ENABLED=true")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATIO must be within [0, 1]")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid http url %q", raw)
	}
	return nil
}

// parseKeyValueList parses "k1=v1,k2=v2". Values may contain '='.
func parseKeyValueList(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid entry %q, want key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("5s") or bare milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
