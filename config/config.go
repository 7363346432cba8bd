package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the citation registry service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Refine    RefineConfig    `mapstructure:"refine"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ToolTimeout     time.Duration `mapstructure:"tool_timeout"`
}

// Search providers understood by the aggregator.
const (
	ProviderTavily   = "tavily"
	ProviderParallel = "parallel"
	ProviderSearxng  = "searxng"
	ProviderSerper   = "serper"
	ProviderBrave    = "brave"
)

// SearchConfig configures the web search provider and the query fan-out.
type SearchConfig struct {
	Provider          string        `mapstructure:"provider"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	DefaultMaxResults int           `mapstructure:"default_max_results"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	RatePerSecond     float64       `mapstructure:"rate_per_second"`
	IncludeDomains    []string      `mapstructure:"include_domains"`
	ExcludeDomains    []string      `mapstructure:"exclude_domains"`
	TrustedDomains    []string      `mapstructure:"trusted_domains"`
}

// Normalize applies defaults for unset search values.
func (c SearchConfig) Normalize() SearchConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderTavily
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.DefaultMaxResults <= 0 {
		c.DefaultMaxResults = 3
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 8
	}
	c.IncludeDomains = cleanList(c.IncludeDomains)
	c.ExcludeDomains = cleanList(c.ExcludeDomains)
	c.TrustedDomains = cleanList(c.TrustedDomains)
	return c
}

// Validate checks structural problems. Missing credentials are not an error
// here: they surface in-band when a search is attempted.
func (c SearchConfig) Validate() error {
	switch c.Provider {
	case ProviderTavily, ProviderParallel, ProviderSearxng, ProviderSerper, ProviderBrave:
	default:
		return fmt.Errorf("search.provider %q is not supported", c.Provider)
	}
	if c.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
			return fmt.Errorf("search.base_url: %w", err)
		}
	}
	if c.RatePerSecond < 0 {
		return errors.New("search.rate_per_second cannot be negative")
	}
	return nil
}

// Fetch modes.
const (
	FetchModeHTTP     = "http"
	FetchModeChromedp = "chromedp"
)

// FetchConfig configures full-page retrieval for detail requests.
type FetchConfig struct {
	Mode           string        `mapstructure:"mode"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxBytes       int64         `mapstructure:"max_bytes"`
	MaxChars       int           `mapstructure:"max_chars"`
	InlineMinChars int           `mapstructure:"inline_min_chars"`
	// DisallowDomains lists hosts (and their subdomains) that are never fetched.
	DisallowDomains []string `mapstructure:"disallow_domains"`
}

// BrowserUserAgent mimics a desktop browser so sites do not answer 403.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func (c FetchConfig) Normalize() FetchConfig {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = FetchModeHTTP
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = BrowserUserAgent
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5 << 20
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 20000
	}
	if c.InlineMinChars <= 0 {
		c.InlineMinChars = 500
	}
	c.DisallowDomains = cleanList(c.DisallowDomains)
	return c
}

func (c FetchConfig) Validate() error {
	switch c.Mode {
	case FetchModeHTTP, FetchModeChromedp:
		return nil
	default:
		return fmt.Errorf("fetch.mode %q is not supported", c.Mode)
	}
}

// LLM providers used for refinement.
const (
	LLMNone   = "none"
	LLMOpenAI = "openai"
	LLMGemini = "gemini"
)

// LLMConfig contains the chat completion provider configuration
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

func (c LLMConfig) Normalize() LLMConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = LLMNone
	}
	if strings.TrimSpace(c.Model) == "" {
		switch c.Provider {
		case LLMGemini:
			c.Model = "gemini-2.5-flash"
		default:
			c.Model = "gpt-4.1-mini"
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	return c
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case LLMNone:
		return nil
	case LLMOpenAI, LLMGemini:
		if c.APIKey == "" {
			return fmt.Errorf("llm.api_key required for provider %q", c.Provider)
		}
		return nil
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.Provider)
	}
}

// RefineConfig controls the optional LLM cleanup of fetched pages.
type RefineConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	MinChars int  `mapstructure:"min_chars"`
}

// ValidatorConfig configures URL validation
type ValidatorConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	PreviewChars int           `mapstructure:"preview_chars"`
	UserAgent    string        `mapstructure:"user_agent"`
}

func (c ValidatorConfig) Validate() error {
	if c.Timeout < 5*time.Second {
		return errors.New("validator.timeout must be at least 5s")
	}
	return nil
}

// Registry store kinds.
const (
	StoreInMemory = "inmemory"
	StoreRedis    = "redis"
)

// RegistryConfig controls where search sessions live and how they are resolved.
type RegistryConfig struct {
	Store string        `mapstructure:"store"`
	TTL   time.Duration `mapstructure:"ttl"`
	// RequireSessionKey disables the "latest session" fallback. Leave it off
	// only when a single caller owns the process.
	RequireSessionKey bool `mapstructure:"require_session_key"`
}

func (c RegistryConfig) Validate() error {
	switch c.Store {
	case StoreInMemory, StoreRedis:
		return nil
	default:
		return fmt.Errorf("registry.store %q is not supported", c.Store)
	}
}

// StorageConfig contains storage backends
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.URL) != "" {
		return nil
	}
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port for the configured Redis instance.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// EventsConfig toggles session event publishing over Redis pub/sub.
type EventsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// legacyEnv maps config keys to the bare variable names older deployments export.
var legacyEnv = map[string][]string{
	"search.api_key":         {"SEARCH_API_KEY", "TAVILY_API_KEY", "PARALLEL_API_KEY", "SERPER_API_KEY", "BRAVE_SEARCH_KEY"},
	"search.base_url":        {"SEARCH_BASE_URL", "SEARXNG_BASE_URL"},
	"llm.api_key":            {"OPENAI_API_KEY", "GOOGLE_API_KEY"},
	"storage.redis.url":      {"REDIS_URL"},
	"storage.redis.host":     {"REDIS_HOST"},
	"storage.redis.port":     {"REDIS_PORT"},
	"storage.redis.password": {"REDIS_PASSWORD"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")

	v.SetDefault("server.address", ":10001")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.tool_timeout", 120*time.Second)

	v.SetDefault("search.provider", ProviderTavily)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.max_retries", 3)
	v.SetDefault("search.backoff_base", time.Second)
	v.SetDefault("search.default_max_results", 3)
	v.SetDefault("search.max_concurrency", 8)
	v.SetDefault("search.rate_per_second", 0)
	v.SetDefault("search.include_domains", []string{})
	v.SetDefault("search.exclude_domains", []string{})
	v.SetDefault("search.trusted_domains", DefaultTrustedDomains)

	v.SetDefault("fetch.mode", FetchModeHTTP)
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.backoff_base", time.Second)
	v.SetDefault("fetch.user_agent", BrowserUserAgent)
	v.SetDefault("fetch.max_bytes", 5<<20)
	v.SetDefault("fetch.max_chars", 20000)
	v.SetDefault("fetch.inline_min_chars", 500)
	v.SetDefault("fetch.disallow_domains", []string{})

	v.SetDefault("llm.provider", LLMNone)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 3)

	v.SetDefault("refine.enabled", false)
	v.SetDefault("refine.min_chars", 300)

	v.SetDefault("validator.timeout", 10*time.Second)
	v.SetDefault("validator.max_retries", 2)
	v.SetDefault("validator.backoff_base", time.Second)
	v.SetDefault("validator.preview_chars", 500)
	v.SetDefault("validator.user_agent", "DeepResearchAgent/1.0")

	v.SetDefault("registry.store", StoreInMemory)
	v.SetDefault("registry.ttl", 2*time.Hour)
	v.SetDefault("registry.require_session_key", false)

	v.SetDefault("storage.redis.url", "")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 5*time.Second)

	v.SetDefault("events.enabled", false)
	v.SetDefault("telemetry.metrics_enabled", true)
}

// LoadConfig loads config from an optional file, then the environment (CITEBANK_*).
// A missing config file is not an error; every key has a default.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("citebank")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CITEBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envKey := "CITEBANK_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Search = cfg.Search.Normalize()
	cfg.Fetch = cfg.Fetch.Normalize()
	cfg.LLM = cfg.LLM.Normalize()
	if cfg.Refine.MinChars <= 0 {
		cfg.Refine.MinChars = 300
	}
	cfg.Registry.Store = strings.ToLower(strings.TrimSpace(cfg.Registry.Store))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs every section validator.
func (c *Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Fetch.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Validator.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	if c.Registry.Store == StoreRedis || c.Events.Enabled {
		if err := c.Storage.Redis.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func cleanList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
