package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredential is returned when no AI backend key is configured.
var ErrMissingCredential = errors.New("gemini_api_key is required")

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	GeminiAPIKey     string        `mapstructure:"gemini_api_key"`
	GeminiBaseURL    string        `mapstructure:"gemini_base_url"`
	GeminiModelsRaw  string        `mapstructure:"gemini_models"`
	GeminiModels     []string      `mapstructure:"-"`
	AIBaseDelayMs    int64         `mapstructure:"ai_base_delay_ms"`
	AIDelayStepMs    int64         `mapstructure:"ai_delay_step_ms"`
	AITimeoutSeconds int64         `mapstructure:"ai_timeout_seconds"`
	AIBaseDelay      time.Duration `mapstructure:"-"`
	AIDelayStep      time.Duration `mapstructure:"-"`
	AITimeout        time.Duration `mapstructure:"-"`

	ItemName       string   `mapstructure:"item_name"`
	TasksFile      string   `mapstructure:"tasks_file"`
	TargetSitesRaw string   `mapstructure:"target_sites"`
	TargetSites    []string `mapstructure:"-"`

	MarketplacesFile string `mapstructure:"marketplaces_file"`

	HistoryFile string `mapstructure:"history_file"`
	StorageType string `mapstructure:"storage_type"`

	NtfyTopic      string `mapstructure:"ntfy_topic"`
	NtfyBaseURL    string `mapstructure:"ntfy_base_url"`
	PublishersFile string `mapstructure:"publishers_file"`

	ResultsDir      string `mapstructure:"results_dir"`
	ResultsMarkdown string `mapstructure:"results_markdown"`
	ResultsHTML     string `mapstructure:"results_html"`

	CI               bool   `mapstructure:"ci"`
	GitUserName      string `mapstructure:"git_user_name"`
	GitUserEmail     string `mapstructure:"git_user_email"`
	GitPublishAlways bool   `mapstructure:"git_publish_always"`

	Headless             bool          `mapstructure:"headless"`
	BrowserRemoteURL     string        `mapstructure:"browser_remote_url"`
	RenderTimeoutSeconds int64         `mapstructure:"render_timeout_seconds"`
	HTTPTimeoutSeconds   int64         `mapstructure:"http_timeout_seconds"`
	RenderTimeout        time.Duration `mapstructure:"-"`
	HTTPTimeout          time.Duration `mapstructure:"-"`
	MinContentLength     int           `mapstructure:"min_content_length"`
	MaxContentBytes      int           `mapstructure:"max_content_bytes"`
	FallbackDomainsRaw   string        `mapstructure:"fallback_domains"`
	FallbackDomains      []string      `mapstructure:"-"`

	PolitenessDelayMs    int64         `mapstructure:"politeness_delay_ms"`
	PolitenessDelay      time.Duration `mapstructure:"-"`
	MaxCandidatesPerPage int           `mapstructure:"max_candidates_per_page"`
	FetchWorkers         int           `mapstructure:"fetch_workers"`
	DiscoveryMode        string        `mapstructure:"discovery_mode"`
	MinConfidence        int           `mapstructure:"min_confidence"`
	ScanIntervalSeconds  int64         `mapstructure:"scan_interval_seconds"`
	ScanInterval         time.Duration `mapstructure:"-"`
	NotifyTimeoutSeconds int64         `mapstructure:"notify_timeout_seconds"`
	NotifyTimeout        time.Duration `mapstructure:"-"`
}

// Discovery modes.
const (
	DiscoveryLinks = "links"
	DiscoveryAI    = "ai"
)

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "bazaar-sniper")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini_models", "gemini-2.0-flash,gemini-1.5-flash,gemini-1.5-flash-8b,gemini-1.5-pro")
	v.SetDefault("ai_base_delay_ms", 2000)
	v.SetDefault("ai_delay_step_ms", 2000)
	v.SetDefault("ai_timeout_seconds", 60)

	v.SetDefault("item_name", "XTZ 12.17 Edge Subwoofer")
	v.SetDefault("tasks_file", "./configs/tasks.yaml")
	v.SetDefault("target_sites", "blocket.se,tradera.com,hifitorget.se,kleinanzeigen.de,ebay.de,dba.dk,finn.no")
	v.SetDefault("marketplaces_file", "")

	v.SetDefault("history_file", "seen_items.json")
	v.SetDefault("storage_type", "json")

	v.SetDefault("ntfy_topic", "gemini_and_nils_subscribtion_service")
	v.SetDefault("ntfy_base_url", "https://ntfy.sh")
	v.SetDefault("publishers_file", "")

	v.SetDefault("results_dir", "data")
	v.SetDefault("results_markdown", "RESULTS.md")
	v.SetDefault("results_html", "public/index.html")

	v.SetDefault("ci", false)
	v.SetDefault("git_user_name", "Scraper Bot")
	v.SetDefault("git_user_email", "bot@github.com")
	v.SetDefault("git_publish_always", false)

	v.SetDefault("headless", true)
	v.SetDefault("browser_remote_url", "")
	v.SetDefault("render_timeout_seconds", 45)
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("min_content_length", 300)
	v.SetDefault("max_content_bytes", 20000)
	v.SetDefault("fallback_domains", "blocket.se,finn.no,kleinanzeigen.de")

	v.SetDefault("politeness_delay_ms", 2000)
	v.SetDefault("max_candidates_per_page", 5)
	v.SetDefault("fetch_workers", 1)
	v.SetDefault("discovery_mode", DiscoveryLinks)
	v.SetDefault("min_confidence", 50)
	v.SetDefault("scan_interval_seconds", 0)
	v.SetDefault("notify_timeout_seconds", 10)
}

// finalize derives durations and lists and validates the loaded values.
func (c *Config) finalize() error {
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)
	if c.GeminiAPIKey == "" {
		return ErrMissingCredential
	}

	c.GeminiModels = SplitList(c.GeminiModelsRaw)
	if len(c.GeminiModels) == 0 {
		return fmt.Errorf("invalid gemini_models (at least one model required)")
	}
	c.TargetSites = SplitList(c.TargetSitesRaw)
	c.FallbackDomains = SplitList(c.FallbackDomainsRaw)

	if c.AIBaseDelayMs < 0 || c.AIDelayStepMs < 0 {
		return fmt.Errorf("invalid ai delay (must not be negative)")
	}
	c.AIBaseDelay = time.Duration(c.AIBaseDelayMs) * time.Millisecond
	c.AIDelayStep = time.Duration(c.AIDelayStepMs) * time.Millisecond

	if c.AITimeoutSeconds <= 0 {
		return fmt.Errorf("invalid ai_timeout_seconds (must be positive seconds)")
	}
	c.AITimeout = time.Duration(c.AITimeoutSeconds) * time.Second

	if c.RenderTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid render_timeout_seconds (must be positive seconds)")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	c.RenderTimeout = time.Duration(c.RenderTimeoutSeconds) * time.Second
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second

	if c.MinContentLength <= 0 {
		return fmt.Errorf("invalid min_content_length (must be positive)")
	}
	if c.MaxContentBytes < c.MinContentLength {
		return fmt.Errorf("invalid max_content_bytes (must be >= min_content_length)")
	}

	if c.PolitenessDelayMs < 0 {
		return fmt.Errorf("invalid politeness_delay_ms (must not be negative)")
	}
	c.PolitenessDelay = time.Duration(c.PolitenessDelayMs) * time.Millisecond

	if c.MaxCandidatesPerPage <= 0 {
		return fmt.Errorf("invalid max_candidates_per_page (must be positive)")
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = 1
	}

	c.DiscoveryMode = strings.ToLower(strings.TrimSpace(c.DiscoveryMode))
	switch c.DiscoveryMode {
	case DiscoveryLinks, DiscoveryAI:
	default:
		return fmt.Errorf("invalid discovery_mode %q (expected %s or %s)", c.DiscoveryMode, DiscoveryLinks, DiscoveryAI)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("invalid min_confidence (must be within 0..100)")
	}

	if c.ScanIntervalSeconds < 0 {
		return fmt.Errorf("invalid scan_interval_seconds (must not be negative)")
	}
	c.ScanInterval = time.Duration(c.ScanIntervalSeconds) * time.Second

	if c.NotifyTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid notify_timeout_seconds (must be positive seconds)")
	}
	c.NotifyTimeout = time.Duration(c.NotifyTimeoutSeconds) * time.Second

	return nil
}

// SplitList turns a comma separated value into a trimmed list without empties.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.GeminiAPIKey != "" {
		c.GeminiAPIKey = "***"
	}
	return c
}
