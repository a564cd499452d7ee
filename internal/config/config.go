package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	GitHub    GitHubConfig    `yaml:"github"`
	Providers ProvidersConfig `yaml:"providers"`
	Vector    VectorConfig    `yaml:"vector"`
	Store     StoreConfig     `yaml:"store"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	Summarize SummarizeConfig `yaml:"summarize"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
}

// GitHubConfig holds GitHub authentication settings. Either a personal
// access token or a GitHub App (app_id + installation_id + private key)
// must be provided.
type GitHubConfig struct {
	Token          string `yaml:"token"`
	AppID          string `yaml:"app_id"`
	InstallationID string `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKey     string `yaml:"private_key"`
}

// ProviderConfig holds settings for a single provider (embedding or LLM).
type ProviderConfig struct {
	Type   string `yaml:"type"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
}

// ProvidersConfig groups embedding and LLM provider configs.
type ProvidersConfig struct {
	Embedding ProviderConfig `yaml:"embedding"`
	LLM       ProviderConfig `yaml:"llm"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	Dimensions int    `yaml:"dimensions"`
}

// StoreConfig holds storage settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CrawlConfig bounds a single crawl invocation. MaxPages is a hard stop:
// result sets larger than MaxPages*PageSize are truncated, not drained.
type CrawlConfig struct {
	MaxPages int `yaml:"max_pages"`
	PageSize int `yaml:"page_size"`
}

// SummarizeConfig holds summary generation parameters.
type SummarizeConfig struct {
	ShortInputThreshold int `yaml:"short_input_threshold"`
	LongInputMaxChars   int `yaml:"long_input_max_chars"`
	ShortMaxTokens      int `yaml:"short_max_tokens"`
	LongMaxTokens       int `yaml:"long_max_tokens"`
	BatchSize           int `yaml:"batch_size"`
}

// IndexConfig holds indexing batch parameters.
type IndexConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// SearchConfig holds retrieval thresholds and caps.
type SearchConfig struct {
	HybridThreshold float64 `yaml:"hybrid_threshold"`
	PlainThreshold  float64 `yaml:"plain_threshold"`
	CandidateLimit  int     `yaml:"candidate_limit"`
	ResultLimit     int     `yaml:"result_limit"`
}

// ServerConfig holds the HTTP control surface settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values.
// Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string

	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(varName))
		if !ok {
			missing = append(missing, string(varName))
			return match
		}
		return []byte(val)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// Load reads and parses a config file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses config from raw YAML bytes, expanding env vars and validating.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "scout_search"
	}
	if cfg.Vector.Dimensions == 0 {
		cfg.Vector.Dimensions = 1536
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.scout/scout.db"
	}
	if cfg.Crawl.MaxPages == 0 {
		cfg.Crawl.MaxPages = 10
	}
	if cfg.Crawl.PageSize == 0 {
		cfg.Crawl.PageSize = 100
	}
	if cfg.Summarize.ShortInputThreshold == 0 {
		cfg.Summarize.ShortInputThreshold = 200
	}
	if cfg.Summarize.LongInputMaxChars == 0 {
		cfg.Summarize.LongInputMaxChars = 4000
	}
	if cfg.Summarize.ShortMaxTokens == 0 {
		cfg.Summarize.ShortMaxTokens = 180
	}
	if cfg.Summarize.LongMaxTokens == 0 {
		cfg.Summarize.LongMaxTokens = 250
	}
	if cfg.Summarize.BatchSize == 0 {
		cfg.Summarize.BatchSize = 50
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 50
	}
	if cfg.Search.HybridThreshold == 0 {
		cfg.Search.HybridThreshold = 0.75
	}
	if cfg.Search.PlainThreshold == 0 {
		cfg.Search.PlainThreshold = 0.79
	}
	if cfg.Search.CandidateLimit == 0 {
		cfg.Search.CandidateLimit = 10
	}
	if cfg.Search.ResultLimit == 0 {
		cfg.Search.ResultLimit = 5
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

func validate(cfg *Config) error {
	if cfg.Search.HybridThreshold < 0 || cfg.Search.HybridThreshold > 1 {
		return fmt.Errorf("hybrid_threshold must be between 0 and 1, got %f", cfg.Search.HybridThreshold)
	}
	if cfg.Search.PlainThreshold < 0 || cfg.Search.PlainThreshold > 1 {
		return fmt.Errorf("plain_threshold must be between 0 and 1, got %f", cfg.Search.PlainThreshold)
	}
	if cfg.Crawl.MaxPages < 1 {
		return fmt.Errorf("max_pages must be at least 1, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.PageSize < 1 || cfg.Crawl.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100, got %d", cfg.Crawl.PageSize)
	}
	if cfg.Summarize.BatchSize < 1 {
		return fmt.Errorf("summarize batch_size must be at least 1, got %d", cfg.Summarize.BatchSize)
	}
	if cfg.Index.BatchSize < 1 {
		return fmt.Errorf("index batch_size must be at least 1, got %d", cfg.Index.BatchSize)
	}
	if cfg.Vector.Dimensions < 1 {
		return fmt.Errorf("vector dimensions must be at least 1, got %d", cfg.Vector.Dimensions)
	}
	if cfg.Search.ResultLimit > cfg.Search.CandidateLimit {
		return fmt.Errorf("result_limit (%d) cannot exceed candidate_limit (%d)",
			cfg.Search.ResultLimit, cfg.Search.CandidateLimit)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home + path[1:]
	}
	return path
}
