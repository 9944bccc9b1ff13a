// Package config loads the application configuration: a YAML file with
// environment-variable overrides for every credential, so deployments can
// keep secrets out of the file entirely.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Network    NetworkConfig    `yaml:"network"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Skills     SkillsConfig     `yaml:"skills"`
	Paths      PathsConfig      `yaml:"paths"`
}

// NetworkConfig controls the network-build job.
type NetworkConfig struct {
	// Handle is the root account whose followings seed the candidate set.
	Handle string `yaml:"handle"`
	// MaxFollowings caps how many followed accounts are ingested.
	MaxFollowings int `yaml:"max_followings"`
	// VerifiedOnly keeps only verified accounts as candidates.
	VerifiedOnly bool `yaml:"verified_only"`
	// HumansOnly filters out organizational accounts before processing.
	HumansOnly bool `yaml:"humans_only"`
	// BatchFraction is the share of pending work one run processes, in (0,1].
	BatchFraction float64 `yaml:"batch_fraction"`
	// MaxPosts caps the number of posts fetched per account.
	MaxPosts int `yaml:"max_posts"`
	// MinPostText is the minimum combined post text length a provider must
	// return for the result to count as sufficient.
	MinPostText int `yaml:"min_post_text"`
}

// ProvidersConfig holds per-provider credentials and the cascade order.
type ProvidersConfig struct {
	// Order lists provider names in cascade priority. Unknown names are
	// rejected at load time.
	Order []string `yaml:"order"`

	// TwitterAPIKeys are twitterapi.io keys, rotated round-robin.
	TwitterAPIKeys []string `yaml:"twitterapi_keys"`
	// ScrapeBadgerKeys are ScrapeBadger keys, rotated round-robin.
	ScrapeBadgerKeys []string `yaml:"scrapebadger_keys"`
	// ApifyToken authenticates Apify actor runs.
	ApifyToken string `yaml:"apify_token"`

	// XAccounts is the native web client's account list, in
	// "user:pass[:auth_token:ct0[:totp]]" format, comma-separated.
	XAccounts string `yaml:"x_accounts"`
	// XProxy is the default proxy for the native web client.
	XProxy string `yaml:"x_proxy"`
	// XSessionDir overrides where web sessions are persisted.
	XSessionDir string `yaml:"x_session_dir"`
}

// ClassifierConfig controls the account classifier.
type ClassifierConfig struct {
	// GeminiAPIKey enables the semantic judge. Without it the classifier
	// runs heuristics only and defaults ambiguous accounts to human.
	GeminiAPIKey string `yaml:"gemini_api_key"`
	// Model overrides the judge model.
	Model string `yaml:"model"`
}

// SkillsConfig controls skill generation.
type SkillsConfig struct {
	// Model overrides the generation model.
	Model string `yaml:"model"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// StateFile is the durable job state snapshot.
	StateFile string `yaml:"state_file"`
	// SkillsDir is the root directory for generated skills.
	SkillsDir string `yaml:"skills_dir"`
}

// knownProviders is the set of valid cascade entries.
var knownProviders = map[string]bool{
	"twitterapi": true,
	"badger":     true,
	"apify":      true,
	"xweb":       true,
}

// defaults fills in zero-value fields.
func (c *Config) defaults() {
	if c.Network.MaxFollowings == 0 {
		c.Network.MaxFollowings = 400
	}
	if c.Network.BatchFraction == 0 {
		c.Network.BatchFraction = 0.25
	}
	if c.Network.MaxPosts == 0 {
		c.Network.MaxPosts = 30
	}
	if c.Network.MinPostText == 0 {
		c.Network.MinPostText = 50
	}
	if len(c.Providers.Order) == 0 {
		c.Providers.Order = []string{"twitterapi", "badger", "apify", "xweb"}
	}
	if c.Paths.StateFile == "" {
		c.Paths.StateFile = "data/network_state.json"
	}
	if c.Paths.SkillsDir == "" {
		c.Paths.SkillsDir = "skills"
	}
}

// applyEnv overrides credentials from the environment. Environment always
// wins over the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TWITTERAPI_IO_KEYS"); v != "" {
		c.Providers.TwitterAPIKeys = splitKeys(v)
	}
	if v := os.Getenv("SCRAPEBADGER_API_KEYS"); v != "" {
		c.Providers.ScrapeBadgerKeys = splitKeys(v)
	} else if v := os.Getenv("SCRAPEBADGER_API_KEY"); v != "" {
		c.Providers.ScrapeBadgerKeys = []string{v}
	}
	if v := os.Getenv("APIFY_API_TOKEN"); v != "" {
		c.Providers.ApifyToken = v
	}
	if v := os.Getenv("X_ACCOUNTS"); v != "" {
		c.Providers.XAccounts = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Classifier.GeminiAPIKey = v
	}
}

func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// validate rejects configurations that could only fail later.
func (c *Config) validate() error {
	for _, name := range c.Providers.Order {
		if !knownProviders[name] {
			return fmt.Errorf("unknown provider %q in cascade order", name)
		}
	}
	if f := c.Network.BatchFraction; f <= 0 || f > 1 {
		return fmt.Errorf("batch_fraction must be in (0,1], got %v", f)
	}
	return nil
}

// Load reads the config file (optional), applies environment overrides and
// defaults, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyEnv()
	c.defaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
