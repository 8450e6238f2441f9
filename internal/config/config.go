package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "CONTENT_RADAR_CONFIG"
	databasePathEnv   = "DATABASE_PATH"
	reasonerAPIKeyEnv = "REASONER_API_KEY"
	reasonerModelEnv  = "REASONER_MODEL"
	forumCookieEnv    = "FORUM_COOKIE"
)

// Config holds high-level settings required across the application.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
	Keywords   KeywordsConfig   `yaml:"keywords"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Signals    SignalsConfig    `yaml:"signals"`
	Sources    SourcesConfig    `yaml:"sources"`
}

// StorageConfig describes the SQLite database location.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines the HTTP listen address.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// KeywordsConfig tunes the deterministic keyword tagger.
type KeywordsConfig struct {
	MaxTags int `yaml:"maxTags"`
}

// ClassifierConfig defines how to contact the external reasoning service
// and how tightly to budget it.
type ClassifierConfig struct {
	Endpoint               string  `yaml:"endpoint"`
	Model                  string  `yaml:"model"`
	APIKey                 string  `yaml:"apiKey"`
	BatchSize              int     `yaml:"batchSize"`
	Budget                 float64 `yaml:"budget"`
	MinIntervalSeconds     float64 `yaml:"minIntervalSeconds"`
	TimeoutSeconds         int     `yaml:"timeoutSeconds"`
	PromptPricePerMTok     float64 `yaml:"promptPricePerMTok"`
	CompletionPricePerMTok float64 `yaml:"completionPricePerMTok"`
}

// SignalsConfig carries the momentum labeling policy.
type SignalsConfig struct {
	AccelerateAbove  float64 `yaml:"accelerateAbove"`
	DecelerateBelow  float64 `yaml:"decelerateBelow"`
	NewTopicMomentum float64 `yaml:"newTopicMomentum"`
}

// SourcesConfig groups per-variant collector settings.
type SourcesConfig struct {
	HackerNews  HackerNewsConfig `yaml:"hackernews"`
	Newsletters []FeedConfig     `yaml:"newsletters"`
	Videos      []ChannelConfig  `yaml:"videos"`
	Forum       ForumConfig      `yaml:"forum"`
	Social      SocialConfig     `yaml:"social"`
}

// HackerNewsConfig drives the link-aggregator collector.
type HackerNewsConfig struct {
	APIBase     string   `yaml:"apiBase"`
	MinScore    int      `yaml:"minScore"`
	HitsPerPage int      `yaml:"hitsPerPage"`
	Keywords    []string `yaml:"keywords"`
}

// FeedConfig describes one newsletter RSS feed.
type FeedConfig struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Topics []string `yaml:"topics"`
}

// ChannelConfig describes one video channel Atom feed.
type ChannelConfig struct {
	Name      string   `yaml:"name"`
	ChannelID string   `yaml:"channelId"`
	Topics    []string `yaml:"topics"`
}

// CategoryConfig names a forum timeline category and its numeric id.
type CategoryConfig struct {
	Name string `yaml:"name"`
	ID   int    `yaml:"id"`
}

// ForumConfig drives the financial-forum collector.
type ForumConfig struct {
	BaseURL    string           `yaml:"baseUrl"`
	Cookie     string           `yaml:"cookie"`
	Categories []CategoryConfig `yaml:"categories"`
	Count      int              `yaml:"count"`
}

// SocialConfig drives the CLI-backed social collector.
type SocialConfig struct {
	Command        string   `yaml:"command"`
	Accounts       []string `yaml:"accounts"`
	PerAccount     int      `yaml:"perAccount"`
	TimeoutSeconds int      `yaml:"timeoutSeconds"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Storage.Path = v
	}

	if v := os.Getenv(reasonerAPIKeyEnv); v != "" {
		c.Classifier.APIKey = v
	}

	if v := os.Getenv(reasonerModelEnv); v != "" {
		c.Classifier.Model = v
	}

	if v := os.Getenv(forumCookieEnv); v != "" {
		c.Sources.Forum.Cookie = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Storage.Path != "" {
		base.Storage = override.Storage
	}

	if override.API.Addr != "" {
		base.API = override.API
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Keywords.MaxTags > 0 {
		base.Keywords = override.Keywords
	}

	if override.Classifier.Endpoint != "" {
		base.Classifier.Endpoint = override.Classifier.Endpoint
	}
	if override.Classifier.Model != "" {
		base.Classifier.Model = override.Classifier.Model
	}
	if override.Classifier.APIKey != "" {
		base.Classifier.APIKey = override.Classifier.APIKey
	}
	if override.Classifier.BatchSize > 0 {
		base.Classifier.BatchSize = override.Classifier.BatchSize
	}
	if override.Classifier.Budget > 0 {
		base.Classifier.Budget = override.Classifier.Budget
	}
	if override.Classifier.MinIntervalSeconds > 0 {
		base.Classifier.MinIntervalSeconds = override.Classifier.MinIntervalSeconds
	}
	if override.Classifier.TimeoutSeconds > 0 {
		base.Classifier.TimeoutSeconds = override.Classifier.TimeoutSeconds
	}
	if override.Classifier.PromptPricePerMTok > 0 {
		base.Classifier.PromptPricePerMTok = override.Classifier.PromptPricePerMTok
	}
	if override.Classifier.CompletionPricePerMTok > 0 {
		base.Classifier.CompletionPricePerMTok = override.Classifier.CompletionPricePerMTok
	}

	if override.Signals.AccelerateAbove != 0 {
		base.Signals.AccelerateAbove = override.Signals.AccelerateAbove
	}
	if override.Signals.DecelerateBelow != 0 {
		base.Signals.DecelerateBelow = override.Signals.DecelerateBelow
	}
	if override.Signals.NewTopicMomentum != 0 {
		base.Signals.NewTopicMomentum = override.Signals.NewTopicMomentum
	}

	if override.Sources.HackerNews.APIBase != "" {
		base.Sources.HackerNews = override.Sources.HackerNews
	}
	if len(override.Sources.Newsletters) > 0 {
		base.Sources.Newsletters = override.Sources.Newsletters
	}
	if len(override.Sources.Videos) > 0 {
		base.Sources.Videos = override.Sources.Videos
	}
	if override.Sources.Forum.BaseURL != "" || override.Sources.Forum.Cookie != "" {
		if override.Sources.Forum.BaseURL == "" {
			override.Sources.Forum.BaseURL = base.Sources.Forum.BaseURL
		}
		if len(override.Sources.Forum.Categories) == 0 {
			override.Sources.Forum.Categories = base.Sources.Forum.Categories
		}
		if override.Sources.Forum.Count == 0 {
			override.Sources.Forum.Count = base.Sources.Forum.Count
		}
		base.Sources.Forum = override.Sources.Forum
	}
	if override.Sources.Social.Command != "" || len(override.Sources.Social.Accounts) > 0 {
		if override.Sources.Social.Command == "" {
			override.Sources.Social.Command = base.Sources.Social.Command
		}
		if override.Sources.Social.PerAccount == 0 {
			override.Sources.Social.PerAccount = base.Sources.Social.PerAccount
		}
		if override.Sources.Social.TimeoutSeconds == 0 {
			override.Sources.Social.TimeoutSeconds = base.Sources.Social.TimeoutSeconds
		}
		base.Sources.Social = override.Sources.Social
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Storage:  StorageConfig{Path: "data/contentradar.db"},
		API:      APIConfig{Addr: "127.0.0.1:8001"},
		Logging:  LoggingConfig{Level: "info"},
		Keywords: KeywordsConfig{MaxTags: 5},
		Classifier: ClassifierConfig{
			Endpoint:               "https://api.openai.com/v1/chat/completions",
			Model:                  "gpt-4o-mini",
			BatchSize:              10,
			Budget:                 5.0,
			MinIntervalSeconds:     2.0,
			TimeoutSeconds:         120,
			PromptPricePerMTok:     0.15,
			CompletionPricePerMTok: 0.60,
		},
		Signals: SignalsConfig{
			AccelerateAbove:  0.2,
			DecelerateBelow:  -0.2,
			NewTopicMomentum: 1.0,
		},
		Sources: SourcesConfig{
			HackerNews: HackerNewsConfig{
				APIBase:     "https://hn.algolia.com/api/v1",
				MinScore:    50,
				HitsPerPage: 50,
				Keywords:    []string{"crypto", "AI", "trading"},
			},
			Newsletters: []FeedConfig{
				{Name: "The Pomp Letter", URL: "https://pomp.substack.com/feed", Topics: []string{"crypto", "macro"}},
				{Name: "Doomberg", URL: "https://doomberg.substack.com/feed", Topics: []string{"energy", "commodities"}},
				{Name: "One Useful Thing", URL: "https://www.oneusefulthing.org/feed", Topics: []string{"ai"}},
				{Name: "AI Supremacy", URL: "https://www.ai-supremacy.com/feed", Topics: []string{"ai"}},
				{Name: "Interconnects", URL: "https://www.interconnects.ai/feed", Topics: []string{"ai"}},
				{Name: "Dwarkesh Patel", URL: "https://www.dwarkeshpatel.com/feed", Topics: []string{"ai", "tech"}},
				{Name: "SemiAnalysis", URL: "https://semianalysis.substack.com/feed", Topics: []string{"chips", "ai"}},
			},
			Videos: []ChannelConfig{
				{Name: "Alex Finn", ChannelID: "UCfQNB91qRP_5ILeu_S_bSkg", Topics: []string{"ai"}},
				{Name: "AI超元域", ChannelID: "UCIomFkAj4Vq_rGX2Jot7D8A", Topics: []string{"ai"}},
				{Name: "Eric Tech", ChannelID: "UCOXRjenlq9PmlTqd_JhAbMQ", Topics: []string{"ai", "tech"}},
				{Name: "Y Combinator", ChannelID: "UCcefcZRL2oaA_uBNeo5UOWg", Topics: []string{"startups", "tech"}},
				{Name: "AI LABS", ChannelID: "UCelfWQr9sXVMTvBzviPGlFw", Topics: []string{"ai"}},
				{Name: "Peter Yang", ChannelID: "UCnpBg7yqNauHtlNSpOl5-cg", Topics: []string{"ai", "tech"}},
			},
			Forum: ForumConfig{
				BaseURL: "https://xueqiu.com",
				Categories: []CategoryConfig{
					{Name: "hot", ID: 111},
					{Name: "stocks", ID: 114},
				},
				Count: 20,
			},
			Social: SocialConfig{
				Command:        "bird",
				Accounts:       []string{"elonmusk", "sama", "naval", "VitalikButerin", "CathieDWood", "chamath", "balajis", "APompliano", "raydalio"},
				PerAccount:     10,
				TimeoutSeconds: 30,
			},
		},
	}
}
