package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Cron   CronConfig   `mapstructure:"cron"`

	Sources    SourcesConfig    `mapstructure:"sources"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Generation GenerationConfig `mapstructure:"generation"`
	Cycle      CycleConfig      `mapstructure:"cycle"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DailyRun  string `mapstructure:"daily_run"`
	Heartbeat string `mapstructure:"heartbeat"`
}

type SourcesConfig struct {
	GoogleTrends GoogleTrendsConfig `mapstructure:"google_trends"`
	NewsAPI      NewsAPIConfig      `mapstructure:"news_api"`
	Reddit       RedditConfig       `mapstructure:"reddit"`
	Bluesky      BlueskyConfig      `mapstructure:"bluesky"`
}

type GoogleTrendsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Endpoint  string        `mapstructure:"endpoint"`
	Geo       string        `mapstructure:"geo"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTopics int           `mapstructure:"max_topics"`
}

type NewsAPIConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Endpoint  string        `mapstructure:"endpoint"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	Country   string        `mapstructure:"country"`
	PageSize  int           `mapstructure:"page_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type RedditConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Endpoint     string        `mapstructure:"endpoint"`
	Subreddits   []string      `mapstructure:"subreddits"`
	UserAgent    string        `mapstructure:"user_agent"`
	PostsPerSub  int           `mapstructure:"posts_per_sub"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RequestPause time.Duration `mapstructure:"request_pause"`
}

type BlueskyConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	SampleWindow time.Duration `mapstructure:"sample_window"`
	MinMentions  int           `mapstructure:"min_mentions"`
	MaxTopics    int           `mapstructure:"max_topics"`
}

type AggregatorConfig struct {
	SimilarityCutoff    float64 `mapstructure:"similarity_cutoff"`
	MaxSignalsPerSource int     `mapstructure:"max_signals_per_source"`
	AICategorization    bool    `mapstructure:"ai_categorization"`
}

type ScoringConfig struct {
	VolumeWeight         float64 `mapstructure:"volume_weight"`
	VelocityWeight       float64 `mapstructure:"velocity_weight"`
	SustainabilityWeight float64 `mapstructure:"sustainability_weight"`
	BrandSafetyWeight    float64 `mapstructure:"brand_safety_weight"`
	MinTrendScore        float64 `mapstructure:"min_trend_score"`
	SafetyFloor          float64 `mapstructure:"safety_floor"`
	WindowDays           int     `mapstructure:"window_days"`
	CollapseDropPct      float64 `mapstructure:"collapse_drop_pct"`
	BaselineWindowDays   int     `mapstructure:"baseline_window_days"`
}

type GenerationConfig struct {
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`

	MaxRetries           int           `mapstructure:"max_retries"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	BackoffBase          time.Duration `mapstructure:"backoff_base"`
	RequestsPerMinute    float64       `mapstructure:"requests_per_minute"`
	MaxConcurrent        int           `mapstructure:"max_concurrent"`
	MaxCampaignsPerTrend int           `mapstructure:"max_campaigns_per_trend"`
	MaxAnglesPerCampaign int           `mapstructure:"max_angles_per_campaign"`
	MinCampaignScore     float64       `mapstructure:"min_campaign_score"`
	MaxTokens            int           `mapstructure:"max_tokens"`
	Temperature          float64       `mapstructure:"temperature"`
}

type ProviderConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Model     string `mapstructure:"model"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	BaseURL   string `mapstructure:"base_url"`
}

type CycleConfig struct {
	Deadline           time.Duration `mapstructure:"deadline"`
	ArchiveAfterCycles int           `mapstructure:"archive_after_cycles"`
	TopTrendsPerCycle  int           `mapstructure:"top_trends_per_cycle"`
	ArchiveDraftsAfter time.Duration `mapstructure:"archive_drafts_after"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "6h")
	v.SetDefault("cron.enabled", true)
	// Daily cycle at 06:00 UTC (six-field spec, runner uses cron.WithSeconds).
	v.SetDefault("cron.daily_run", "0 0 6 * * *")
	v.SetDefault("cron.heartbeat", "@every 10m")

	v.SetDefault("sources.google_trends.enabled", true)
	v.SetDefault("sources.google_trends.endpoint", "https://trends.google.com/trending/rss")
	v.SetDefault("sources.google_trends.geo", "US")
	v.SetDefault("sources.google_trends.timeout", "15s")
	v.SetDefault("sources.google_trends.max_topics", 20)

	v.SetDefault("sources.news_api.enabled", true)
	v.SetDefault("sources.news_api.endpoint", "https://newsapi.org/v2/top-headlines")
	v.SetDefault("sources.news_api.api_key_env", "NEWS_API_KEY")
	v.SetDefault("sources.news_api.country", "us")
	v.SetDefault("sources.news_api.page_size", 20)
	v.SetDefault("sources.news_api.timeout", "15s")

	v.SetDefault("sources.reddit.enabled", true)
	v.SetDefault("sources.reddit.endpoint", "https://www.reddit.com")
	v.SetDefault("sources.reddit.subreddits", []string{"all", "news", "worldnews", "technology", "entertainment"})
	v.SetDefault("sources.reddit.user_agent", "trendscout/1.0")
	v.SetDefault("sources.reddit.posts_per_sub", 5)
	v.SetDefault("sources.reddit.timeout", "15s")
	v.SetDefault("sources.reddit.request_pause", "1s")

	v.SetDefault("sources.bluesky.enabled", false)
	v.SetDefault("sources.bluesky.url", "wss://jetstream2.us-east.bsky.network/subscribe?wantedCollections=app.bsky.feed.post")
	v.SetDefault("sources.bluesky.sample_window", "30s")
	v.SetDefault("sources.bluesky.min_mentions", 5)
	v.SetDefault("sources.bluesky.max_topics", 20)

	v.SetDefault("aggregator.similarity_cutoff", 0.82)
	v.SetDefault("aggregator.max_signals_per_source", 50)
	v.SetDefault("aggregator.ai_categorization", false)

	v.SetDefault("scoring.volume_weight", 0.25)
	v.SetDefault("scoring.velocity_weight", 0.20)
	v.SetDefault("scoring.sustainability_weight", 0.35)
	v.SetDefault("scoring.brand_safety_weight", 0.20)
	v.SetDefault("scoring.min_trend_score", 30.0)
	v.SetDefault("scoring.safety_floor", 0.5)
	v.SetDefault("scoring.window_days", 7)
	v.SetDefault("scoring.collapse_drop_pct", 0.6)
	v.SetDefault("scoring.baseline_window_days", 7)

	v.SetDefault("generation.openai.enabled", true)
	v.SetDefault("generation.openai.model", "gpt-4o")
	v.SetDefault("generation.openai.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("generation.openai.base_url", "")
	v.SetDefault("generation.anthropic.enabled", true)
	v.SetDefault("generation.anthropic.model", "claude-3-5-sonnet-latest")
	v.SetDefault("generation.anthropic.api_key_env", "ANTHROPIC_API_KEY")
	v.SetDefault("generation.max_retries", 2)
	v.SetDefault("generation.request_timeout", "60s")
	v.SetDefault("generation.backoff_base", "500ms")
	v.SetDefault("generation.requests_per_minute", 20)
	v.SetDefault("generation.max_concurrent", 3)
	v.SetDefault("generation.max_campaigns_per_trend", 5)
	v.SetDefault("generation.max_angles_per_campaign", 5)
	v.SetDefault("generation.min_campaign_score", 60.0)
	v.SetDefault("generation.max_tokens", 2000)
	v.SetDefault("generation.temperature", 0.8)

	v.SetDefault("cycle.deadline", "30m")
	v.SetDefault("cycle.archive_after_cycles", 7)
	v.SetDefault("cycle.top_trends_per_cycle", 10)
	v.SetDefault("cycle.archive_drafts_after", "720h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
