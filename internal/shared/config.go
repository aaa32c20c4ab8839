package shared

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config is read from the environment. Variable names are the envconfig tags below.
type Config struct {
	AppEnv      string        `envconfig:"APP_ENV" default:"prod"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr    string        `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string        `envconfig:"METRICS_ADDR" default:""`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"90s"`

	// Empty disables the report archive and the miss log.
	MySQLDSN     string `envconfig:"MYSQL_DSN" default:""`
	MySQLMigrate bool   `envconfig:"MYSQL_MIGRATE" default:"true"`

	// Empty disables caching.
	RedisAddr       string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPass       string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB         int    `envconfig:"REDIS_DB" default:"0"`
	CacheTTLSeconds int    `envconfig:"CACHE_TTL_SECONDS" default:"3600"`

	FetchRPS     int           `envconfig:"FETCH_RPS" default:"5"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`

	RateMDsBaseURL     string `envconfig:"RATEMDS_BASE_URL" default:"https://www.ratemds.com"`
	RateMDsSearchPages int    `envconfig:"RATEMDS_SEARCH_PAGES" default:"2"`
	RateMDsReviewPages int    `envconfig:"RATEMDS_REVIEW_PAGES" default:"25"`

	RealSelfSearchURL   string        `envconfig:"REALSELF_SEARCH_URL" default:"https://search.realself.com"`
	RealSelfAPIURL      string        `envconfig:"REALSELF_API_URL" default:"https://api.realself.com/v1"`
	RealSelfSiteURL     string        `envconfig:"REALSELF_SITE_URL" default:"https://realself.com"`
	RealSelfImageURL    string        `envconfig:"REALSELF_IMAGE_URL" default:"https://www.realself.com"`
	RealSelfPageSize    int           `envconfig:"REALSELF_PAGE_SIZE" default:"20"`
	RealSelfReviewPages int           `envconfig:"REALSELF_REVIEW_PAGES" default:"15"`
	RealSelfPacing      time.Duration `envconfig:"REALSELF_PACING" default:"500ms"`

	IWGCBaseURL       string `envconfig:"IWGC_BASE_URL" default:"https://www.iwantgreatcare.org"`
	IWGCReviewPages   int    `envconfig:"IWGC_REVIEW_PAGES" default:"10"`
	IWGCMaxExpansions int    `envconfig:"IWGC_MAX_EXPANSIONS" default:"5"`

	SourcesDisabled []string `envconfig:"SOURCES_DISABLED" default:""`

	SummarizerProvider  string        `envconfig:"SUMMARIZER_PROVIDER" default:"openai"`
	SummarizerAPIKey    string        `envconfig:"SUMMARIZER_API_KEY" default:""`
	SummarizerModel     string        `envconfig:"SUMMARIZER_MODEL" default:""`
	SummarizerBaseURL   string        `envconfig:"SUMMARIZER_BASE_URL" default:""`
	SummarizerTimeout   time.Duration `envconfig:"SUMMARIZER_TIMEOUT" default:"60s"`
	SummarizerMaxTokens int           `envconfig:"SUMMARIZER_MAX_TOKENS" default:"800"`
	PromptTokenBudget   int           `envconfig:"PROMPT_TOKEN_BUDGET" default:"12000"`
	ReportConcurrency   int64         `envconfig:"REPORT_CONCURRENCY" default:"4"`

	WarmWorkers int `envconfig:"WARM_WORKERS" default:"4"`
}

func (c Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSeconds) * time.Second }

// Load parses the environment.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if c.CacheTTLSeconds <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL_SECONDS must be positive, got %d", c.CacheTTLSeconds)
	}
	if c.SummarizerAPIKey == "" {
		log.Warn().Msg("SUMMARIZER_API_KEY is empty; report mode will fail")
	}
	return c, nil
}
