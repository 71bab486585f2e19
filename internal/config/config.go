package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dailybrief/internal/transform"

	"github.com/caarlos0/env/v11"
)

const (
	EnvironmentProduction = "production"

	callbackPath = "/auth/google/callback"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"`

	AppURL   string `env:"APP_URL"   envDefault:"http://localhost:8501"`
	HTTPHost string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8501"`

	DBPath  string `env:"DB_PATH" envDefault:"db.sqlite"`
	Account string `env:"ACCOUNT" envDefault:"default"`

	SummarizerProvider          string        `env:"SUMMARIZER_PROVIDER"           envDefault:"huggingface"`
	SummarizerEndpoint          string        `env:"SUMMARIZER_ENDPOINT"           envDefault:"https://api-inference.huggingface.co/models/facebook/bart-large-cnn"`
	HuggingFaceAPIKey           string        `env:"HUGGINGFACE_API_KEY"`
	OpenAIAPIKey                string        `env:"OPENAI_API_KEY"`
	AnthropicAPIKey             string        `env:"ANTHROPIC_API_KEY"`
	SummarizerMaxAttempts       int           `env:"SUMMARIZER_MAX_ATTEMPTS"       envDefault:"3"`
	SummarizerBackoff           time.Duration `env:"SUMMARIZER_BACKOFF"            envDefault:"2s"`
	SummarizerRetryableStatuses []int         `env:"SUMMARIZER_RETRYABLE_STATUSES" envDefault:"503"`

	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" envDefault:"credentials.json"`
	GoogleClientID        string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `env:"GOOGLE_CLIENT_SECRET"`
	CalendarID            string `env:"CALENDAR_ID"         envDefault:"primary"`
	CalendarMaxEvents     int64  `env:"CALENDAR_MAX_EVENTS" envDefault:"10"`

	NewsAPIKey           string   `env:"NEWS_API_KEY"`
	NewsAPIURL           string   `env:"NEWS_API_URL"           envDefault:"https://newsapi.org/v2/top-headlines"`
	NewsCountry          string   `env:"NEWS_COUNTRY"           envDefault:"us"`
	NewsPageSize         int      `env:"NEWS_PAGE_SIZE"         envDefault:"10"`
	NewsFeeds            []string `env:"NEWS_FEEDS"`
	NewsTelegramChannels []string `env:"NEWS_TELEGRAM_CHANNELS"`

	WeatherAPIKey      string `env:"WEATHER_API_KEY"`
	WeatherAPIURL      string `env:"WEATHER_API_URL"      envDefault:"https://api.openweathermap.org/data/2.5/weather"`
	WeatherCitiesFile  string `env:"WEATHER_CITIES_FILE"`
	WeatherDefaultCity string `env:"WEATHER_DEFAULT_CITY" envDefault:"New York"`

	DigestSchedule string `env:"DIGEST_SCHEDULE" envDefault:"0 7 * * *"`
	DigestTimezone string `env:"DIGEST_TIMEZONE" envDefault:"UTC"`

	TelegramToken   string  `env:"TELEGRAM_TOKEN"`
	TelegramChatIDs []int64 `env:"TELEGRAM_CHAT_IDS"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.AppURL = strings.TrimRight(strings.TrimSpace(c.AppURL), "/")
	c.Account = strings.TrimSpace(c.Account)
	c.SummarizerProvider = strings.ToLower(strings.TrimSpace(c.SummarizerProvider))

	c.NewsFeeds = compact(c.NewsFeeds)
	c.NewsTelegramChannels = compact(c.NewsTelegramChannels)
}

// compact trims items and drops blank ones.
func compact(items []string) []string {
	result := items[:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}

	return result
}

func (c *Config) Validate() error {
	var errs []error

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort))
	}

	if c.Account == "" {
		errs = append(errs, errors.New("ACCOUNT is required"))
	}

	if _, err := url.Parse(c.AppURL); err != nil || c.AppURL == "" {
		errs = append(errs, fmt.Errorf("APP_URL is not a valid URL: %q", c.AppURL))
	}

	if err := c.RetryPolicy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("summarizer retry policy: %w", err))
	}

	if c.CalendarMaxEvents < 1 {
		errs = append(errs, errors.New("CALENDAR_MAX_EVENTS must be >= 1"))
	}

	if c.NewsPageSize < 1 || c.NewsPageSize > 100 {
		errs = append(errs, errors.New("NEWS_PAGE_SIZE must be between 1 and 100"))
	}

	if _, err := time.LoadLocation(c.DigestTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DIGEST_TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// RedirectURL is the OAuth callback registered with Google.
func (c *Config) RedirectURL() string {
	if c.Environment == EnvironmentProduction {
		return c.AppURL + callbackPath
	}

	return fmt.Sprintf("http://localhost:%d%s", c.HTTPPort, callbackPath)
}

func (c *Config) RetryPolicy() transform.RetryPolicy {
	return transform.RetryPolicy{
		MaxAttempts:          c.SummarizerMaxAttempts,
		Backoff:              c.SummarizerBackoff,
		RetryableStatusCodes: c.SummarizerRetryableStatuses,
	}
}

func (c *Config) DigestLocation() *time.Location {
	loc, err := time.LoadLocation(c.DigestTimezone)
	if err != nil {
		return time.UTC
	}

	return loc
}
