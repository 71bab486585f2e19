package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dailybrief/internal/bot"
	"dailybrief/internal/calendar"
	"dailybrief/internal/config"
	"dailybrief/internal/database"
	"dailybrief/internal/digest"
	"dailybrief/internal/httpapi"
	"dailybrief/internal/logging"
	"dailybrief/internal/news"
	"dailybrief/internal/scheduler"
	"dailybrief/internal/summarizer"
	"dailybrief/internal/transform"
	"dailybrief/internal/weather"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	start := time.Now()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config",
			"error", err)

		os.Exit(1)
	}

	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create logger",
			"error", err)

		os.Exit(1)
	}
	slog.SetDefault(log)

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("Failed to load .env file",
			"error", envErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err = run(ctx, cancel, cfg, log); err != nil {
		log.ErrorContext(ctx, "Exiting with error",
			"error", err,
			"uptimeSeconds", time.Since(start).Seconds())

		os.Exit(1)
	}

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())
}

func run(ctx context.Context, cancel context.CancelFunc, cfg config.Config, log *slog.Logger) error {
	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	s, err := summarizer.New(summarizer.Options{
		Provider:          cfg.SummarizerProvider,
		Endpoint:          cfg.SummarizerEndpoint,
		HuggingFaceAPIKey: cfg.HuggingFaceAPIKey,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		AnthropicAPIKey:   cfg.AnthropicAPIKey,
		RetryPolicy:       cfg.RetryPolicy(),
	}, transform.NewClient(nil, log))
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "Summarizer is initialized",
		"provider", cfg.SummarizerProvider,
		"maxAttempts", cfg.SummarizerMaxAttempts,
		"backoff", cfg.SummarizerBackoff)

	cities, err := weather.LoadCities(cfg.WeatherCitiesFile)
	if err != nil {
		return err
	}

	defaultCity := weather.DefaultCity(cities, cfg.WeatherDefaultCity)
	if defaultCity != cfg.WeatherDefaultCity {
		log.WarnContext(ctx, "Default city is adjusted to the city list",
			"configured", cfg.WeatherDefaultCity,
			"city", defaultCity)
	}

	digestOpts := digest.Options{
		Summarizer:   s,
		Store:        db,
		MaxEvents:    cfg.CalendarMaxEvents,
		NewsPageSize: cfg.NewsPageSize,
	}
	deps := httpapi.Deps{
		Summarizer: s,
	}

	if auth := initAuthenticator(ctx, cfg, db, log); auth != nil {
		events := calendar.NewGoogleProvider(cfg.CalendarID)

		digestOpts.Authorizer = auth
		digestOpts.Events = events
		deps.Auth = auth
		deps.Events = events
	}

	newsSource := initNewsSource(ctx, cfg, log)
	digestOpts.News = newsSource
	deps.News = newsSource

	if cfg.WeatherAPIKey != "" {
		client := weather.NewClient(nil, cfg.WeatherAPIURL, cfg.WeatherAPIKey)

		digestOpts.Weather = client
		deps.Weather = client
	} else {
		log.WarnContext(ctx, "WEATHER_API_KEY is missing so weather is disabled",
			"envVar", "WEATHER_API_KEY")
	}

	digests := digest.NewService(digestOpts, log)
	deps.Digests = digests

	var notifier scheduler.Notifier
	var botInst *bot.Bot
	if cfg.TelegramToken != "" {
		botInst, err = bot.New(bot.Options{
			Token:          cfg.TelegramToken,
			AllowedChatIDs: cfg.TelegramChatIDs,
			Account:        cfg.Account,
			City:           defaultCity,
		}, digests, log)
		if err != nil {
			return err
		}
		notifier = botInst

		log.InfoContext(ctx, "Bot is initialized",
			"allowedChatsCount", len(cfg.TelegramChatIDs))
	}

	sched := scheduler.New(ctx, scheduler.Options{
		Spec:     cfg.DigestSchedule,
		Location: cfg.DigestLocation(),
		Account:  cfg.Account,
		City:     defaultCity,
	}, digests, notifier, log)
	if err = sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	server := httpapi.NewServer(deps, log, httpapi.Options{
		Host:          cfg.HTTPHost,
		Port:          cfg.HTTPPort,
		Account:       cfg.Account,
		Cities:        cities,
		DefaultCity:   defaultCity,
		MaxEvents:     cfg.CalendarMaxEvents,
		NewsPageSize:  cfg.NewsPageSize,
		SecureCookies: cfg.Environment == config.EnvironmentProduction,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	if botInst != nil {
		g.Go(func() error {
			botInst.Start(gctx)
			return nil
		})
	}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-c:
			log.InfoContext(ctx, "Shutdown signal is received",
				"signal", sig.String())
			cancel()
		case <-gctx.Done():
		}
	}()

	return g.Wait()
}

func initAuthenticator(
	ctx context.Context,
	cfg config.Config,
	db *database.Database,
	log *slog.Logger,
) *calendar.Authenticator {
	oauthConfig, err := calendar.NewOAuthConfig(
		cfg.GoogleCredentialsFile,
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.RedirectURL(),
	)
	if err != nil {
		log.WarnContext(ctx, "Google OAuth is not configured so calendar is disabled",
			"error", err,
			"credentialsFile", cfg.GoogleCredentialsFile)

		return nil
	}

	log.InfoContext(ctx, "Google OAuth is initialized",
		"redirectURL", oauthConfig.RedirectURL)

	return calendar.NewAuthenticator(oauthConfig, db, log)
}

func initNewsSource(ctx context.Context, cfg config.Config, log *slog.Logger) news.Source {
	var sources []news.Source

	if cfg.NewsAPIKey != "" {
		sources = append(sources, news.NewNewsAPISource(nil, cfg.NewsAPIURL, cfg.NewsAPIKey, cfg.NewsCountry))
	} else {
		log.WarnContext(ctx, "NEWS_API_KEY is missing so only feeds are used",
			"envVar", "NEWS_API_KEY",
			"feedsCount", len(cfg.NewsFeeds),
			"telegramChannelsCount", len(cfg.NewsTelegramChannels))
	}

	if len(cfg.NewsFeeds) > 0 {
		sources = append(sources, news.NewRSSSource(nil, cfg.NewsFeeds, log))
	}

	if len(cfg.NewsTelegramChannels) > 0 {
		sources = append(sources, news.NewTelegramSource(nil, "", cfg.NewsTelegramChannels, log))
	}

	if len(sources) == 0 {
		log.WarnContext(ctx, "No news sources are configured so news is disabled")

		return nil
	}

	return news.NewFallback(log, sources...)
}
