package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dailybrief/internal/calendar"
	"dailybrief/internal/domain"
	"dailybrief/internal/news"
	"dailybrief/internal/summarizer"
	"dailybrief/internal/weather"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, account string, code string) error
	Session(ctx context.Context, account string) (*calendar.Session, error)
	Forget(ctx context.Context, account string) error
}

type EventProvider interface {
	UpcomingEvents(ctx context.Context, session *calendar.Session, now time.Time, limit int64) ([]domain.Event, error)
}

type WeatherProvider interface {
	Current(ctx context.Context, city string) (*domain.Weather, error)
}

type Digests interface {
	Latest(ctx context.Context, account string) (*domain.Digest, error)
	Build(ctx context.Context, account string, city string) (*domain.Digest, error)
}

// Deps are the collaborators behind the routes. Auth, Events, News and
// Weather may be nil when the matching integration is not configured.
type Deps struct {
	Auth       Authenticator
	Events     EventProvider
	News       news.Source
	Weather    WeatherProvider
	Summarizer summarizer.Summarizer
	Digests    Digests
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	Account       string
	Cities        []string
	DefaultCity   string
	MaxEvents     int64
	NewsPageSize  int
	SecureCookies bool
}

type Server struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

func NewServer(deps Deps, log *slog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.Port <= 0 {
		opts.Port = 8501
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		// Summarization retries can take a while.
		opts.WriteTimeout = 3 * time.Minute
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = 10
	}
	if opts.NewsPageSize <= 0 {
		opts.NewsPageSize = 10
	}
	opts.DefaultCity = weather.DefaultCity(opts.Cities, opts.DefaultCity)

	return &Server{
		deps: deps,
		opts: opts,
		log:  log,
	}
}

func (s *Server) Start(ctx context.Context) error {
	e, err := s.newEcho()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.log.Error("Server shutdown failed",
				"error", shutdownErr)
		}
	}()

	s.log.InfoContext(ctx, "Web server is started",
		"addr", addr)

	if err = e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}

	s.log.Info("Web server is stopped")

	return nil
}

func (s *Server) newEcho() (*echo.Echo, error) {
	index, err := loadIndexTemplate()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remoteIP", v.RemoteIP,
				"requestID", v.RequestID,
			}

			if v.Error != nil {
				s.log.ErrorContext(c.Request().Context(), "HTTP request failed",
					append(attrs, "error", v.Error)...)
				return nil
			}

			s.log.InfoContext(c.Request().Context(), "HTTP request", attrs...)
			return nil
		},
	}))

	e.GET("/", s.handleIndex(index))

	e.GET("/auth/google", s.handleAuthStart)
	e.GET("/auth/google/callback", s.handleAuthCallback)
	e.POST("/auth/google/logout", s.handleAuthLogout)

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/events", s.handleEvents)
	api.GET("/news", s.handleNews)
	api.GET("/cities", s.handleCities)
	api.GET("/weather", s.handleWeather)
	api.GET("/digest", s.handleLatestDigest)
	api.POST("/digest", s.handleBuildDigest)
	api.POST("/summarize", s.handleSummarize)

	return e, nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if status >= 500 {
			_ = internalError(c, "Internal server error")
			return
		}
		_ = fail(c, status, message, nil)
		return
	}

	_ = c.String(status, message)
}
