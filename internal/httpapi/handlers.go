package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"dailybrief/internal/calendar"
	"dailybrief/internal/database"
	"dailybrief/internal/news"
	"dailybrief/internal/summarizer"
	"dailybrief/internal/transform"
	"dailybrief/internal/weather"

	"github.com/labstack/echo/v4"
)

type summarizeRequest struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "dailybrief",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleEvents(c echo.Context) error {
	ctx := c.Request().Context()

	if s.deps.Auth == nil || s.deps.Events == nil {
		return fail(c, http.StatusServiceUnavailable, "Calendar is not configured", nil)
	}

	session, err := s.deps.Auth.Session(ctx, s.opts.Account)
	if errors.Is(err, calendar.ErrNotAuthorized) {
		return fail(c, http.StatusUnauthorized, "Calendar is not authorized", map[string]any{
			"auth_url": "/auth/google",
		})
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to open calendar session",
			"error", err)
		return internalError(c, "Failed to open calendar session")
	}

	events, err := s.deps.Events.UpcomingEvents(ctx, session, time.Now(), s.opts.MaxEvents)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get upcoming events",
			"error", err)
		return internalError(c, "Failed to load events")
	}

	return success(c, map[string]any{
		"items": events,
		"text":  calendar.FormatEvents(events),
	})
}

func (s *Server) handleNews(c echo.Context) error {
	ctx := c.Request().Context()

	if s.deps.News == nil {
		return fail(c, http.StatusServiceUnavailable, "News is not configured", nil)
	}

	articles, err := s.deps.News.TopHeadlines(ctx, s.opts.NewsPageSize)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get top headlines",
			"error", err)
		return internalError(c, "Failed to load news")
	}

	return success(c, map[string]any{
		"items": articles,
		"text":  news.FormatHeadlines(articles),
	})
}

func (s *Server) handleCities(c echo.Context) error {
	return success(c, map[string]any{
		"items":   s.opts.Cities,
		"default": s.opts.DefaultCity,
	})
}

func (s *Server) handleWeather(c echo.Context) error {
	ctx := c.Request().Context()

	if s.deps.Weather == nil {
		return fail(c, http.StatusServiceUnavailable, "Weather is not configured", nil)
	}

	city, ok := s.cityParam(c)
	if !ok {
		return failValidation(c, map[string]string{"city": "unknown city"})
	}

	w, err := s.deps.Weather.Current(ctx, city)
	if errors.Is(err, weather.ErrCityNotFound) {
		return failNotFound(c, "City not found")
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get weather",
			"error", err,
			"city", city)
		return internalError(c, "Failed to load weather")
	}

	return success(c, map[string]any{
		"weather": w,
		"text":    weather.Format(w),
	})
}

func (s *Server) handleLatestDigest(c echo.Context) error {
	ctx := c.Request().Context()

	d, err := s.deps.Digests.Latest(ctx, s.opts.Account)
	if errors.Is(err, database.ErrNotFound) {
		return failNotFound(c, "No digest yet")
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get latest digest",
			"error", err)
		return internalError(c, "Failed to load digest")
	}

	return success(c, d)
}

func (s *Server) handleBuildDigest(c echo.Context) error {
	ctx := c.Request().Context()

	city, ok := s.cityParam(c)
	if !ok {
		return failValidation(c, map[string]string{"city": "unknown city"})
	}

	d, err := s.deps.Digests.Build(ctx, s.opts.Account, city)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to build digest",
			"error", err,
			"city", city)
		return internalError(c, "Failed to build digest")
	}

	return successWithStatus(c, http.StatusCreated, d)
}

func (s *Server) handleSummarize(c echo.Context) error {
	ctx := c.Request().Context()

	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	kind := summarizer.Kind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = summarizer.KindNews
	}

	fieldErrors := map[string]string{}
	if strings.TrimSpace(req.Text) == "" {
		fieldErrors["text"] = "required"
	}
	if kind != summarizer.KindNews && kind != summarizer.KindCalendar {
		fieldErrors["kind"] = "must be calendar or news"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	summary, err := s.deps.Summarizer.Summarize(ctx, summarizer.Input{
		Kind: kind,
		Text: req.Text,
	})

	var failure *transform.Failure
	switch {
	case errors.As(err, &failure):
		return fail(c, statusForReason(failure.Reason), failure.Detail, map[string]any{
			"reason": failure.Reason,
		})
	case err != nil:
		s.log.ErrorContext(ctx, "Failed to summarize text",
			"error", err,
			"textLen", len(req.Text))
		return fail(c, http.StatusBadGateway, "Summarization failed", nil)
	}

	return success(c, map[string]any{
		"summary": summary,
	})
}

// cityParam returns the requested city, or the default one when the query is
// empty. Unknown cities are rejected.
func (s *Server) cityParam(c echo.Context) (string, bool) {
	city := strings.TrimSpace(c.QueryParam("city"))
	if city == "" {
		city = s.opts.DefaultCity
	}

	if len(s.opts.Cities) > 0 && !weather.HasCity(s.opts.Cities, city) {
		return "", false
	}

	return city, true
}

func statusForReason(reason transform.Reason) int {
	switch reason {
	case transform.ReasonInvalidInput:
		return http.StatusBadRequest
	case transform.ReasonClientError:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}
