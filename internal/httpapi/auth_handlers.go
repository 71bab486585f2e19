package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"dailybrief/internal/calendar"

	"github.com/labstack/echo/v4"
)

const (
	stateCookieName = "dailybrief_oauth_state"
	stateCookiePath = "/auth/google"
	stateCookieTTL  = 10 * time.Minute
)

func (s *Server) handleAuthStart(c echo.Context) error {
	if s.deps.Auth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Calendar is not configured")
	}

	state := calendar.NewState()
	s.setStateCookie(c, state)

	return c.Redirect(http.StatusFound, s.deps.Auth.AuthCodeURL(state))
}

func (s *Server) handleAuthCallback(c echo.Context) error {
	ctx := c.Request().Context()

	if s.deps.Auth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Calendar is not configured")
	}

	if providerErr := strings.TrimSpace(c.QueryParam("error")); providerErr != "" {
		s.log.WarnContext(ctx, "Authorization is denied",
			"error", providerErr)
		return echo.NewHTTPError(http.StatusBadRequest, "Authorization was denied: "+providerErr)
	}

	cookie, err := c.Cookie(stateCookieName)
	state := c.QueryParam("state")
	if err != nil || cookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid OAuth state")
	}
	s.clearStateCookie(c)

	if err = s.deps.Auth.Exchange(ctx, s.opts.Account, c.QueryParam("code")); err != nil {
		s.log.ErrorContext(ctx, "Failed to exchange authorization code",
			"error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to complete authorization")
	}

	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleAuthLogout(c echo.Context) error {
	if s.deps.Auth == nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	if err := s.deps.Auth.Forget(c.Request().Context(), s.opts.Account); err != nil {
		return err
	}

	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) setStateCookie(c echo.Context, state string) {
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(stateCookieTTL.Seconds()),
	})
}

func (s *Server) clearStateCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     stateCookiePath,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
