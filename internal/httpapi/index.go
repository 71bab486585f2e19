package httpapi

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"dailybrief/internal/calendar"
	"dailybrief/internal/database"
	"dailybrief/internal/domain"

	"github.com/labstack/echo/v4"
)

//go:embed assets/index.html
var embeddedAssets embed.FS

type indexData struct {
	CalendarConfigured bool
	Authorized         bool
	Digest             *domain.Digest
	Cities             []string
	DefaultCity        string
}

func loadIndexTemplate() (*template.Template, error) {
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"date": func(d *domain.Digest) string {
			return d.CreatedAt.Format("Monday, 2 January 2006 15:04 MST")
		},
	}).ParseFS(embeddedAssets, "assets/index.html")
	if err != nil {
		return nil, fmt.Errorf("load index.html: %w", err)
	}

	return tmpl, nil
}

func (s *Server) handleIndex(tmpl *template.Template) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		data := indexData{
			CalendarConfigured: s.deps.Auth != nil,
			Cities:             s.opts.Cities,
			DefaultCity:        s.opts.DefaultCity,
		}

		if s.deps.Auth != nil {
			_, err := s.deps.Auth.Session(ctx, s.opts.Account)
			switch {
			case err == nil:
				data.Authorized = true
			case !errors.Is(err, calendar.ErrNotAuthorized):
				s.log.ErrorContext(ctx, "Failed to open calendar session",
					"error", err)
			}
		}

		d, err := s.deps.Digests.Latest(ctx, s.opts.Account)
		switch {
		case err == nil:
			data.Digest = d
		case !errors.Is(err, database.ErrNotFound):
			s.log.ErrorContext(ctx, "Failed to get latest digest",
				"error", err)
		}

		var buf bytes.Buffer
		if err = tmpl.Execute(&buf, data); err != nil {
			return fmt.Errorf("render index: %w", err)
		}

		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}
}
