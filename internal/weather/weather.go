package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailybrief/internal/domain"
)

const (
	DefaultAPIURL = "https://api.openweathermap.org/data/2.5/weather"

	requestTimeout    = 15 * time.Second
	maxErrorBodyBytes = 1 << 10
)

var ErrCityNotFound = errors.New("city not found")

// Client reads current conditions from OpenWeatherMap in metric units.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAPIURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (c *Client) Current(ctx context.Context, city string) (*domain.Weather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, errors.New("city is empty")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	query := u.Query()
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload currentResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	w := &domain.Weather{
		City:         payload.Name,
		TemperatureC: payload.Main.Temp,
		FeelsLikeC:   payload.Main.FeelsLike,
		Humidity:     payload.Main.Humidity,
		WindSpeed:    payload.Wind.Speed,
	}
	if w.City == "" {
		w.City = city
	}
	if len(payload.Weather) > 0 {
		w.Description = payload.Weather[0].Description
	}

	return w, nil
}

// Format renders w as one line.
func Format(w *domain.Weather) string {
	if w == nil {
		return ""
	}

	description := w.Description
	if description == "" {
		description = "no description"
	}

	return fmt.Sprintf("%s: %s, %.1f°C (feels like %.1f°C), humidity %d%%, wind %.1f m/s",
		w.City, description, w.TemperatureC, w.FeelsLikeC, w.Humidity, w.WindSpeed)
}
