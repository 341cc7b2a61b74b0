// Package weather fetches current conditions from OpenWeatherMap.
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
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("weather API key not configured")

// Report is the current weather for one city.
type Report struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
	Icon        string  `json:"icon"`
}

// Client queries the current-weather endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a Client. Empty baseURL uses the public endpoint.
func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type owmResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Message string `json:"message"`
}

// Current returns the weather for city in metric units.
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("weather: city is required")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var data owmResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, data.Message)
	}
	if len(data.Weather) == 0 {
		return nil, fmt.Errorf("api response for %q has no conditions", city)
	}

	return &Report{
		City:        data.Name,
		Country:     data.Sys.Country,
		Temperature: data.Main.Temp,
		FeelsLike:   data.Main.FeelsLike,
		Humidity:    data.Main.Humidity,
		Pressure:    data.Main.Pressure,
		Description: data.Weather[0].Description,
		WindSpeed:   data.Wind.Speed,
		Icon:        data.Weather[0].Icon,
	}, nil
}

// Format renders a report the way the assistant speaks it.
func (r *Report) Format() string {
	desc := r.Description
	if desc != "" {
		desc = strings.ToUpper(desc[:1]) + desc[1:]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Weather in %s, %s:\n", r.City, r.Country)
	fmt.Fprintf(&sb, "🌡️  Temperature: %g°C (feels like %g°C)\n", r.Temperature, r.FeelsLike)
	fmt.Fprintf(&sb, "🌤️  Conditions: %s\n", desc)
	fmt.Fprintf(&sb, "💧 Humidity: %d%%\n", r.Humidity)
	fmt.Fprintf(&sb, "🌬️  Wind Speed: %g m/s\n", r.WindSpeed)
	fmt.Fprintf(&sb, "🔽 Pressure: %d hPa", r.Pressure)
	return sb.String()
}
