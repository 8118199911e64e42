package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openweathermap.org"

// Report is the compact current-conditions answer shown in chat.
type Report struct {
	City        string
	Description string
	Temp        float64
	FeelsLike   float64
}

func (r Report) String() string {
	return fmt.Sprintf("%s: %s, %.0f°C (feels like %.0f°C)", r.City, r.Description, r.Temp, r.FeelsLike)
}

// Client queries the OpenWeather current weather endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL points the client at a different endpoint, used in tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
	} `json:"main"`
	Message string `json:"message"`
}

// Current fetches current conditions for a city, metric units.
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	if !c.Configured() {
		return nil, errors.New("weather: api key not configured")
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, errors.New("weather: city required")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	q.Set("lang", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: request: %w", err)
	}
	defer resp.Body.Close()

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if body.Message != "" {
			return nil, fmt.Errorf("weather: %s (status %d)", body.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("weather: unexpected status %d", resp.StatusCode)
	}

	report := &Report{
		City:      body.Name,
		Temp:      body.Main.Temp,
		FeelsLike: body.Main.FeelsLike,
	}
	if report.City == "" {
		report.City = city
	}
	if len(body.Weather) > 0 {
		report.Description = body.Weather[0].Description
	}
	return report, nil
}
