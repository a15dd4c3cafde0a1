package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kiezfinder/kiezfinder/plugin/chatbot/cache"
)

const (
	defaultWeatherTimeout  = 5 * time.Second
	defaultWeatherCacheTTL = 5 * time.Minute
)

// WeatherConfig holds the weather provider configuration.
type WeatherConfig struct {
	APIKey  string
	BaseURL string // e.g. https://api.weatherapi.com/v1
	Timeout time.Duration
}

// WeatherClient fetches current conditions from a weatherapi-style provider.
// Answers are cached briefly so scripted dialogs with weather placeholders do
// not hammer the provider.
type WeatherClient struct {
	config     WeatherConfig
	httpClient *http.Client
	cache      *cache.LRUCache
}

// NewWeatherClient creates a weather oracle.
func NewWeatherClient(cfg WeatherConfig) *WeatherClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWeatherTimeout
	}
	return &WeatherClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache.New(64, defaultWeatherCacheTTL),
	}
}

// weatherPayload mirrors the provider's current-conditions response.
type weatherPayload struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		Humidity  int     `json:"humidity"`
		WindKph   float64 `json:"wind_kph"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// CurrentConditions returns a one-line human-readable weather summary.
func (c *WeatherClient) CurrentConditions(ctx context.Context, city string) (string, error) {
	if c.config.APIKey == "" || c.config.BaseURL == "" {
		return "", ErrNotConfigured
	}

	key := strings.ToLower(city)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/current.json?key=%s&q=%s",
		strings.TrimRight(c.config.BaseURL, "/"),
		url.QueryEscape(c.config.APIKey),
		url.QueryEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "build weather request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "weather request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("weather provider returned status %d", resp.StatusCode)
	}

	var payload weatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "decode weather response")
	}
	if payload.Location.Name == "" {
		return "", errors.New("weather response missing location")
	}

	summary := fmt.Sprintf("%.0f°C and %s in %s, humidity %d%%, wind %.0f km/h",
		payload.Current.TempC,
		strings.ToLower(payload.Current.Condition.Text),
		payload.Location.Name,
		payload.Current.Humidity,
		payload.Current.WindKph)

	c.cache.Set(key, summary, 0)
	return summary, nil
}

// Ensure WeatherClient implements Weather
var _ Weather = (*WeatherClient)(nil)
