// Package weather fetches current weather by city name. Lookups never fail
// upward: a missing city, network error, or bad payload all degrade to a
// fixed pleasant-weather report so the scheduler keeps moving.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pulseworks/vita-backend/internal/config"
)

// Report is a classified weather snapshot for one city.
type Report struct {
	Condition   Condition
	Description string
	TempC       float64
	Fallback    bool
}

// coordinates of the cities personas can live in; geocoding-free on purpose.
type coords struct {
	Lat float64
	Lon float64
}

var cityCoords = map[string]coords{
	"Amsterdam":      {52.37, 4.90},
	"Bangkok":        {13.76, 100.50},
	"Barcelona":      {41.39, 2.17},
	"Berlin":         {52.52, 13.41},
	"Buenos Aires":   {-34.61, -58.38},
	"Chicago":        {41.88, -87.63},
	"Dubai":          {25.20, 55.27},
	"Istanbul":       {41.01, 28.98},
	"Lisbon":         {38.72, -9.14},
	"London":         {51.51, -0.13},
	"Los Angeles":    {34.05, -118.24},
	"Madrid":         {40.42, -3.70},
	"Mexico City":    {19.43, -99.13},
	"Miami":          {25.76, -80.19},
	"Milan":          {45.46, 9.19},
	"Moscow":         {55.76, 37.62},
	"Mumbai":         {19.08, 72.88},
	"New York":       {40.71, -74.01},
	"Paris":          {48.86, 2.35},
	"Rio de Janeiro": {-22.91, -43.17},
	"Rome":           {41.90, 12.50},
	"San Francisco":  {37.77, -122.42},
	"Seoul":          {37.57, 126.98},
	"Singapore":      {1.35, 103.82},
	"Sydney":         {-33.87, 151.21},
	"Tokyo":          {35.68, 139.69},
	"Toronto":        {43.65, -79.38},
}

// Provider fetches current weather from an Open-Meteo compatible API.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvider creates a weather provider from config.
func NewProvider(cfg config.WeatherConfig, logger *slog.Logger) *Provider {
	return &Provider{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", "weather"),
	}
}

// Fallback is the report used whenever a real lookup is impossible.
func Fallback() Report {
	return Report{
		Condition:   ConditionClear,
		Description: "clear sky",
		TempC:       22,
		Fallback:    true,
	}
}

type apiResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// Current returns the city's weather, or the pleasant fallback on any
// failure. It never returns an error.
func (p *Provider) Current(ctx context.Context, city string) Report {
	c, ok := cityCoords[city]
	if !ok {
		p.log.DebugContext(ctx, "unknown city, using fallback weather", slog.String("city", city))
		return Fallback()
	}

	reqURL := fmt.Sprintf("%s?latitude=%.2f&longitude=%.2f&current=temperature_2m,weather_code",
		p.baseURL, c.Lat, c.Lon)

	var body []byte
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("weather: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("weather: unexpected status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		p.log.WarnContext(ctx, "weather lookup failed, using fallback",
			slog.String("city", city), slog.String("error", err.Error()))
		return Fallback()
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		p.log.WarnContext(ctx, "weather payload malformed, using fallback",
			slog.String("city", city), slog.String("error", err.Error()))
		return Fallback()
	}

	condition, description := ClassifyCode(payload.Current.WeatherCode)

	return Report{
		Condition:   condition,
		Description: description,
		TempC:       payload.Current.Temperature,
	}
}
