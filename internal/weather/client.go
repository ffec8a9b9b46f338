package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrProvider           = errors.New("weather provider error")
)

const (
	currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,wind_direction_10m,wind_gusts_10m"
	hourlyFields  = "temperature_2m,precipitation_probability,wind_speed_10m,wave_height"
	dailyFields   = "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max,sunrise,sunset"
)

// Provider obtiene el pronóstico para una coordenada.
type Provider interface {
	Fetch(ctx context.Context, lat, lon float64) (json.RawMessage, error)
}

// OpenMeteoClient consulta la API pública de Open-Meteo y devuelve el documento sin transformar.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
}

func NewOpenMeteoClient(baseURL string) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1"
	}
	return &OpenMeteoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ValidCoordinates reporta si lat/lon están dentro de los rangos geográficos.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (c *OpenMeteoClient) Fetch(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	if !ValidCoordinates(lat, lon) {
		return nil, ErrInvalidCoordinates
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current", currentFields)
	q.Set("hourly", hourlyFields)
	q.Set("daily", dailyFields)
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed payload (status=%d)", ErrProvider, resp.StatusCode)
	}

	doc := gjson.ParseBytes(body)
	if doc.Get("error").Bool() || resp.StatusCode >= 400 {
		reason := doc.Get("reason").String()
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrProvider, reason)
	}
	if !doc.Get("current").Exists() {
		return nil, fmt.Errorf("%w: missing current conditions", ErrProvider)
	}
	return json.RawMessage(body), nil
}
