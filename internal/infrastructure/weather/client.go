// Package weather получает текущие морские условия у внешнего провайдера
// и рассчитывает для них safety score.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// conditionsPath эндпоинт провайдера: GET /v1/conditions?lat=..&lon=..
const conditionsPath = "/v1/conditions"

// gridCellsPerDegree шаг сетки ключа кэша 0.1° (~11 км по широте)
const gridCellsPerDegree = 10

type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	CacheSize      int
	CacheTTL       time.Duration
	// RequestsPerSecond ограничивает исходящие запросы; 0 = без ограничения
	RequestsPerSecond float64
}

// conditionsResponse ответ провайдера
type conditionsResponse struct {
	TemperatureC     float64  `json:"temperatureC"`
	WindSpeedKnots   float64  `json:"windSpeedKnots"`
	WindDirectionDeg float64  `json:"windDirectionDeg"`
	VisibilityKm     float64  `json:"visibilityKm"`
	WaveHeightM      *float64 `json:"waveHeightM"`
	ObservedAt       string   `json:"observedAt"`
}

// Client HTTP клиент погодного провайдера с LRU кэшем по ячейке сетки
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	scorer  *service.SafetyScorer
	cache   *expirable.LRU[string, entity.WeatherSnapshot]
	limiter *rate.Limiter
}

var _ port.WeatherProvider = (*Client)(nil)

func NewClient(cfg Config, scorer *service.SafetyScorer) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("weather base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid weather base url: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1)
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		scorer:  scorer,
		cache:   expirable.NewLRU[string, entity.WeatherSnapshot](cfg.CacheSize, nil, cfg.CacheTTL),
		limiter: limiter,
	}, nil
}

// CurrentWeather возвращает погоду в точке; ответы кэшируются по ячейке сетки
func (c *Client) CurrentWeather(ctx context.Context, position valueobject.Position) (*entity.WeatherSnapshot, error) {
	key := gridKey(position)
	if snapshot, ok := c.cache.Get(key); ok {
		snapshot.Position = position
		return &snapshot, nil
	}

	conditions, err := c.fetch(ctx, position)
	if err != nil {
		return nil, err
	}

	snapshot := c.scorer.ScoreWeather(position, conditions)
	c.cache.Add(key, snapshot)
	return &snapshot, nil
}

func (c *Client) fetch(ctx context.Context, position valueobject.Position) (service.WeatherConditions, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return service.WeatherConditions{}, fmt.Errorf("weather rate limit: %w", err)
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(position.Latitude(), 'f', 4, 64))
	query.Set("lon", strconv.FormatFloat(position.Longitude(), 'f', 4, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+conditionsPath+"?"+query.Encode(), nil)
	if err != nil {
		return service.WeatherConditions{}, fmt.Errorf("failed to build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return service.WeatherConditions{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return service.WeatherConditions{}, fmt.Errorf("weather provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body conditionsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return service.WeatherConditions{}, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if body.VisibilityKm < 0 || body.WindSpeedKnots < 0 {
		return service.WeatherConditions{}, fmt.Errorf("weather provider returned negative values")
	}

	conditions := service.WeatherConditions{
		Temperature:      body.TemperatureC,
		WindSpeedKnots:   body.WindSpeedKnots,
		WindDirectionDeg: body.WindDirectionDeg,
		VisibilityKm:     body.VisibilityKm,
		WaveHeightMeters: body.WaveHeightM,
	}
	if body.ObservedAt != "" {
		observedAt, err := time.Parse(time.RFC3339, body.ObservedAt)
		if err != nil {
			return service.WeatherConditions{}, fmt.Errorf("invalid observedAt: %w", err)
		}
		conditions.ObservedAt = observedAt.UTC()
	}
	return conditions, nil
}

func gridKey(p valueobject.Position) string {
	cell := func(deg float64) int64 {
		// 1e-9 гасит ошибку представления (43.7*10 = 436.999...)
		return int64(math.Floor(deg*gridCellsPerDegree + 1e-9))
	}
	return fmt.Sprintf("%d:%d", cell(p.Latitude()), cell(p.Longitude()))
}
