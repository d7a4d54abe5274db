// Package nutrition provides the HTTP client for the external food database
package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client implements outbound.NutritionLookup over HTTP
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ outbound.NutritionLookup = (*Client)(nil)

// NewClient creates a client limited to cfg.RatePerSecond requests
func NewClient(cfg config.NutritionConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("nutrition-client"),
	}
}

type lookupResponse struct {
	Name          string   `json:"name"`
	Calories      *float64 `json:"calories_per_100g"`
	Protein       *float64 `json:"protein_per_100g"`
	Fat           *float64 `json:"fat_per_100g"`
	Carbohydrates *float64 `json:"carbohydrates_per_100g"`
}

// Lookup fetches the per-100g profile for name
func (c *Client) Lookup(ctx context.Context, name string) (mealplan.NutritionPer100g, error) {
	var zero mealplan.NutritionPer100g

	if err := c.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("nutrition rate limiter: %w", err)
	}

	endpoint := c.baseURL + "/v1/nutrition?" + url.Values{"name": {name}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return zero, fmt.Errorf("nutrition request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return zero, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return zero, fmt.Errorf("%q: %w", name, outbound.ErrFoodNotFound)
	case resp.StatusCode != http.StatusOK:
		return zero, fmt.Errorf("nutrition service returned %d", resp.StatusCode)
	}

	var payload lookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return zero, fmt.Errorf("failed to decode nutrition response: %w", err)
	}

	per100g, err := payload.toDomain()
	if err != nil {
		return zero, fmt.Errorf("%q: %w", name, err)
	}

	c.logger.Debug("Nutrition lookup",
		zap.String("ingredient", name),
		zap.Duration("duration", time.Since(start)))
	return per100g, nil
}

// toDomain rejects partial or non-finite profiles; summing them would
// silently under-report a recipe
func (r lookupResponse) toDomain() (mealplan.NutritionPer100g, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"calories_per_100g", r.Calories},
		{"protein_per_100g", r.Protein},
		{"fat_per_100g", r.Fat},
		{"carbohydrates_per_100g", r.Carbohydrates},
	}
	for _, f := range fields {
		if f.value == nil {
			return mealplan.NutritionPer100g{}, fmt.Errorf("nutrition response missing %s", f.name)
		}
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) || *f.value < 0 {
			return mealplan.NutritionPer100g{}, fmt.Errorf("nutrition response has invalid %s", f.name)
		}
	}
	return mealplan.NutritionPer100g{
		Calories:      *r.Calories,
		Protein:       *r.Protein,
		Fat:           *r.Fat,
		Carbohydrates: *r.Carbohydrates,
	}, nil
}
