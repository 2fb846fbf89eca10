package places

import (
	"fmt"
	"math"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
	"github.com/medlocator/hospital-map/backend/pkg/config"
)

// NewPlacesProvider creates the provider selected by SEARCH_PROVIDER. Both providers
// share one rate limiter sized from SEARCH_RATE_LIMIT_RPS.
func NewPlacesProvider(cfg config.SearchConfig, metrics *observability.Metrics) (providers.PlacesProvider, error) {
	limiter := newLimiter(cfg.RateLimitRPS)
	httpClient := &http.Client{}

	switch providers.ProviderKind(cfg.Provider) {
	case providers.ProviderOverpass:
		return NewOverpassProvider(OverpassOptions{
			Endpoints:  cfg.OverpassEndpoints,
			HTTPClient: httpClient,
			Limiter:    limiter,
			Metrics:    metrics,
		})
	case providers.ProviderGoogle:
		return NewGoogleProvider(GoogleOptions{
			APIKey:     cfg.GoogleAPIKey,
			BaseURL:    cfg.GoogleBaseURL,
			Region:     cfg.Region,
			HTTPClient: httpClient,
			Limiter:    limiter,
			Metrics:    metrics,
		})
	default:
		return nil, fmt.Errorf("unknown places provider %q", cfg.Provider)
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
}
