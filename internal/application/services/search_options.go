package services

import (
	"github.com/medlocator/hospital-map/backend/pkg/config"
	"github.com/medlocator/hospital-map/backend/pkg/retry"
)

// SearchOptionsFromConfig maps the environment search settings onto SearchOptions
func SearchOptionsFromConfig(cfg config.SearchConfig) SearchOptions {
	pager := DefaultPagerConfig()
	if cfg.MaxPages > 0 {
		pager.MaxPages = cfg.MaxPages
	}
	if cfg.PageTokenDelay > 0 {
		pager.PageTokenDelay = cfg.PageTokenDelay
	}
	if cfg.RequestTimeout > 0 {
		pager.RequestTimeout = cfg.RequestTimeout
	}
	if cfg.MaxAttempts > 0 {
		pager.Retry = retry.Config{
			MaxAttempts:   cfg.MaxAttempts,
			InitialDelay:  cfg.InitialBackoff,
			MaxDelay:      cfg.MaxBackoff,
			BackoffFactor: 2.0,
		}
	}

	return SearchOptions{
		LatitudeFilter:    cfg.LatitudeFilter,
		MaxLatitude:       cfg.MaxLatitude,
		DedupRadiusMeters: cfg.DedupRadiusMeters,
		MaxRadiusMeters:   cfg.MaxRadiusMeters,
		Concurrency:       cfg.Concurrency,
		CacheTTLSeconds:   cfg.CacheTTLSeconds,
		Pager:             pager,
	}
}
