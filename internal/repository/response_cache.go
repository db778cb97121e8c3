package repository

import (
	"context"
	"errors"
	"time"

	"GridAdvisor/internal/domain/models"
	domrepo "GridAdvisor/internal/domain/repository"
	"GridAdvisor/pkg/cache"
)

// ResponseCache stores analysis responses as JSON in a cache.Service.
type ResponseCache struct {
	c      cache.Service
	prefix string
}

func NewResponseCache(c cache.Service) *ResponseCache {
	return &ResponseCache{c: c, prefix: "analysis"}
}

func (r *ResponseCache) Get(ctx context.Context, key string) (*models.AnalysisResponse, bool, error) {
	var resp models.AnalysisResponse
	if err := cache.GetJSON(ctx, r.c, cache.GenerateKey(r.prefix, key), &resp); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &resp, true, nil
}

func (r *ResponseCache) Set(ctx context.Context, key string, resp *models.AnalysisResponse, ttl time.Duration) error {
	return cache.SetJSON(ctx, r.c, cache.GenerateKey(r.prefix, key), resp, ttl)
}

var _ domrepo.ResponseCache = (*ResponseCache)(nil)
