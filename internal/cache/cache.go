package cache

import (
	"context"
	"time"

	"uctarna/backend/internal/domain"
)

type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.ClosingReport, bool, error)
	Set(ctx context.Context, key string, value *domain.ClosingReport, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.ClosingReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.ClosingReport, _ time.Duration) error {
	return nil
}
