// Package analytics produces the dashboard summary over guest requests.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/luxserv365/guest-concierge/internal/model"
)

// recentWindow bounds the "recent requests" counter.
const recentWindow = 7 * 24 * time.Hour

type analyticsRepository interface {
	Summarize(ctx context.Context, recentSince time.Time) (model.AnalyticsSnapshot, error)
}

type Service struct {
	repo analyticsRepository
}

func NewService(repo analyticsRepository) *Service {
	return &Service{repo: repo}
}

// Summarize returns the current aggregate view. All counters come from a
// single consistent read, so they always agree with each other.
func (s *Service) Summarize(ctx context.Context) (model.AnalyticsSnapshot, error) {
	snapshot, err := s.repo.Summarize(ctx, time.Now().UTC().Add(-recentWindow))
	if err != nil {
		return model.AnalyticsSnapshot{}, fmt.Errorf("summarize requests: %w", err)
	}

	return snapshot, nil
}
