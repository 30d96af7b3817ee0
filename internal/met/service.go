package met

import (
	"context"

	"github.com/wsilva/contrail/pkg/logger"
)

// Service resolves wind grids: cache first, then the reanalysis
// service, with a stale-cache fallback when the download fails
type Service struct {
	client *Client
	cache  *Cache
	logger *logger.Logger
}

// NewService creates a met service
func NewService(config Config, log *logger.Logger) *Service {
	return &Service{
		client: NewClient(config, log),
		cache:  NewCache(config, log),
		logger: log.Named("met"),
	}
}

// GetGrid returns a wind grid covering the request
func (s *Service) GetGrid(ctx context.Context, req GridRequest) (*Grid, error) {
	if grid := s.cache.Get(req); grid != nil {
		return grid, nil
	}

	grid, err := s.client.FetchGrid(ctx, req)
	if err != nil {
		if stale := s.cache.GetStale(req); stale != nil {
			s.logger.Warn("Reanalysis download failed, using stale cached grid",
				logger.Error(err),
				logger.Time("fetched_at", stale.FetchedAt))
			return stale, nil
		}
		return nil, err
	}

	s.cache.Put(req, grid)
	return grid, nil
}
