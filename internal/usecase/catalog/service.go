package catalog

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// Service exposes the provider's fund family listing
type Service struct {
	Provider domain.FundProvider
	Logger   arbor.ILogger
}

// NewService creates a new catalog Service instance
func NewService(provider domain.FundProvider, logger arbor.ILogger) *Service {
	return &Service{Provider: provider, Logger: logger}
}

// ListCatalog returns the provider's scheme records for the configured fund
// family, passed through as fetched (served from cache when fresh).
func (s *Service) ListCatalog(ctx context.Context) ([]domain.FundRecord, error) {
	records, err := s.Provider.FetchFamilySchemes(ctx)
	if err != nil {
		return nil, err
	}
	s.Logger.Debug().Int("schemes", len(records)).Msg("Catalog listed")
	return records, nil
}
