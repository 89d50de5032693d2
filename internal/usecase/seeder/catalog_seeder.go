package seeder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// FundEnsurer imports a fund into the catalog on first use
type FundEnsurer interface {
	EnsureFund(ctx context.Context, schemeCode string) (*domain.Fund, error)
}

// CatalogSeeder makes sure a configured set of schemes is in the catalog
type CatalogSeeder struct {
	sync   FundEnsurer
	logger arbor.ILogger
}

// NewCatalogSeeder creates a new CatalogSeeder instance
func NewCatalogSeeder(sync FundEnsurer, logger arbor.ILogger) *CatalogSeeder {
	return &CatalogSeeder{
		sync:   sync,
		logger: logger,
	}
}

// Seed ensures every code in codes exists in the catalog. Funds already
// present are left untouched. Each code is attempted; the returned error
// joins every per-code failure.
func (s *CatalogSeeder) Seed(ctx context.Context, codes []string) (int, error) {
	seen := make(map[string]bool, len(codes))
	var (
		seeded int
		errs   []error
	)

	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		if _, err := s.sync.EnsureFund(ctx, code); err != nil {
			errs = append(errs, fmt.Errorf("seed %s: %w", code, err))
			continue
		}
		seeded++
	}

	s.logger.Info().Int("seeded", seeded).Int("failed", len(errs)).Msg("Catalog seeding finished")

	return seeded, errors.Join(errs...)
}
