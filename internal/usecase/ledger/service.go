package ledger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// Service records owners' fund holdings and values them
type Service struct {
	HoldingRepo domain.HoldingRepository
	FundRepo    domain.FundRepository
	Logger      arbor.ILogger
}

// NewService creates a new ledger Service instance
func NewService(holdingRepo domain.HoldingRepository, fundRepo domain.FundRepository, logger arbor.ILogger) *Service {
	return &Service{
		HoldingRepo: holdingRepo,
		FundRepo:    fundRepo,
		Logger:      logger,
	}
}

// Add accumulates quantity units of fund into ownerID's holding, creating the
// holding on first use. Quantity is checked before the store is touched.
func (s *Service) Add(ctx context.Context, ownerID string, fund *domain.Fund, quantity int64) (*domain.Holding, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := domain.ValidateOwner(ownerID); err != nil {
		return nil, err
	}
	if fund == nil {
		return nil, domain.ErrFundNotFound
	}

	holding, err := s.HoldingRepo.AddQuantity(ctx, ownerID, fund.ID, quantity)
	if err != nil {
		return nil, err
	}

	s.Logger.Debug().
		Str("owner_id", ownerID).
		Str("scheme_code", fund.SchemeCode).
		Int64("added", quantity).
		Int64("quantity", holding.Quantity).
		Msg("Holding updated")

	return holding, nil
}

// ListFor returns every holding of ownerID paired with its fund
func (s *Service) ListFor(ctx context.Context, ownerID string) ([]domain.Position, error) {
	if err := domain.ValidateOwner(ownerID); err != nil {
		return nil, err
	}

	holdings, err := s.HoldingRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	positions := make([]domain.Position, 0, len(holdings))
	for _, holding := range holdings {
		fund, err := s.FundRepo.FindByID(ctx, holding.FundID)
		if err != nil {
			return nil, fmt.Errorf("holding %s: %w", holding.ID, err)
		}
		positions = append(positions, domain.Position{Holding: holding, Fund: fund})
	}

	return positions, nil
}
