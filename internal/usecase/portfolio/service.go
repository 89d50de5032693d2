package portfolio

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"github.com/simaogato/fundfolio-backend/internal/domain"
	"github.com/simaogato/fundfolio-backend/internal/usecase/fundsync"
	"github.com/simaogato/fundfolio-backend/internal/usecase/ledger"
)

// AddHoldingInput is an owner's request to record a fund purchase
type AddHoldingInput struct {
	OwnerID    string
	SchemeCode string
	Quantity   int64
}

// Entry is one valued line of an owner's portfolio
type Entry struct {
	HoldingID    uuid.UUID
	FundName     string
	SchemeCode   string
	NAV          decimal.Decimal
	Quantity     int64
	CurrentValue decimal.Decimal
}

func newEntry(p domain.Position) Entry {
	return Entry{
		HoldingID:    p.Holding.ID,
		FundName:     p.Fund.Name,
		SchemeCode:   p.Fund.SchemeCode,
		NAV:          p.Fund.NAV,
		Quantity:     p.Holding.Quantity,
		CurrentValue: p.CurrentValue(),
	}
}

// Service composes fund sync and the ledger into the owner-facing operations
type Service struct {
	Sync   *fundsync.Service
	Ledger *ledger.Service
	Logger arbor.ILogger
}

// NewService creates a new portfolio Service instance
func NewService(sync *fundsync.Service, ledger *ledger.Service, logger arbor.ILogger) *Service {
	return &Service{Sync: sync, Ledger: ledger, Logger: logger}
}

// AddHolding validates the request, imports the fund if the catalog lacks it
// and adds the quantity to the owner's holding.
func (s *Service) AddHolding(ctx context.Context, in AddHoldingInput) (*Entry, error) {
	if err := domain.ValidateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if err := domain.ValidateOwner(in.OwnerID); err != nil {
		return nil, err
	}

	fund, err := s.Sync.EnsureFund(ctx, in.SchemeCode)
	if err != nil {
		s.Logger.Warn().Err(err).Str("scheme_code", in.SchemeCode).Msg("Could not resolve fund for holding")
		return nil, err
	}

	holding, err := s.Ledger.Add(ctx, in.OwnerID, fund, in.Quantity)
	if err != nil {
		return nil, err
	}

	entry := newEntry(domain.Position{Holding: holding, Fund: fund})
	return &entry, nil
}

// ListPortfolio returns the owner's valued holdings ordered by fund name
func (s *Service) ListPortfolio(ctx context.Context, ownerID string) ([]Entry, error) {
	positions, err := s.Ledger.ListFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(positions))
	for _, p := range positions {
		entries = append(entries, newEntry(p))
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FundName != entries[j].FundName {
			return entries[i].FundName < entries[j].FundName
		}
		return entries[i].SchemeCode < entries[j].SchemeCode
	})

	return entries, nil
}

// Total returns the sum of the entries' current values
func Total(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.CurrentValue)
	}
	return total
}
