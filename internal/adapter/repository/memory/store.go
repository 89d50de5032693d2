// Package memory provides in-process implementations of the fund catalog and
// holdings ledger, used by tests and single-node development runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

type holdingKey struct {
	ownerID string
	fundID  uuid.UUID
}

// Store holds funds and holdings in maps guarded by one mutex
type Store struct {
	mu       sync.RWMutex
	funds    map[uuid.UUID]*domain.Fund
	byCode   map[string]uuid.UUID
	holdings map[holdingKey]*domain.Holding
	now      func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		funds:    make(map[uuid.UUID]*domain.Fund),
		byCode:   make(map[string]uuid.UUID),
		holdings: make(map[holdingKey]*domain.Holding),
		now:      time.Now,
	}
}

// Funds returns the store as a domain.FundRepository
func (s *Store) Funds() domain.FundRepository {
	return &fundRepository{s: s}
}

// Holdings returns the store as a domain.HoldingRepository
func (s *Store) Holdings() domain.HoldingRepository {
	return &holdingRepository{s: s}
}

func copyFund(f *domain.Fund) *domain.Fund {
	c := *f
	return &c
}

func copyHolding(h *domain.Holding) *domain.Holding {
	c := *h
	return &c
}

// fundRepository implements domain.FundRepository
type fundRepository struct {
	s *Store
}

// FindByCode retrieves a fund by its scheme code
func (r *fundRepository) FindByCode(ctx context.Context, schemeCode string) (*domain.Fund, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byCode[schemeCode]
	if !ok {
		return nil, fmt.Errorf("scheme %s: %w", schemeCode, domain.ErrFundNotFound)
	}
	return copyFund(r.s.funds[id]), nil
}

// FindByID retrieves a fund by its ID
func (r *fundRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Fund, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	fund, ok := r.s.funds[id]
	if !ok {
		return nil, fmt.Errorf("fund %s: %w", id, domain.ErrFundNotFound)
	}
	return copyFund(fund), nil
}

// Upsert creates or updates the fund for schemeCode
func (r *fundRepository) Upsert(ctx context.Context, schemeCode, name string, nav decimal.Decimal) (*domain.Fund, error) {
	candidate := &domain.Fund{SchemeCode: schemeCode, Name: name, NAV: domain.NormalizeNAV(nav)}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if id, ok := r.s.byCode[schemeCode]; ok {
		fund := r.s.funds[id]
		fund.Name = name
		fund.NAV = domain.NormalizeNAV(nav)
		fund.UpdatedAt = now
		return copyFund(fund), nil
	}

	fund := &domain.Fund{
		ID:         uuid.New(),
		SchemeCode: schemeCode,
		Name:       name,
		NAV:        domain.NormalizeNAV(nav),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.s.funds[fund.ID] = fund
	r.s.byCode[schemeCode] = fund.ID
	return copyFund(fund), nil
}

// UpdateNAV sets the nav of an existing fund
func (r *fundRepository) UpdateNAV(ctx context.Context, id uuid.UUID, nav decimal.Decimal) (*domain.Fund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	fund, ok := r.s.funds[id]
	if !ok {
		return nil, fmt.Errorf("fund %s: %w", id, domain.ErrFundNotFound)
	}
	fund.NAV = domain.NormalizeNAV(nav)
	fund.UpdatedAt = r.s.now()
	return copyFund(fund), nil
}

// List returns every fund in the catalog
func (r *fundRepository) List(ctx context.Context) ([]*domain.Fund, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	funds := make([]*domain.Fund, 0, len(r.s.funds))
	for _, fund := range r.s.funds {
		funds = append(funds, copyFund(fund))
	}
	return funds, nil
}

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	s *Store
}

// AddQuantity finds or creates the holding and increments it under the store lock
func (r *holdingRepository) AddQuantity(ctx context.Context, ownerID string, fundID uuid.UUID, quantity int64) (*domain.Holding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.funds[fundID]; !ok {
		return nil, fmt.Errorf("fund %s: %w", fundID, domain.ErrFundNotFound)
	}

	now := r.s.now()
	key := holdingKey{ownerID: ownerID, fundID: fundID}
	holding, ok := r.s.holdings[key]
	if !ok {
		holding = &domain.Holding{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			FundID:    fundID,
			CreatedAt: now,
		}
	}
	total, err := domain.AddQuantity(holding.Quantity, quantity)
	if err != nil {
		return nil, err
	}
	holding.Quantity = total
	holding.UpdatedAt = now
	r.s.holdings[key] = holding

	return copyHolding(holding), nil
}

// Get retrieves the holding for an (ownerID, fundID) pair
func (r *holdingRepository) Get(ctx context.Context, ownerID string, fundID uuid.UUID) (*domain.Holding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	holding, ok := r.s.holdings[holdingKey{ownerID: ownerID, fundID: fundID}]
	if !ok {
		return nil, domain.ErrHoldingNotFound
	}
	return copyHolding(holding), nil
}

// ListByOwner returns every holding of ownerID
func (r *holdingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Holding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var holdings []*domain.Holding
	for key, holding := range r.s.holdings {
		if key.ownerID == ownerID {
			holdings = append(holdings, copyHolding(holding))
		}
	}
	return holdings, nil
}
