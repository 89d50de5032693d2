package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundRepository defines the interface for the fund catalog
type FundRepository interface {
	// FindByCode retrieves a fund by its scheme code
	// Returns ErrFundNotFound when the catalog has no such fund
	FindByCode(ctx context.Context, schemeCode string) (*Fund, error)

	// FindByID retrieves a fund by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Fund, error)

	// Upsert creates the fund for schemeCode or updates its name and nav.
	// Concurrent callers for the same unseen code end up with a single fund.
	Upsert(ctx context.Context, schemeCode, name string, nav decimal.Decimal) (*Fund, error)

	// UpdateNAV sets the nav of an existing fund
	UpdateNAV(ctx context.Context, id uuid.UUID, nav decimal.Decimal) (*Fund, error)

	// List returns every fund in the catalog, in no particular order
	List(ctx context.Context) ([]*Fund, error)
}

// HoldingRepository defines the interface for the holdings ledger
type HoldingRepository interface {
	// AddQuantity finds or creates the (ownerID, fundID) holding and increments it
	// by quantity as one atomic step. Concurrent calls are never lost.
	AddQuantity(ctx context.Context, ownerID string, fundID uuid.UUID, quantity int64) (*Holding, error)

	// Get retrieves the holding for an (ownerID, fundID) pair
	Get(ctx context.Context, ownerID string, fundID uuid.UUID) (*Holding, error)

	// ListByOwner returns every holding of ownerID, in no particular order
	ListByOwner(ctx context.Context, ownerID string) ([]*Holding, error)
}

// FundProvider defines the interface for the external fund data source
type FundProvider interface {
	// FetchFamilySchemes returns all open-ended schemes of the configured fund family
	FetchFamilySchemes(ctx context.Context) ([]FundRecord, error)

	// FetchScheme returns the current record of a single scheme
	FetchScheme(ctx context.Context, schemeCode string) (*FundRecord, error)
}
