package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding is the accumulated quantity of one fund held by one owner.
// There is exactly one Holding per (OwnerID, FundID) pair.
type Holding struct {
	ID        uuid.UUID
	OwnerID   string
	FundID    uuid.UUID
	Quantity  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Position pairs a holding with the fund it references
type Position struct {
	Holding *Holding
	Fund    *Fund
}

// CurrentValue returns quantity x nav for the position
func (p Position) CurrentValue() decimal.Decimal {
	return CurrentValue(p.Holding.Quantity, p.Fund.NAV)
}

// ValidateOwner checks an owner identifier supplied by the identity collaborator
func ValidateOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrInvalidOwner
	}
	return nil
}

// ValidateQuantity checks a quantity submitted to the ledger
func ValidateQuantity(quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// AddQuantity returns current+delta, or ErrInvalidQuantity if the sum would
// not fit in an int64
func AddQuantity(current, delta int64) (int64, error) {
	if delta > 0 && current > math.MaxInt64-delta {
		return current, fmt.Errorf("%w: holding of %d cannot grow by %d", ErrInvalidQuantity, current, delta)
	}
	return current + delta, nil
}
