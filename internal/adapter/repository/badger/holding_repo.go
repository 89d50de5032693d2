package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// holdingRecord is the stored form of a holding, keyed by holdingKey
type holdingRecord struct {
	ID        string
	OwnerID   string
	FundID    string
	Quantity  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func holdingKey(ownerID string, fundID uuid.UUID) string {
	return ownerID + "|" + fundID.String()
}

func (r *holdingRecord) toDomain() (*domain.Holding, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse holding id: %w", err)
	}
	fundID, err := uuid.Parse(r.FundID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fund id: %w", err)
	}
	return &domain.Holding{
		ID:        id,
		OwnerID:   r.OwnerID,
		FundID:    fundID,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

// AddQuantity reads, creates or increments, and writes the holding in one
// optimistic transaction, retried on conflict so no addition is lost.
func (r *holdingRepository) AddQuantity(ctx context.Context, ownerID string, fundID uuid.UUID, quantity int64) (*domain.Holding, error) {
	key := holdingKey(ownerID, fundID)

	var result holdingRecord
	err := r.db.update(func(txn *badgerdb.Txn) error {
		var fund fundRecord
		if err := r.db.store.TxGet(txn, fundID.String(), &fund); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("fund %s: %w", fundID, domain.ErrFundNotFound)
			}
			return err
		}

		now := time.Now()
		var rec holdingRecord
		err := r.db.store.TxGet(txn, key, &rec)
		switch {
		case errors.Is(err, badgerhold.ErrNotFound):
			rec = holdingRecord{
				ID:        uuid.New().String(),
				OwnerID:   ownerID,
				FundID:    fundID.String(),
				CreatedAt: now,
			}
		case err != nil:
			return err
		}

		total, err := domain.AddQuantity(rec.Quantity, quantity)
		if err != nil {
			return err
		}
		rec.Quantity = total
		rec.UpdatedAt = now
		if err := r.db.store.TxUpsert(txn, key, &rec); err != nil {
			return err
		}
		result = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrFundNotFound) || errors.Is(err, domain.ErrInvalidQuantity) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add holding quantity: %w", err)
	}

	return result.toDomain()
}

// Get retrieves the holding for an (ownerID, fundID) pair
func (r *holdingRepository) Get(ctx context.Context, ownerID string, fundID uuid.UUID) (*domain.Holding, error) {
	var rec holdingRecord
	if err := r.db.store.Get(holdingKey(ownerID, fundID), &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrHoldingNotFound
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return rec.toDomain()
}

// ListByOwner returns every holding of ownerID
func (r *holdingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Holding, error) {
	var recs []holdingRecord
	if err := r.db.store.Find(&recs, badgerhold.Where("OwnerID").Eq(ownerID)); err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	holdings := make([]*domain.Holding, 0, len(recs))
	for i := range recs {
		holding, err := recs[i].toDomain()
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, holding)
	}
	return holdings, nil
}
