package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/timshannon/badgerhold/v4"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// fundRecord is the stored form of a fund, keyed by fund ID
type fundRecord struct {
	ID         string
	SchemeCode string
	Name       string
	NAV        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// fundCodeIndex maps a scheme code to its fund ID and enforces code uniqueness
type fundCodeIndex struct {
	SchemeCode string
	FundID     string
}

func (r *fundRecord) toDomain() (*domain.Fund, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fund id: %w", err)
	}
	nav, err := decimal.NewFromString(r.NAV)
	if err != nil {
		return nil, fmt.Errorf("failed to parse nav: %w", err)
	}
	return &domain.Fund{
		ID:         id,
		SchemeCode: r.SchemeCode,
		Name:       r.Name,
		NAV:        nav,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// fundRepository implements domain.FundRepository
type fundRepository struct {
	db *DB
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *DB) domain.FundRepository {
	return &fundRepository{db: db}
}

// FindByCode retrieves a fund by its scheme code
func (r *fundRepository) FindByCode(ctx context.Context, schemeCode string) (*domain.Fund, error) {
	var idx fundCodeIndex
	if err := r.db.store.Get(schemeCode, &idx); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("scheme %s: %w", schemeCode, domain.ErrFundNotFound)
		}
		return nil, fmt.Errorf("failed to get fund by scheme code: %w", err)
	}

	var rec fundRecord
	if err := r.db.store.Get(idx.FundID, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("scheme %s: %w", schemeCode, domain.ErrFundNotFound)
		}
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}

	return rec.toDomain()
}

// FindByID retrieves a fund by its ID
func (r *fundRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Fund, error) {
	var rec fundRecord
	if err := r.db.store.Get(id.String(), &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("fund %s: %w", id, domain.ErrFundNotFound)
		}
		return nil, fmt.Errorf("failed to get fund by ID: %w", err)
	}

	return rec.toDomain()
}

// Upsert creates or updates the fund for schemeCode. The code index is read
// inside the transaction, so racing creators conflict and the loser retries
// into the update path.
func (r *fundRepository) Upsert(ctx context.Context, schemeCode, name string, nav decimal.Decimal) (*domain.Fund, error) {
	candidate := &domain.Fund{SchemeCode: schemeCode, Name: name, NAV: domain.NormalizeNAV(nav)}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	var result fundRecord
	err := r.db.update(func(txn *badgerdb.Txn) error {
		now := time.Now()

		var idx fundCodeIndex
		err := r.db.store.TxGet(txn, schemeCode, &idx)
		switch {
		case err == nil:
			var rec fundRecord
			if err := r.db.store.TxGet(txn, idx.FundID, &rec); err != nil {
				return fmt.Errorf("failed to load fund %s: %w", idx.FundID, err)
			}
			rec.Name = candidate.Name
			rec.NAV = candidate.NAV.StringFixed(domain.NAVPlaces)
			rec.UpdatedAt = now
			if err := r.db.store.TxUpsert(txn, rec.ID, &rec); err != nil {
				return err
			}
			result = rec
			return nil

		case errors.Is(err, badgerhold.ErrNotFound):
			rec := fundRecord{
				ID:         uuid.New().String(),
				SchemeCode: schemeCode,
				Name:       candidate.Name,
				NAV:        candidate.NAV.StringFixed(domain.NAVPlaces),
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := r.db.store.TxInsert(txn, schemeCode, &fundCodeIndex{SchemeCode: schemeCode, FundID: rec.ID}); err != nil {
				return err
			}
			if err := r.db.store.TxInsert(txn, rec.ID, &rec); err != nil {
				return err
			}
			result = rec
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert fund: %w", err)
	}

	return result.toDomain()
}

// UpdateNAV sets the nav of an existing fund
func (r *fundRepository) UpdateNAV(ctx context.Context, id uuid.UUID, nav decimal.Decimal) (*domain.Fund, error) {
	var result fundRecord
	err := r.db.update(func(txn *badgerdb.Txn) error {
		var rec fundRecord
		if err := r.db.store.TxGet(txn, id.String(), &rec); err != nil {
			return err
		}
		rec.NAV = domain.NormalizeNAV(nav).StringFixed(domain.NAVPlaces)
		rec.UpdatedAt = time.Now()
		if err := r.db.store.TxUpsert(txn, rec.ID, &rec); err != nil {
			return err
		}
		result = rec
		return nil
	})
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("fund %s: %w", id, domain.ErrFundNotFound)
		}
		return nil, fmt.Errorf("failed to update fund nav: %w", err)
	}

	return result.toDomain()
}

// List returns every fund in the catalog
func (r *fundRepository) List(ctx context.Context) ([]*domain.Fund, error) {
	var recs []fundRecord
	if err := r.db.store.Find(&recs, nil); err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}

	funds := make([]*domain.Fund, 0, len(recs))
	for i := range recs {
		fund, err := recs[i].toDomain()
		if err != nil {
			return nil, err
		}
		funds = append(funds, fund)
	}
	return funds, nil
}
