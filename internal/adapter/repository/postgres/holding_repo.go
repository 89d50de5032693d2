package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

const holdingColumns = `id, owner_id, fund_id, quantity, created_at, updated_at`

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var holding domain.Holding
	if err := row.Scan(
		&holding.ID,
		&holding.OwnerID,
		&holding.FundID,
		&holding.Quantity,
		&holding.CreatedAt,
		&holding.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &holding, nil
}

// AddQuantity inserts the holding or increments the existing row in one
// statement; the row lock taken by ON CONFLICT serialises concurrent adds.
func (r *holdingRepository) AddQuantity(ctx context.Context, ownerID string, fundID uuid.UUID, quantity int64) (*domain.Holding, error) {
	query := `
		INSERT INTO holdings (id, owner_id, fund_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (owner_id, fund_id) DO UPDATE
		SET quantity = holdings.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING ` + holdingColumns

	holding, err := scanHolding(r.db.QueryRowContext(ctx, query, uuid.New(), ownerID, fundID, quantity))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("fund %s: %w", fundID, domain.ErrFundNotFound)
		}
		if isOutOfRange(err) {
			return nil, fmt.Errorf("%w: holding cannot grow by %d", domain.ErrInvalidQuantity, quantity)
		}
		return nil, fmt.Errorf("failed to add holding quantity: %w", err)
	}

	return holding, nil
}

// Get retrieves the holding for an (ownerID, fundID) pair
func (r *holdingRepository) Get(ctx context.Context, ownerID string, fundID uuid.UUID) (*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE owner_id = $1 AND fund_id = $2`

	holding, err := scanHolding(r.db.QueryRowContext(ctx, query, ownerID, fundID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHoldingNotFound
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return holding, nil
}

// ListByOwner returns every holding of ownerID
func (r *holdingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE owner_id = $1`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, holding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}

	return holdings, nil
}
