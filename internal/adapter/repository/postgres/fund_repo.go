package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// fundRepository implements domain.FundRepository
type fundRepository struct {
	db *DB
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *DB) domain.FundRepository {
	return &fundRepository{db: db}
}

const fundColumns = `id, scheme_code, name, nav, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFund(row rowScanner) (*domain.Fund, error) {
	var fund domain.Fund
	var navStr string

	if err := row.Scan(
		&fund.ID,
		&fund.SchemeCode,
		&fund.Name,
		&navStr,
		&fund.CreatedAt,
		&fund.UpdatedAt,
	); err != nil {
		return nil, err
	}

	// Parse nav (NUMERIC)
	nav, err := decimal.NewFromString(navStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse nav: %w", err)
	}
	fund.NAV = nav

	return &fund, nil
}

// FindByCode retrieves a fund by its scheme code
func (r *fundRepository) FindByCode(ctx context.Context, schemeCode string) (*domain.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE scheme_code = $1`

	fund, err := scanFund(r.db.QueryRowContext(ctx, query, schemeCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scheme %s: %w", schemeCode, domain.ErrFundNotFound)
		}
		return nil, fmt.Errorf("failed to get fund by scheme code: %w", err)
	}

	return fund, nil
}

// FindByID retrieves a fund by its ID
func (r *fundRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE id = $1`

	fund, err := scanFund(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fund %s: %w", id, domain.ErrFundNotFound)
		}
		return nil, fmt.Errorf("failed to get fund by ID: %w", err)
	}

	return fund, nil
}

// Upsert creates the fund or updates name and nav in a single statement.
// The unique constraint on scheme_code makes racing creators converge on one row.
func (r *fundRepository) Upsert(ctx context.Context, schemeCode, name string, nav decimal.Decimal) (*domain.Fund, error) {
	candidate := &domain.Fund{
		ID:         uuid.New(),
		SchemeCode: schemeCode,
		Name:       name,
		NAV:        domain.NormalizeNAV(nav),
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO funds (id, scheme_code, name, nav, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (scheme_code) DO UPDATE
		SET name = EXCLUDED.name, nav = EXCLUDED.nav, updated_at = now()
		RETURNING ` + fundColumns

	fund, err := scanFund(r.db.QueryRowContext(ctx, query,
		candidate.ID,
		candidate.SchemeCode,
		candidate.Name,
		candidate.NAV.StringFixed(domain.NAVPlaces),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert fund: %w", err)
	}

	return fund, nil
}

// UpdateNAV sets the nav of an existing fund
func (r *fundRepository) UpdateNAV(ctx context.Context, id uuid.UUID, nav decimal.Decimal) (*domain.Fund, error) {
	query := `
		UPDATE funds SET nav = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + fundColumns

	fund, err := scanFund(r.db.QueryRowContext(ctx, query, id, domain.NormalizeNAV(nav).StringFixed(domain.NAVPlaces)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fund %s: %w", id, domain.ErrFundNotFound)
		}
		return nil, fmt.Errorf("failed to update fund nav: %w", err)
	}

	return fund, nil
}

// List returns every fund in the catalog
func (r *fundRepository) List(ctx context.Context) ([]*domain.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	var funds []*domain.Fund
	for rows.Next() {
		fund, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, fund)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate funds: %w", err)
	}

	return funds, nil
}
