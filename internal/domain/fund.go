package domain

import (
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NAVPlaces is the number of decimal places a NAV is stored with
const NAVPlaces = 2

// Fund represents a mutual fund scheme known to the catalog
// SchemeCode is provider-assigned and unique across the catalog
type Fund struct {
	ID         uuid.UUID
	SchemeCode string
	Name       string
	NAV        decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate ensures the fund adheres to domain rules
func (f *Fund) Validate() error {
	if strings.TrimSpace(f.SchemeCode) == "" {
		return ErrInvalidSchemeCode
	}
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("fund name cannot be empty")
	}
	if f.NAV.IsNegative() {
		return errors.New("fund nav must not be negative")
	}
	return nil
}

// NormalizeNAV rounds a NAV to the stored precision
func NormalizeNAV(nav decimal.Decimal) decimal.Decimal {
	return nav.Round(NAVPlaces)
}

// FundRecord is a single scheme entry as returned by the fund data provider.
// Fields are provider-controlled: Name may be empty and NAV may be absent.
// Raw keeps the untouched provider object for passthrough listings.
type FundRecord struct {
	SchemeCode string
	Name       string
	NAV        decimal.NullDecimal
	Raw        map[string]any
}

// Valid reports whether the record carries a usable name and NAV
func (r *FundRecord) Valid() bool {
	if r == nil {
		return false
	}
	if strings.TrimSpace(r.Name) == "" {
		return false
	}
	return r.NAV.Valid && !r.NAV.Decimal.IsNegative()
}

// Clone returns a copy of the record whose Raw object shares no maps or
// slices with the original
func (r FundRecord) Clone() FundRecord {
	if r.Raw != nil {
		r.Raw = cloneObject(r.Raw)
	}
	return r
}

func cloneObject(obj map[string]any) map[string]any {
	out := maps.Clone(obj)
	for key, value := range out {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneObject(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
