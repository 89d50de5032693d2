package portfolio

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/simaogato/fundfolio-backend/internal/adapter/repository/memory"
	"github.com/simaogato/fundfolio-backend/internal/domain"
	"github.com/simaogato/fundfolio-backend/internal/usecase/fundsync"
	"github.com/simaogato/fundfolio-backend/internal/usecase/ledger"
)

// MockFundProvider is a mock implementation of FundProvider for testing
type MockFundProvider struct {
	mock.Mock
}

func (m *MockFundProvider) FetchFamilySchemes(ctx context.Context) ([]domain.FundRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FundRecord), args.Error(1)
}

func (m *MockFundProvider) FetchScheme(ctx context.Context, schemeCode string) (*domain.FundRecord, error) {
	args := m.Called(ctx, schemeCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FundRecord), args.Error(1)
}

func scheme(code, name, nav string) *domain.FundRecord {
	return &domain.FundRecord{
		SchemeCode: code,
		Name:       name,
		NAV:        decimal.NewNullDecimal(decimal.RequireFromString(nav)),
	}
}

func newTestService(provider domain.FundProvider) (*Service, *memory.Store) {
	store := memory.NewStore()
	logger := arbor.NewLogger()
	sync := fundsync.NewService(store.Funds(), provider, logger)
	ledgerService := ledger.NewService(store.Holdings(), store.Funds(), logger)
	return NewService(sync, ledgerService, logger), store
}

func TestAddHolding_ImportsFundAndRecordsQuantity(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	provider.On("FetchScheme", ctx, "120437").Return(scheme("120437", "Axis Banking & PSU Debt Fund", "1038.52"), nil).Once()
	service, _ := newTestService(provider)

	entry, err := service.AddHolding(ctx, AddHoldingInput{OwnerID: "alice", SchemeCode: "120437", Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), entry.Quantity)
	assert.Equal(t, "10385.20", entry.CurrentValue.StringFixed(2))

	entry, err = service.AddHolding(ctx, AddHoldingInput{OwnerID: "alice", SchemeCode: "120437", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(15), entry.Quantity)

	provider.AssertExpectations(t)
}

func TestAddHolding_InvalidQuantityBeforeFetch(t *testing.T) {
	provider := new(MockFundProvider)
	service, store := newTestService(provider)

	_, err := service.AddHolding(context.Background(), AddHoldingInput{OwnerID: "alice", SchemeCode: "120437", Quantity: 0})

	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	provider.AssertNotCalled(t, "FetchScheme", mock.Anything, mock.Anything)
	funds, err := store.Funds().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, funds)
}

func TestAddHolding_FetchFailure(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	provider.On("FetchScheme", ctx, "BADCODE").Return(nil, domain.ErrFetchFailed)
	service, store := newTestService(provider)

	_, err := service.AddHolding(ctx, AddHoldingInput{OwnerID: "alice", SchemeCode: "BADCODE", Quantity: 3})

	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	holdings, err := store.Holdings().ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestListPortfolio_SortedByFundName(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	provider.On("FetchScheme", ctx, "120437").Return(scheme("120437", "Axis Banking & PSU Debt Fund", "10.00"), nil)
	provider.On("FetchScheme", ctx, "119551").Return(scheme("119551", "Axis Liquid Fund", "2.50"), nil)
	provider.On("FetchScheme", ctx, "112277").Return(scheme("112277", "Axis Arbitrage Fund", "1.00"), nil)
	service, _ := newTestService(provider)

	for _, code := range []string{"119551", "120437", "112277"} {
		_, err := service.AddHolding(ctx, AddHoldingInput{OwnerID: "alice", SchemeCode: code, Quantity: 100})
		require.NoError(t, err)
	}

	entries, err := service.ListPortfolio(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Axis Arbitrage Fund", entries[0].FundName)
	assert.Equal(t, "Axis Banking & PSU Debt Fund", entries[1].FundName)
	assert.Equal(t, "Axis Liquid Fund", entries[2].FundName)
	assert.Equal(t, "1000.00", entries[1].CurrentValue.StringFixed(2))
	assert.Equal(t, "1350.00", Total(entries).StringFixed(2))
}

func TestListPortfolio_EmptyOwner(t *testing.T) {
	service, _ := newTestService(new(MockFundProvider))

	_, err := service.ListPortfolio(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}
