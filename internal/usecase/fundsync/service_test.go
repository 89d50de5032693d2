package fundsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/simaogato/fundfolio-backend/internal/adapter/repository/memory"
	"github.com/simaogato/fundfolio-backend/internal/domain"
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

func record(code, name, nav string) *domain.FundRecord {
	r := &domain.FundRecord{SchemeCode: code, Name: name}
	if nav != "" {
		r.NAV = decimal.NewNullDecimal(decimal.RequireFromString(nav))
	}
	return r
}

func newTestService(provider domain.FundProvider, opts ...Option) (*Service, domain.FundRepository) {
	repo := memory.NewStore().Funds()
	return NewService(repo, provider, arbor.NewLogger(), opts...), repo
}

func TestEnsureFund_ImportsUnknownScheme(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	service, repo := newTestService(provider)

	provider.On("FetchScheme", ctx, "120437").
		Return(record("120437", "Axis Banking & PSU Debt Fund", "1038.52"), nil).Once()

	fund, err := service.EnsureFund(ctx, "120437")

	require.NoError(t, err)
	assert.Equal(t, "120437", fund.SchemeCode)
	assert.Equal(t, "Axis Banking & PSU Debt Fund", fund.Name)
	assert.Equal(t, "1038.52", fund.NAV.StringFixed(2))

	stored, err := repo.FindByCode(ctx, "120437")
	require.NoError(t, err)
	assert.Equal(t, fund.ID, stored.ID)
	provider.AssertExpectations(t)
}

func TestEnsureFund_SecondCallUsesCatalog(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	service, _ := newTestService(provider)

	provider.On("FetchScheme", ctx, "120437").
		Return(record("120437", "Axis Banking & PSU Debt Fund", "1038.52"), nil).Once()

	first, err := service.EnsureFund(ctx, "120437")
	require.NoError(t, err)
	second, err := service.EnsureFund(ctx, "120437")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	provider.AssertNumberOfCalls(t, "FetchScheme", 1)
}

func TestEnsureFund_RoundsNAV(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	service, _ := newTestService(provider)

	provider.On("FetchScheme", ctx, "119551").
		Return(record("119551", "Axis Liquid Fund", "2650.4567"), nil)

	fund, err := service.EnsureFund(ctx, "119551")

	require.NoError(t, err)
	assert.Equal(t, "2650.46", fund.NAV.StringFixed(2))
}

func TestEnsureFund_FetchFailureCreatesNothing(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	service, repo := newTestService(provider)

	provider.On("FetchScheme", ctx, "BADCODE").
		Return(nil, fmt.Errorf("%w: status 404", domain.ErrFetchFailed))

	fund, err := service.EnsureFund(ctx, "BADCODE")

	assert.Nil(t, fund)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)

	_, err = repo.FindByCode(ctx, "BADCODE")
	assert.ErrorIs(t, err, domain.ErrFundNotFound)
}

func TestEnsureFund_MissingConfigurationIsFetchFailure(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	service, _ := newTestService(provider)

	provider.On("FetchScheme", ctx, "120437").Return(nil, domain.ErrConfigurationMissing)

	_, err := service.EnsureFund(ctx, "120437")

	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
}

func TestEnsureFund_InvalidRecord(t *testing.T) {
	tests := []struct {
		name   string
		record *domain.FundRecord
	}{
		{name: "missing name", record: record("120437", "", "1038.52")},
		{name: "missing nav", record: record("120437", "Axis Banking & PSU Debt Fund", "")},
		{name: "negative nav", record: record("120437", "Axis Banking & PSU Debt Fund", "-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			provider := new(MockFundProvider)
			service, repo := newTestService(provider)

			provider.On("FetchScheme", ctx, "120437").Return(tt.record, nil)

			_, err := service.EnsureFund(ctx, "120437")
			assert.ErrorIs(t, err, domain.ErrInvalidRecord)

			funds, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, funds)
		})
	}
}

func TestEnsureFund_EmptyCode(t *testing.T) {
	provider := new(MockFundProvider)
	service, _ := newTestService(provider)

	_, err := service.EnsureFund(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidSchemeCode)
	provider.AssertNotCalled(t, "FetchScheme", mock.Anything, mock.Anything)
}

func TestEnsureFund_ConcurrentFirstUseYieldsOneFund(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	service, repo := newTestService(provider)

	provider.On("FetchScheme", ctx, "120437").
		Return(record("120437", "Axis Banking & PSU Debt Fund", "1038.52"), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.EnsureFund(ctx, "120437")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	funds, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, funds, 1)
}

func seedCatalog(t *testing.T, repo domain.FundRepository, codes ...string) {
	t.Helper()
	for _, code := range codes {
		_, err := repo.Upsert(context.Background(), code, "Fund "+code, decimal.NewFromInt(10))
		require.NoError(t, err)
	}
}

func TestRefreshAllNAV_ReportsUpdatedAndFailed(t *testing.T) {
	ctx := context.Background()
	provider := new(MockFundProvider)
	service, repo := newTestService(provider)
	seedCatalog(t, repo, "100", "200", "300", "400")

	provider.On("FetchScheme", ctx, "100").Return(record("100", "Fund 100", "11.50"), nil)
	provider.On("FetchScheme", ctx, "200").Return(nil, fmt.Errorf("%w: timeout", domain.ErrFetchFailed))
	provider.On("FetchScheme", ctx, "300").Return(record("300", "Fund 300", "12.25"), nil)
	provider.On("FetchScheme", ctx, "400").Return(record("400", "", ""), nil)

	report, err := service.RefreshAllNAV(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.UpdatedCount())
	assert.Equal(t, 2, report.FailedCount())
	assert.Equal(t, []string{"100", "300"}, report.Updated)
	assert.Equal(t, []string{"200", "400"}, report.FailedCodes())
	assert.Equal(t, domain.ErrFetchFailed.Error(), report.Failed[0].Reason)
	assert.Equal(t, domain.ErrInvalidRecord.Error(), report.Failed[1].Reason)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	updated, err := repo.FindByCode(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "11.50", updated.NAV.StringFixed(2))
	assert.Equal(t, "Fund 100", updated.Name)

	untouched, err := repo.FindByCode(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, "10.00", untouched.NAV.StringFixed(2))

	provider.AssertNotCalled(t, "FetchFamilySchemes", mock.Anything)
}

func TestRefreshAllNAV_EmptyCatalog(t *testing.T) {
	provider := new(MockFundProvider)
	service, _ := newTestService(provider)

	report, err := service.RefreshAllNAV(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.UpdatedCount())
	assert.Zero(t, report.FailedCount())
}

// slowProvider tracks how many FetchScheme calls overlap
type slowProvider struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *slowProvider) FetchFamilySchemes(ctx context.Context) ([]domain.FundRecord, error) {
	return nil, errors.New("not used")
}

func (p *slowProvider) FetchScheme(ctx context.Context, schemeCode string) (*domain.FundRecord, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return record(schemeCode, "Fund "+schemeCode, "20"), nil
}

func TestRefreshAllNAV_BoundedConcurrency(t *testing.T) {
	provider := &slowProvider{}
	service, repo := newTestService(provider, WithConcurrency(3))
	seedCatalog(t, repo, "1", "2", "3", "4", "5", "6", "7", "8", "9")

	report, err := service.RefreshAllNAV(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 9, report.UpdatedCount())
	assert.LessOrEqual(t, provider.peak.Load(), int32(3))
	assert.Greater(t, provider.peak.Load(), int32(1))
}

func TestRefreshAllNAV_SequentialByDefault(t *testing.T) {
	provider := &slowProvider{}
	service, repo := newTestService(provider)
	seedCatalog(t, repo, "1", "2", "3")

	_, err := service.RefreshAllNAV(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.peak.Load())
}

// failingFundRepository fails catalog enumeration
type failingFundRepository struct {
	domain.FundRepository
}

func (failingFundRepository) List(ctx context.Context) ([]*domain.Fund, error) {
	return nil, errors.New("connection refused")
}

func TestRefreshAllNAV_ListFailure(t *testing.T) {
	service := NewService(failingFundRepository{}, new(MockFundProvider), arbor.NewLogger())

	report, err := service.RefreshAllNAV(context.Background())

	assert.Nil(t, report)
	assert.ErrorContains(t, err, "failed to list catalog")
}
