// Package repotest holds behavioural tests shared by every catalog and ledger
// backend. Each backend's own test file calls Run with a factory.
package repotest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// Repositories is one fresh, empty backend
type Repositories struct {
	Funds    domain.FundRepository
	Holdings domain.HoldingRepository
}

// Factory returns a fresh backend for each subtest
type Factory func(t *testing.T) Repositories

// Run executes the shared suite against the backend built by newRepos
func Run(t *testing.T, newRepos Factory) {
	t.Run("FundUpsertCreatesThenUpdates", func(t *testing.T) { testFundUpsert(t, newRepos(t)) })
	t.Run("FundFindMissing", func(t *testing.T) { testFundFindMissing(t, newRepos(t)) })
	t.Run("FundNAVStoredWithTwoPlaces", func(t *testing.T) { testFundNAVPrecision(t, newRepos(t)) })
	t.Run("FundUpdateNAV", func(t *testing.T) { testFundUpdateNAV(t, newRepos(t)) })
	t.Run("FundList", func(t *testing.T) { testFundList(t, newRepos(t)) })
	t.Run("FundConcurrentUpsertSameCode", func(t *testing.T) { testFundConcurrentUpsert(t, newRepos(t)) })
	t.Run("HoldingAddCreatesThenIncrements", func(t *testing.T) { testHoldingAdd(t, newRepos(t)) })
	t.Run("HoldingConcurrentAdds", func(t *testing.T) { testHoldingConcurrentAdds(t, newRepos(t)) })
	t.Run("HoldingAddOverflowRejected", func(t *testing.T) { testHoldingAddOverflow(t, newRepos(t)) })
	t.Run("HoldingUnknownFund", func(t *testing.T) { testHoldingUnknownFund(t, newRepos(t)) })
	t.Run("HoldingListByOwner", func(t *testing.T) { testHoldingListByOwner(t, newRepos(t)) })
}

func testFundUpsert(t *testing.T, r Repositories) {
	ctx := context.Background()

	created, err := r.Funds.Upsert(ctx, "120437", "Axis Banking & PSU Debt Fund", decimal.RequireFromString("1038.52"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "120437", created.SchemeCode)

	updated, err := r.Funds.Upsert(ctx, "120437", "Axis Banking & PSU Debt Fund - Growth", decimal.RequireFromString("1040.10"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "upsert must keep the fund identity")
	assert.Equal(t, "Axis Banking & PSU Debt Fund - Growth", updated.Name)
	assert.True(t, decimal.RequireFromString("1040.10").Equal(updated.NAV))

	found, err := r.Funds.FindByCode(ctx, "120437")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, updated.NAV.Equal(found.NAV))

	byID, err := r.Funds.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "120437", byID.SchemeCode)
}

func testFundFindMissing(t *testing.T, r Repositories) {
	ctx := context.Background()

	_, err := r.Funds.FindByCode(ctx, "BADCODE")
	assert.ErrorIs(t, err, domain.ErrFundNotFound)

	_, err = r.Funds.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrFundNotFound)

	_, err = r.Funds.UpdateNAV(ctx, uuid.New(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrFundNotFound)
}

func testFundNAVPrecision(t *testing.T, r Repositories) {
	ctx := context.Background()

	fund, err := r.Funds.Upsert(ctx, "120503", "Axis ELSS Tax Saver Fund", decimal.RequireFromString("89.1234"))
	require.NoError(t, err)
	assert.Equal(t, "89.12", fund.NAV.StringFixed(2))

	found, err := r.Funds.FindByCode(ctx, "120503")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("89.12").Equal(found.NAV), "stored nav %s", found.NAV)
}

func testFundUpdateNAV(t *testing.T, r Repositories) {
	ctx := context.Background()

	fund, err := r.Funds.Upsert(ctx, "120437", "Axis Banking & PSU Debt Fund", decimal.RequireFromString("1038.52"))
	require.NoError(t, err)

	updated, err := r.Funds.UpdateNAV(ctx, fund.ID, decimal.RequireFromString("1041.07"))
	require.NoError(t, err)
	assert.Equal(t, fund.ID, updated.ID)
	assert.Equal(t, fund.Name, updated.Name, "nav refresh must not touch the name")
	assert.True(t, decimal.RequireFromString("1041.07").Equal(updated.NAV))

	found, err := r.Funds.FindByCode(ctx, "120437")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1041.07").Equal(found.NAV))
}

func testFundList(t *testing.T, r Repositories) {
	ctx := context.Background()

	funds, err := r.Funds.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, funds)

	for i := 0; i < 3; i++ {
		_, err := r.Funds.Upsert(ctx, fmt.Sprintf("12040%d", i), fmt.Sprintf("Fund %d", i), decimal.NewFromInt(int64(10+i)))
		require.NoError(t, err)
	}

	funds, err = r.Funds.List(ctx)
	require.NoError(t, err)
	codes := make([]string, 0, len(funds))
	for _, f := range funds {
		codes = append(codes, f.SchemeCode)
	}
	assert.ElementsMatch(t, []string{"120400", "120401", "120402"}, codes)
}

func testFundConcurrentUpsert(t *testing.T, r Repositories) {
	ctx := context.Background()
	const workers = 16

	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			fund, err := r.Funds.Upsert(ctx, "120437", "Axis Banking & PSU Debt Fund", decimal.RequireFromString("1038.52"))
			errs[i] = err
			if err == nil {
				ids[i] = fund.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "all racers must resolve to the same fund")
	}

	funds, err := r.Funds.List(ctx)
	require.NoError(t, err)
	assert.Len(t, funds, 1)
}

func testHoldingAdd(t *testing.T, r Repositories) {
	ctx := context.Background()

	fund, err := r.Funds.Upsert(ctx, "F", "Fund F", decimal.RequireFromString("10.00"))
	require.NoError(t, err)

	_, err = r.Holdings.Get(ctx, "U", fund.ID)
	assert.ErrorIs(t, err, domain.ErrHoldingNotFound)

	first, err := r.Holdings.AddQuantity(ctx, "U", fund.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), first.Quantity)
	assert.Equal(t, "U", first.OwnerID)
	assert.Equal(t, fund.ID, first.FundID)

	second, err := r.Holdings.AddQuantity(ctx, "U", fund.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one holding per (owner, fund)")
	assert.Equal(t, int64(100), second.Quantity)

	stored, err := r.Holdings.Get(ctx, "U", fund.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.Quantity)
}

func testHoldingConcurrentAdds(t *testing.T, r Repositories) {
	ctx := context.Background()

	fund, err := r.Funds.Upsert(ctx, "F", "Fund F", decimal.RequireFromString("10.00"))
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, workers)
	var want int64
	for i := 0; i < workers; i++ {
		q := int64(i + 1)
		want += q
		wg.Add(1)
		go func(i int, q int64) {
			defer wg.Done()
			<-start
			_, errs[i] = r.Holdings.AddQuantity(ctx, "U", fund.ID, q)
		}(i, q)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	holdings, err := r.Holdings.ListByOwner(ctx, "U")
	require.NoError(t, err)
	require.Len(t, holdings, 1, "exactly one holding for the pair")
	assert.Equal(t, want, holdings[0].Quantity, "no lost updates")
}

func testHoldingAddOverflow(t *testing.T, r Repositories) {
	ctx := context.Background()

	fund, err := r.Funds.Upsert(ctx, "F", "Fund F", decimal.RequireFromString("10.00"))
	require.NoError(t, err)

	_, err = r.Holdings.AddQuantity(ctx, "U", fund.ID, math.MaxInt64)
	require.NoError(t, err)

	_, err = r.Holdings.AddQuantity(ctx, "U", fund.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	stored, err := r.Holdings.Get(ctx, "U", fund.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), stored.Quantity, "rejected add must not be written")
}

func testHoldingUnknownFund(t *testing.T, r Repositories) {
	_, err := r.Holdings.AddQuantity(context.Background(), "U", uuid.New(), 5)
	assert.ErrorIs(t, err, domain.ErrFundNotFound)
}

func testHoldingListByOwner(t *testing.T, r Repositories) {
	ctx := context.Background()

	a, err := r.Funds.Upsert(ctx, "A", "Fund A", decimal.NewFromInt(1))
	require.NoError(t, err)
	b, err := r.Funds.Upsert(ctx, "B", "Fund B", decimal.NewFromInt(2))
	require.NoError(t, err)

	_, err = r.Holdings.AddQuantity(ctx, "U", a.ID, 1)
	require.NoError(t, err)
	_, err = r.Holdings.AddQuantity(ctx, "U", b.ID, 2)
	require.NoError(t, err)
	_, err = r.Holdings.AddQuantity(ctx, "V", a.ID, 3)
	require.NoError(t, err)

	holdings, err := r.Holdings.ListByOwner(ctx, "U")
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	fundIDs := []uuid.UUID{holdings[0].FundID, holdings[1].FundID}
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, fundIDs)

	none, err := r.Holdings.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
