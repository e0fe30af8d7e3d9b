package elasticswap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

func seedCounterExchange(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutExchange(ctx, &store.Exchange{
		Address:    addrKey(testExchange),
		BaseToken:  addrKey(testBase),
		QuoteToken: addrKey(testQuote),
	}))
	require.NoError(t, tx.Commit(ctx))
}

func countTxns(t *testing.T, st store.Store, timestamp int64) (*store.ExchangeDayData, *store.ExchangeHourData) {
	t.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	dayID, _ := dayBucket(addrKey(testExchange), timestamp)
	day, err := tx.ExchangeDayData(ctx, dayID)
	require.NoError(t, err)

	hourID, _ := hourBucket(addrKey(testExchange), timestamp)
	hour, err := tx.ExchangeHourData(ctx, hourID)
	require.NoError(t, err)

	return day, hour
}

func TestUpdateTransactionCounters(t *testing.T) {
	ctx := context.Background()
	key := addrKey(testExchange)

	t.Run("first event creates both buckets", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedCounterExchange(t, st)
		ts := int64(5*86400 + 3000)

		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, updateTransactionCounters(ctx, tx, key, ts, store.TxnSwap))
		require.NoError(t, tx.Commit(ctx))

		day, hour := countTxns(t, st, ts)
		assert.Equal(t, int64(5*86400), day.Date)
		assert.Equal(t, key, day.Exchange)
		assert.Equal(t, addrKey(testBase), day.BaseToken)
		assert.Equal(t, addrKey(testQuote), day.QuoteToken)
		assert.Equal(t, uint64(1), day.TotalTxns)
		assert.Equal(t, uint64(1), day.SwapTxns)
		assert.Equal(t, ts, day.CreatedAtTimestamp)

		assert.Equal(t, (ts/3600)*3600, hour.StartTime)
		assert.Equal(t, uint64(1), hour.TotalTxns)
		assert.Equal(t, uint64(1), hour.SwapTxns)

		exchange := loadExchange(t, st)
		assert.Equal(t, uint64(1), exchange.DailyTxns)
		assert.Equal(t, uint64(1), exchange.HourlyTxns)
	})

	t.Run("total equals sum of per-kind counters", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedCounterExchange(t, st)
		ts := int64(86400 + 100)

		kinds := []store.TxnKind{
			store.TxnSwap, store.TxnSwap,
			store.TxnAddLiquidity,
			store.TxnRemoveLiquidity,
			store.TxnTransfer, store.TxnTransfer, store.TxnTransfer,
		}
		for _, kind := range kinds {
			tx, err := st.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, updateTransactionCounters(ctx, tx, key, ts, kind))
			require.NoError(t, tx.Commit(ctx))
		}

		day, hour := countTxns(t, st, ts)
		assert.Equal(t, uint64(7), day.TotalTxns)
		assert.Equal(t, uint64(2), day.SwapTxns)
		assert.Equal(t, uint64(1), day.AddLiquidityTxns)
		assert.Equal(t, uint64(1), day.RemoveLiquidityTxns)
		assert.Equal(t, uint64(3), day.TransferTxns)
		assert.Equal(t, day.TotalTxns,
			day.SwapTxns+day.AddLiquidityTxns+day.RemoveLiquidityTxns+day.TransferTxns)
		assert.Equal(t, hour.TotalTxns, day.TotalTxns)
	})

	t.Run("hour rollover keeps the day bucket", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedCounterExchange(t, st)
		first := int64(5*86400 + 100)
		second := first + 2*3600

		for _, ts := range []int64{first, second} {
			tx, err := st.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, updateTransactionCounters(ctx, tx, key, ts, store.TxnSwap))
			require.NoError(t, tx.Commit(ctx))
		}

		day, hour := countTxns(t, st, second)
		assert.Equal(t, uint64(2), day.TotalTxns)
		assert.Equal(t, uint64(1), hour.TotalTxns)

		exchange := loadExchange(t, st)
		assert.Equal(t, uint64(2), exchange.DailyTxns)
		assert.Equal(t, uint64(1), exchange.HourlyTxns)
	})

	t.Run("missing exchange fails", func(t *testing.T) {
		st := store.NewMemoryStore()
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		err = updateTransactionCounters(ctx, tx, key, 100, store.TxnSwap)
		var missing ErrMissingEntity
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "exchange", missing.Entity)
	})
}
