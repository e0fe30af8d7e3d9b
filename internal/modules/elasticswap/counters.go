package elasticswap

import (
	"context"
	"errors"
	"fmt"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

// ErrMissingEntity is returned when a handler needs a parent entity that was
// never created, e.g. an exchange event arriving before the factory event.
// It is fatal for the current event and must not be swallowed.
type ErrMissingEntity struct {
	Entity string
	Key    string
}

func (e ErrMissingEntity) Error() string {
	return fmt.Sprintf("missing %s entity %q", e.Entity, e.Key)
}

// updateTransactionCounters upserts the day and hour buckets for the
// exchange and timestamp, increments the total and per-kind counters, and
// writes the just-updated totals back onto the exchange's denormalized
// dailyTxns/hourlyTxns fields. Buckets are created lazily on the first event
// that lands in them and only ever incremented afterwards.
func updateTransactionCounters(ctx context.Context, tx store.Tx, exchangeKey string, timestamp int64, kind store.TxnKind) error {
	exchange, err := tx.Exchange(ctx, exchangeKey)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMissingEntity{Entity: "exchange", Key: exchangeKey}
	}
	if err != nil {
		return err
	}

	dayID, dayStart := dayBucket(exchangeKey, timestamp)
	day, err := tx.ExchangeDayData(ctx, dayID)
	if errors.Is(err, store.ErrNotFound) {
		day = &store.ExchangeDayData{
			ID:                 dayID,
			Date:               dayStart,
			Exchange:           exchangeKey,
			BaseToken:          exchange.BaseToken,
			QuoteToken:         exchange.QuoteToken,
			CreatedAtTimestamp: timestamp,
		}
	} else if err != nil {
		return err
	}
	day.TotalTxns++
	bumpKind(&day.SwapTxns, &day.AddLiquidityTxns, &day.RemoveLiquidityTxns, &day.TransferTxns, kind)
	if err := tx.PutExchangeDayData(ctx, day); err != nil {
		return err
	}

	hourID, hourStart := hourBucket(exchangeKey, timestamp)
	hour, err := tx.ExchangeHourData(ctx, hourID)
	if errors.Is(err, store.ErrNotFound) {
		hour = &store.ExchangeHourData{
			ID:                 hourID,
			StartTime:          hourStart,
			Exchange:           exchangeKey,
			BaseToken:          exchange.BaseToken,
			QuoteToken:         exchange.QuoteToken,
			CreatedAtTimestamp: timestamp,
		}
	} else if err != nil {
		return err
	}
	hour.TotalTxns++
	bumpKind(&hour.SwapTxns, &hour.AddLiquidityTxns, &hour.RemoveLiquidityTxns, &hour.TransferTxns, kind)
	if err := tx.PutExchangeHourData(ctx, hour); err != nil {
		return err
	}

	exchange.DailyTxns = day.TotalTxns
	exchange.HourlyTxns = hour.TotalTxns
	return tx.PutExchange(ctx, exchange)
}

func bumpKind(swap, add, remove, transfer *uint64, kind store.TxnKind) {
	switch kind {
	case store.TxnSwap:
		*swap++
	case store.TxnAddLiquidity:
		*add++
	case store.TxnRemoveLiquidity:
		*remove++
	case store.TxnTransfer:
		*transfer++
	}
}
