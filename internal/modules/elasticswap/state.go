package elasticswap

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

// refreshExchangeState re-reads the authoritative reserve state from the live
// exchange contract and recomputes the derived quantities and spot prices.
// Every per-exchange handler calls this before doing anything else, so the
// stored exchange is always fresh relative to the on-chain read.
func refreshExchangeState(ctx context.Context, m *Module, tx store.Tx, address common.Address) (*store.Exchange, error) {
	key := addrKey(address)
	exchange, err := tx.Exchange(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrMissingEntity{Entity: "exchange", Key: key}
	}
	if err != nil {
		return nil, err
	}

	supply, err := m.reader.TotalSupply(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to read total supply: %w", err)
	}
	baseBalance, err := m.reader.BalanceOf(ctx, common.HexToAddress(exchange.BaseToken), address)
	if err != nil {
		return nil, fmt.Errorf("failed to read base token balance: %w", err)
	}
	quoteBalance, err := m.reader.BalanceOf(ctx, common.HexToAddress(exchange.QuoteToken), address)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote token balance: %w", err)
	}

	balances, err := m.reader.InternalBalances(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to read internal balances: %w", err)
	}

	exchange.TotalSupply = supply
	exchange.BaseTokenQty = decimal.NewFromBigInt(baseBalance, 0)
	exchange.QuoteTokenQty = decimal.NewFromBigInt(quoteBalance, 0)
	exchange.BaseTokenReserveQty = balances.BaseTokenReserveQty
	exchange.QuoteTokenReserveQty = balances.QuoteTokenReserveQty
	exchange.KLast = balances.KLast
	exchange.BasePrice, exchange.QuotePrice = spotPrices(exchange.BaseTokenQty, exchange.QuoteTokenQty)

	if err := tx.PutExchange(ctx, exchange); err != nil {
		return nil, err
	}
	return exchange, nil
}

// spotPrices computes the reciprocal spot prices from the token quantities.
// A zero quantity on either side yields the null sentinel for both prices
// instead of a division fault.
func spotPrices(baseQty, quoteQty decimal.Decimal) (decimal.NullDecimal, decimal.NullDecimal) {
	if baseQty.IsZero() || quoteQty.IsZero() {
		return decimal.NullDecimal{}, decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: baseQty.Div(quoteQty), Valid: true},
		decimal.NullDecimal{Decimal: quoteQty.Div(baseQty), Valid: true}
}
