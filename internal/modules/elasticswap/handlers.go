package elasticswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/chain"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/modules/core"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

// Replay semantics: every record is keyed by a stable id derived from the
// transaction hash, and an existing record marks the event as already
// delivered. Redelivery overwrites the record but skips the counter and
// derived-liquidity increments, so replaying a sequence leaves the aggregate
// state unchanged.

// handleNewExchange bootstraps a newly created exchange: it materializes the
// Exchange and both Token entities from live contract reads and registers the
// exchange address as an event source for everything that follows.
func handleNewExchange(ctx context.Context, m *Module, tx store.Tx, event *core.ParsedEvent, timestamp int64) error {
	creator, err := argAddress(event, "creator")
	if err != nil {
		return err
	}
	exchangeAddress, err := argAddress(event, "exchangeAddress")
	if err != nil {
		return err
	}

	key := addrKey(exchangeAddress)
	exchange, err := tx.Exchange(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		exchange = &store.Exchange{
			Address:            key,
			CreatedAtTimestamp: timestamp,
		}
	} else if err != nil {
		return err
	}

	info, err := m.reader.ExchangeInfo(ctx, exchangeAddress)
	if err != nil {
		return fmt.Errorf("failed to read exchange info: %w", err)
	}
	balances, err := m.reader.InternalBalances(ctx, exchangeAddress)
	if err != nil {
		return fmt.Errorf("failed to read internal balances: %w", err)
	}
	supply, err := m.reader.TotalSupply(ctx, exchangeAddress)
	if err != nil {
		return fmt.Errorf("failed to read total supply: %w", err)
	}

	if err := ensureToken(ctx, m, tx, info.BaseToken, info.FactoryAddress); err != nil {
		return err
	}
	if err := ensureToken(ctx, m, tx, info.QuoteToken, info.FactoryAddress); err != nil {
		return err
	}

	exchange.Creator = addrKey(creator)
	exchange.BaseToken = addrKey(info.BaseToken)
	exchange.QuoteToken = addrKey(info.QuoteToken)
	exchange.BaseTokenReserveQty = balances.BaseTokenReserveQty
	exchange.QuoteTokenReserveQty = balances.QuoteTokenReserveQty
	exchange.KLast = balances.KLast
	exchange.MinimumLiquidity = info.MinimumLiquidity
	exchange.TotalSupply = supply

	if err := tx.PutExchange(ctx, exchange); err != nil {
		return err
	}

	// Seed the derived quantities and spot prices from the live balances so
	// the exchange is fully priced before its first swap arrives.
	if _, err := refreshExchangeState(ctx, m, tx, exchangeAddress); err != nil {
		return err
	}

	if err := m.watchExchange(exchangeAddress); err != nil {
		return err
	}

	m.logger.Info().
		Str("exchange", key).
		Str("base_token", exchange.BaseToken).
		Str("quote_token", exchange.QuoteToken).
		Msg("New exchange indexed")

	return nil
}

// ensureToken creates the Token entity for an address if it does not exist
// yet and refreshes its metadata from the contract. Token creation is
// idempotent: a token shared by several exchanges is created once.
func ensureToken(ctx context.Context, m *Module, tx store.Tx, address, factory common.Address) error {
	key := addrKey(address)
	token, err := tx.Token(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		token = &store.Token{Address: key}
	} else if err != nil {
		return err
	}

	metadata, err := m.reader.TokenMetadata(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to read metadata for token %s: %w", key, err)
	}

	// The "unknown" fallback marks a failed view call; never regress
	// metadata that was already resolved.
	if metadata.Symbol != chain.UnknownMetadata || token.Symbol == "" {
		token.Symbol = metadata.Symbol
	}
	if metadata.Name != chain.UnknownMetadata || token.Name == "" {
		token.Name = metadata.Name
	}
	if metadata.Decimals != 0 || token.Decimals == 0 {
		token.Decimals = metadata.Decimals
	}
	if metadata.TotalSupply != nil {
		token.TotalSupply = metadata.TotalSupply
	}
	token.FactoryAddress = addrKey(factory)

	return tx.PutToken(ctx, token)
}

func handleSwap(ctx context.Context, m *Module, tx store.Tx, event *core.ParsedEvent, timestamp int64) error {
	sender, err := argAddress(event, "sender")
	if err != nil {
		return err
	}
	baseIn, err := argBig(event, "baseTokenQtyIn")
	if err != nil {
		return err
	}
	quoteIn, err := argBig(event, "quoteTokenQtyIn")
	if err != nil {
		return err
	}
	baseOut, err := argBig(event, "baseTokenQtyOut")
	if err != nil {
		return err
	}
	quoteOut, err := argBig(event, "quoteTokenQtyOut")
	if err != nil {
		return err
	}

	id := recordID(m, event)
	swap, err := tx.Swap(ctx, id)
	firstDelivery := errors.Is(err, store.ErrNotFound)
	if firstDelivery {
		swap = &store.Swap{ID: id}
	} else if err != nil {
		return err
	}

	if _, err := refreshExchangeState(ctx, m, tx, event.Address); err != nil {
		return err
	}

	key := addrKey(event.Address)
	if firstDelivery {
		if err := updateTransactionCounters(ctx, tx, key, timestamp, store.TxnSwap); err != nil {
			return err
		}

		// Net flow through the pool feeds the derived liquidity accumulators.
		baseDelta := decimal.NewFromBigInt(baseIn, 0).Sub(decimal.NewFromBigInt(baseOut, 0))
		quoteDelta := decimal.NewFromBigInt(quoteIn, 0).Sub(decimal.NewFromBigInt(quoteOut, 0))
		if err := accumulateDerivedLiquidity(ctx, tx, key, baseDelta, quoteDelta); err != nil {
			return err
		}
	}

	swap.Exchange = key
	swap.Sender = addrKey(sender)
	swap.BaseTokenQtyIn = baseIn
	swap.QuoteTokenQtyIn = quoteIn
	swap.BaseTokenQtyOut = baseOut
	swap.QuoteTokenQtyOut = quoteOut
	swap.CreatedAtTimestamp = timestamp

	return tx.PutSwap(ctx, swap)
}

func handleTransfer(ctx context.Context, m *Module, tx store.Tx, event *core.ParsedEvent, timestamp int64) error {
	from, err := argAddress(event, "from")
	if err != nil {
		return err
	}
	to, err := argAddress(event, "to")
	if err != nil {
		return err
	}
	value, err := argBig(event, "value")
	if err != nil {
		return err
	}

	id := recordID(m, event)
	transfer, err := tx.Transfer(ctx, id)
	firstDelivery := errors.Is(err, store.ErrNotFound)
	if firstDelivery {
		transfer = &store.Transfer{ID: id}
	} else if err != nil {
		return err
	}

	if _, err := refreshExchangeState(ctx, m, tx, event.Address); err != nil {
		return err
	}

	key := addrKey(event.Address)
	if firstDelivery {
		if err := updateTransactionCounters(ctx, tx, key, timestamp, store.TxnTransfer); err != nil {
			return err
		}
	}

	transfer.Exchange = key
	transfer.From = addrKey(from)
	transfer.To = addrKey(to)
	transfer.Value = value
	transfer.CreatedAtTimestamp = timestamp

	return tx.PutTransfer(ctx, transfer)
}

func handleAddLiquidity(ctx context.Context, m *Module, tx store.Tx, event *core.ParsedEvent, timestamp int64) error {
	return handleLiquidity(ctx, m, tx, event, timestamp, true)
}

func handleRemoveLiquidity(ctx context.Context, m *Module, tx store.Tx, event *core.ParsedEvent, timestamp int64) error {
	return handleLiquidity(ctx, m, tx, event, timestamp, false)
}

func handleLiquidity(ctx context.Context, m *Module, tx store.Tx, event *core.ParsedEvent, timestamp int64, added bool) error {
	provider, err := argAddress(event, "liquidityProvider")
	if err != nil {
		return err
	}

	baseArg, quoteArg := "baseTokenQtyAdded", "quoteTokenQtyAdded"
	kind := store.TxnAddLiquidity
	if !added {
		baseArg, quoteArg = "baseTokenQtyRemoved", "quoteTokenQtyRemoved"
		kind = store.TxnRemoveLiquidity
	}

	baseQty, err := argBig(event, baseArg)
	if err != nil {
		return err
	}
	quoteQty, err := argBig(event, quoteArg)
	if err != nil {
		return err
	}

	id := recordID(m, event)
	liquidity, err := tx.Liquidity(ctx, id)
	firstDelivery := errors.Is(err, store.ErrNotFound)
	if firstDelivery {
		liquidity = &store.Liquidity{ID: id}
	} else if err != nil {
		return err
	}

	if _, err := refreshExchangeState(ctx, m, tx, event.Address); err != nil {
		return err
	}

	key := addrKey(event.Address)
	if firstDelivery {
		if err := updateTransactionCounters(ctx, tx, key, timestamp, kind); err != nil {
			return err
		}

		baseDelta := decimal.NewFromBigInt(baseQty, 0)
		quoteDelta := decimal.NewFromBigInt(quoteQty, 0)
		if !added {
			baseDelta = baseDelta.Neg()
			quoteDelta = quoteDelta.Neg()
		}
		if err := accumulateDerivedLiquidity(ctx, tx, key, baseDelta, quoteDelta); err != nil {
			return err
		}
	}

	liquidity.Exchange = key
	liquidity.Added = added
	liquidity.BaseTokenQty = baseQty
	liquidity.QuoteTokenQty = quoteQty
	liquidity.LiquidityProvider = addrKey(provider)
	liquidity.CreatedAtTimestamp = timestamp

	return tx.PutLiquidity(ctx, liquidity)
}

func handleApproval(ctx context.Context, m *Module, tx store.Tx, event *core.ParsedEvent, timestamp int64) error {
	owner, err := argAddress(event, "owner")
	if err != nil {
		return err
	}
	spender, err := argAddress(event, "spender")
	if err != nil {
		return err
	}
	value, err := argBig(event, "value")
	if err != nil {
		return err
	}

	// Approvals move no tokens, so there is no state refresh and no counter
	// update, but the parent exchange must still exist.
	key := addrKey(event.Address)
	if _, err := tx.Exchange(ctx, key); errors.Is(err, store.ErrNotFound) {
		return ErrMissingEntity{Entity: "exchange", Key: key}
	} else if err != nil {
		return err
	}

	id := recordID(m, event)
	approval, err := tx.Approval(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		approval = &store.Approval{ID: id}
	} else if err != nil {
		return err
	}

	approval.Exchange = key
	approval.Owner = addrKey(owner)
	approval.Spender = addrKey(spender)
	approval.Value = value
	approval.CreatedAtTimestamp = timestamp

	return tx.PutApproval(ctx, approval)
}

// accumulateDerivedLiquidity applies a net deposit/withdrawal delta to the
// exchange's running derived liquidity totals.
func accumulateDerivedLiquidity(ctx context.Context, tx store.Tx, exchangeKey string, baseDelta, quoteDelta decimal.Decimal) error {
	exchange, err := tx.Exchange(ctx, exchangeKey)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMissingEntity{Entity: "exchange", Key: exchangeKey}
	}
	if err != nil {
		return err
	}

	exchange.DerivedBaseTokenLiquidity = exchange.DerivedBaseTokenLiquidity.Add(baseDelta)
	exchange.DerivedQuoteTokenLiquidity = exchange.DerivedQuoteTokenLiquidity.Add(quoteDelta)

	return tx.PutExchange(ctx, exchange)
}

// recordID derives the entity key for an event record. By default records are
// keyed by transaction hash, which collapses multiple same-kind events in one
// transaction into a single record.
func recordID(m *Module, event *core.ParsedEvent) string {
	hash := event.TransactionHash.Hex()
	if m.config.RecordKeyByLogIndex {
		return fmt.Sprintf("%s-%d", hash, event.LogIndex)
	}
	return hash
}

func argAddress(event *core.ParsedEvent, name string) (common.Address, error) {
	value, ok := event.Args[name].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s event is missing address argument %q", event.EventName, name)
	}
	return value, nil
}

func argBig(event *core.ParsedEvent, name string) (*big.Int, error) {
	value, ok := event.Args[name].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s event is missing uint256 argument %q", event.EventName, name)
	}
	return value, nil
}
