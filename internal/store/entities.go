package store

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TxnKind tags a counted transaction for the bucket counters.
type TxnKind int

const (
	TxnSwap TxnKind = iota
	TxnAddLiquidity
	TxnRemoveLiquidity
	TxnTransfer
)

func (k TxnKind) String() string {
	switch k {
	case TxnSwap:
		return "swap"
	case TxnAddLiquidity:
		return "add_liquidity"
	case TxnRemoveLiquidity:
		return "remove_liquidity"
	case TxnTransfer:
		return "transfer"
	}
	return "unknown"
}

// Exchange is the aggregate record for one exchange contract, keyed by its
// lowercase address. Reserve quantities come from the contract's internal
// accounting; BaseTokenQty/QuoteTokenQty are live ERC-20 balances held by the
// exchange and feed the spot prices.
type Exchange struct {
	Address    string
	Creator    string
	BaseToken  string
	QuoteToken string

	BaseTokenReserveQty  *big.Int
	QuoteTokenReserveQty *big.Int
	KLast                *big.Int
	MinimumLiquidity     *big.Int
	TotalSupply          *big.Int

	BaseTokenQty  decimal.Decimal
	QuoteTokenQty decimal.Decimal

	// BasePrice/QuotePrice are invalid (NULL) when either reserve side is zero.
	BasePrice  decimal.NullDecimal
	QuotePrice decimal.NullDecimal

	DerivedBaseTokenLiquidity  decimal.Decimal
	DerivedQuoteTokenLiquidity decimal.Decimal

	// Denormalized copies of the latest bucket totals.
	DailyTxns  uint64
	HourlyTxns uint64

	CreatedAtTimestamp int64
}

// Token is an ERC-20 record keyed by the lowercase token address. Created once,
// then only touched by metadata backfills.
type Token struct {
	Address        string
	Symbol         string
	Name           string
	TotalSupply    *big.Int
	Decimals       int32
	FactoryAddress string
}

// ExchangeDayData aggregates transaction counts for one exchange over one UTC
// day. ID is "{exchangeAddress}-{dayIndex}".
type ExchangeDayData struct {
	ID         string
	Date       int64
	Exchange   string
	BaseToken  string
	QuoteToken string

	TotalTxns           uint64
	SwapTxns            uint64
	AddLiquidityTxns    uint64
	RemoveLiquidityTxns uint64
	TransferTxns        uint64

	CreatedAtTimestamp int64
}

// ExchangeHourData is the hourly analogue of ExchangeDayData.
// ID is "{exchangeAddress}-{hourIndex}".
type ExchangeHourData struct {
	ID         string
	StartTime  int64
	Exchange   string
	BaseToken  string
	QuoteToken string

	TotalTxns           uint64
	SwapTxns            uint64
	AddLiquidityTxns    uint64
	RemoveLiquidityTxns uint64
	TransferTxns        uint64

	CreatedAtTimestamp int64
}

// Swap is one swap event record.
type Swap struct {
	ID                 string
	Exchange           string
	Sender             string
	BaseTokenQtyIn     *big.Int
	QuoteTokenQtyIn    *big.Int
	BaseTokenQtyOut    *big.Int
	QuoteTokenQtyOut   *big.Int
	CreatedAtTimestamp int64
}

// Transfer is one LP-token transfer event record.
type Transfer struct {
	ID                 string
	Exchange           string
	From               string
	To                 string
	Value              *big.Int
	CreatedAtTimestamp int64
}

// Liquidity is one add/remove liquidity event record; Added distinguishes the
// direction.
type Liquidity struct {
	ID                 string
	Exchange           string
	Added              bool
	BaseTokenQty       *big.Int
	QuoteTokenQty      *big.Int
	LiquidityProvider  string
	CreatedAtTimestamp int64
}

// Approval is one LP-token approval event record.
type Approval struct {
	ID                 string
	Exchange           string
	Owner              string
	Spender            string
	Value              *big.Int
	CreatedAtTimestamp int64
}

// ModuleState tracks per-module processing progress; the processor checkpoints
// through it and replay resumes from LastProcessedBlock.
type ModuleState struct {
	ModuleName         string
	Version            string
	LastProcessedBlock uint64
	Status             string
}

const (
	StatusActive = "active"
	StatusError  = "error"
)

func copyBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// Clone helpers keep the in-memory store's records isolated from handler
// mutations between commits.

func (e *Exchange) Clone() *Exchange {
	c := *e
	c.BaseTokenReserveQty = copyBig(e.BaseTokenReserveQty)
	c.QuoteTokenReserveQty = copyBig(e.QuoteTokenReserveQty)
	c.KLast = copyBig(e.KLast)
	c.MinimumLiquidity = copyBig(e.MinimumLiquidity)
	c.TotalSupply = copyBig(e.TotalSupply)
	return &c
}

func (t *Token) Clone() *Token {
	c := *t
	c.TotalSupply = copyBig(t.TotalSupply)
	return &c
}

func (d *ExchangeDayData) Clone() *ExchangeDayData {
	c := *d
	return &c
}

func (h *ExchangeHourData) Clone() *ExchangeHourData {
	c := *h
	return &c
}

func (s *Swap) Clone() *Swap {
	c := *s
	c.BaseTokenQtyIn = copyBig(s.BaseTokenQtyIn)
	c.QuoteTokenQtyIn = copyBig(s.QuoteTokenQtyIn)
	c.BaseTokenQtyOut = copyBig(s.BaseTokenQtyOut)
	c.QuoteTokenQtyOut = copyBig(s.QuoteTokenQtyOut)
	return &c
}

func (t *Transfer) Clone() *Transfer {
	c := *t
	c.Value = copyBig(t.Value)
	return &c
}

func (l *Liquidity) Clone() *Liquidity {
	c := *l
	c.BaseTokenQty = copyBig(l.BaseTokenQty)
	c.QuoteTokenQty = copyBig(l.QuoteTokenQty)
	return &c
}

func (a *Approval) Clone() *Approval {
	c := *a
	c.Value = copyBig(a.Value)
	return &c
}
