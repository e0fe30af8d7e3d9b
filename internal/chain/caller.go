package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UnknownMetadata is the name/symbol fallback when a metadata view call
// fails. Consumers that already hold a real value must not overwrite it with
// this fallback.
const UnknownMetadata = "unknown"

// TokenMetadata is the best-effort ERC-20 metadata read from a token
// contract. Name and Symbol fall back to UnknownMetadata when the contract
// does not implement the corresponding view.
type TokenMetadata struct {
	Name        string
	Symbol      string
	Decimals    int32
	TotalSupply *big.Int
}

// InternalBalances mirrors the exchange contract's internalBalances view.
type InternalBalances struct {
	BaseTokenReserveQty  *big.Int
	QuoteTokenReserveQty *big.Int
	KLast                *big.Int
}

// ExchangeInfo is the static configuration of an exchange contract, read
// once when the exchange is first seen.
type ExchangeInfo struct {
	BaseToken        common.Address
	QuoteToken       common.Address
	FactoryAddress   common.Address
	MinimumLiquidity *big.Int
}

// Reader is the read-only contract surface the event handlers need. The
// production implementation calls an Ethereum JSON-RPC node; tests provide
// an in-memory fake.
type Reader interface {
	// TokenMetadata never fails outright: individual view calls that revert
	// leave the corresponding field at its zero value.
	TokenMetadata(ctx context.Context, token common.Address) (TokenMetadata, error)

	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)

	// TotalSupply reads the LP token supply of an exchange contract.
	TotalSupply(ctx context.Context, contract common.Address) (*big.Int, error)

	InternalBalances(ctx context.Context, exchange common.Address) (InternalBalances, error)

	ExchangeInfo(ctx context.Context, exchange common.Address) (ExchangeInfo, error)

	// BlockTimestamp returns the timestamp of the block, in seconds.
	BlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error)
}
