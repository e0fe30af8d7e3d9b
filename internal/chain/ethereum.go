package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// Client implements Reader against an Ethereum JSON-RPC endpoint.
type Client struct {
	rpc    *ethclient.Client
	logger zerolog.Logger
}

func NewClient(rpc *ethclient.Client, logger zerolog.Logger) *Client {
	return &Client{
		rpc:    rpc,
		logger: logger.With().Str("component", "chain").Logger(),
	}
}

func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error) {
	header, err := c.rpc.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch header for block %d: %w", blockNumber, err)
	}
	return int64(header.Time), nil
}

func (c *Client) TokenMetadata(ctx context.Context, token common.Address) (TokenMetadata, error) {
	metadata := TokenMetadata{
		Name:   UnknownMetadata,
		Symbol: UnknownMetadata,
	}

	contract := bind.NewBoundContract(token, ERC20ABI, c.rpc, c.rpc, c.rpc)
	opts := &bind.CallOpts{Context: ctx}

	results := make([]interface{}, 1)
	results[0] = new(string)
	if err := contract.Call(opts, &results, "name"); err != nil {
		c.logger.Debug().Err(err).Str("token", token.Hex()).Msg("Failed to fetch token name")
	} else if name, ok := results[0].(*string); ok && name != nil && *name != "" {
		metadata.Name = *name
	}

	results = make([]interface{}, 1)
	results[0] = new(string)
	if err := contract.Call(opts, &results, "symbol"); err != nil {
		c.logger.Debug().Err(err).Str("token", token.Hex()).Msg("Failed to fetch token symbol")
	} else if symbol, ok := results[0].(*string); ok && symbol != nil && *symbol != "" {
		metadata.Symbol = *symbol
	}

	results = make([]interface{}, 1)
	results[0] = new(uint8)
	if err := contract.Call(opts, &results, "decimals"); err != nil {
		c.logger.Debug().Err(err).Str("token", token.Hex()).Msg("Failed to fetch token decimals")
	} else if decimals, ok := results[0].(*uint8); ok && decimals != nil {
		metadata.Decimals = int32(*decimals)
	}

	results = make([]interface{}, 1)
	results[0] = new(*big.Int)
	if err := contract.Call(opts, &results, "totalSupply"); err != nil {
		c.logger.Debug().Err(err).Str("token", token.Hex()).Msg("Failed to fetch token totalSupply")
	} else if totalSupply, ok := results[0].(**big.Int); ok && totalSupply != nil && *totalSupply != nil {
		metadata.TotalSupply = *totalSupply
	}

	return metadata, nil
}

func (c *Client) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	contract := bind.NewBoundContract(token, ERC20ABI, c.rpc, c.rpc, c.rpc)

	results := make([]interface{}, 1)
	results[0] = new(*big.Int)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &results, "balanceOf", holder); err != nil {
		return nil, fmt.Errorf("failed to call balanceOf on %s: %w", token.Hex(), err)
	}
	balance, ok := results[0].(**big.Int)
	if !ok || balance == nil || *balance == nil {
		return nil, fmt.Errorf("unexpected balanceOf result from %s", token.Hex())
	}
	return *balance, nil
}

func (c *Client) TotalSupply(ctx context.Context, addr common.Address) (*big.Int, error) {
	contract := bind.NewBoundContract(addr, ExchangeABI, c.rpc, c.rpc, c.rpc)

	results := make([]interface{}, 1)
	results[0] = new(*big.Int)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &results, "totalSupply"); err != nil {
		return nil, fmt.Errorf("failed to call totalSupply on %s: %w", addr.Hex(), err)
	}
	supply, ok := results[0].(**big.Int)
	if !ok || supply == nil || *supply == nil {
		return nil, fmt.Errorf("unexpected totalSupply result from %s", addr.Hex())
	}
	return *supply, nil
}

func (c *Client) InternalBalances(ctx context.Context, exchange common.Address) (InternalBalances, error) {
	contract := bind.NewBoundContract(exchange, ExchangeABI, c.rpc, c.rpc, c.rpc)

	results := make([]interface{}, 3)
	results[0] = new(*big.Int)
	results[1] = new(*big.Int)
	results[2] = new(*big.Int)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &results, "internalBalances"); err != nil {
		return InternalBalances{}, fmt.Errorf("failed to call internalBalances on %s: %w", exchange.Hex(), err)
	}

	balances := InternalBalances{}
	if v, ok := results[0].(**big.Int); ok && v != nil {
		balances.BaseTokenReserveQty = *v
	}
	if v, ok := results[1].(**big.Int); ok && v != nil {
		balances.QuoteTokenReserveQty = *v
	}
	if v, ok := results[2].(**big.Int); ok && v != nil {
		balances.KLast = *v
	}
	return balances, nil
}

func (c *Client) ExchangeInfo(ctx context.Context, exchange common.Address) (ExchangeInfo, error) {
	contract := bind.NewBoundContract(exchange, ExchangeABI, c.rpc, c.rpc, c.rpc)
	opts := &bind.CallOpts{Context: ctx}

	info := ExchangeInfo{}

	results := make([]interface{}, 1)
	results[0] = new(common.Address)
	if err := contract.Call(opts, &results, "baseToken"); err != nil {
		return info, fmt.Errorf("failed to call baseToken on %s: %w", exchange.Hex(), err)
	}
	if addr, ok := results[0].(*common.Address); ok && addr != nil {
		info.BaseToken = *addr
	}

	results = make([]interface{}, 1)
	results[0] = new(common.Address)
	if err := contract.Call(opts, &results, "quoteToken"); err != nil {
		return info, fmt.Errorf("failed to call quoteToken on %s: %w", exchange.Hex(), err)
	}
	if addr, ok := results[0].(*common.Address); ok && addr != nil {
		info.QuoteToken = *addr
	}

	results = make([]interface{}, 1)
	results[0] = new(common.Address)
	if err := contract.Call(opts, &results, "exchangeFactoryAddress"); err != nil {
		c.logger.Debug().Err(err).Str("exchange", exchange.Hex()).Msg("Failed to fetch factory address")
	} else if addr, ok := results[0].(*common.Address); ok && addr != nil {
		info.FactoryAddress = *addr
	}

	results = make([]interface{}, 1)
	results[0] = new(*big.Int)
	if err := contract.Call(opts, &results, "MINIMUM_LIQUIDITY"); err != nil {
		c.logger.Debug().Err(err).Str("exchange", exchange.Hex()).Msg("Failed to fetch minimum liquidity")
	} else if v, ok := results[0].(**big.Int); ok && v != nil && *v != nil {
		info.MinimumLiquidity = *v
	}

	return info, nil
}
