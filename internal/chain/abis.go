package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for the contracts the indexer touches. Only the
// events and view functions the handlers use are declared.

const factoryABIJSON = `[
	{"anonymous":false,"inputs":[{"indexed":true,"name":"creator","type":"address"},{"indexed":true,"name":"exchangeAddress","type":"address"}],"name":"NewExchange","type":"event"}
]`

const exchangeABIJSON = `[
	{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"baseTokenQtyIn","type":"uint256"},{"indexed":false,"name":"quoteTokenQtyIn","type":"uint256"},{"indexed":false,"name":"baseTokenQtyOut","type":"uint256"},{"indexed":false,"name":"quoteTokenQtyOut","type":"uint256"}],"name":"Swap","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"liquidityProvider","type":"address"},{"indexed":false,"name":"baseTokenQtyAdded","type":"uint256"},{"indexed":false,"name":"quoteTokenQtyAdded","type":"uint256"}],"name":"AddLiquidity","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"liquidityProvider","type":"address"},{"indexed":false,"name":"baseTokenQtyRemoved","type":"uint256"},{"indexed":false,"name":"quoteTokenQtyRemoved","type":"uint256"}],"name":"RemoveLiquidity","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"owner","type":"address"},{"indexed":true,"name":"spender","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Approval","type":"event"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"baseToken","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"quoteToken","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"exchangeFactoryAddress","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"MINIMUM_LIQUIDITY","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"internalBalances","outputs":[{"name":"baseTokenReserveQty","type":"uint256"},{"name":"quoteTokenReserveQty","type":"uint256"},{"name":"kLast","type":"uint256"}],"type":"function"}
]`

const erc20ABIJSON = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

var (
	FactoryABI  = mustParseABI("factory", factoryABIJSON)
	ExchangeABI = mustParseABI("exchange", exchangeABIJSON)
	ERC20ABI    = mustParseABI("erc20", erc20ABIJSON)
)

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse %s ABI: %v", name, err))
	}
	return parsed
}
