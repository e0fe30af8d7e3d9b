package elasticswap

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/chain"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/modules/core"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

var (
	testFactory  = common.HexToAddress("0x00000000000000000000000000000000000000F0")
	testExchange = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	testBase     = common.HexToAddress("0x00000000000000000000000000000000000000B1")
	testQuote    = common.HexToAddress("0x00000000000000000000000000000000000000C1")
	testCreator  = common.HexToAddress("0x00000000000000000000000000000000000000D1")
	testSender   = common.HexToAddress("0x00000000000000000000000000000000000000E1")
)

// fakeReader is an in-memory chain.Reader. Missing balances and supplies
// read as zero; block timestamps default to the block number.
type fakeReader struct {
	supplies  map[common.Address]*big.Int
	balances  map[common.Address]map[common.Address]*big.Int // token -> holder -> balance
	internals map[common.Address]chain.InternalBalances
	infos     map[common.Address]chain.ExchangeInfo
	metadata  map[common.Address]chain.TokenMetadata
	times     map[uint64]int64
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		supplies:  make(map[common.Address]*big.Int),
		balances:  make(map[common.Address]map[common.Address]*big.Int),
		internals: make(map[common.Address]chain.InternalBalances),
		infos:     make(map[common.Address]chain.ExchangeInfo),
		metadata:  make(map[common.Address]chain.TokenMetadata),
		times:     make(map[uint64]int64),
	}
}

func (r *fakeReader) setBalance(token, holder common.Address, amount int64) {
	if r.balances[token] == nil {
		r.balances[token] = make(map[common.Address]*big.Int)
	}
	r.balances[token][holder] = big.NewInt(amount)
}

func (r *fakeReader) TokenMetadata(ctx context.Context, token common.Address) (chain.TokenMetadata, error) {
	if md, ok := r.metadata[token]; ok {
		return md, nil
	}
	return chain.TokenMetadata{Name: chain.UnknownMetadata, Symbol: chain.UnknownMetadata}, nil
}

func (r *fakeReader) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	if holders, ok := r.balances[token]; ok {
		if balance, ok := holders[holder]; ok {
			return new(big.Int).Set(balance), nil
		}
	}
	return big.NewInt(0), nil
}

func (r *fakeReader) TotalSupply(ctx context.Context, addr common.Address) (*big.Int, error) {
	if supply, ok := r.supplies[addr]; ok {
		return new(big.Int).Set(supply), nil
	}
	return big.NewInt(0), nil
}

func (r *fakeReader) InternalBalances(ctx context.Context, exchange common.Address) (chain.InternalBalances, error) {
	if balances, ok := r.internals[exchange]; ok {
		return balances, nil
	}
	return chain.InternalBalances{
		BaseTokenReserveQty:  big.NewInt(0),
		QuoteTokenReserveQty: big.NewInt(0),
		KLast:                big.NewInt(0),
	}, nil
}

func (r *fakeReader) ExchangeInfo(ctx context.Context, exchange common.Address) (chain.ExchangeInfo, error) {
	info, ok := r.infos[exchange]
	if !ok {
		return chain.ExchangeInfo{}, fmt.Errorf("no exchange deployed at %s", exchange.Hex())
	}
	return info, nil
}

func (r *fakeReader) BlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error) {
	if ts, ok := r.times[blockNumber]; ok {
		return ts, nil
	}
	return int64(blockNumber), nil
}

type fakeRegistrar struct {
	sources []common.Address
}

func (f *fakeRegistrar) RegisterSource(moduleName string, address common.Address) error {
	f.sources = append(f.sources, address)
	return nil
}

func newTestModule(st store.Store, reader *fakeReader) (*Module, *fakeRegistrar) {
	startBlock := uint64(0)
	manifest := &core.Manifest{
		Name:    "elasticswap",
		Version: "1.0.0",
		DataSources: []core.DataSource{
			{
				Kind:    "ethereum/contract",
				Name:    "ExchangeFactory",
				Network: "avalanche",
				Source: core.DataSourceSource{
					ABI:        "ExchangeFactory",
					StartBlock: &startBlock,
				},
				Mapping: core.DataSourceMapping{
					Kind: "ethereum/events",
					EventHandlers: []core.EventHandler{
						{Event: "NewExchange(indexed address,indexed address)", Handler: "handleNewExchange"},
					},
				},
			},
		},
	}

	registrar := &fakeRegistrar{}
	m := &Module{
		store:          st,
		manifest:       manifest,
		logger:         zerolog.Nop(),
		parser:         core.NewEventParser(),
		reader:         reader,
		factoryAddress: testFactory,
		registrar:      registrar,
		config:         &Config{FactoryAddress: addrKey(testFactory)},
		handlers:       make(map[common.Hash]EventHandler),
	}
	m.parser.AddContract(testFactory, &chain.FactoryABI)
	m.registerEventHandlers()

	return m, registrar
}

// seedExchange configures the fake reader with a deployed exchange holding
// the given base/quote balances.
func seedExchange(reader *fakeReader, baseQty, quoteQty int64) {
	reader.infos[testExchange] = chain.ExchangeInfo{
		BaseToken:        testBase,
		QuoteToken:       testQuote,
		FactoryAddress:   testFactory,
		MinimumLiquidity: big.NewInt(1000),
	}
	reader.internals[testExchange] = chain.InternalBalances{
		BaseTokenReserveQty:  big.NewInt(baseQty),
		QuoteTokenReserveQty: big.NewInt(quoteQty),
		KLast:                big.NewInt(baseQty * quoteQty),
	}
	reader.supplies[testExchange] = big.NewInt(5000)
	reader.setBalance(testBase, testExchange, baseQty)
	reader.setBalance(testQuote, testExchange, quoteQty)
	reader.metadata[testBase] = chain.TokenMetadata{
		Name: "Base Token", Symbol: "BASE", Decimals: 18, TotalSupply: big.NewInt(1_000_000),
	}
	reader.metadata[testQuote] = chain.TokenMetadata{
		Name: "Quote Token", Symbol: "QUOTE", Decimals: 6, TotalSupply: big.NewInt(2_000_000),
	}
}

func newExchangeLog(txHash string, block uint64) types.Log {
	return types.Log{
		Address: testFactory,
		Topics: []common.Hash{
			chain.FactoryABI.Events["NewExchange"].ID,
			common.BytesToHash(testCreator.Bytes()),
			common.BytesToHash(testExchange.Bytes()),
		},
		TxHash:      common.HexToHash(txHash),
		BlockNumber: block,
	}
}

func swapLog(t *testing.T, txHash string, block uint64, baseIn, quoteIn, baseOut, quoteOut int64) types.Log {
	t.Helper()
	data, err := chain.ExchangeABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(baseIn), big.NewInt(quoteIn), big.NewInt(baseOut), big.NewInt(quoteOut))
	require.NoError(t, err)

	return types.Log{
		Address: testExchange,
		Topics: []common.Hash{
			chain.ExchangeABI.Events["Swap"].ID,
			common.BytesToHash(testSender.Bytes()),
		},
		Data:        data,
		TxHash:      common.HexToHash(txHash),
		BlockNumber: block,
	}
}

func liquidityLog(t *testing.T, txHash string, block uint64, added bool, baseQty, quoteQty int64) types.Log {
	t.Helper()
	name := "AddLiquidity"
	if !added {
		name = "RemoveLiquidity"
	}
	data, err := chain.ExchangeABI.Events[name].Inputs.NonIndexed().Pack(
		big.NewInt(baseQty), big.NewInt(quoteQty))
	require.NoError(t, err)

	return types.Log{
		Address: testExchange,
		Topics: []common.Hash{
			chain.ExchangeABI.Events[name].ID,
			common.BytesToHash(testSender.Bytes()),
		},
		Data:        data,
		TxHash:      common.HexToHash(txHash),
		BlockNumber: block,
	}
}

func transferLog(t *testing.T, txHash string, block uint64, from, to common.Address, value int64) types.Log {
	t.Helper()
	data, err := chain.ExchangeABI.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(value))
	require.NoError(t, err)

	return types.Log{
		Address: testExchange,
		Topics: []common.Hash{
			chain.ExchangeABI.Events["Transfer"].ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        data,
		TxHash:      common.HexToHash(txHash),
		BlockNumber: block,
	}
}

func approvalLog(t *testing.T, txHash string, block uint64, owner, spender common.Address, value int64) types.Log {
	t.Helper()
	data, err := chain.ExchangeABI.Events["Approval"].Inputs.NonIndexed().Pack(big.NewInt(value))
	require.NoError(t, err)

	return types.Log{
		Address: testExchange,
		Topics: []common.Hash{
			chain.ExchangeABI.Events["Approval"].ID,
			common.BytesToHash(owner.Bytes()),
			common.BytesToHash(spender.Bytes()),
		},
		Data:        data,
		TxHash:      common.HexToHash(txHash),
		BlockNumber: block,
	}
}

// loadExchange reads the committed exchange entity outside any handler.
func loadExchange(t *testing.T, st store.Store) *store.Exchange {
	t.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	exchange, err := tx.Exchange(ctx, addrKey(testExchange))
	require.NoError(t, err)
	return exchange
}
