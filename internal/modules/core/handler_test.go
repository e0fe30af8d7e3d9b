package core

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/chain"
)

func TestEventParser(t *testing.T) {
	factory := common.HexToAddress("0x00000000000000000000000000000000000000F0")
	exchange := common.HexToAddress("0x00000000000000000000000000000000000000A1")
	sender := common.HexToAddress("0x00000000000000000000000000000000000000E1")

	parser := NewEventParser()
	parser.AddContract(factory, &chain.FactoryABI)

	t.Run("tracks registered contracts", func(t *testing.T) {
		assert.True(t, parser.HasContract(factory))
		assert.False(t, parser.HasContract(exchange))

		parser.AddContract(exchange, &chain.ExchangeABI)
		assert.True(t, parser.HasContract(exchange))
	})

	t.Run("parses indexed topics", func(t *testing.T) {
		log := &types.Log{
			Address: factory,
			Topics: []common.Hash{
				chain.FactoryABI.Events["NewExchange"].ID,
				common.BytesToHash(sender.Bytes()),
				common.BytesToHash(exchange.Bytes()),
			},
			TxHash:      common.HexToHash("0x01"),
			BlockNumber: 42,
			Index:       7,
		}

		event, err := parser.ParseEvent(log)
		require.NoError(t, err)
		assert.Equal(t, "NewExchange", event.EventName)
		assert.Equal(t, factory, event.Address)
		assert.Equal(t, sender, event.Args["creator"])
		assert.Equal(t, exchange, event.Args["exchangeAddress"])
		assert.Equal(t, uint64(42), event.BlockNumber)
		assert.Equal(t, uint(7), event.LogIndex)
	})

	t.Run("parses non-indexed data", func(t *testing.T) {
		data, err := chain.ExchangeABI.Events["Swap"].Inputs.NonIndexed().Pack(
			big.NewInt(100), big.NewInt(0), big.NewInt(0), big.NewInt(50))
		require.NoError(t, err)

		log := &types.Log{
			Address: exchange,
			Topics: []common.Hash{
				chain.ExchangeABI.Events["Swap"].ID,
				common.BytesToHash(sender.Bytes()),
			},
			Data: data,
		}

		event, err := parser.ParseEvent(log)
		require.NoError(t, err)
		assert.Equal(t, "Swap", event.EventName)
		assert.Equal(t, sender, event.Args["sender"])
		assert.Equal(t, big.NewInt(100), event.Args["baseTokenQtyIn"])
		assert.Equal(t, big.NewInt(50), event.Args["quoteTokenQtyOut"])
	})

	t.Run("unknown topic is an unknown event", func(t *testing.T) {
		log := &types.Log{
			Address: factory,
			Topics:  []common.Hash{common.HexToHash("0xdead")},
		}

		_, err := parser.ParseEvent(log)
		var unknown ErrUnknownEvent
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("log without topics is invalid", func(t *testing.T) {
		_, err := parser.ParseEvent(&types.Log{Address: factory})
		var invalid ErrInvalidEvent
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestValidateManifest(t *testing.T) {
	valid := func() *Manifest {
		return &Manifest{
			Name:    "elasticswap",
			Version: "1.0.0",
			DataSources: []DataSource{
				{
					Kind: "ethereum/contract",
					Name: "ExchangeFactory",
					Source: DataSourceSource{
						ABI: "ExchangeFactory",
					},
					Mapping: DataSourceMapping{
						Kind: "ethereum/events",
						EventHandlers: []EventHandler{
							{Event: "NewExchange(indexed address,indexed address)", Handler: "handleNewExchange"},
						},
					},
				},
			},
		}
	}

	t.Run("accepts a complete manifest", func(t *testing.T) {
		assert.NoError(t, valid().ValidateManifest())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		m := valid()
		m.Name = ""
		assert.Error(t, m.ValidateManifest())

		m = valid()
		m.DataSources = nil
		assert.Error(t, m.ValidateManifest())

		m = valid()
		m.DataSources[0].Source.ABI = ""
		err := m.ValidateManifest()
		var invalid ErrInvalidManifest
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "dataSources[0]", invalid.Field)

		m = valid()
		m.DataSources[0].Mapping.EventHandlers = nil
		assert.Error(t, m.ValidateManifest())
	})
}
