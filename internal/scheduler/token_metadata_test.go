package scheduler

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/chain"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

// metadataReader is a chain.Reader that only serves token metadata.
type metadataReader struct {
	metadata map[common.Address]chain.TokenMetadata
}

func (r *metadataReader) TokenMetadata(ctx context.Context, token common.Address) (chain.TokenMetadata, error) {
	if md, ok := r.metadata[token]; ok {
		return md, nil
	}
	return chain.TokenMetadata{Name: chain.UnknownMetadata, Symbol: chain.UnknownMetadata}, nil
}

func (r *metadataReader) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (r *metadataReader) TotalSupply(ctx context.Context, contract common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (r *metadataReader) InternalBalances(ctx context.Context, exchange common.Address) (chain.InternalBalances, error) {
	return chain.InternalBalances{}, nil
}

func (r *metadataReader) ExchangeInfo(ctx context.Context, exchange common.Address) (chain.ExchangeInfo, error) {
	return chain.ExchangeInfo{}, nil
}

func (r *metadataReader) BlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error) {
	return int64(blockNumber), nil
}

func newMetadataScheduler(t *testing.T, st store.Store, reader chain.Reader) *TokenMetadataScheduler {
	t.Helper()
	s, err := NewTokenMetadataScheduler(st, reader, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func putToken(t *testing.T, st store.Store, token *store.Token) {
	t.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutToken(ctx, token))
	require.NoError(t, tx.Commit(ctx))
}

func getToken(t *testing.T, st store.Store, address string) *store.Token {
	t.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	token, err := tx.Token(ctx, address)
	require.NoError(t, err)
	return token
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()
	address := common.HexToAddress("0x00000000000000000000000000000000000000B1")
	key := "0x00000000000000000000000000000000000000b1"

	t.Run("updates metadata from the contract", func(t *testing.T) {
		st := store.NewMemoryStore()
		putToken(t, st, &store.Token{Address: key, Symbol: chain.UnknownMetadata, Name: chain.UnknownMetadata})

		reader := &metadataReader{metadata: map[common.Address]chain.TokenMetadata{
			address: {Name: "Base Token", Symbol: "BASE", Decimals: 18, TotalSupply: big.NewInt(1000)},
		}}

		s := newMetadataScheduler(t, st, reader)
		require.NoError(t, s.refreshToken(ctx, key))

		token := getToken(t, st, key)
		assert.Equal(t, "BASE", token.Symbol)
		assert.Equal(t, "Base Token", token.Name)
		assert.Equal(t, int32(18), token.Decimals)
		assert.Equal(t, big.NewInt(1000), token.TotalSupply)
	})

	t.Run("failed reads do not regress resolved metadata", func(t *testing.T) {
		st := store.NewMemoryStore()
		putToken(t, st, &store.Token{
			Address:     key,
			Symbol:      "BASE",
			Name:        "Base Token",
			Decimals:    18,
			TotalSupply: big.NewInt(1000),
		})

		// No metadata for the token: every view call fails and the reader
		// answers with the fallback values.
		s := newMetadataScheduler(t, st, &metadataReader{})
		require.NoError(t, s.refreshToken(ctx, key))

		token := getToken(t, st, key)
		assert.Equal(t, "BASE", token.Symbol)
		assert.Equal(t, "Base Token", token.Name)
		assert.Equal(t, int32(18), token.Decimals)
		assert.Equal(t, big.NewInt(1000), token.TotalSupply)
	})

	t.Run("fallback fills never-resolved metadata", func(t *testing.T) {
		st := store.NewMemoryStore()
		putToken(t, st, &store.Token{Address: key})

		s := newMetadataScheduler(t, st, &metadataReader{})
		require.NoError(t, s.refreshToken(ctx, key))

		token := getToken(t, st, key)
		assert.Equal(t, chain.UnknownMetadata, token.Symbol)
		assert.Equal(t, chain.UnknownMetadata, token.Name)
	})
}
