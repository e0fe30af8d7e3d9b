package elasticswap

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/modules/core"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

// within fails the test when fn does not return in time. Source registration
// re-enters the registry from inside event dispatch, so a locking mistake
// shows up as a hang rather than an error.
func within(t *testing.T, d time.Duration, name string, fn func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatalf("%s did not finish within %s", name, d)
		return nil
	}
}

func TestSourceRegistrationThroughRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("factory event registers the exchange during dispatch", func(t *testing.T) {
		st := store.NewMemoryStore()
		reader := newFakeReader()
		seedExchange(reader, 1000, 2000)
		m, _ := newTestModule(st, reader)

		registry := core.NewModuleRegistry(st, zerolog.Nop())
		m.SetSourceRegistrar(registry)
		require.NoError(t, registry.RegisterModule(m))
		require.NoError(t, registry.Start())

		factoryEvent := newExchangeLog("0x01", 100)
		require.NoError(t, within(t, 3*time.Second, "factory event dispatch", func() error {
			return registry.ProcessEvent(ctx, &factoryEvent)
		}))

		exchange := loadExchange(t, st)
		assert.Equal(t, addrKey(testCreator), exchange.Creator)

		// The exchange announced by the factory must now be a live source:
		// its swap goes through the registry end to end.
		swapEvent := swapLog(t, "0x02", 101, 100, 0, 0, 50)
		require.NoError(t, within(t, 3*time.Second, "swap dispatch", func() error {
			return registry.ProcessEvent(ctx, &swapEvent)
		}))

		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)
		swap, err := tx.Swap(ctx, "0x0000000000000000000000000000000000000000000000000000000000000002")
		require.NoError(t, err)
		assert.Equal(t, addrKey(testExchange), swap.Exchange)
	})

	t.Run("restart re-registers persisted exchanges", func(t *testing.T) {
		st := store.NewMemoryStore()
		reader := newFakeReader()
		seedExchange(reader, 1000, 2000)

		// A previous run already indexed the exchange.
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.PutExchange(ctx, &store.Exchange{
			Address:    addrKey(testExchange),
			BaseToken:  addrKey(testBase),
			QuoteToken: addrKey(testQuote),
		}))
		require.NoError(t, tx.Commit(ctx))

		m, _ := newTestModule(st, reader)
		registry := core.NewModuleRegistry(st, zerolog.Nop())
		m.SetSourceRegistrar(registry)

		// Initialize runs inside RegisterModule and re-announces the stored
		// exchange through RegisterSource.
		require.NoError(t, within(t, 3*time.Second, "module registration", func() error {
			return registry.RegisterModule(m)
		}))
		require.NoError(t, registry.Start())

		swapEvent := swapLog(t, "0x03", 102, 100, 0, 0, 50)
		require.NoError(t, within(t, 3*time.Second, "swap dispatch", func() error {
			return registry.ProcessEvent(ctx, &swapEvent)
		}))

		tx, err = st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)
		swap, err := tx.Swap(ctx, "0x0000000000000000000000000000000000000000000000000000000000000003")
		require.NoError(t, err)
		assert.Equal(t, addrKey(testExchange), swap.Exchange)
	})
}
