package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every load when no record exists under the key.
// Callers must branch on it explicitly; there is no nil-record success path.
var ErrNotFound = errors.New("not found")

// Store is the persistent entity store. All entity reads and writes for one
// event happen inside a single Tx so the denormalized counters on the bucket
// and exchange records commit together.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	// Module checkpoint state lives outside the per-event unit of work: the
	// processor advances it after a block batch commits.
	ModuleState(ctx context.Context, name string) (*ModuleState, error)
	PutModuleState(ctx context.Context, state *ModuleState) error

	// ExchangeAddresses lists every known exchange so dynamic event sources
	// can be re-registered after a restart.
	ExchangeAddresses(ctx context.Context) ([]string, error)

	// TokenAddresses lists every known token, used by the metadata backfill.
	TokenAddresses(ctx context.Context) ([]string, error)

	Close()
}

// Tx is the per-event unit of work. Loads observe writes staged earlier in the
// same Tx; nothing is visible to other readers until Commit.
type Tx interface {
	Exchange(ctx context.Context, address string) (*Exchange, error)
	PutExchange(ctx context.Context, e *Exchange) error

	Token(ctx context.Context, address string) (*Token, error)
	PutToken(ctx context.Context, t *Token) error

	ExchangeDayData(ctx context.Context, id string) (*ExchangeDayData, error)
	PutExchangeDayData(ctx context.Context, d *ExchangeDayData) error

	ExchangeHourData(ctx context.Context, id string) (*ExchangeHourData, error)
	PutExchangeHourData(ctx context.Context, h *ExchangeHourData) error

	Swap(ctx context.Context, id string) (*Swap, error)
	PutSwap(ctx context.Context, s *Swap) error

	Transfer(ctx context.Context, id string) (*Transfer, error)
	PutTransfer(ctx context.Context, t *Transfer) error

	Liquidity(ctx context.Context, id string) (*Liquidity, error)
	PutLiquidity(ctx context.Context, l *Liquidity) error

	Approval(ctx context.Context, id string) (*Approval, error)
	PutApproval(ctx context.Context, a *Approval) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
