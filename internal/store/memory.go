package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by tests and dry runs. Tx writes are
// staged in an overlay and merged on Commit, mirroring the read-your-writes
// behaviour of the Postgres transaction.
type MemoryStore struct {
	mu sync.Mutex

	exchanges map[string]*Exchange
	tokens    map[string]*Token
	dayData   map[string]*ExchangeDayData
	hourData  map[string]*ExchangeHourData
	swaps     map[string]*Swap
	transfers map[string]*Transfer
	liquidity map[string]*Liquidity
	approvals map[string]*Approval

	moduleState map[string]*ModuleState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exchanges:   make(map[string]*Exchange),
		tokens:      make(map[string]*Token),
		dayData:     make(map[string]*ExchangeDayData),
		hourData:    make(map[string]*ExchangeHourData),
		swaps:       make(map[string]*Swap),
		transfers:   make(map[string]*Transfer),
		liquidity:   make(map[string]*Liquidity),
		approvals:   make(map[string]*Approval),
		moduleState: make(map[string]*ModuleState),
	}
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	return &memoryTx{
		store:     s,
		exchanges: make(map[string]*Exchange),
		tokens:    make(map[string]*Token),
		dayData:   make(map[string]*ExchangeDayData),
		hourData:  make(map[string]*ExchangeHourData),
		swaps:     make(map[string]*Swap),
		transfers: make(map[string]*Transfer),
		liquidity: make(map[string]*Liquidity),
		approvals: make(map[string]*Approval),
	}, nil
}

func (s *MemoryStore) ModuleState(ctx context.Context, name string) (*ModuleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.moduleState[name]
	if !ok {
		return nil, ErrNotFound
	}
	c := *state
	return &c, nil
}

func (s *MemoryStore) PutModuleState(ctx context.Context, state *ModuleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *state
	s.moduleState[state.ModuleName] = &c
	return nil
}

func (s *MemoryStore) ExchangeAddresses(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addresses := make([]string, 0, len(s.exchanges))
	for addr := range s.exchanges {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	return addresses, nil
}

func (s *MemoryStore) TokenAddresses(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addresses := make([]string, 0, len(s.tokens))
	for addr := range s.tokens {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	return addresses, nil
}

func (s *MemoryStore) Close() {}

// memoryTx stages puts in overlay maps; loads consult the overlay before the
// committed maps so a handler sees its own earlier writes.
type memoryTx struct {
	store *MemoryStore
	done  bool

	exchanges map[string]*Exchange
	tokens    map[string]*Token
	dayData   map[string]*ExchangeDayData
	hourData  map[string]*ExchangeHourData
	swaps     map[string]*Swap
	transfers map[string]*Transfer
	liquidity map[string]*Liquidity
	approvals map[string]*Approval
}

func (tx *memoryTx) Exchange(ctx context.Context, address string) (*Exchange, error) {
	if e, ok := tx.exchanges[address]; ok {
		return e.Clone(), nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if e, ok := tx.store.exchanges[address]; ok {
		return e.Clone(), nil
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) PutExchange(ctx context.Context, e *Exchange) error {
	tx.exchanges[e.Address] = e.Clone()
	return nil
}

func (tx *memoryTx) Token(ctx context.Context, address string) (*Token, error) {
	if t, ok := tx.tokens[address]; ok {
		return t.Clone(), nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if t, ok := tx.store.tokens[address]; ok {
		return t.Clone(), nil
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) PutToken(ctx context.Context, t *Token) error {
	tx.tokens[t.Address] = t.Clone()
	return nil
}

func (tx *memoryTx) ExchangeDayData(ctx context.Context, id string) (*ExchangeDayData, error) {
	if d, ok := tx.dayData[id]; ok {
		return d.Clone(), nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if d, ok := tx.store.dayData[id]; ok {
		return d.Clone(), nil
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) PutExchangeDayData(ctx context.Context, d *ExchangeDayData) error {
	tx.dayData[d.ID] = d.Clone()
	return nil
}

func (tx *memoryTx) ExchangeHourData(ctx context.Context, id string) (*ExchangeHourData, error) {
	if h, ok := tx.hourData[id]; ok {
		return h.Clone(), nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if h, ok := tx.store.hourData[id]; ok {
		return h.Clone(), nil
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) PutExchangeHourData(ctx context.Context, h *ExchangeHourData) error {
	tx.hourData[h.ID] = h.Clone()
	return nil
}

func (tx *memoryTx) Swap(ctx context.Context, id string) (*Swap, error) {
	if s, ok := tx.swaps[id]; ok {
		return s.Clone(), nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if s, ok := tx.store.swaps[id]; ok {
		return s.Clone(), nil
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) PutSwap(ctx context.Context, s *Swap) error {
	tx.swaps[s.ID] = s.Clone()
	return nil
}

func (tx *memoryTx) Transfer(ctx context.Context, id string) (*Transfer, error) {
	if t, ok := tx.transfers[id]; ok {
		return t.Clone(), nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if t, ok := tx.store.transfers[id]; ok {
		return t.Clone(), nil
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) PutTransfer(ctx context.Context, t *Transfer) error {
	tx.transfers[t.ID] = t.Clone()
	return nil
}

func (tx *memoryTx) Liquidity(ctx context.Context, id string) (*Liquidity, error) {
	if l, ok := tx.liquidity[id]; ok {
		return l.Clone(), nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if l, ok := tx.store.liquidity[id]; ok {
		return l.Clone(), nil
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) PutLiquidity(ctx context.Context, l *Liquidity) error {
	tx.liquidity[l.ID] = l.Clone()
	return nil
}

func (tx *memoryTx) Approval(ctx context.Context, id string) (*Approval, error) {
	if a, ok := tx.approvals[id]; ok {
		return a.Clone(), nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if a, ok := tx.store.approvals[id]; ok {
		return a.Clone(), nil
	}
	return nil, ErrNotFound
}

func (tx *memoryTx) PutApproval(ctx context.Context, a *Approval) error {
	tx.approvals[a.ID] = a.Clone()
	return nil
}

func (tx *memoryTx) Commit(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for k, v := range tx.exchanges {
		tx.store.exchanges[k] = v
	}
	for k, v := range tx.tokens {
		tx.store.tokens[k] = v
	}
	for k, v := range tx.dayData {
		tx.store.dayData[k] = v
	}
	for k, v := range tx.hourData {
		tx.store.hourData[k] = v
	}
	for k, v := range tx.swaps {
		tx.store.swaps[k] = v
	}
	for k, v := range tx.transfers {
		tx.store.transfers[k] = v
	}
	for k, v := range tx.liquidity {
		tx.store.liquidity[k] = v
	}
	for k, v := range tx.approvals {
		tx.store.approvals[k] = v
	}
	return nil
}

func (tx *memoryTx) Rollback(ctx context.Context) error {
	tx.done = true
	return nil
}
