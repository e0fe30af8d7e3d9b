package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/config"
)

// PostgresStore implements Store on a pgx connection pool. Each Tx is one
// Postgres transaction, so loads inside the unit of work see earlier staged
// upserts and Commit makes the whole event's writes durable at once.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("Connected to database")

	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) Close() {
	s.pool.Close()
	s.logger.Info().Msg("Database connection closed")
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTx{tx: tx}, nil
}

func (s *PostgresStore) ModuleState(ctx context.Context, name string) (*ModuleState, error) {
	var state ModuleState
	err := s.pool.QueryRow(ctx, `
		SELECT module_name, version, last_processed_block, status
		FROM module_state
		WHERE module_name = $1`, name).Scan(
		&state.ModuleName,
		&state.Version,
		&state.LastProcessedBlock,
		&state.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module state for %s: %w", name, err)
	}
	return &state, nil
}

func (s *PostgresStore) ExchangeAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM exchanges ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan exchange address: %w", err)
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchanges: %w", err)
	}
	return addresses, nil
}

func (s *PostgresStore) TokenAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM tokens ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan token address: %w", err)
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}
	return addresses, nil
}

func (s *PostgresStore) PutModuleState(ctx context.Context, state *ModuleState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO module_state (module_name, version, last_processed_block, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (module_name) DO UPDATE SET
			version = EXCLUDED.version,
			last_processed_block = EXCLUDED.last_processed_block,
			status = EXCLUDED.status,
			updated_at = CURRENT_TIMESTAMP`,
		state.ModuleName, state.Version, state.LastProcessedBlock, state.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert module state for %s: %w", state.ModuleName, err)
	}
	return nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// numeric scan helpers: NUMERIC columns are selected as text and parsed back
// into big.Int / decimal values.

func bigFromText(s *string) *big.Int {
	if s == nil {
		return nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil
	}
	return v
}

func bigToText(x *big.Int) *string {
	if x == nil {
		return nil
	}
	s := x.String()
	return &s
}

func decFromText(s *string) (decimal.Decimal, error) {
	if s == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*s)
}

func nullDecFromText(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func nullDecToText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func (t *postgresTx) Exchange(ctx context.Context, address string) (*Exchange, error) {
	var (
		e                           Exchange
		baseReserve, quoteReserve   *string
		kLast, minLiquidity, supply *string
		baseQty, quoteQty           *string
		basePrice, quotePrice       *string
		derivedBase, derivedQuote   *string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT address, creator, base_token, quote_token,
		       base_token_reserve_qty::text, quote_token_reserve_qty::text, k_last::text,
		       minimum_liquidity::text, total_supply::text,
		       base_token_qty::text, quote_token_qty::text,
		       base_price::text, quote_price::text,
		       derived_base_token_liquidity::text, derived_quote_token_liquidity::text,
		       daily_txns, hourly_txns, created_at_timestamp
		FROM exchanges
		WHERE address = $1`, address).Scan(
		&e.Address, &e.Creator, &e.BaseToken, &e.QuoteToken,
		&baseReserve, &quoteReserve, &kLast,
		&minLiquidity, &supply,
		&baseQty, &quoteQty,
		&basePrice, &quotePrice,
		&derivedBase, &derivedQuote,
		&e.DailyTxns, &e.HourlyTxns, &e.CreatedAtTimestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange %s: %w", address, err)
	}

	e.BaseTokenReserveQty = bigFromText(baseReserve)
	e.QuoteTokenReserveQty = bigFromText(quoteReserve)
	e.KLast = bigFromText(kLast)
	e.MinimumLiquidity = bigFromText(minLiquidity)
	e.TotalSupply = bigFromText(supply)
	if e.BaseTokenQty, err = decFromText(baseQty); err != nil {
		return nil, fmt.Errorf("failed to parse base_token_qty for %s: %w", address, err)
	}
	if e.QuoteTokenQty, err = decFromText(quoteQty); err != nil {
		return nil, fmt.Errorf("failed to parse quote_token_qty for %s: %w", address, err)
	}
	if e.BasePrice, err = nullDecFromText(basePrice); err != nil {
		return nil, fmt.Errorf("failed to parse base_price for %s: %w", address, err)
	}
	if e.QuotePrice, err = nullDecFromText(quotePrice); err != nil {
		return nil, fmt.Errorf("failed to parse quote_price for %s: %w", address, err)
	}
	if e.DerivedBaseTokenLiquidity, err = decFromText(derivedBase); err != nil {
		return nil, fmt.Errorf("failed to parse derived base liquidity for %s: %w", address, err)
	}
	if e.DerivedQuoteTokenLiquidity, err = decFromText(derivedQuote); err != nil {
		return nil, fmt.Errorf("failed to parse derived quote liquidity for %s: %w", address, err)
	}
	return &e, nil
}

func (t *postgresTx) PutExchange(ctx context.Context, e *Exchange) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO exchanges (
			address, creator, base_token, quote_token,
			base_token_reserve_qty, quote_token_reserve_qty, k_last,
			minimum_liquidity, total_supply,
			base_token_qty, quote_token_qty, base_price, quote_price,
			derived_base_token_liquidity, derived_quote_token_liquidity,
			daily_txns, hourly_txns, created_at_timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (address) DO UPDATE SET
			creator = EXCLUDED.creator,
			base_token = EXCLUDED.base_token,
			quote_token = EXCLUDED.quote_token,
			base_token_reserve_qty = EXCLUDED.base_token_reserve_qty,
			quote_token_reserve_qty = EXCLUDED.quote_token_reserve_qty,
			k_last = EXCLUDED.k_last,
			minimum_liquidity = EXCLUDED.minimum_liquidity,
			total_supply = EXCLUDED.total_supply,
			base_token_qty = EXCLUDED.base_token_qty,
			quote_token_qty = EXCLUDED.quote_token_qty,
			base_price = EXCLUDED.base_price,
			quote_price = EXCLUDED.quote_price,
			derived_base_token_liquidity = EXCLUDED.derived_base_token_liquidity,
			derived_quote_token_liquidity = EXCLUDED.derived_quote_token_liquidity,
			daily_txns = EXCLUDED.daily_txns,
			hourly_txns = EXCLUDED.hourly_txns,
			updated_at = CURRENT_TIMESTAMP`,
		e.Address, e.Creator, e.BaseToken, e.QuoteToken,
		bigToText(e.BaseTokenReserveQty), bigToText(e.QuoteTokenReserveQty), bigToText(e.KLast),
		bigToText(e.MinimumLiquidity), bigToText(e.TotalSupply),
		e.BaseTokenQty.String(), e.QuoteTokenQty.String(),
		nullDecToText(e.BasePrice), nullDecToText(e.QuotePrice),
		e.DerivedBaseTokenLiquidity.String(), e.DerivedQuoteTokenLiquidity.String(),
		e.DailyTxns, e.HourlyTxns, e.CreatedAtTimestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange %s: %w", e.Address, err)
	}
	return nil
}

func (t *postgresTx) Token(ctx context.Context, address string) (*Token, error) {
	var (
		tok    Token
		supply *string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT address, symbol, name, total_supply::text, decimals, factory_address
		FROM tokens
		WHERE address = $1`, address).Scan(
		&tok.Address, &tok.Symbol, &tok.Name, &supply, &tok.Decimals, &tok.FactoryAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token %s: %w", address, err)
	}
	tok.TotalSupply = bigFromText(supply)
	return &tok, nil
}

func (t *postgresTx) PutToken(ctx context.Context, tok *Token) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO tokens (address, symbol, name, total_supply, decimals, factory_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			total_supply = EXCLUDED.total_supply,
			decimals = EXCLUDED.decimals,
			factory_address = EXCLUDED.factory_address,
			updated_at = CURRENT_TIMESTAMP`,
		tok.Address, tok.Symbol, tok.Name, bigToText(tok.TotalSupply), tok.Decimals, tok.FactoryAddress)
	if err != nil {
		return fmt.Errorf("failed to upsert token %s: %w", tok.Address, err)
	}
	return nil
}

func (t *postgresTx) ExchangeDayData(ctx context.Context, id string) (*ExchangeDayData, error) {
	var d ExchangeDayData
	err := t.tx.QueryRow(ctx, `
		SELECT id, date, exchange, base_token, quote_token,
		       total_txns, swap_txns, add_liquidity_txns, remove_liquidity_txns, transfer_txns,
		       created_at_timestamp
		FROM exchange_day_data
		WHERE id = $1`, id).Scan(
		&d.ID, &d.Date, &d.Exchange, &d.BaseToken, &d.QuoteToken,
		&d.TotalTxns, &d.SwapTxns, &d.AddLiquidityTxns, &d.RemoveLiquidityTxns, &d.TransferTxns,
		&d.CreatedAtTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load day data %s: %w", id, err)
	}
	return &d, nil
}

func (t *postgresTx) PutExchangeDayData(ctx context.Context, d *ExchangeDayData) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO exchange_day_data (
			id, date, exchange, base_token, quote_token,
			total_txns, swap_txns, add_liquidity_txns, remove_liquidity_txns, transfer_txns,
			created_at_timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			total_txns = EXCLUDED.total_txns,
			swap_txns = EXCLUDED.swap_txns,
			add_liquidity_txns = EXCLUDED.add_liquidity_txns,
			remove_liquidity_txns = EXCLUDED.remove_liquidity_txns,
			transfer_txns = EXCLUDED.transfer_txns,
			updated_at = CURRENT_TIMESTAMP`,
		d.ID, d.Date, d.Exchange, d.BaseToken, d.QuoteToken,
		d.TotalTxns, d.SwapTxns, d.AddLiquidityTxns, d.RemoveLiquidityTxns, d.TransferTxns,
		d.CreatedAtTimestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert day data %s: %w", d.ID, err)
	}
	return nil
}

func (t *postgresTx) ExchangeHourData(ctx context.Context, id string) (*ExchangeHourData, error) {
	var h ExchangeHourData
	err := t.tx.QueryRow(ctx, `
		SELECT id, start_time, exchange, base_token, quote_token,
		       total_txns, swap_txns, add_liquidity_txns, remove_liquidity_txns, transfer_txns,
		       created_at_timestamp
		FROM exchange_hour_data
		WHERE id = $1`, id).Scan(
		&h.ID, &h.StartTime, &h.Exchange, &h.BaseToken, &h.QuoteToken,
		&h.TotalTxns, &h.SwapTxns, &h.AddLiquidityTxns, &h.RemoveLiquidityTxns, &h.TransferTxns,
		&h.CreatedAtTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load hour data %s: %w", id, err)
	}
	return &h, nil
}

func (t *postgresTx) PutExchangeHourData(ctx context.Context, h *ExchangeHourData) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO exchange_hour_data (
			id, start_time, exchange, base_token, quote_token,
			total_txns, swap_txns, add_liquidity_txns, remove_liquidity_txns, transfer_txns,
			created_at_timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			total_txns = EXCLUDED.total_txns,
			swap_txns = EXCLUDED.swap_txns,
			add_liquidity_txns = EXCLUDED.add_liquidity_txns,
			remove_liquidity_txns = EXCLUDED.remove_liquidity_txns,
			transfer_txns = EXCLUDED.transfer_txns,
			updated_at = CURRENT_TIMESTAMP`,
		h.ID, h.StartTime, h.Exchange, h.BaseToken, h.QuoteToken,
		h.TotalTxns, h.SwapTxns, h.AddLiquidityTxns, h.RemoveLiquidityTxns, h.TransferTxns,
		h.CreatedAtTimestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert hour data %s: %w", h.ID, err)
	}
	return nil
}

func (t *postgresTx) Swap(ctx context.Context, id string) (*Swap, error) {
	var (
		s                                  Swap
		baseIn, quoteIn, baseOut, quoteOut *string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, exchange, sender, base_token_qty_in::text, quote_token_qty_in::text,
		       base_token_qty_out::text, quote_token_qty_out::text, created_at_timestamp
		FROM swaps
		WHERE id = $1`, id).Scan(
		&s.ID, &s.Exchange, &s.Sender, &baseIn, &quoteIn, &baseOut, &quoteOut, &s.CreatedAtTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load swap %s: %w", id, err)
	}
	s.BaseTokenQtyIn = bigFromText(baseIn)
	s.QuoteTokenQtyIn = bigFromText(quoteIn)
	s.BaseTokenQtyOut = bigFromText(baseOut)
	s.QuoteTokenQtyOut = bigFromText(quoteOut)
	return &s, nil
}

func (t *postgresTx) PutSwap(ctx context.Context, s *Swap) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO swaps (
			id, exchange, sender, base_token_qty_in, quote_token_qty_in,
			base_token_qty_out, quote_token_qty_out, created_at_timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			exchange = EXCLUDED.exchange,
			sender = EXCLUDED.sender,
			base_token_qty_in = EXCLUDED.base_token_qty_in,
			quote_token_qty_in = EXCLUDED.quote_token_qty_in,
			base_token_qty_out = EXCLUDED.base_token_qty_out,
			quote_token_qty_out = EXCLUDED.quote_token_qty_out,
			created_at_timestamp = EXCLUDED.created_at_timestamp`,
		s.ID, s.Exchange, s.Sender,
		bigToText(s.BaseTokenQtyIn), bigToText(s.QuoteTokenQtyIn),
		bigToText(s.BaseTokenQtyOut), bigToText(s.QuoteTokenQtyOut),
		s.CreatedAtTimestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert swap %s: %w", s.ID, err)
	}
	return nil
}

func (t *postgresTx) Transfer(ctx context.Context, id string) (*Transfer, error) {
	var (
		tr    Transfer
		value *string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, exchange, from_address, to_address, value::text, created_at_timestamp
		FROM transfers
		WHERE id = $1`, id).Scan(
		&tr.ID, &tr.Exchange, &tr.From, &tr.To, &value, &tr.CreatedAtTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer %s: %w", id, err)
	}
	tr.Value = bigFromText(value)
	return &tr, nil
}

func (t *postgresTx) PutTransfer(ctx context.Context, tr *Transfer) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO transfers (id, exchange, from_address, to_address, value, created_at_timestamp)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			exchange = EXCLUDED.exchange,
			from_address = EXCLUDED.from_address,
			to_address = EXCLUDED.to_address,
			value = EXCLUDED.value,
			created_at_timestamp = EXCLUDED.created_at_timestamp`,
		tr.ID, tr.Exchange, tr.From, tr.To, bigToText(tr.Value), tr.CreatedAtTimestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert transfer %s: %w", tr.ID, err)
	}
	return nil
}

func (t *postgresTx) Liquidity(ctx context.Context, id string) (*Liquidity, error) {
	var (
		l                 Liquidity
		baseQty, quoteQty *string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, exchange, added, base_token_qty::text, quote_token_qty::text,
		       liquidity_provider, created_at_timestamp
		FROM liquidity_events
		WHERE id = $1`, id).Scan(
		&l.ID, &l.Exchange, &l.Added, &baseQty, &quoteQty, &l.LiquidityProvider, &l.CreatedAtTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load liquidity event %s: %w", id, err)
	}
	l.BaseTokenQty = bigFromText(baseQty)
	l.QuoteTokenQty = bigFromText(quoteQty)
	return &l, nil
}

func (t *postgresTx) PutLiquidity(ctx context.Context, l *Liquidity) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO liquidity_events (
			id, exchange, added, base_token_qty, quote_token_qty,
			liquidity_provider, created_at_timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			exchange = EXCLUDED.exchange,
			added = EXCLUDED.added,
			base_token_qty = EXCLUDED.base_token_qty,
			quote_token_qty = EXCLUDED.quote_token_qty,
			liquidity_provider = EXCLUDED.liquidity_provider,
			created_at_timestamp = EXCLUDED.created_at_timestamp`,
		l.ID, l.Exchange, l.Added, bigToText(l.BaseTokenQty), bigToText(l.QuoteTokenQty),
		l.LiquidityProvider, l.CreatedAtTimestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert liquidity event %s: %w", l.ID, err)
	}
	return nil
}

func (t *postgresTx) Approval(ctx context.Context, id string) (*Approval, error) {
	var (
		a     Approval
		value *string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, exchange, owner, spender, value::text, created_at_timestamp
		FROM approvals
		WHERE id = $1`, id).Scan(
		&a.ID, &a.Exchange, &a.Owner, &a.Spender, &value, &a.CreatedAtTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load approval %s: %w", id, err)
	}
	a.Value = bigFromText(value)
	return &a, nil
}

func (t *postgresTx) PutApproval(ctx context.Context, a *Approval) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO approvals (id, exchange, owner, spender, value, created_at_timestamp)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			exchange = EXCLUDED.exchange,
			owner = EXCLUDED.owner,
			spender = EXCLUDED.spender,
			value = EXCLUDED.value,
			created_at_timestamp = EXCLUDED.created_at_timestamp`,
		a.ID, a.Exchange, a.Owner, a.Spender, bigToText(a.Value), a.CreatedAtTimestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert approval %s: %w", a.ID, err)
	}
	return nil
}
