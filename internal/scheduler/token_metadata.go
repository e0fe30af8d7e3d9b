package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/chain"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

// TokenMetadataScheduler periodically re-reads ERC-20 metadata for every
// known token. Tokens are otherwise immutable after creation, but metadata
// reads that failed at creation time get backfilled here.
type TokenMetadataScheduler struct {
	store     store.Store
	reader    chain.Reader
	interval  time.Duration
	scheduler gocron.Scheduler
	logger    zerolog.Logger
}

func NewTokenMetadataScheduler(st store.Store, reader chain.Reader, interval time.Duration, logger zerolog.Logger) (*TokenMetadataScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &TokenMetadataScheduler{
		store:     st,
		reader:    reader,
		interval:  interval,
		scheduler: s,
		logger:    logger.With().Str("component", "token-metadata-scheduler").Logger(),
	}, nil
}

func (s *TokenMetadataScheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.refreshAllTokens, ctx),
		gocron.WithName("refresh-token-metadata"),
	)
	if err != nil {
		return err
	}

	s.logger.Info().Dur("interval", s.interval).Msg("Token metadata scheduler started")
	s.scheduler.Start()

	return nil
}

func (s *TokenMetadataScheduler) Stop() {
	s.logger.Info().Msg("Stopping token metadata scheduler")
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down scheduler")
	}
}

func (s *TokenMetadataScheduler) refreshAllTokens(ctx context.Context) {
	start := time.Now()

	addresses, err := s.store.TokenAddresses(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list tokens")
		return
	}

	successCount := 0
	for _, addr := range addresses {
		if err := s.refreshToken(ctx, addr); err != nil {
			s.logger.Error().Err(err).Str("token", addr).Msg("Failed to refresh token metadata")
			continue
		}
		successCount++
	}

	s.logger.Info().
		Int("success", successCount).
		Int("failed", len(addresses)-successCount).
		Dur("duration", time.Since(start)).
		Msg("Token metadata refresh completed")
}

func (s *TokenMetadataScheduler) refreshToken(ctx context.Context, address string) error {
	metadata, err := s.reader.TokenMetadata(ctx, common.HexToAddress(address))
	if err != nil {
		return err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	token, err := tx.Token(ctx, address)
	if errors.Is(err, store.ErrNotFound) {
		// Removed between the listing and this read; nothing to refresh.
		return nil
	}
	if err != nil {
		return err
	}

	// A failed view call comes back as the "unknown" fallback; never regress
	// metadata that was already resolved.
	if metadata.Symbol != chain.UnknownMetadata || token.Symbol == "" {
		token.Symbol = metadata.Symbol
	}
	if metadata.Name != chain.UnknownMetadata || token.Name == "" {
		token.Name = metadata.Name
	}
	if metadata.Decimals != 0 || token.Decimals == 0 {
		token.Decimals = metadata.Decimals
	}
	if metadata.TotalSupply != nil {
		token.TotalSupply = metadata.TotalSupply
	}

	if err := tx.PutToken(ctx, token); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
