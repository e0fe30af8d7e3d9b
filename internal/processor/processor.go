package processor

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/config"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/modules/core"
)

// Processor drives the indexing pipeline: it polls the chain for logs
// matching the registered modules' filters and feeds them to the registry
// strictly ordered by block number, transaction index and log index.
//
// Processing is single-writer and crash-stop: the first handler failure
// stops the loop without advancing the checkpoint, so a restart replays
// from the failed block and idempotent handlers absorb the duplicates.
type Processor struct {
	cfg      *config.Config
	eth      *ethclient.Client
	registry *core.ModuleRegistry
	modules  []core.Module
	logger   zerolog.Logger
}

func New(cfg *config.Config, eth *ethclient.Client, registry *core.ModuleRegistry, modules []core.Module, logger zerolog.Logger) *Processor {
	return &Processor{
		cfg:      cfg,
		eth:      eth,
		registry: registry,
		modules:  modules,
		logger:   logger.With().Str("component", "processor").Logger(),
	}
}

// Run polls for new blocks until the context is cancelled or a handler
// fails. It returns the first fatal error.
func (p *Processor) Run(ctx context.Context) error {
	lastBlock, err := p.startBlock(ctx)
	if err != nil {
		return err
	}

	p.logger.Info().Uint64("from_block", lastBlock+1).Msg("Processor started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Processor stopped")
			return nil
		default:
		}

		latest, err := p.eth.BlockNumber(ctx)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to fetch latest block number")
			if !sleepCtx(ctx, 5*time.Second) {
				return nil
			}
			continue
		}

		if lastBlock >= latest {
			if !sleepCtx(ctx, p.cfg.Chain.BlockTime) {
				return nil
			}
			continue
		}

		from := lastBlock + 1
		to := from + p.cfg.Indexer.BatchBlocks - 1
		if to > latest {
			to = latest
		}

		if err := p.processRange(ctx, from, to); err != nil {
			return fmt.Errorf("failed to process blocks %d-%d: %w", from, to, err)
		}

		for _, module := range p.modules {
			if err := module.UpdateSyncState(ctx, to); err != nil {
				return fmt.Errorf("failed to checkpoint module %s: %w", module.Name(), err)
			}
		}

		p.logger.Info().
			Uint64("from", from).
			Uint64("to", to).
			Uint64("lag", latest-to).
			Msg("Block range processed")

		lastBlock = to
	}
}

// startBlock resolves the resume point: the lowest module checkpoint, or the
// lowest manifest start block minus one when nothing has been processed yet.
func (p *Processor) startBlock(ctx context.Context) (uint64, error) {
	var last uint64
	first := true
	for _, module := range p.modules {
		sync, err := module.GetSyncState(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to read sync state for %s: %w", module.Name(), err)
		}
		if sync == 0 && module.GetStartBlock() > 0 {
			sync = module.GetStartBlock() - 1
		}
		if first || sync < last {
			last = sync
			first = false
		}
	}
	if p.cfg.Chain.StartBlock > 0 && last < p.cfg.Chain.StartBlock-1 {
		last = p.cfg.Chain.StartBlock - 1
	}
	return last, nil
}

func (p *Processor) processRange(ctx context.Context, from, to uint64) error {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Topics:    [][]common.Hash{p.watchedTopics()},
	}

	logs, err := p.eth.FilterLogs(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to filter logs: %w", err)
	}

	// Nodes return logs ordered, but ordering is an invariant here, not an
	// assumption.
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		if logs[i].TxIndex != logs[j].TxIndex {
			return logs[i].TxIndex < logs[j].TxIndex
		}
		return logs[i].Index < logs[j].Index
	})

	for i := range logs {
		if err := p.registry.ProcessEvent(ctx, &logs[i]); err != nil {
			return err
		}
	}

	return nil
}

// watchedTopics collects the distinct topic0 hashes across all modules.
func (p *Processor) watchedTopics() []common.Hash {
	seen := make(map[common.Hash]bool)
	var topics []common.Hash
	for _, module := range p.modules {
		for _, filter := range module.GetEventFilters() {
			if filter.Topic0 == "" {
				continue
			}
			topic := common.HexToHash(filter.Topic0)
			if !seen[topic] {
				topics = append(topics, topic)
				seen[topic] = true
			}
		}
	}
	return topics
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
