package elasticswap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/chain"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/modules/core"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/modules/loader"
	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

// SourceRegistrar is the hook the module uses to announce contracts it wants
// future events from. The registry implements it; tests use a stub.
type SourceRegistrar interface {
	RegisterSource(moduleName string, address common.Address) error
}

// Module indexes the ElasticSwap factory and its exchange contracts into
// aggregate entity state: exchanges, tokens, time-bucketed counters and
// per-event records.
type Module struct {
	store    store.Store
	manifest *core.Manifest
	logger   zerolog.Logger
	parser   *core.EventParser
	reader   chain.Reader

	factoryAddress common.Address
	registrar      SourceRegistrar

	config *Config

	handlers map[common.Hash]EventHandler
}

// Config represents the module configuration, parsed from the manifest context.
type Config struct {
	FactoryAddress string `yaml:"factoryAddress"`
	RPCEndpoint    string `yaml:"rpcEndpoint"`

	// RecordKeyByLogIndex keys event records by "{txHash}-{logIndex}" instead
	// of the transaction hash alone. With the default (false), multiple
	// same-kind events in one transaction collapse to a single record.
	RecordKeyByLogIndex bool `yaml:"recordKeyByLogIndex"`
}

// EventHandler is the function type for handling a parsed event inside the
// per-event unit of work.
type EventHandler func(ctx context.Context, m *Module, tx store.Tx, event *core.ParsedEvent, timestamp int64) error

// NewModule creates the module from its manifest file.
func NewModule(manifestPath string, logger zerolog.Logger) (*Module, error) {
	manifestLoader := loader.NewManifestLoader(logger)
	manifest, err := manifestLoader.LoadFromFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	var config Config
	if manifest.Context != nil {
		contextBytes, _ := yaml.Marshal(manifest.Context)
		if err := yaml.Unmarshal(contextBytes, &config); err != nil {
			return nil, fmt.Errorf("failed to parse module config: %w", err)
		}
	}
	if config.FactoryAddress == "" {
		return nil, fmt.Errorf("manifest context is missing factoryAddress")
	}
	config.FactoryAddress = strings.ToLower(config.FactoryAddress)

	m := &Module{
		manifest:       manifest,
		logger:         logger.With().Str("module", manifest.Name).Logger(),
		parser:         core.NewEventParser(),
		factoryAddress: common.HexToAddress(config.FactoryAddress),
		config:         &config,
		handlers:       make(map[common.Hash]EventHandler),
	}

	m.parser.AddContract(m.factoryAddress, &chain.FactoryABI)
	m.registerEventHandlers()

	return m, nil
}

// registerEventHandlers wires each event signature to its handler. Topic
// hashes come from the parsed ABIs rather than hardcoded constants.
func (m *Module) registerEventHandlers() {
	m.handlers[chain.FactoryABI.Events["NewExchange"].ID] = handleNewExchange
	m.handlers[chain.ExchangeABI.Events["Swap"].ID] = handleSwap
	m.handlers[chain.ExchangeABI.Events["AddLiquidity"].ID] = handleAddLiquidity
	m.handlers[chain.ExchangeABI.Events["RemoveLiquidity"].ID] = handleRemoveLiquidity
	m.handlers[chain.ExchangeABI.Events["Transfer"].ID] = handleTransfer
	m.handlers[chain.ExchangeABI.Events["Approval"].ID] = handleApproval
}

// Name returns the module name
func (m *Module) Name() string {
	return m.manifest.Name
}

// Version returns the module version
func (m *Module) Version() string {
	return m.manifest.Version
}

// Manifest returns the module manifest
func (m *Module) Manifest() *core.Manifest {
	return m.manifest
}

// SetReader injects the contract-state reader. Initialize dials the RPC
// endpoint from the config when no reader was injected.
func (m *Module) SetReader(r chain.Reader) {
	m.reader = r
}

// SetSourceRegistrar injects the hook used to register exchange contracts as
// event sources when the factory announces them.
func (m *Module) SetSourceRegistrar(r SourceRegistrar) {
	m.registrar = r
}

// Initialize sets up the module with its entity store and re-registers the
// exchanges already known from a previous run.
func (m *Module) Initialize(ctx context.Context, st store.Store) error {
	m.store = st

	if m.reader == nil {
		if m.config.RPCEndpoint == "" {
			return fmt.Errorf("no contract reader and no rpcEndpoint configured")
		}
		client, err := ethclient.Dial(m.config.RPCEndpoint)
		if err != nil {
			return fmt.Errorf("failed to connect to RPC endpoint: %w", err)
		}
		m.reader = chain.NewClient(client, m.logger)
		m.logger.Info().Str("endpoint", m.config.RPCEndpoint).Msg("Connected to RPC")
	}

	addresses, err := st.ExchangeAddresses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list known exchanges: %w", err)
	}
	for _, addr := range addresses {
		if err := m.watchExchange(common.HexToAddress(addr)); err != nil {
			return err
		}
	}

	m.logger.Info().
		Str("factory", m.factoryAddress.Hex()).
		Int("exchanges", len(addresses)).
		Msg("ElasticSwap module initialized")
	return nil
}

// watchExchange registers an exchange contract for parsing and event routing.
func (m *Module) watchExchange(address common.Address) error {
	m.parser.AddContract(address, &chain.ExchangeABI)
	if m.registrar != nil {
		if err := m.registrar.RegisterSource(m.Name(), address); err != nil {
			return fmt.Errorf("failed to register exchange source %s: %w", address.Hex(), err)
		}
	}
	return nil
}

// HandleEvent processes a single event log. All entity writes for the event
// happen inside one store transaction: either the whole state transition
// commits or none of it does.
func (m *Module) HandleEvent(ctx context.Context, log *types.Log) error {
	if len(log.Topics) == 0 {
		return nil
	}

	handler, exists := m.handlers[log.Topics[0]]
	if !exists {
		return nil
	}

	// Topic filters are broad: unrelated contracts share the Transfer and
	// Approval signatures. Only the factory and registered exchanges count.
	if log.Address != m.factoryAddress && !m.parser.HasContract(log.Address) {
		return nil
	}

	event, err := m.parser.ParseEvent(log)
	if err != nil {
		var unknown core.ErrUnknownEvent
		if errors.As(err, &unknown) {
			// Same signature from a contract we don't watch.
			return nil
		}
		return fmt.Errorf("failed to parse event: %w", err)
	}

	timestamp, err := m.reader.BlockTimestamp(ctx, log.BlockNumber)
	if err != nil {
		return fmt.Errorf("failed to resolve block timestamp: %w", err)
	}

	tx, err := m.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := handler(ctx, m, tx, event, timestamp); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			m.logger.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return fmt.Errorf("%s handler failed: %w", event.EventName, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}

	m.logger.Debug().
		Str("event", event.EventName).
		Str("address", event.Address.Hex()).
		Uint64("block", event.BlockNumber).
		Msg("Processed event")

	return nil
}

// GetEventFilters returns the event filters this module is interested in
func (m *Module) GetEventFilters() []core.EventFilter {
	filters := []core.EventFilter{
		{
			Address: m.factoryAddress.Hex(),
			Topic0:  chain.FactoryABI.Events["NewExchange"].ID.Hex(),
		},
	}

	for _, name := range []string{"Swap", "AddLiquidity", "RemoveLiquidity", "Transfer", "Approval"} {
		filters = append(filters, core.EventFilter{
			Topic0: chain.ExchangeABI.Events[name].ID.Hex(),
		})
	}

	return filters
}

// GetStartBlock returns the block number to start indexing from
func (m *Module) GetStartBlock() uint64 {
	if len(m.manifest.DataSources) > 0 && m.manifest.DataSources[0].Source.StartBlock != nil {
		return *m.manifest.DataSources[0].Source.StartBlock
	}
	return 0
}

// GetSyncState returns the last processed block for this module
func (m *Module) GetSyncState(ctx context.Context) (uint64, error) {
	state, err := m.store.ModuleState(ctx, m.Name())
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return state.LastProcessedBlock, nil
}

// UpdateSyncState updates the last processed block for this module
func (m *Module) UpdateSyncState(ctx context.Context, blockNumber uint64) error {
	state, err := m.store.ModuleState(ctx, m.Name())
	if errors.Is(err, store.ErrNotFound) {
		state = &store.ModuleState{
			ModuleName: m.Name(),
			Version:    m.Version(),
			Status:     store.StatusActive,
		}
	} else if err != nil {
		return err
	}
	state.LastProcessedBlock = blockNumber
	return m.store.PutModuleState(ctx, state)
}

// addrKey normalizes an address into the lowercase form used as entity keys.
func addrKey(address common.Address) string {
	return strings.ToLower(address.Hex())
}
