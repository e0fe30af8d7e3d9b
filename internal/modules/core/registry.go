package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/ElasticSwap/elasticswap-avalanche/internal/store"
)

// ModuleRegistry manages the lifecycle of indexer modules and routes events
// to them. Handler errors propagate to the caller: a module that fails on an
// event is marked errored and processing stops rather than skipping the event.
type ModuleRegistry struct {
	modules map[string]Module
	store   store.Store
	logger  zerolog.Logger

	// Event routing
	eventFilters   map[string][]string // topic -> module names
	addressFilters map[string][]string // address -> module names

	// Lifecycle management
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewModuleRegistry creates a new module registry
func NewModuleRegistry(st store.Store, logger zerolog.Logger) *ModuleRegistry {
	ctx, cancel := context.WithCancel(context.Background())

	return &ModuleRegistry{
		modules:        make(map[string]Module),
		store:          st,
		logger:         logger.With().Str("component", "module_registry").Logger(),
		eventFilters:   make(map[string][]string),
		addressFilters: make(map[string][]string),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// RegisterModule registers a new module
func (r *ModuleRegistry) RegisterModule(module Module) error {
	name := module.Name()

	manifest := module.Manifest()
	if manifest == nil {
		return fmt.Errorf("module %s has no manifest", name)
	}

	if err := manifest.ValidateManifest(); err != nil {
		return fmt.Errorf("module %s has invalid manifest: %w", name, err)
	}

	r.mu.Lock()
	if _, exists := r.modules[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("module %s is already registered", name)
	}
	r.modules[name] = module
	r.mu.Unlock()

	// Initialize runs outside the lock: modules re-register persisted event
	// sources through RegisterSource during startup, which needs r.mu.
	if err := module.Initialize(r.ctx, r.store); err != nil {
		r.removeModule(name)
		return fmt.Errorf("failed to initialize module %s: %w", name, err)
	}

	filters := module.GetEventFilters()
	r.mu.Lock()
	for _, filter := range filters {
		r.addFilter(name, filter)
	}
	r.mu.Unlock()

	if err := r.initializeModuleState(name, module.Version()); err != nil {
		r.logger.Error().Err(err).Str("module", name).Msg("Failed to initialize module state")
		return fmt.Errorf("failed to initialize module state for %s: %w", name, err)
	}

	r.logger.Info().
		Str("module", name).
		Str("version", module.Version()).
		Int("filters", len(filters)).
		Msg("Module registered successfully")

	return nil
}

func (r *ModuleRegistry) addFilter(name string, filter EventFilter) {
	if filter.Topic0 != "" {
		lowerTopic := strings.ToLower(filter.Topic0)
		r.eventFilters[lowerTopic] = append(r.eventFilters[lowerTopic], name)
		r.logger.Debug().
			Str("module", name).
			Str("topic0", lowerTopic).
			Msg("Registered topic filter")
	}
	if filter.Address != "" {
		lowerAddr := strings.ToLower(filter.Address)
		r.addressFilters[lowerAddr] = append(r.addressFilters[lowerAddr], name)
		r.logger.Debug().
			Str("module", name).
			Str("address", lowerAddr).
			Msg("Registered address filter")
	}
}

// RegisterSource adds an address filter for an already registered module.
// Modules call this when a factory event announces a new contract to watch.
func (r *ModuleRegistry) RegisterSource(moduleName string, address common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[moduleName]; !exists {
		return fmt.Errorf("module %s is not registered", moduleName)
	}

	lowerAddr := strings.ToLower(address.Hex())
	for _, name := range r.addressFilters[lowerAddr] {
		if name == moduleName {
			return nil
		}
	}

	r.addressFilters[lowerAddr] = append(r.addressFilters[lowerAddr], moduleName)
	r.logger.Info().
		Str("module", moduleName).
		Str("address", lowerAddr).
		Msg("Registered dynamic event source")

	return nil
}

// UnregisterModule removes a module from the registry
func (r *ModuleRegistry) UnregisterModule(name string) error {
	r.mu.Lock()
	if _, exists := r.modules[name]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("module %s is not registered", name)
	}
	r.mu.Unlock()

	r.removeModule(name)

	r.logger.Info().Str("module", name).Msg("Module unregistered")
	return nil
}

// removeModule drops a module and every filter pointing at it, including the
// address filters it registered dynamically.
func (r *ModuleRegistry) removeModule(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic, moduleNames := range r.eventFilters {
		r.eventFilters[topic] = removeFromSlice(moduleNames, name)
		if len(r.eventFilters[topic]) == 0 {
			delete(r.eventFilters, topic)
		}
	}

	for address, moduleNames := range r.addressFilters {
		r.addressFilters[address] = removeFromSlice(moduleNames, name)
		if len(r.addressFilters[address]) == 0 {
			delete(r.addressFilters, address)
		}
	}

	delete(r.modules, name)
}

// ProcessEvent routes an event to interested modules. The first handler
// failure stops processing and is returned to the caller, which keeps event
// application strictly ordered: nothing after a failed event is applied.
//
// The interested modules are snapshotted and r.mu released before any handler
// runs: handlers call back into RegisterSource when a factory event announces
// a new contract, which needs the write lock.
func (r *ModuleRegistry) ProcessEvent(ctx context.Context, log *types.Log) error {
	r.mu.RLock()
	if !r.running {
		r.mu.RUnlock()
		return nil
	}

	interestedModules := r.findInterestedModules(log)
	modules := make([]Module, 0, len(interestedModules))
	names := make([]string, 0, len(interestedModules))
	for _, moduleName := range interestedModules {
		module, exists := r.modules[moduleName]
		if !exists {
			r.logger.Warn().Str("module", moduleName).Msg("Module not found during event processing")
			continue
		}
		modules = append(modules, module)
		names = append(names, moduleName)
	}
	r.mu.RUnlock()

	for i, module := range modules {
		moduleName := names[i]

		status, err := r.getModuleStatus(ctx, moduleName)
		if err != nil {
			return fmt.Errorf("failed to get status for module %s: %w", moduleName, err)
		}

		if status != store.StatusActive {
			r.logger.Debug().
				Str("module", moduleName).
				Str("status", status).
				Msg("Skipping event for inactive module")
			continue
		}

		if err := module.HandleEvent(ctx, log); err != nil {
			r.logger.Error().
				Err(err).
				Str("module", moduleName).
				Uint64("block", log.BlockNumber).
				Str("tx_hash", log.TxHash.Hex()).
				Msg("Module failed to process event")

			if stErr := r.updateModuleStatus(ctx, moduleName, store.StatusError); stErr != nil {
				r.logger.Error().Err(stErr).Str("module", moduleName).Msg("Failed to update module status to error")
			}

			return fmt.Errorf("module %s failed to process event: %w", moduleName, err)
		}
	}

	return nil
}

// findInterestedModules finds modules that should process this event
func (r *ModuleRegistry) findInterestedModules(log *types.Log) []string {
	var interested []string
	seen := make(map[string]bool)

	if len(log.Topics) > 0 {
		topic0 := strings.ToLower(log.Topics[0].Hex())
		if moduleNames, exists := r.eventFilters[topic0]; exists {
			for _, name := range moduleNames {
				if !seen[name] {
					interested = append(interested, name)
					seen[name] = true
				}
			}
		}
	}

	address := strings.ToLower(log.Address.Hex())
	if moduleNames, exists := r.addressFilters[address]; exists {
		for _, name := range moduleNames {
			if !seen[name] {
				interested = append(interested, name)
				seen[name] = true
			}
		}
	}

	return interested
}

// Start begins the module registry lifecycle
func (r *ModuleRegistry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("module registry is already running")
	}

	r.running = true
	r.logger.Info().Int("modules", len(r.modules)).Msg("Module registry started")

	return nil
}

// Stop gracefully stops the module registry
func (r *ModuleRegistry) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	r.running = false
	r.cancel()

	r.logger.Info().Msg("Module registry stopped")
	return nil
}

// GetModule returns a registered module by name
func (r *ModuleRegistry) GetModule(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	module, exists := r.modules[name]
	return module, exists
}

// ListModules returns all registered module names
func (r *ModuleRegistry) ListModules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}

	return names
}

// initializeModuleState creates or updates module state in the store
func (r *ModuleRegistry) initializeModuleState(name, version string) error {
	state, err := r.store.ModuleState(r.ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		state = &store.ModuleState{
			ModuleName: name,
			Version:    version,
			Status:     store.StatusActive,
		}
	} else if err != nil {
		return err
	} else {
		state.Version = version
	}

	return r.store.PutModuleState(r.ctx, state)
}

func (r *ModuleRegistry) getModuleStatus(ctx context.Context, name string) (string, error) {
	state, err := r.store.ModuleState(ctx, name)
	if err != nil {
		return "", err
	}
	return state.Status, nil
}

func (r *ModuleRegistry) updateModuleStatus(ctx context.Context, name, status string) error {
	state, err := r.store.ModuleState(ctx, name)
	if err != nil {
		return err
	}
	state.Status = status
	return r.store.PutModuleState(ctx, state)
}

func removeFromSlice(slice []string, item string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if s != item {
			result = append(result, s)
		}
	}
	return result
}
