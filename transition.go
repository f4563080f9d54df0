// Package txruntime is the state transition core: given a prior
// world-state handle, block parameters, and a sequence of pre-verified
// transactions, it produces a mutated world-state and a BlockReceipt.
package txruntime

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ledgercore/txruntime/internal/costmodel"
	"github.com/ledgercore/txruntime/internal/metrics"
	"github.com/ledgercore/txruntime/internal/phase"
	"github.com/ledgercore/txruntime/internal/protocol"
	"github.com/ledgercore/txruntime/internal/wasmvm"
	"github.com/ledgercore/txruntime/internal/worldstate"
)

// Address, Hash, Signature, and the command/transaction/receipt types are
// re-exported so callers never need to import internal packages directly.
type (
	Address              = protocol.Address
	Hash                 = protocol.Hash
	Signature            = protocol.Signature
	Command              = protocol.Command
	Transaction          = protocol.Transaction
	BlockchainParams     = protocol.BlockchainParams
	ValidatorPerformance = protocol.ValidatorPerformance
	CommandReceipt       = protocol.CommandReceipt
	TransactionReceipt   = protocol.TransactionReceipt
	BlockReceipt         = protocol.BlockReceipt
)

// Config bundles the static, embedder-supplied tunables a Runtime is
// built from (spec §6's "static config": memory cap, contract-cache
// directory, protocol version, gas schedule).
type Config struct {
	Wasm     wasmvm.Config
	Schedule *costmodel.Schedule
	Log      *zap.SugaredLogger
	Metrics  *metrics.Registry
}

// DefaultConfig returns a conservative, protocol-default configuration
// with an in-memory-only module cache and no metrics registration.
func DefaultConfig() Config {
	return Config{
		Wasm:     wasmvm.DefaultConfig(),
		Schedule: costmodel.Default(),
		Log:      zap.NewNop().Sugar(),
	}
}

// Runtime owns the Wasm engine, store, and compiled-module cache for the
// lifetime of the embedding process, reusing them across every block it
// transitions.
type Runtime struct {
	schedule *costmodel.Schedule
	driver   *phase.Driver
}

// New constructs a Runtime from cfg. The Wasm engine, store, and module
// cache are built once and held for the Runtime's lifetime.
func New(cfg Config) (*Runtime, error) {
	if cfg.Schedule == nil {
		cfg.Schedule = costmodel.Default()
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	engine, store := wasmvm.NewEngineAndStore()
	moduleCache, err := wasmvm.NewModuleCache(engine, store, cfg.Wasm.CacheDir, cfg.Wasm.InMemoryCacheSize, cfg.Metrics, log)
	if err != nil {
		return nil, fmt.Errorf("txruntime: building module cache: %w", err)
	}

	driver := phase.New(engine, store, moduleCache, cfg.Schedule, cfg.Wasm.MaxCallDepth, cfg.Wasm.MemoryLimitPages, log, cfg.Metrics)
	return &Runtime{schedule: cfg.Schedule, driver: driver}, nil
}

// Execute runs one block's worth of pre-verified transactions against
// backing, committing the mutated world-state on success and returning
// the block's aggregate receipt.
//
// A NextEpoch command's internal error is, per spec §7, fatal to block
// production: it unwinds as a panic out of the command dispatcher and is
// converted here into a returned error with nothing committed, rather
// than surfacing as a Failed receipt.
func (rt *Runtime) Execute(backing WorldState, params BlockchainParams, txs []Transaction) (receipt BlockReceipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("txruntime: block rejected: %v", r)
		}
	}()

	cache := worldstate.NewCache(backing)
	receipt = rt.driver.RunBlock(cache, params, txs)
	if commitErr := cache.Commit(); commitErr != nil {
		return receipt, fmt.Errorf("txruntime: committing world-state: %w", commitErr)
	}
	return receipt, nil
}
