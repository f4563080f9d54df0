package wasmvm

import "github.com/wasmerio/wasmer-go/wasmer"

// NewEngineAndStore builds a fresh Wasmer engine and store, the way the
// teacher's VMService does for every execution — wasmer-go's Go bindings
// don't expose building a store from custom memory-limit tunables
// directly, so the memory cap named in Config is enforced ahead of
// compilation by CheckDeterminism's memory-section scan instead of by
// engine construction.
func NewEngineAndStore() (*wasmer.Engine, *wasmer.Store) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	return engine, store
}
