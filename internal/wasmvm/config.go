// Package wasmvm is the Wasm contract sandbox: engine/store configuration,
// the non-determinism filter, the compiled-module cache, the host-import
// surface, and the one-shot contract instance.
package wasmvm

import "github.com/ledgercore/txruntime/internal/costmodel"

// Config bundles the static tunables the engine is built from. It is
// supplied once by the embedder (block-assembly layer, out of scope) and
// shared read-only across every transition.
type Config struct {
	// MemoryLimitPages caps a contract's linear memory, in 64KiB pages.
	MemoryLimitPages uint32

	// CacheDir is the on-disk directory the compiled-module cache persists
	// artifacts under. Empty disables the disk layer (in-memory only).
	CacheDir string

	// InMemoryCacheSize bounds the number of compiled modules kept hot.
	InMemoryCacheSize int

	// ProtocolVersion records a CBI version. It is not read anywhere:
	// compatibility checks use internal/protocol.CBIVersionCurrent.
	ProtocolVersion uint32

	// MaxCallDepth bounds internal-call recursion (spec §4.F example: 8).
	MaxCallDepth int

	// Schedule is the gas schedule used to cost opcodes and host calls.
	Schedule *costmodel.Schedule
}

// DefaultConfig returns a conservative, protocol-default configuration.
func DefaultConfig() Config {
	return Config{
		MemoryLimitPages: 64, // 4 MiB
		CacheDir:         "",
		InMemoryCacheSize: 256,
		ProtocolVersion:  0,
		MaxCallDepth:     8,
		Schedule:         costmodel.Default(),
	}
}
