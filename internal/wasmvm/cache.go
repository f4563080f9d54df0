package wasmvm

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/gofrs/flock"
	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ledgercore/txruntime/internal/crypto"
	"github.com/ledgercore/txruntime/internal/metrics"
)

// diskArtifactMagic and diskArtifactVersion identify the small header
// prefixed to every on-disk serialized module, per spec §6 ("a small
// header: magic, engine version"). Corrupt or mismatched entries are
// discarded and recompiled rather than trusted.
var diskArtifactMagic = [4]byte{'T', 'X', 'W', 'M'}

const diskArtifactVersion uint32 = 1

// cacheEntry is what ModuleCache holds in memory: the compiled module plus
// the CBI version it was deployed with.
type cacheEntry struct {
	module     *wasmer.Module
	cbiVersion uint32
}

// ModuleCache is the content-addressed compiled-module cache: an
// in-memory LRU layer, an on-disk directory layer guarded by per-file
// locks, and single-flight compilation so concurrent deploys of identical
// code compile exactly once (spec §4.E, §8 invariant 8).
type ModuleCache struct {
	engine  *wasmer.Engine
	store   *wasmer.Store
	dir     string
	mem     *lru.Cache[[32]byte, cacheEntry]
	group   singleflight.Group
	metrics *metrics.Registry
	log     *zap.SugaredLogger
}

// NewModuleCache builds a cache bound to the given store/engine, an
// optional on-disk directory (empty disables the disk layer), and an
// in-memory capacity.
func NewModuleCache(engine *wasmer.Engine, store *wasmer.Store, dir string, capacity int, reg *metrics.Registry, log *zap.SugaredLogger) (*ModuleCache, error) {
	mem, err := lru.New[[32]byte, cacheEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("module cache: building lru: %w", err)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("module cache: creating cache dir: %w", err)
		}
	}
	return &ModuleCache{engine: engine, store: store, dir: dir, mem: mem, metrics: reg, log: log}, nil
}

// GetOrCompile returns the compiled module for code, compiling and caching
// it if necessary. Concurrent callers for the same code hash share one
// compilation via singleflight. On compile failure the key is never
// cached, so later callers retry per spec §4.E.
func (mc *ModuleCache) GetOrCompile(code []byte, cbiVersion uint32) (*wasmer.Module, error) {
	hash := crypto.CodeHash(code)

	if entry, ok := mc.mem.Get(hash); ok {
		if mc.metrics != nil {
			mc.metrics.ModuleCacheHits.Inc()
		}
		return entry.module, nil
	}

	v, err, _ := mc.group.Do(string(hash[:]), func() (interface{}, error) {
		if entry, ok := mc.mem.Get(hash); ok {
			return entry.module, nil
		}
		if mc.dir != "" {
			if mod, err := mc.loadFromDisk(hash); err == nil && mod != nil {
				mc.mem.Add(hash, cacheEntry{module: mod, cbiVersion: cbiVersion})
				if mc.metrics != nil {
					mc.metrics.ModuleCacheHits.Inc()
				}
				return mod, nil
			}
		}
		if mc.metrics != nil {
			mc.metrics.ModuleCacheMiss.Inc()
		}
		mod, err := wasmer.NewModule(mc.store, code)
		if err != nil {
			return nil, fmt.Errorf("module cache: compile: %w", err)
		}
		mc.mem.Add(hash, cacheEntry{module: mod, cbiVersion: cbiVersion})
		if mc.dir != "" {
			if err := mc.saveToDisk(hash, mod); err != nil {
				mc.log.Warnw("module cache: failed to persist compiled module", "error", err)
			}
		}
		return mod, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*wasmer.Module), nil
}

func (mc *ModuleCache) artifactPath(hash [32]byte) string {
	return filepath.Join(mc.dir, fmt.Sprintf("%x.artifact", hash))
}

func (mc *ModuleCache) lockPath(hash [32]byte) string {
	return filepath.Join(mc.dir, fmt.Sprintf("%x.lock", hash))
}

func (mc *ModuleCache) loadFromDisk(hash [32]byte) (*wasmer.Module, error) {
	lock := flock.New(mc.lockPath(hash))
	if err := lock.RLock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	raw, err := os.ReadFile(mc.artifactPath(hash))
	if err != nil {
		return nil, err
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("module cache: corrupt artifact (too short)")
	}
	var magic [4]byte
	copy(magic[:], raw[:4])
	version := binary.BigEndian.Uint32(raw[4:8])
	if magic != diskArtifactMagic || version != diskArtifactVersion {
		return nil, fmt.Errorf("module cache: corrupt or incompatible artifact header")
	}
	mod, err := wasmer.DeserializeModule(mc.store, raw[8:])
	if err != nil {
		return nil, fmt.Errorf("module cache: deserialize: %w", err)
	}
	return mod, nil
}

func (mc *ModuleCache) saveToDisk(hash [32]byte, mod *wasmer.Module) error {
	lock := flock.New(mc.lockPath(hash))
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	serialized, err := mod.Serialize()
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	header := make([]byte, 8)
	copy(header[:4], diskArtifactMagic[:])
	binary.BigEndian.PutUint32(header[4:8], diskArtifactVersion)
	out := append(header, serialized...)

	tmp := mc.artifactPath(hash) + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, mc.artifactPath(hash))
}
