package vertical_arm

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

type chainEntry struct {
	chain    *SafeArmChain
	dims     Dimensions
	mode     PropagationMode
	refCount int64 // Atomic reference counter
	mu       sync.RWMutex
}

// ChainRegistry hands out reference-counted chains keyed by chain name.
type ChainRegistry struct {
	entries map[string]*chainEntry // chain name -> entry
	mu      sync.RWMutex
}

func NewChainRegistry() *ChainRegistry {
	return &ChainRegistry{
		entries: make(map[string]*chainEntry),
	}
}

// errChainReleased marks an entry dropped between the map read and its lock.
var errChainReleased = errors.New("chain released")

// Acquire returns the chain registered under name, creating it if needed. An
// existing chain built with different dimensions or mode is a conflict.
//
// Locks are always taken registry first, then entry.
func (r *ChainRegistry) Acquire(name string, dims Dimensions, mode PropagationMode) (*SafeArmChain, error) {
	dims = dims.WithDefaults()
	if mode == "" {
		mode = PropagationChained
	}

	for {
		r.mu.RLock()
		entry, exists := r.entries[name]
		r.mu.RUnlock()

		if !exists {
			return r.createNewChain(name, dims, mode)
		}

		chain, err := r.getExistingChain(name, entry, dims, mode)
		if errors.Is(err, errChainReleased) {
			continue
		}
		return chain, err
	}
}

func (r *ChainRegistry) getExistingChain(name string, entry *chainEntry, dims Dimensions, mode PropagationMode) (*SafeArmChain, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.chain == nil {
		return nil, errChainReleased
	}

	if entry.dims != dims || entry.mode != mode {
		currentRefCount := atomic.LoadInt64(&entry.refCount)
		return nil, fmt.Errorf("conflict: chain %q already exists with different dimensions or mode (refCount: %d)",
			name, currentRefCount)
	}

	atomic.AddInt64(&entry.refCount, 1)
	return entry.chain, nil
}

func (r *ChainRegistry) createNewChain(name string, dims Dimensions, mode PropagationMode) (*SafeArmChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Entries are only dropped under r.mu, so one found here is live.
	if entry, exists := r.entries[name]; exists {
		return r.getExistingChain(name, entry, dims, mode)
	}

	chain, err := NewArmChain(dims, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to build chain %q: %w", name, err)
	}

	entry := &chainEntry{
		chain:    NewSafeArmChain(chain),
		dims:     dims,
		mode:     mode,
		refCount: 1,
	}
	r.entries[name] = entry

	return entry.chain, nil
}

// Lookup returns the live chain registered under name without taking a reference.
func (r *ChainRegistry) Lookup(name string) (*SafeArmChain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	if !exists {
		return nil, fmt.Errorf("no chain named %q, is the arm configured?", name)
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.chain, nil
}

// Release drops one reference. The chain is forgotten when the last one goes.
func (r *ChainRegistry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[name]
	if !exists {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if atomic.AddInt64(&entry.refCount, -1) <= 0 {
		delete(r.entries, name)
		entry.chain = nil
		atomic.StoreInt64(&entry.refCount, 0)
	}
}

// ForceRelease forgets the chain regardless of outstanding references.
func (r *ChainRegistry) ForceRelease(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[name]
	if !exists {
		return
	}
	delete(r.entries, name)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.chain = nil
	atomic.StoreInt64(&entry.refCount, 0)
}

// Status reports the reference count, whether a chain exists, and a summary.
func (r *ChainRegistry) Status(name string) (int64, bool, string) {
	r.mu.RLock()
	entry, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return 0, false, ""
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	currentRefCount := atomic.LoadInt64(&entry.refCount)
	hasChain := entry.chain != nil
	summary := ""
	if hasChain {
		j1, j2 := entry.chain.JointAngles()
		summary = fmt.Sprintf("Mode: %s, Joints: %.2f°/%.2f°", entry.mode, j1, j2)
	}

	return currentRefCount, hasChain, summary
}
