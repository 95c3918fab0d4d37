package policy

import (
	"sort"
	"sync"

	"github.com/Diomandeee/admissibility-kernel/canonical"
)

// Key identifies one registered policy by its (policy_id, params_hash)
// pair — the content-addressed key spec.md names.
type Key struct {
	PolicyID   string
	ParamsHash string
}

// Registry is a process-wide, content-addressed store of policies.
// Mutation takes an exclusive lock and recomputes the fingerprint
// atomically, the same shape as the teacher's CAS object store.
type Registry struct {
	mu       sync.RWMutex
	policies map[Key]SlicePolicyV1
	// order preserves first-registration order for deterministic
	// fingerprint computation independent of map iteration.
	order []Key
}

// NewRegistry returns an empty policy registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[Key]SlicePolicyV1)}
}

// Register adds p under (p.Version, p.ParamsHash()) and returns that key.
// Registering a policy that already exists under the same key is a
// no-op (content-addressed collisions are idempotent).
func (r *Registry) Register(p SlicePolicyV1) Key {
	key := Key{PolicyID: p.Version, ParamsHash: p.ParamsHash()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.policies[key]; exists {
		return key
	}
	r.policies[key] = p
	r.order = append(r.order, key)
	return key
}

// Resolve returns the policy registered under key, if any.
func (r *Registry) Resolve(key Key) (SlicePolicyV1, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[key]
	return p, ok
}

// List returns every registered key in first-registration order.
func (r *Registry) List() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Key, len(r.order))
	copy(out, r.order)
	return out
}

// Fingerprint is the xxh64 hex of the sorted set of registered keys —
// stable regardless of registration order.
func (r *Registry) Fingerprint() string {
	r.mu.RLock()
	keys := make([]Key, len(r.order))
	copy(keys, r.order)
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PolicyID != keys[j].PolicyID {
			return keys[i].PolicyID < keys[j].PolicyID
		}
		return keys[i].ParamsHash < keys[j].ParamsHash
	})

	fields := make([]canonical.Field, 0, len(keys)*2)
	for _, k := range keys {
		fields = append(fields, canonical.Str(k.PolicyID), canonical.Str(k.ParamsHash))
	}
	return canonical.CanonicalHashHex(fields...)
}
