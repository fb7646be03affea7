package dialect

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Dialect registry
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
	listeners  []func(name string)
)

// Type impl cache: dialect name -> core type name -> implementation.
var (
	implMu    sync.RWMutex
	typeImpls = make(map[string]map[string]types.Type)
)

// ErrDialectRequired is returned when a dialect is required but not provided.
var ErrDialectRequired = errors.New("dialect is required")

// Get returns a dialect by name.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// Register registers a dialect in the global registry, replacing any
// dialect of the same name. Called by dialect implementations in their
// init() functions.
func Register(d *Dialect) {
	name := strings.ToLower(d.Name)
	dialectsMu.Lock()
	_, replaced := dialects[name]
	dialects[name] = d
	dialectsMu.Unlock()
	if replaced {
		evict(name)
	}
}

// Deregister removes a dialect. Cached type implementations for it are
// evicted and deregistration listeners are notified.
func Deregister(name string) {
	name = strings.ToLower(name)
	dialectsMu.Lock()
	_, ok := dialects[name]
	delete(dialects, name)
	dialectsMu.Unlock()
	if ok {
		evict(name)
	}
}

func evict(name string) {
	implMu.Lock()
	delete(typeImpls, name)
	implMu.Unlock()

	dialectsMu.RLock()
	fns := append([]func(string){}, listeners...)
	dialectsMu.RUnlock()
	for _, fn := range fns {
		fn(name)
	}
}

// OnDeregister registers fn to be called with the lower-cased name of a
// dialect that is deregistered or replaced.
func OnDeregister(fn func(name string)) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	listeners = append(listeners, fn)
}

// List returns all registered dialect names (sorted).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeImpl returns d's implementation of t, memoized per dialect name and
// type name for registered dialects.
func TypeImpl(d *Dialect, t types.Type) types.Type {
	t = types.Of(t)
	name := strings.ToLower(d.Name)
	if reg, ok := Get(name); !ok || reg != d {
		return d.AdaptType(t)
	}

	implMu.RLock()
	impl, ok := typeImpls[name][t.Name()]
	implMu.RUnlock()
	if ok {
		return impl
	}

	impl = d.AdaptType(t)
	implMu.Lock()
	defer implMu.Unlock()
	if _, still := Get(name); !still {
		return impl
	}
	byType := typeImpls[name]
	if byType == nil {
		byType = make(map[string]types.Type)
		typeImpls[name] = byType
	}
	if existing, ok := byType[t.Name()]; ok {
		return existing
	}
	byType[t.Name()] = impl
	return impl
}

// cachedTypeImpls reports how many type impls are cached for a dialect.
func cachedTypeImpls(name string) int {
	implMu.RLock()
	defer implMu.RUnlock()
	return len(typeImpls[strings.ToLower(name)])
}
