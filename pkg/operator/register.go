package operator

import (
	"strings"
	"sync"
)

var (
	dynamicMu   sync.RWMutex
	nextID      = maxBuiltin
	dynamicOps  = make(map[Op]info)
	dynamicName = make(map[string]Op)
)

// Register registers a dialect-specific operator such as ILIKE or @>.
// Registering the same name twice returns the existing operator, so
// dialect init() functions may register shared operators independently.
func Register(name, symbol string, precedence int, boolean bool) Op {
	key := strings.ToLower(name)

	dynamicMu.Lock()
	defer dynamicMu.Unlock()

	if op, ok := dynamicName[key]; ok {
		return op
	}
	nextID++
	op := nextID
	dynamicOps[op] = info{
		symbol:     symbol,
		precedence: precedence,
		comparison: boolean && precedence == PrecedenceComparison,
		boolean:    boolean,
	}
	dynamicName[key] = op
	return op
}

// Lookup returns a dynamically registered operator by name.
func Lookup(name string) (Op, bool) {
	dynamicMu.RLock()
	defer dynamicMu.RUnlock()
	op, ok := dynamicName[strings.ToLower(name)]
	return op, ok
}

// IsDynamic returns true if the operator was registered at runtime.
func IsDynamic(o Op) bool {
	return o > maxBuiltin
}

func dynamicInfo(o Op) (info, bool) {
	dynamicMu.RLock()
	defer dynamicMu.RUnlock()
	in, ok := dynamicOps[o]
	return in, ok
}
