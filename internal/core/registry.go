package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]SchemaDefinition)
	registryMu sync.RWMutex
)

// Register adds a schema definition to the registry.
// Panics if a schema with the same key is already registered.
func Register(def SchemaDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("schema already registered: %s", def.Info.Key))
	}

	// Populate Columns from FieldSpecs if not set
	if len(def.Info.Columns) == 0 && len(def.FieldSpecs) > 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}

	registry[def.Info.Key] = def
}

// Get returns a schema definition by key.
// Returns false if not found.
func Get(key string) (SchemaDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered schema definitions sorted by key.
func All() []SchemaDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SchemaDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Keys returns all registered schema keys sorted.
func Keys() []string {
	defs := All()
	keys := make([]string, len(defs))
	for i, d := range defs {
		keys[i] = d.Info.Key
	}
	return keys
}

// Match returns the registered schema whose columns are all present in
// headers. When several match, the one with the most columns wins.
func Match(headers []string) (SchemaDefinition, bool) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(h)] = true
	}

	var best SchemaDefinition
	found := false
	for _, def := range All() {
		ok := true
		for _, c := range def.Info.Columns {
			if !present[strings.ToLower(c)] {
				ok = false
				break
			}
		}
		if ok && (!found || len(def.Info.Columns) > len(best.Info.Columns)) {
			best, found = def, true
		}
	}
	return best, found
}

// SchemaCount returns the number of registered schemas.
func SchemaCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered schemas.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]SchemaDefinition)
}
