package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]EntityDefinition)
	registryMu sync.RWMutex
)

// EntityInfo contains display information about an importable entity.
type EntityInfo struct {
	Key       string   `json:"key"`                 // Unique identifier: "controls"
	Group     string   `json:"group"`               // Catalog section: "Governance", "Third Party"
	Label     string   `json:"label"`               // Display name: "Controls"
	UniqueKey []string `json:"uniqueKey,omitempty"` // Field keys that identify a record for duplicate detection
}

// EntityDefinition contains everything needed to import one entity type.
type EntityDefinition struct {
	Info       EntityInfo
	Schema     Schema
	Validators Validators
}

// Validate checks that the definition is internally consistent.
func (d EntityDefinition) Validate() error {
	if strings.TrimSpace(d.Info.Key) == "" {
		return fmt.Errorf("entity key is required")
	}
	if len(d.Schema) == 0 {
		return fmt.Errorf("entity %s: schema has no columns", d.Info.Key)
	}

	keys := make(map[string]bool, len(d.Schema))
	for i, col := range d.Schema {
		if strings.TrimSpace(col.CanonicalName) == "" {
			return fmt.Errorf("entity %s: column %d has no name", d.Info.Key, i+1)
		}
		if strings.TrimSpace(col.FieldKey) == "" {
			return fmt.Errorf("entity %s: column %q has no field key", d.Info.Key, col.CanonicalName)
		}
		if keys[col.FieldKey] {
			return fmt.Errorf("entity %s: duplicate field key %q", d.Info.Key, col.FieldKey)
		}
		keys[col.FieldKey] = true
	}

	for fieldKey := range d.Validators {
		if !keys[fieldKey] {
			return fmt.Errorf("entity %s: validator for unknown field %q", d.Info.Key, fieldKey)
		}
	}
	for _, k := range d.Info.UniqueKey {
		if !keys[k] {
			return fmt.Errorf("entity %s: unique key references unknown field %q", d.Info.Key, k)
		}
	}
	return nil
}

// Register adds an entity definition to the registry.
// Panics if the definition is invalid or the key is already registered.
func Register(def EntityDefinition) {
	if err := TryRegister(def); err != nil {
		panic(err.Error())
	}
}

// TryRegister adds an entity definition to the registry, returning an error
// instead of panicking. Used for definitions loaded at runtime.
func TryRegister(def EntityDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		return fmt.Errorf("entity already registered: %s", def.Info.Key)
	}
	if def.Info.Label == "" {
		def.Info.Label = def.Info.Key
	}

	registry[def.Info.Key] = def
	return nil
}

// Get returns an entity definition by key.
// Returns false if not found.
func Get(key string) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered entity definitions.
// Sorted by group then by key for consistent ordering.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ByGroup returns all entity definitions for a specific group.
// Sorted by key for consistent ordering.
func ByGroup(group string) []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []EntityDefinition
	for _, def := range registry {
		if def.Info.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// EntityCount returns the number of registered entities.
func EntityCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered entities.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]EntityDefinition)
}
