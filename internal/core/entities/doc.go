// Package entities registers the built-in importable entities with the core
// registry. Import it for side effects:
//
//	import _ "github.com/JonMunkholm/csvimport/internal/core/entities"
//
// Each file uses init() to register its entity.
package entities
