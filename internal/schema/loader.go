// Package schema loads entity definitions from YAML catalog files.
//
// One file describes one entity:
//
//	key: contacts
//	group: CRM
//	label: Contacts
//	uniqueKey: [email]
//	columns:
//	  - name: Name
//	    key: name
//	    required: true
//	  - name: Email
//	    key: email
//	    required: true
//	    aliases: [E-mail, Email Address]
//	    validate: email
//
// The validate field takes the compact specs understood by
// core.LookupValidator, for example "date", "enum:Low|High" or
// "maxlen:80,email".
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JonMunkholm/csvimport/internal/core"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of one entity definition.
type File struct {
	Key       string   `yaml:"key"`
	Group     string   `yaml:"group"`
	Label     string   `yaml:"label"`
	UniqueKey []string `yaml:"uniqueKey"`
	Columns   []Column `yaml:"columns"`
}

// Column is one expected column plus its optional validator spec.
type Column struct {
	core.ExpectedColumn `yaml:",inline"`
	Validate            string `yaml:"validate"`
}

// Parse decodes a YAML document into an entity definition.
func Parse(data []byte) (core.EntityDefinition, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return core.EntityDefinition{}, fmt.Errorf("decode schema: %w", err)
	}
	return f.Definition()
}

// Definition converts the file into a validated entity definition.
func (f File) Definition() (core.EntityDefinition, error) {
	def := core.EntityDefinition{
		Info: core.EntityInfo{
			Key:       strings.TrimSpace(f.Key),
			Group:     f.Group,
			Label:     f.Label,
			UniqueKey: f.UniqueKey,
		},
		Schema:     make(core.Schema, 0, len(f.Columns)),
		Validators: core.Validators{},
	}
	if def.Info.Group == "" {
		def.Info.Group = "Custom"
	}

	for _, col := range f.Columns {
		def.Schema = append(def.Schema, col.ExpectedColumn)
		v, err := core.LookupValidator(col.Validate)
		if err != nil {
			return core.EntityDefinition{}, fmt.Errorf("column %q: %w", col.CanonicalName, err)
		}
		if v != nil {
			def.Validators[col.FieldKey] = v
		}
	}

	if err := def.Validate(); err != nil {
		return core.EntityDefinition{}, err
	}
	return def, nil
}

// LoadFile parses a single catalog file.
func LoadFile(path string) (core.EntityDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.EntityDefinition{}, err
	}
	def, err := Parse(data)
	if err != nil {
		return core.EntityDefinition{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// LoadDir registers every *.yaml and *.yml file in dir with the core
// registry. All files are attempted; the returned error joins every failure.
// A missing directory is not an error.
func LoadDir(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("schema directory not found", "dir", dir)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var errs []error
	loaded := 0
	for _, p := range paths {
		def, err := LoadFile(p)
		if err == nil {
			err = core.TryRegister(def)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
		slog.Info("entity schema loaded", "entity", def.Info.Key, "file", filepath.Base(p), "columns", len(def.Schema))
	}

	return loaded, errors.Join(errs...)
}
