package core

// reconcile.go matches a parsed CSV header against an entity's expected schema.
//
// Schema columns are visited in declared order. Each one claims the first
// still-unused header whose trimmed, case-folded text equals its canonical
// name or one of its aliases. A header that repeats an earlier one never
// matches. Headers nobody claims are reported as
// unmatched; required columns nobody satisfies are reported as missing and
// block the import.

import (
	"strings"

	"golang.org/x/text/cases"
)

// Reconcile builds the column mapping for header under schema.
// It never modifies either argument.
func Reconcile(header []string, schema Schema) ColumnMapping {
	fold := cases.Fold()
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = fold.String(strings.TrimSpace(h))
	}

	// Only the first occurrence of a repeated header can match; records
	// carry only that occurrence's value.
	used := make([]bool, len(header))
	repeated := make([]bool, len(header))
	first := make(map[string]bool, len(header))
	for i, n := range normalized {
		if first[n] {
			repeated[i] = true
		}
		first[n] = true
	}
	mapping := ColumnMapping{
		Matched:   []MatchedColumn{},
		Unmatched: []string{},
		Missing:   []string{},
	}

	for _, col := range schema {
		names := make([]string, 0, 1+len(col.Aliases))
		names = append(names, fold.String(strings.TrimSpace(col.CanonicalName)))
		for _, alias := range col.Aliases {
			names = append(names, fold.String(strings.TrimSpace(alias)))
		}

		pos := -1
		for i := range header {
			if used[i] || repeated[i] {
				continue
			}
			if containsString(names, normalized[i]) {
				pos = i
				break
			}
		}

		if pos < 0 {
			if col.Required {
				mapping.Missing = append(mapping.Missing, col.CanonicalName)
			}
			continue
		}

		used[pos] = true
		mapping.Matched = append(mapping.Matched, MatchedColumn{
			Header:        header[pos],
			Column:        pos,
			FieldKey:      col.FieldKey,
			CanonicalName: col.CanonicalName,
			Required:      col.Required,
		})
	}

	for i, h := range header {
		if repeated[i] {
			mapping.Duplicates = append(mapping.Duplicates, h)
		}
		if !used[i] {
			mapping.Unmatched = append(mapping.Unmatched, h)
		}
	}

	return mapping
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
