// Package core provides the business logic for CSV import operations.
//
// This package holds the import pipeline independent of any transport. The
// HTTP server and the csvimport CLI both drive it through [Service].
//
// # Pipeline
//
// An import runs in two steps:
//
//  1. [Preview] tokenizes the file ([Tokenize]), matches its header against
//     the entity schema ([Reconcile]) and validates every row
//     ([RowValidator]). Nothing leaves the process.
//  2. [Commit] sends the valid rows as one batch to a [Committer] and merges
//     the backend's per-row errors with the validation rejections.
//
// Every data row ends in exactly one [Outcome]: [Committed],
// [ValidationRejected] or [ServerRejected]. Row numbers are 1-based data-row
// positions and stay the same from preview to the error report.
//
// # Entity Registry
//
// Entities are registered at init time using [Register], or at runtime from
// catalog files with [TryRegister]:
//
//	core.Register(core.EntityDefinition{
//	    Info: core.EntityInfo{Key: "vendors", Group: "Third Party", Label: "Vendors"},
//	    Schema: core.Schema{
//	        {CanonicalName: "Vendor Name", FieldKey: "name", Required: true},
//	        {CanonicalName: "Contact Email", FieldKey: "email", Aliases: []string{"Email"}},
//	    },
//	    Validators: core.Validators{"email": core.Email()},
//	})
//
// # Commit Policies
//
// [PolicySkipInvalid] commits whatever validated and reports the rest.
// [PolicyRequireAllValid] refuses the commit with [ErrInvalidRowsPresent]
// while any row is rejected.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code users can quote:
//
//   - COL001-COL002: header and entity problems
//   - ROW001-ROW003: row rejections
//   - COM001-COM007: commit backend failures
//   - FILE001-FILE003: upload problems
//   - SES001-SES004: preview session state
//   - RATE001: rate limiting
package core
