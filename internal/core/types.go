package core

import (
	"context"
	"sort"
	"time"
)

// ExpectedColumn declares one column an entity's import accepts.
// Schemas are caller-supplied and never mutated by the pipeline.
type ExpectedColumn struct {
	CanonicalName string   `json:"canonicalName" yaml:"name"`
	FieldKey      string   `json:"fieldKey" yaml:"key"`
	Required      bool     `json:"required" yaml:"required"`
	Aliases       []string `json:"aliases,omitempty" yaml:"aliases"`
}

// Schema is the ordered list of expected columns for one entity type.
// Earlier entries win when a header could satisfy more than one column.
type Schema []ExpectedColumn

// CanonicalNames returns the canonical header row for the schema.
func (s Schema) CanonicalNames() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.CanonicalName
	}
	return names
}

// Record is one data row keyed by header name.
type Record struct {
	// Index is the 1-based position among data rows (header and blank lines excluded).
	Index int

	// Fields maps header name to the trimmed cell value. When the header
	// repeats a name, the first occurrence's value is kept.
	Fields map[string]string

	// Extra holds trailing values beyond the header width, in file order.
	Extra []string
}

// Value returns the cell for a header name, or "" if the row has none.
func (r Record) Value(header string) string {
	return r.Fields[header]
}

// MatchedColumn binds one CSV header to one schema field.
type MatchedColumn struct {
	Header        string `json:"header"`
	Column        int    `json:"column"` // zero-based position in the header row
	FieldKey      string `json:"fieldKey"`
	CanonicalName string `json:"canonicalName"`
	Required      bool   `json:"required"`
}

// ColumnMapping is the result of reconciling a header against a schema.
type ColumnMapping struct {
	Matched    []MatchedColumn `json:"matched"`
	Unmatched  []string        `json:"unmatched"`
	Missing    []string        `json:"missing"`
	Duplicates []string        `json:"duplicates,omitempty"`
}

// OK reports whether every required schema column was found.
func (m ColumnMapping) OK() bool {
	return len(m.Missing) == 0
}

// ValidatedRow is a row that passed every field check.
type ValidatedRow struct {
	RowIndex int               `json:"row"`
	Data     map[string]string `json:"data"`
}

// RowError collects every field problem found on one row.
type RowError struct {
	RowIndex int      `json:"row"`
	Messages []string `json:"messages"`
}

// ValidatorFunc checks a raw cell value. A nil error means the value is valid;
// otherwise the error text is reported against the row.
type ValidatorFunc func(raw string) error

// Validators maps a schema field key to its validator.
type Validators map[string]ValidatorFunc

// CommitPolicy controls what happens to rows that failed validation when a
// preview is committed.
type CommitPolicy int

const (
	// PolicySkipInvalid commits the valid rows and reports the rest as rejected.
	PolicySkipInvalid CommitPolicy = iota
	// PolicyRequireAllValid refuses to commit while any row has errors.
	PolicyRequireAllValid
)

func (p CommitPolicy) String() string {
	switch p {
	case PolicySkipInvalid:
		return "skip-invalid"
	case PolicyRequireAllValid:
		return "require-all-valid"
	default:
		return "unknown"
	}
}

// ParseCommitPolicy converts a policy name to a CommitPolicy.
// An empty string selects PolicySkipInvalid.
func ParseCommitPolicy(s string) (CommitPolicy, bool) {
	switch s {
	case "", "skip-invalid", "skip_invalid":
		return PolicySkipInvalid, true
	case "require-all-valid", "require_all_valid", "strict":
		return PolicyRequireAllValid, true
	default:
		return PolicySkipInvalid, false
	}
}

// ExtraFieldPolicy decides what happens to values beyond the header width.
type ExtraFieldPolicy int

const (
	// ExtraFieldsIgnore drops trailing values silently.
	ExtraFieldsIgnore ExtraFieldPolicy = iota
	// ExtraFieldsReject turns a row with trailing values into a RowError.
	ExtraFieldsReject
)

// ParseExtraFieldPolicy converts "ignore" or "reject" to an ExtraFieldPolicy.
func ParseExtraFieldPolicy(s string) (ExtraFieldPolicy, bool) {
	switch s {
	case "", "ignore":
		return ExtraFieldsIgnore, true
	case "reject":
		return ExtraFieldsReject, true
	default:
		return ExtraFieldsIgnore, false
	}
}

// RowState names the final fate of an input row.
type RowState string

const (
	StateCommitted          RowState = "committed"
	StateValidationRejected RowState = "validation_rejected"
	StateServerRejected     RowState = "server_rejected"
)

// Outcome is the final state of a single input row. The concrete types are
// Committed, ValidationRejected and ServerRejected; no other type implements it.
type Outcome interface {
	Row() int
	State() RowState
	Reason() string
	outcome()
}

// Committed marks a row the backend accepted.
type Committed struct {
	RowIndex int
}

// ValidationRejected marks a row that failed client-side validation.
type ValidationRejected struct {
	RowIndex int
	Messages []string
}

// ServerRejected marks a row the backend refused.
type ServerRejected struct {
	RowIndex int
	Cause    string
}

func (c Committed) Row() int        { return c.RowIndex }
func (c Committed) State() RowState { return StateCommitted }
func (c Committed) Reason() string  { return "" }
func (Committed) outcome()          {}

func (v ValidationRejected) Row() int        { return v.RowIndex }
func (v ValidationRejected) State() RowState { return StateValidationRejected }
func (v ValidationRejected) Reason() string  { return joinMessages(v.Messages) }
func (ValidationRejected) outcome()          {}

func (s ServerRejected) Row() int        { return s.RowIndex }
func (s ServerRejected) State() RowState { return StateServerRejected }
func (s ServerRejected) Reason() string  { return s.Cause }
func (ServerRejected) outcome()          {}

// RowFailure is a rejected row in an ImportResult, from either side.
type RowFailure struct {
	Row   int      `json:"row"`
	Error string   `json:"error"`
	State RowState `json:"state"`
}

// ImportResult is the merged outcome of a committed import.
type ImportResult struct {
	BatchID      string       `json:"batchId,omitempty"`
	Entity       string       `json:"entity"`
	TotalRows    int          `json:"totalRows"`
	SuccessCount int          `json:"success"`
	FailedCount  int          `json:"failed"`
	Errors       []RowFailure `json:"errors"`
	Outcomes     []Outcome    `json:"-"`
}

// OutcomeFor returns the outcome recorded for a row index.
func (r *ImportResult) OutcomeFor(row int) (Outcome, bool) {
	i := sort.Search(len(r.Outcomes), func(i int) bool {
		return r.Outcomes[i].Row() >= row
	})
	if i < len(r.Outcomes) && r.Outcomes[i].Row() == row {
		return r.Outcomes[i], true
	}
	return nil, false
}

// CommitRequest is the batch sent to a Committer.
type CommitRequest struct {
	Entity        string              `json:"-"`
	BatchID       string              `json:"-"`
	FileName      string              `json:"-"`
	Rows          []map[string]string `json:"rows"`
	ContextParams map[string]any      `json:"contextParams,omitempty"`
}

// CommitRowError is a backend rejection. Row is the 1-based position of the
// row within CommitRequest.Rows.
type CommitRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// CommitResponse is what a Committer reports back for a batch.
type CommitResponse struct {
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []CommitRowError `json:"errors"`
}

// Committer persists a batch of validated rows. Implementations own transport,
// timeouts and persistence; the pipeline only relies on the response shape.
type Committer interface {
	CommitBatch(ctx context.Context, req CommitRequest) (CommitResponse, error)
}

// BatchRollbacker is implemented by committers that can undo a committed batch.
type BatchRollbacker interface {
	RollbackBatch(ctx context.Context, batchID string) (int64, error)
}

// BatchSummary describes one stored batch.
type BatchSummary struct {
	ID           string     `json:"id"`
	Entity       string     `json:"entity"`
	FileName     string     `json:"fileName,omitempty"`
	Actor        string     `json:"actor,omitempty"`
	RowsInserted int        `json:"rowsInserted"`
	RowsRejected int        `json:"rowsRejected"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	RolledBackAt *time.Time `json:"rolledBackAt,omitempty"`
}

// BatchLister is implemented by committers that keep a batch history.
type BatchLister interface {
	ListBatches(ctx context.Context, entity string, limit int) ([]BatchSummary, error)
}
