package core

// orchestrator.go runs the import pipeline for a whole file.
//
// The pipeline has two steps so that users see validity counts before any
// network traffic happens:
//
//  1. Preview: tokenize, reconcile, validate. Pure and in-memory. Fails fast
//     with a StructuralError when required columns are missing.
//  2. Commit: send the valid rows as one batch to a Committer and merge the
//     backend's per-row rejections with the client-side ones.
//
// Every data row ends in exactly one state: committed, validation-rejected or
// server-rejected. Row numbers are the 1-based data-row indexes assigned by
// the tokenizer and are carried unchanged through both steps.

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Sample limits
const (
	defaultRowSamples   = 10
	defaultErrorSamples = 20
)

// PreviewOptions tunes a preview run. The zero value is usable.
type PreviewOptions struct {
	FileName     string
	ExtraFields  ExtraFieldPolicy
	RowSamples   int // valid rows included in SampleRows (default 10)
	ErrorSamples int // row errors included in ErrorSamples (default 20)
}

// PreviewResult is the outcome of validating a file, before commit.
type PreviewResult struct {
	Entity           string         `json:"entity"`
	FileName         string         `json:"fileName,omitempty"`
	Header           []string       `json:"header"`
	Mapping          ColumnMapping  `json:"mapping"`
	TotalRows        int            `json:"totalRows"`
	ValidCount       int            `json:"validCount"`
	ErrorCount       int            `json:"errorCount"`
	SampleRows       []ValidatedRow `json:"sampleRows"`
	ErrorSamples     []RowError     `json:"errorSamples"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`

	// Full partitions, used by Commit. Not serialized; large files would
	// otherwise be echoed back in every preview response.
	ValidRows []ValidatedRow `json:"-"`
	RowErrors []RowError     `json:"-"`
}

// Preview tokenizes raw, reconciles its header with def's schema and
// validates every record. It performs no I/O.
//
// A *StructuralError is returned, and no row is examined, when a required
// column is missing from the header.
func Preview(raw string, def EntityDefinition, opts PreviewOptions) (*PreviewResult, error) {
	start := time.Now()

	header, records := Tokenize(raw)
	mapping := Reconcile(header, def.Schema)
	if !mapping.OK() {
		return nil, &StructuralError{Missing: mapping.Missing, Mapping: mapping}
	}

	validator := NewRowValidator(mapping, def.Validators, opts.ExtraFields, len(header))
	valid, rowErrors := validator.ValidateRecords(records)

	rowSamples := opts.RowSamples
	if rowSamples <= 0 {
		rowSamples = defaultRowSamples
	}
	errorSamples := opts.ErrorSamples
	if errorSamples <= 0 {
		errorSamples = defaultErrorSamples
	}

	result := &PreviewResult{
		Entity:       def.Info.Key,
		FileName:     opts.FileName,
		Header:       header,
		Mapping:      mapping,
		TotalRows:    len(records),
		ValidCount:   len(valid),
		ErrorCount:   len(rowErrors),
		SampleRows:   valid[:min(len(valid), rowSamples)],
		ErrorSamples: rowErrors[:min(len(rowErrors), errorSamples)],
		ValidRows:    valid,
		RowErrors:    rowErrors,
	}
	if result.ErrorSamples == nil {
		result.ErrorSamples = []RowError{}
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	slog.Debug("import preview",
		"entity", result.Entity,
		"file", result.FileName,
		"rows", result.TotalRows,
		"valid", result.ValidCount,
		"errors", result.ErrorCount,
		"unmatched", len(mapping.Unmatched),
	)

	return result, nil
}

// CommitOptions controls how a preview is committed.
type CommitOptions struct {
	Policy        CommitPolicy
	ContextParams map[string]any
	BatchID       string // generated when empty
}

// Commit submits the preview's valid rows as a single batch and merges the
// backend's response with the client-side rejections.
//
// Under PolicyRequireAllValid a preview with any rejected row returns
// ErrInvalidRowsPresent without contacting the backend. A transport or
// backend failure is returned as *CommitError; the preview is unchanged and
// may be committed again. Commit never retries.
func Commit(ctx context.Context, committer Committer, preview *PreviewResult, opts CommitOptions) (*ImportResult, error) {
	if preview == nil {
		return nil, errors.New("commit: nil preview")
	}
	if opts.Policy == PolicyRequireAllValid && len(preview.RowErrors) > 0 {
		return nil, ErrInvalidRowsPresent
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batchID := opts.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}

	var resp CommitResponse
	if len(preview.ValidRows) > 0 {
		if committer == nil {
			return nil, &CommitError{BatchID: batchID, Err: errors.New("no commit backend configured")}
		}

		req := CommitRequest{
			Entity:        preview.Entity,
			BatchID:       batchID,
			FileName:      preview.FileName,
			Rows:          make([]map[string]string, len(preview.ValidRows)),
			ContextParams: opts.ContextParams,
		}
		for i, row := range preview.ValidRows {
			req.Rows[i] = copyRow(row.Data)
		}

		var err error
		resp, err = committer.CommitBatch(ctx, req)
		if err != nil {
			return nil, &CommitError{BatchID: batchID, Err: err}
		}
	}

	result := mergeOutcomes(ctx, preview, resp)
	result.BatchID = batchID

	slog.InfoContext(ctx, "import committed",
		"entity", result.Entity,
		"batch_id", batchID,
		"rows", result.TotalRows,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
	)

	return result, nil
}

// RunImport previews raw and, if it is structurally sound, commits it.
// The preview is returned even when the commit fails so callers can report
// validation results alongside the commit error.
func RunImport(ctx context.Context, raw string, def EntityDefinition, committer Committer, previewOpts PreviewOptions, commitOpts CommitOptions) (*PreviewResult, *ImportResult, error) {
	preview, err := Preview(raw, def, previewOpts)
	if err != nil {
		return nil, nil, err
	}
	result, err := Commit(ctx, committer, preview, commitOpts)
	if err != nil {
		return preview, nil, err
	}
	return preview, result, nil
}

// mergeOutcomes assigns every data row exactly one outcome. Server errors
// name 1-based positions in the submitted batch; they are translated back to
// file row indexes. Positions outside the batch, and repeats, are ignored.
func mergeOutcomes(ctx context.Context, preview *PreviewResult, resp CommitResponse) *ImportResult {
	submitted := len(preview.ValidRows)

	serverReasons := make(map[int]string, len(resp.Errors))
	for _, e := range resp.Errors {
		if e.Row < 1 || e.Row > submitted {
			slog.WarnContext(ctx, "commit response names row outside batch",
				"entity", preview.Entity,
				"row", e.Row,
				"batch_size", submitted,
			)
			continue
		}
		if _, dup := serverReasons[e.Row]; dup {
			slog.WarnContext(ctx, "commit response repeats row", "entity", preview.Entity, "row", e.Row)
			continue
		}
		reason := e.Error
		if reason == "" {
			reason = "rejected by server"
		}
		serverReasons[e.Row] = reason
	}

	outcomes := make([]Outcome, 0, preview.TotalRows)
	for _, rowErr := range preview.RowErrors {
		outcomes = append(outcomes, ValidationRejected{
			RowIndex: rowErr.RowIndex,
			Messages: rowErr.Messages,
		})
	}

	committed := 0
	for i, row := range preview.ValidRows {
		if reason, rejected := serverReasons[i+1]; rejected {
			outcomes = append(outcomes, ServerRejected{RowIndex: row.RowIndex, Cause: reason})
			continue
		}
		outcomes = append(outcomes, Committed{RowIndex: row.RowIndex})
		committed++
	}

	if submitted > 0 && (resp.Success != committed || resp.Failed != len(serverReasons)) {
		slog.WarnContext(ctx, "commit response counts disagree with per-row errors",
			"entity", preview.Entity,
			"reported_success", resp.Success,
			"reported_failed", resp.Failed,
			"derived_success", committed,
			"derived_failed", len(serverReasons),
		)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Row() < outcomes[j].Row()
	})

	result := &ImportResult{
		Entity:       preview.Entity,
		TotalRows:    len(outcomes),
		SuccessCount: committed,
		FailedCount:  len(outcomes) - committed,
		Errors:       make([]RowFailure, 0, len(outcomes)-committed),
		Outcomes:     outcomes,
	}
	for _, o := range outcomes {
		if o.State() == StateCommitted {
			continue
		}
		result.Errors = append(result.Errors, RowFailure{
			Row:   o.Row(),
			Error: o.Reason(),
			State: o.State(),
		})
	}

	return result
}

func copyRow(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
