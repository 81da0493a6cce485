package core

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
)

// TemplateCSV returns a header-only CSV for schema, using canonical names in
// schema order. Names containing commas, quotes or newlines are quoted.
func TemplateCSV(schema Schema) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(schema.CanonicalNames())
	w.Flush()
	return buf.String()
}

// WriteErrorReport writes one CSV line per failed row with its row number,
// reason and final state. Rows appear in ascending order.
func WriteErrorReport(dst io.Writer, failures []RowFailure) error {
	w := csv.NewWriter(dst)
	if err := w.Write([]string{"_row", "_error", "_state"}); err != nil {
		return err
	}
	for _, f := range failures {
		if err := w.Write([]string{strconv.Itoa(f.Row), f.Error, string(f.State)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// PreviewFailures converts a preview's row errors into report lines.
func PreviewFailures(p *PreviewResult) []RowFailure {
	out := make([]RowFailure, len(p.RowErrors))
	for i, re := range p.RowErrors {
		out[i] = RowFailure{
			Row:   re.RowIndex,
			Error: joinMessages(re.Messages),
			State: StateValidationRejected,
		}
	}
	return out
}
