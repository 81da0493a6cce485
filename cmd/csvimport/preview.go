package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/spf13/cobra"
)

// inputOptions are the flags shared by preview and commit.
type inputOptions struct {
	entity      string
	file        string
	extraFields string
	jsonOut     bool
	maxErrors   int
}

func (o *inputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.entity, "entity", "", "Entity key (required)")
	cmd.Flags().StringVarP(&o.file, "file", "f", "", `CSV file to import, "-" for stdin (required)`)
	cmd.Flags().StringVar(&o.extraFields, "extra-fields", "", "Values beyond the header width: ignore or reject (default: UPLOAD_EXTRA_FIELDS)")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "Print JSON instead of a text report")
	cmd.Flags().IntVar(&o.maxErrors, "max-errors", 50, "Rejected rows to print (0 for all)")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("file")
}

func (o *inputOptions) previewRequest(a *app) (core.PreviewRequest, func(), error) {
	if _, ok := core.Get(o.entity); !ok {
		return core.PreviewRequest{}, nil, withCode(exitUsage, fmt.Errorf("%w: %s", core.ErrUnknownEntity, o.entity))
	}

	var extraFields *core.ExtraFieldPolicy
	if o.extraFields != "" {
		p, ok := core.ParseExtraFieldPolicy(o.extraFields)
		if !ok {
			return core.PreviewRequest{}, nil, withCode(exitUsage, fmt.Errorf("invalid --extra-fields %q", o.extraFields))
		}
		extraFields = &p
	}

	if o.file == "-" {
		return core.PreviewRequest{Entity: o.entity, FileName: "stdin", Body: a.stdin, ExtraFields: extraFields}, func() {}, nil
	}
	f, err := os.Open(o.file)
	if err != nil {
		return core.PreviewRequest{}, nil, err
	}
	return core.PreviewRequest{
		Entity:      o.entity,
		FileName:    filepath.Base(o.file),
		Body:        f,
		ExtraFields: extraFields,
	}, func() { f.Close() }, nil
}

func newPreviewCmd(a *app) *cobra.Command {
	var opts inputOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Validate a CSV file without committing it",
		Long: "Validate a CSV file against an entity schema and report which rows\n" +
			"would be committed. Nothing is sent to a backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, done, err := opts.previewRequest(a)
			if err != nil {
				return err
			}
			defer done()

			svc := a.newService(nil)
			sess, err := svc.PreviewImport(cmd.Context(), req)
			if err != nil {
				return reportPreviewError(a.stderr, err)
			}
			p := sess.Preview

			if opts.jsonOut {
				if err := writeJSON(a.stdout, p); err != nil {
					return err
				}
			} else {
				printPreview(a.stdout, p, opts.maxErrors)
			}

			if p.ErrorCount > 0 {
				return withCode(exitRejected, fmt.Errorf("%d of %d rows failed validation", p.ErrorCount, p.TotalRows))
			}
			return nil
		},
	}
	opts.register(cmd)

	return cmd
}

// reportPreviewError explains structural failures before returning them.
func reportPreviewError(w io.Writer, err error) error {
	var se *core.StructuralError
	if errors.As(err, &se) {
		fmt.Fprintf(w, "missing required columns: %s\n", strings.Join(se.Missing, ", "))
		if len(se.Mapping.Unmatched) > 0 {
			fmt.Fprintf(w, "unrecognised columns:     %s\n", strings.Join(se.Mapping.Unmatched, ", "))
		}
		return err
	}
	if errors.Is(err, core.ErrEmptyFile) || errors.Is(err, core.ErrFileTooLarge) {
		return withCode(exitUsage, err)
	}
	return err
}

func printPreview(w io.Writer, p *core.PreviewResult, maxErrors int) {
	fmt.Fprintf(w, "entity:   %s\n", p.Entity)
	fmt.Fprintf(w, "file:     %s\n", p.FileName)
	fmt.Fprintf(w, "rows:     %d total, %d valid, %d rejected\n", p.TotalRows, p.ValidCount, p.ErrorCount)
	if len(p.Mapping.Unmatched) > 0 {
		fmt.Fprintf(w, "ignored:  %s\n", strings.Join(p.Mapping.Unmatched, ", "))
	}
	if len(p.Mapping.Duplicates) > 0 {
		fmt.Fprintf(w, "repeated: %s (first column used)\n", strings.Join(p.Mapping.Duplicates, ", "))
	}
	printFailures(w, core.PreviewFailures(p), maxErrors)
}

func printFailures(w io.Writer, failures []core.RowFailure, maxErrors int) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(w)
	for i, f := range failures {
		if maxErrors > 0 && i == maxErrors {
			fmt.Fprintf(w, "... %d more\n", len(failures)-maxErrors)
			return
		}
		fmt.Fprintf(w, "row %d: %s\n", f.Row, f.Error)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
