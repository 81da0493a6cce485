package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/csvimport/internal/commit"
	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/spf13/cobra"
)

// cliActor is recorded as the importer of batches committed from the CLI.
const cliActor = "cli"

// backendOptions select and override the commit backend.
type backendOptions struct {
	backend  string
	endpoint string
}

func (o *backendOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.backend, "backend", "", "Commit backend: postgres, http, memory (default: COMMIT_BACKEND)")
	cmd.Flags().StringVar(&o.endpoint, "endpoint", "", "Remote import URL for the http backend (default: COMMIT_ENDPOINT)")
}

// open applies the flags to the loaded config, validates it and opens the
// backend.
func (o *backendOptions) open(ctx context.Context, a *app) (core.Committer, func(), error) {
	if o.backend != "" {
		a.cfg.Commit.Backend = o.backend
	}
	if o.endpoint != "" {
		a.cfg.Commit.Endpoint = o.endpoint
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, withCode(exitUsage, err)
	}
	return commit.Open(ctx, a.cfg)
}

func newCommitCmd(a *app) *cobra.Command {
	var (
		input     inputOptions
		backend   backendOptions
		policy    string
		params    map[string]string
		errorsOut string
	)

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Validate a CSV file and commit its valid rows",
		Long: "Validate a CSV file, then send the valid rows to the commit backend as\n" +
			"one batch. Rows rejected by validation or by the backend are reported\n" +
			"with their 1-based data row number.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			commitPolicy := a.cfg.CommitPolicy()
			if policy != "" {
				p, ok := core.ParseCommitPolicy(policy)
				if !ok {
					return withCode(exitUsage, fmt.Errorf("invalid --policy %q", policy))
				}
				commitPolicy = p
			}

			req, done, err := input.previewRequest(a)
			if err != nil {
				return err
			}
			defer done()

			ctx := core.ContextWithRequestMeta(cmd.Context(), core.RequestMeta{
				Actor:     cliActor,
				UserAgent: "csvimport",
			})

			committer, closeCommitter, err := backend.open(ctx, a)
			if err != nil {
				return err
			}
			defer closeCommitter()

			svc := a.newService(committer)
			defer svc.Shutdown(context.Background())

			sess, err := svc.PreviewImport(ctx, req)
			if err != nil {
				return reportPreviewError(a.stderr, err)
			}

			contextParams := make(map[string]any, len(params))
			for k, v := range params {
				contextParams[k] = v
			}

			result, err := svc.CommitImport(ctx, sess.ID, core.CommitOptions{
				Policy:        commitPolicy,
				ContextParams: contextParams,
			})
			if errors.Is(err, core.ErrInvalidRowsPresent) {
				printPreview(a.stderr, sess.Preview, input.maxErrors)
				return withCode(exitRejected, err)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
			}

			if input.jsonOut {
				if err := writeJSON(a.stdout, result); err != nil {
					return err
				}
			} else {
				printResult(a.stdout, result, input.maxErrors)
			}

			if errorsOut != "" {
				if err := writeErrorsFile(errorsOut, result.Errors); err != nil {
					return err
				}
			}

			if result.FailedCount > 0 {
				return withCode(exitRejected, fmt.Errorf("%d of %d rows were not committed", result.FailedCount, result.TotalRows))
			}
			return nil
		},
	}

	input.register(cmd)
	backend.register(cmd)
	cmd.Flags().StringVar(&policy, "policy", "", "skip-invalid or require-all-valid (default: COMMIT_DEFAULT_POLICY)")
	cmd.Flags().StringToStringVar(&params, "context", nil, "Context parameters sent with the batch, key=value")
	cmd.Flags().StringVar(&errorsOut, "errors-out", "", "Write rejected rows to this CSV file")

	return cmd
}

func printResult(w io.Writer, r *core.ImportResult, maxErrors int) {
	fmt.Fprintf(w, "entity:    %s\n", r.Entity)
	fmt.Fprintf(w, "batch:     %s\n", r.BatchID)
	fmt.Fprintf(w, "rows:      %d total, %d committed, %d failed\n", r.TotalRows, r.SuccessCount, r.FailedCount)

	var validation, server int
	for _, e := range r.Errors {
		if e.State == core.StateServerRejected {
			server++
		} else {
			validation++
		}
	}
	if r.FailedCount > 0 {
		fmt.Fprintf(w, "failures:  %d validation, %d backend\n", validation, server)
	}
	printFailures(w, r.Errors, maxErrors)
}

func writeErrorsFile(path string, failures []core.RowFailure) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := core.WriteErrorReport(f, failures); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
