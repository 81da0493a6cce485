package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newBatchesCmd(a *app) *cobra.Command {
	var (
		backend backendOptions
		entity  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List committed batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			committer, closeCommitter, err := backend.open(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer closeCommitter()

			batches, err := a.newService(committer).ListBatches(cmd.Context(), entity, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BATCH\tENTITY\tFILE\tACTOR\tINSERTED\tREJECTED\tSTATUS\tCREATED")
			for _, b := range batches {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					b.ID, b.Entity, b.FileName, b.Actor,
					b.RowsInserted, b.RowsRejected, b.Status,
					b.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	backend.register(cmd)
	cmd.Flags().StringVar(&entity, "entity", "", "Only batches for this entity")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum batches to list")

	cmd.AddCommand(newRollbackCmd(a))
	return cmd
}

func newRollbackCmd(a *app) *cobra.Command {
	var backend backendOptions

	cmd := &cobra.Command{
		Use:   "rollback <batch-id>",
		Short: "Delete the records a batch inserted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			committer, closeCommitter, err := backend.open(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer closeCommitter()

			n, err := a.newService(committer).RollbackBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "rolled back batch %s: %d rows deleted\n", args[0], n)
			return nil
		},
	}
	backend.register(cmd)

	return cmd
}
