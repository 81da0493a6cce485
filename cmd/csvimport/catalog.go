package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/spf13/cobra"
)

func newEntitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List importable entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tGROUP\tLABEL\tREQUIRED COLUMNS")
			for _, def := range core.All() {
				var required []string
				for _, col := range def.Schema {
					if col.Required {
						required = append(required, col.CanonicalName)
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Info.Key, def.Info.Group, def.Info.Label, strings.Join(required, ", "))
			}
			return tw.Flush()
		},
	}
}

func newTemplateCmd(a *app) *cobra.Command {
	var entity, out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the header-only CSV template for an entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, ok := core.Get(entity)
			if !ok {
				return withCode(exitUsage, fmt.Errorf("%w: %s", core.ErrUnknownEntity, entity))
			}

			var w io.Writer = a.stdout
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			_, err := io.WriteString(w, core.TemplateCSV(def.Schema))
			return err
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "Entity key (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}
