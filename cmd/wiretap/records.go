package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/wiretap/internal/errors"
)

func recordsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Manage saved state records",
		Long: `List, add and remove saved state records in the configured store.

Examples:
  wiretap records list
  wiretap records add beach hr-100.hd-180
  wiretap records rm 0b8c1f8e-6f0c-4d4e-9f5e-2c1d7a4f3b21`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				catalog, err := openCatalog(cmd.Context(), cfg)
				if err != nil {
					return err
				}

				records := catalog.List()
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					info(out, "No records saved")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSTATE CODE\tCREATED")
				for _, rec := range records {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						rec.ID, rec.Name, rec.StateCode, rec.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "add <name> <stateCode>",
			Short: "Save a state code under a name",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				catalog, err := openCatalog(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				rec, err := catalog.Create(cmd.Context(), args[0], args[1])
				if err != nil {
					return errors.Classify(err, "W121")
				}
				success(cmd.OutOrStdout(), "Saved %q as %s", rec.Name, rec.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:     "rm <id>",
			Aliases: []string{"remove", "delete"},
			Short:   "Remove a saved record",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				catalog, err := openCatalog(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				if err := catalog.Delete(cmd.Context(), args[0]); err != nil {
					return errors.Classify(err, "W121")
				}
				success(cmd.OutOrStdout(), "Removed %s", args[0])
				return nil
			},
		},
	)

	return cmd
}
