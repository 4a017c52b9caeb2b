package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/openmined/airsync/internal/mirror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDiffCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show how the mirror differs from the source (read-only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(v)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			diffs, err := app.Diff()
			if err != nil {
				return err
			}

			if asJSON {
				if diffs == nil {
					diffs = []mirror.Difference{}
				}
				data, err := json.MarshalIndent(diffs, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			printDifferences(cmd.OutOrStdout(), diffs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print differences as JSON")
	return cmd
}
