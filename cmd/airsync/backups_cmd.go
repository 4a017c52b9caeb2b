package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/openmined/airsync/internal/catalog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBackupsCmd(v *viper.Viper) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List backup sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(v)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			sessions, err := app.Backups(limit)
			if err != nil {
				return err
			}

			if asJSON {
				if sessions == nil {
					sessions = []*catalog.Session{}
				}
				data, err := json.MarshalIndent(sessions, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			printSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of sessions to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print sessions as JSON")
	return cmd
}
