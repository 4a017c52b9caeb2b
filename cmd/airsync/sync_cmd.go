package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSyncCmd(v *viper.Viper) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Back up the mirror and replace it with a copy of the source",
		Long: `sync prints the differences between source and mirror, asks for confirmation,
then moves the whole mirror into a new backup session and copies the source
over. The mirror is always rebuilt in full, even when nothing changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(v)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			out := cmd.OutOrStdout()

			diffs, err := app.Diff()
			if err != nil {
				return err
			}
			printDifferences(out, diffs)

			if !assumeYes {
				fmt.Fprint(out, "Proceed with sync? The current mirror will be moved to a backup. (yes/no): ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "yes" && answer != "y" {
					fmt.Fprintln(out, "Sync cancelled.")
					return nil
				}
			}

			report, err := app.Sync()
			if err != nil {
				return err
			}
			printReport(out, report)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
