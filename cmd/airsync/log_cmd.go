package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newLogCmd(v *viper.Viper) *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the operation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(v)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if last > 0 {
				blocks, err := app.LogBlocks(last)
				if err != nil {
					return err
				}
				printBlocks(cmd.OutOrStdout(), blocks)
				return nil
			}

			lines, err := app.ReadLog()
			if err != nil {
				return err
			}
			printLogLines(cmd.OutOrStdout(), lines)
			return nil
		},
	}

	cmd.Flags().IntVarP(&last, "last", "n", 0, "only show the newest N sessions")
	return cmd
}
