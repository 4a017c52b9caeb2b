package main

import (
	"fmt"

	"github.com/openmined/airsync/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newInitCmd(v *viper.Viper) *cobra.Command {
	var source, mirror string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the deploy file if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (source == "") != (mirror == "") {
				return fmt.Errorf("--source and --mirror must be given together")
			}
			cmd.SilenceUsage = true

			path := v.GetString("config")
			created, err := config.Bootstrap(path, source, mirror)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case !created:
				fmt.Fprintf(out, "%s already exists, nothing to do.\n", path)
			case source == "":
				fmt.Fprintf(out, "Created %s. Put the source root on line 1 and the mirror root on line 2.\n", path)
			default:
				fmt.Fprintf(out, "Created %s.\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source root to write on line 1")
	cmd.Flags().StringVar(&mirror, "mirror", "", "mirror root to write on line 2")
	return cmd
}
