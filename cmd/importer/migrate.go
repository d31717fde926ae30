package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newMigrateCommand(stdout io.Writer, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			e, err := openEnv(c.Context(), flags)
			if err != nil {
				return err
			}
			defer e.Close()

			fmt.Fprintf(stdout, "Schema is up to date (%s)\n", e.cfg.Database.Driver)
			return nil
		},
	}
}
