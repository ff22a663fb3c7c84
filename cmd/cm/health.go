package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the registry server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status := "ok"
		pingErr := registryClient.Ping(cmd.Context())
		if pingErr != nil {
			status = "unavailable"
		}

		p := newPrinter(cmd.OutOrStdout())
		err := p.print(map[string]string{"status": status}, func(w io.Writer) {
			fmt.Fprintf(w, "Health:\t%s\n", status)
		})
		if err != nil {
			return err
		}
		if pingErr != nil {
			return fmt.Errorf("unhealthy: %w", pingErr)
		}
		return nil
	},
}
