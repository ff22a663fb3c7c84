package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// addPageFlags registers --limit and --offset on a list command.
func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, fmt.Sprintf("page size, 1 to %d (default %d)", service.MaxLimit, service.DefaultLimit))
	cmd.Flags().Int("offset", 0, "number of items to skip")
}

func pageRequest(cmd *cobra.Command) service.PageRequest {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	return service.PageRequest{Limit: limit, Offset: offset}
}

var domainCmd = &cobra.Command{
	Use:     "domain",
	Short:   "Manage domains",
	GroupID: "registry",
}

var domainCreateCmd = &cobra.Command{
	Use:   "create <slug>",
	Short: "Create a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := registryClient.CreateDomain(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).domain(d)
	},
}

var domainGetCmd = &cobra.Command{
	Use:   "get <slug>",
	Short: "Show a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := registryClient.GetDomain(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).domain(d)
	},
}

var domainListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List domains, oldest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := registryClient.ListDomains(cmd.Context(), pageRequest(cmd))
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).domains(page)
	},
}

var domainDeleteCmd = &cobra.Command{
	Use:     "delete <slug>",
	Aliases: []string{"rm"},
	Short:   "Delete an empty domain",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registryClient.DeleteDomain(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "domain %q deleted\n", args[0])
		return nil
	},
}

func init() {
	addPageFlags(domainListCmd)

	domainCmd.AddCommand(domainCreateCmd)
	domainCmd.AddCommand(domainGetCmd)
	domainCmd.AddCommand(domainListCmd)
	domainCmd.AddCommand(domainDeleteCmd)
}
