package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage configs inside a domain",
	GroupID: "registry",
}

var configCreateCmd = &cobra.Command{
	Use:   "create <domain> <key>",
	Short: "Create a config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := registryClient.CreateConfig(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).config(c)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <domain> <key>",
	Short: "Show a config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := registryClient.GetConfig(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).config(c)
	},
}

var configListCmd = &cobra.Command{
	Use:     "list <domain>",
	Aliases: []string{"ls"},
	Short:   "List the configs of a domain, oldest first",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := registryClient.ListConfigs(cmd.Context(), args[0], pageRequest(cmd))
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).configs(page)
	},
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete <domain> <key>",
	Aliases: []string{"rm"},
	Short:   "Delete a config and all of its versions",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registryClient.DeleteConfig(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config %s/%s deleted\n", args[0], args[1])
		return nil
	},
}

func init() {
	addPageFlags(configListCmd)

	configCmd.AddCommand(configCreateCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configDeleteCmd)
}
