package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/configmonkey/internal/client"
	"github.com/alfredjeanlab/configmonkey/internal/ui"
)

var (
	httpURL      string
	serverAddr   string
	transport    string
	authToken    string
	outputFormat string

	registryClient client.Client
	closeClient    func() error
)

func envOr(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

func defaultHTTPURL() string {
	if s := os.Getenv("CONFIGMONKEY_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemote().URL; u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("CONFIGMONKEY_SERVER"); s != "" {
		return s
	}
	if a := activeRemote().GRPCAddr; a != "" {
		return a
	}
	return "localhost:9090"
}

// connect builds the client for the selected transport.
func connect() (client.Client, func() error, error) {
	switch transport {
	case "http":
		c := client.NewHTTPClient(httpURL, authToken)
		return c, c.Close, nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, authToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
}

var rootCmd = &cobra.Command{
	Use:           "cm <command>",
	Short:         "CLI for the configmonkey configuration registry",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetColor(ui.ShouldUseColor())
		if _, err := parseFormat(outputFormat); err != nil {
			return err
		}
		c, closeFn, err := connect()
		if err != nil {
			return err
		}
		registryClient, closeClient = c, closeFn
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeClient != nil {
			closeClient()
		}
	},
}

// noClient skips the client setup for commands that do not talk to a server.
func noClient(cmd *cobra.Command, args []string) error {
	ui.SetColor(ui.ShouldUseColor())
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", envOr("CONFIGMONKEY_TRANSPORT", "http"), "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", envOr("CONFIGMONKEY_TOKEN", activeRemote().Token), "bearer token")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json or yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "registry", Title: "Registry:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Registry
	rootCmd.AddCommand(domainCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}
