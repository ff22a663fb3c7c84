package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// RemotesConfig is the remotes file: every named server and the active one.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named registry server profile.
type Remote struct {
	URL         string `toml:"url"`
	GRPCAddr    string `toml:"grpc_addr,omitempty"`
	Token       string `toml:"token,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

func remoteConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "configmonkey")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

// loadRemotesConfig reads the remotes file; a missing file is an empty
// config.
func loadRemotesConfig() (RemotesConfig, error) {
	cfg := RemotesConfig{Remotes: map[string]Remote{}}
	path, err := remoteConfigPath()
	if err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// lookup returns the named remote, or the active one when name is empty.
func (c RemotesConfig) lookup(name string) (string, Remote, error) {
	if name == "" {
		name = c.Active
	}
	if name == "" {
		return "", Remote{}, errors.New("no active remote; specify a name or run 'cm remote use <name>'")
	}
	r, ok := c.Remotes[name]
	if !ok {
		return "", Remote{}, fmt.Errorf("remote %q not found", name)
	}
	return name, r, nil
}

// activeRemote supplies flag defaults. It is read once per process and a
// missing or broken file means no active remote.
var activeRemote = sync.OnceValue(func() Remote {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return Remote{}
	}
	_, r, err := cfg.lookup("")
	if err != nil {
		return Remote{}
	}
	return r
})

// maskToken keeps the first 8 characters of a token and replaces the rest
// with mask, or with "..." when mask is empty.
func maskToken(token string, mask string) string {
	if len(token) <= 8 {
		return token
	}
	if mask == "" {
		return token[:8] + "..."
	}
	return token[:8] + strings.Repeat(mask, len(token)-8)
}

func validateRemote(r Remote) error {
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q: want http(s)://host[:port]", r.URL)
	}
	if r.GRPCAddr != "" {
		if _, _, err := net.SplitHostPort(r.GRPCAddr); err != nil {
			return fmt.Errorf("invalid gRPC address %q: want host:port", r.GRPCAddr)
		}
	}
	if r.NATSURL != "" {
		if u, err := url.Parse(r.NATSURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid NATS URL %q", r.NATSURL)
		}
	}
	return nil
}

// remoteView is the printed form of a remote; tokens are always masked.
type remoteView struct {
	Name        string `json:"name" yaml:"name"`
	Active      bool   `json:"active" yaml:"active"`
	URL         string `json:"url" yaml:"url"`
	GRPCAddr    string `json:"grpc_addr,omitempty" yaml:"grpc_addr,omitempty"`
	Token       string `json:"token,omitempty" yaml:"token,omitempty"`
	NATSURL     string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func toRemoteView(cfg RemotesConfig, name string, mask string) remoteView {
	r := cfg.Remotes[name]
	return remoteView{
		Name:        name,
		Active:      name == cfg.Active,
		URL:         r.URL,
		GRPCAddr:    r.GRPCAddr,
		Token:       maskToken(r.Token, mask),
		NATSURL:     r.NATSURL,
		Description: r.Description,
	}
}

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named server remotes",
	GroupID: "system",
	// Remote commands only touch the local remotes file.
	PersistentPreRunE: noClient,
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		r := Remote{URL: strings.TrimRight(args[1], "/")}
		r.GRPCAddr, _ = flags.GetString("grpc")
		r.Token, _ = flags.GetString("token")
		r.NATSURL, _ = flags.GetString("nats")
		r.Description, _ = flags.GetString("description")
		if err := validateRemote(r); err != nil {
			return err
		}

		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		cfg.Remotes[args[0]] = r
		if err := saveRemotesConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q added (%s)\n", args[0], r.URL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a named remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		name, _, err := cfg.lookup(args[0])
		if err != nil {
			return err
		}
		delete(cfg.Remotes, name)
		if cfg.Active == name {
			cfg.Active = ""
		}
		if err := saveRemotesConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", name)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all remotes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		views := make([]remoteView, 0, len(cfg.Remotes))
		for _, name := range slices.Sorted(maps.Keys(cfg.Remotes)) {
			views = append(views, toRemoteView(cfg, name, ""))
		}
		return newPrinter(cmd.OutOrStdout()).print(views, func(w io.Writer) {
			if len(views) == 0 {
				fmt.Fprintln(w, "no remotes configured")
				return
			}
			fmt.Fprintln(w, "  NAME\tURL\tGRPC\tTOKEN\tDESCRIPTION")
			for _, v := range views {
				marker := "  "
				if v.Active {
					marker = "* "
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n", marker, v.Name, v.URL, v.GRPCAddr, v.Token, v.Description)
			}
		})
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the active remote (no args clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		msg := "active remote cleared"
		cfg.Active = ""
		if len(args) == 1 {
			if cfg.Active, _, err = cfg.lookup(args[0]); err != nil {
				return err
			}
			msg = fmt.Sprintf("active remote set to %q", cfg.Active)
		}
		if err := saveRemotesConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show details for a remote (defaults to active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		name, _, err = cfg.lookup(name)
		if err != nil {
			return err
		}
		v := toRemoteView(cfg, name, "*")
		return newPrinter(cmd.OutOrStdout()).print(v, func(w io.Writer) {
			active := ""
			if v.Active {
				active = " (active)"
			}
			fmt.Fprintf(w, "name:\t%s%s\n", v.Name, active)
			for _, row := range [][2]string{
				{"description", v.Description},
				{"url", v.URL},
				{"grpc_addr", v.GRPCAddr},
				{"token", v.Token},
				{"nats_url", v.NATSURL},
			} {
				if row[1] != "" {
					fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1])
				}
			}
		})
	},
}

func init() {
	remoteAddCmd.Flags().String("grpc", "", "gRPC address of the remote (host:port)")
	remoteAddCmd.Flags().String("token", "", "bearer token for authentication")
	remoteAddCmd.Flags().String("nats", "", "NATS URL for cm watch")
	remoteAddCmd.Flags().String("description", "", "human-readable description of the remote")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteUseCmd, remoteShowCmd)
}
