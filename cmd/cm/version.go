package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/ui"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Append and inspect config versions",
	GroupID: "registry",
}

// parseValue reads a command-line value. With typ "auto" a JSON literal
// (true, 42, 4.2, "text") keeps its JSON type and anything else is a string.
func parseValue(text, typ string) (model.Value, error) {
	if typ != "auto" {
		v, err := model.DecodeValue(model.ValueType(typ), text)
		if err != nil {
			return model.Value{}, fmt.Errorf("invalid %s value: %w", typ, err)
		}
		return v, nil
	}
	var v model.Value
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}
	return model.StringValue(text), nil
}

var versionCreateCmd = &cobra.Command{
	Use:   "create <domain> <key> <value>",
	Short: "Append a new version to a config",
	Long: `Append a new version to a config.

The value type is inferred unless --type is given: true/false are booleans,
numbers without a fraction are integers, other numbers are floats, and
everything else is a string. Quote a JSON string ('"42"') to force a string.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		value, err := parseValue(args[2], typ)
		if err != nil {
			return err
		}
		v, err := registryClient.CreateVersion(cmd.Context(), args[0], args[1], value)
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).version(v)
	},
}

var versionListCmd = &cobra.Command{
	Use:     "list <domain> <key>",
	Aliases: []string{"ls", "history"},
	Short:   "List versions of a config, newest first",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := registryClient.ListVersions(cmd.Context(), args[0], args[1], pageRequest(cmd))
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).versions(page)
	},
}

var versionCurrentCmd = &cobra.Command{
	Use:   "current <domain> <key>",
	Short: "Show the latest version of a config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := registryClient.GetCurrentVersion(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).version(v)
	},
}

func parseIndex(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid version index %q", s)
	}
	return n, nil
}

var versionGetCmd = &cobra.Command{
	Use:   "get <domain> <key> <index>",
	Short: "Show one version of a config",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[2])
		if err != nil {
			return err
		}
		v, err := registryClient.GetVersion(cmd.Context(), args[0], args[1], index)
		if err != nil {
			return err
		}
		return newPrinter(cmd.OutOrStdout()).version(v)
	},
}

var versionDiffCmd = &cobra.Command{
	Use:   "diff <domain> <key> <from> [to]",
	Short: "Show how a config value changed between two versions",
	Long: `Show how a config value changed between two versions.

When <to> is omitted the current version is used.`,
	Args: cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		domain, key := args[0], args[1]
		fromIndex, err := parseIndex(args[2])
		if err != nil {
			return err
		}
		from, err := registryClient.GetVersion(ctx, domain, key, fromIndex)
		if err != nil {
			return err
		}
		var to *model.Version
		if len(args) == 4 {
			toIndex, err := parseIndex(args[3])
			if err != nil {
				return err
			}
			to, err = registryClient.GetVersion(ctx, domain, key, toIndex)
			if err != nil {
				return err
			}
		} else if to, err = registryClient.GetCurrentVersion(ctx, domain, key); err != nil {
			return err
		}
		writeDiff(cmd.OutOrStdout(), from, to)
		return nil
	},
}

// writeDiff prints a header naming both versions, a type line when the type
// changed, and an inline character diff of the encoded values.
func writeDiff(w io.Writer, from, to *model.Version) {
	fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("--- version %d (%s)", from.Index, from.CreatedAt.Local().Format(timeLayout))))
	fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("+++ version %d (%s)", to.Index, to.CreatedAt.Local().Format(timeLayout))))

	fromText, fromType := from.Value.Encode()
	toText, toType := to.Value.Encode()
	if fromType != toType {
		fmt.Fprintf(w, "type: %s -> %s\n", ui.RenderDelete(string(fromType)), ui.RenderInsert(string(toType)))
	}
	if from.Value.Equal(to.Value) {
		fmt.Fprintln(w, "values are identical")
		return
	}
	fmt.Fprintln(w, inlineDiff(fromText, toText))
}

// inlineDiff marks deletions as [-text-] and insertions as {+text+}, colored
// when color is enabled.
func inlineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString(ui.RenderDelete("[-" + d.Text + "-]"))
		case diffmatchpatch.DiffInsert:
			sb.WriteString(ui.RenderInsert("{+" + d.Text + "+}"))
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}

func init() {
	versionCreateCmd.Flags().String("type", "auto", "value type: auto, string, boolean, integer or float")
	addPageFlags(versionListCmd)

	versionCmd.AddCommand(versionCreateCmd)
	versionCmd.AddCommand(versionListCmd)
	versionCmd.AddCommand(versionCurrentCmd)
	versionCmd.AddCommand(versionGetCmd)
	versionCmd.AddCommand(versionDiffCmd)
}
