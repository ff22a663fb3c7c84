package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/configmonkey/internal/ui"
)

// helpRule styles every match of re in cobra's plain help text. style gets
// the submatches and returns the replacement.
type helpRule struct {
	re    *regexp.Regexp
	style func(m []string) string
}

var helpRules = []helpRule{
	// Section headers such as "Registry:" or "Flags:".
	{regexp.MustCompile(`(?m)^([A-Z][A-Za-z ]*:)[ \t]*$`), func(m []string) string {
		return ui.RenderAccent(m[1])
	}},
	// Command names in a command list: two-space indent, name, padding.
	{regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(  +)`), func(m []string) string {
		return m[1] + ui.RenderCommand(m[2]) + m[3]
	}},
	// Flag value types, e.g. "--limit int".
	{regexp.MustCompile(`(--[\w-]+ )(string|int|int64|duration|bool|stringSlice)\b`), func(m []string) string {
		return m[1] + ui.RenderMuted(m[2])
	}},
	// Defaults, e.g. (default "table").
	{regexp.MustCompile(`\(default [^)]*\)`), func(m []string) string {
		return ui.RenderMuted(m[0])
	}},
}

func colorizeHelp(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			return rule.style(rule.re.FindStringSubmatch(match))
		})
	}
	return s
}

// colorizedHelpFunc renders the command description and cobra's usage text,
// colored when stdout supports ANSI colors.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		var buf bytes.Buffer
		if desc := strings.TrimSpace(cmd.Long); desc != "" {
			fmt.Fprintf(&buf, "%s\n\n", desc)
		} else if cmd.Short != "" {
			fmt.Fprintf(&buf, "%s\n\n", cmd.Short)
		}
		buf.WriteString(cmd.UsageString())

		text := buf.String()
		if ui.ShouldUseColor() {
			ui.SetColor(true)
			text = colorizeHelp(text)
		}
		fmt.Fprint(out, text)
	}
}
