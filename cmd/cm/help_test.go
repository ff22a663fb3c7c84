package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/configmonkey/internal/ui"
)

func TestColorizeHelp(t *testing.T) {
	ui.SetColor(true)
	t.Cleanup(func() { ui.SetColor(false) })

	in := strings.Join([]string{
		"Registry:",
		"  domain      Manage domains",
		"",
		"Flags:",
		`  -o, --output string   output format (default "table")`,
	}, "\n")
	out := colorizeHelp(in)

	require.Contains(t, out, ui.RenderAccent("Registry:"))
	require.Contains(t, out, ui.RenderAccent("Flags:"))
	require.Contains(t, out, "  "+ui.RenderCommand("domain")+"      Manage domains")
	require.Contains(t, out, "--output "+ui.RenderMuted("string"))
	require.Contains(t, out, ui.RenderMuted(`(default "table")`))
}

func TestColorizeHelp_PlainWithoutColor(t *testing.T) {
	ui.SetColor(false)
	in := "Flags:\n  -h, --help   help for cm\n"
	require.Equal(t, in, colorizeHelp(in))
}

func TestHelpFunc_IncludesDescription(t *testing.T) {
	var buf bytes.Buffer
	versionCreateCmd.SetOut(&buf)
	t.Cleanup(func() { versionCreateCmd.SetOut(nil) })

	colorizedHelpFunc()(versionCreateCmd, nil)
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Append a new version to a config."), out)
	require.Contains(t, out, "Usage:")
	require.Contains(t, out, "--type")
}
