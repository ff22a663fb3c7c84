// Package ui holds terminal styling for the cm command line.
package ui

import (
	"fmt"

	"github.com/alfredjeanlab/configmonkey/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorString = 114 // green
	colorNumber = 215 // orange
	colorBool   = 176 // purple
	colorAdd    = 71  // diff insert
	colorDel    = 167 // diff delete
)

var noColor bool

func paint(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderInsert and RenderDelete style the two sides of a value diff.
func RenderInsert(s string) string { return paint(colorAdd, s) }
func RenderDelete(s string) string { return paint(colorDel, s) }

// RenderValue colors s by the value type it was rendered from.
func RenderValue(typ model.ValueType, s string) string {
	switch typ {
	case model.TypeString:
		return paint(colorString, s)
	case model.TypeInteger, model.TypeFloat:
		return paint(colorNumber, s)
	case model.TypeBoolean:
		return paint(colorBool, s)
	}
	return s
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	noColor = !enabled
}
