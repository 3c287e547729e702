// Package cli renders terminal output for the rmsvad command.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#2E8B57") // sea green
	accentColor  = lipgloss.Color("#FFA500") // orange
	errorColor   = lipgloss.Color("#C0392B") // red
	mutedColor   = lipgloss.Color("#888888") // gray
	textColor    = lipgloss.Color("#FFFFFF") // white
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginTop(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	// Event type styles
	startStyle   = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	endStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	timeoutStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
)

// PrintVersion prints version information.
func PrintVersion(w io.Writer, version string) {
	fmt.Fprintln(w, TitleStyle.Render("rmsvad"))
	fmt.Fprintf(w, "%s%s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
}

// PrintError prints an error message.
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// kv renders one aligned key/value line.
func kv(key, value string) string {
	return KeyStyle.Render(key+":") + ValueStyle.Render(value) + "\n"
}
