package tui

import (
	"fmt"
	"strings"
)

// HelpItem is one command in the menu.
type HelpItem struct {
	Key         string
	Description string
}

var helpSections = [][]HelpItem{
	{
		{"new <url>", "Create a new short link redirecting to url"},
		{"select <id>", "Select a link by its ID"},
		{"update <url>", "Update the redirect for the selected link"},
		{"delete <id>", "Delete the link with the given ID"},
		{"current", "Display the currently selected link"},
		{"batch <file>", "Create links for every URL in a file"},
		{"copy [id]", "Copy a short URL to the clipboard"},
	},
	{
		{"delay <sec>", "Change the pinging interval (e.g. 'delay 5 s' or 'delay 1 m')"},
		{"ping", "Ping sweep all links and check their status"},
		{"stop", "Stop scheduled ping checks"},
		{"start", "Start scheduled ping checks"},
		{"threads <n>", "Set how many links are checked at once"},
		{"token <id>", "Select a token by ID"},
		{"tokens", "List available tokens"},
	},
	{
		{"info", "Display full information on tracked links"},
		{"list", "List all tracked links"},
		{"clear", "Clear the screen"},
		{"help", "Display this menu"},
		{"exit", "Exit the program"},
	},
}

// HelpContent returns the command menu.
func HelpContent() string {
	var b strings.Builder
	b.WriteString(boldStyle.Render("SYNOPSIS:") + "\n")
	for _, section := range helpSections {
		b.WriteString(renderDivider(72) + "\n")
		b.WriteString(renderHelpItems(section))
	}
	b.WriteString(renderDivider(72) + "\n")
	b.WriteString(helpStyle.Render("PgUp/PgDn scroll the output, Ctrl+C quits.") + "\n")
	return b.String()
}

// renderHelpItems formats help items into a readable string
func renderHelpItems(items []HelpItem) string {
	var b strings.Builder
	keyStyle := boldStyle.Foreground(colorPrimary).Width(14)
	for _, item := range items {
		b.WriteString(fmt.Sprintf("  %s - %s\n",
			keyStyle.Render(item.Key),
			item.Description))
	}
	return b.String()
}
