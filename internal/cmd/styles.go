package cmd

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// maxCellWidth bounds table cells so long patterns don't wrap the table.
const maxCellWidth = 48

// swatch renders a color index as a small block in the matching terminal
// palette color. The editor palette and the terminal's differ, so this is
// only a hint.
func swatch(colorIndex *int) string {
	if colorIndex == nil {
		return mutedStyle.Render("-")
	}
	block := lipgloss.NewStyle().Background(lipgloss.Color(strconv.Itoa(*colorIndex))).Render("  ")
	return block + " " + strconv.Itoa(*colorIndex)
}
