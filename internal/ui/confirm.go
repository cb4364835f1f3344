package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmOperation displays a warning box and prompts the user to answer
// yes before proceeding with an operation that changes appliance state.
// Returns true if the user confirmed, false otherwise.
func ConfirmOperation(title string, warnings []string, note string) bool {
	width := GetTerminalWidth()
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var lines []string

	// Title with warning marker
	titleLine := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true).
		Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", title))
	lines = append(lines, "")
	lines = append(lines, titleLine)
	lines = append(lines, "")

	// Warning bullet points
	for _, warning := range warnings {
		bulletStyle := lipgloss.NewStyle().Foreground(TextColor)
		lines = append(lines, bulletStyle.Render("   • "+warning))
	}
	lines = append(lines, "")

	// Note in muted text, word-wrapped
	if note != "" {
		noteStyle := lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			Width(width - 12).
			PaddingLeft(3)
		lines = append(lines, noteStyle.Render(note))
		lines = append(lines, "")
	}

	content := strings.Join(lines, "\n")

	// Double border in orange/warning color
	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(content)

	fmt.Println(box)
	fmt.Println()

	// Prompt for confirmation
	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	fmt.Print(promptStyle.Render("Proceed? [y/N]: "))

	// Read user input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return false
	}

	// Anything but an explicit yes cancels
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "y" || input == "yes" {
		fmt.Println()
		return true
	}

	fmt.Println()
	cancelStyle := lipgloss.NewStyle().Foreground(MutedColor)
	fmt.Println(cancelStyle.Render("  Operation cancelled."))
	fmt.Println()
	return false
}

// RegenerationConfirmation is a pre-configured confirmation for the manual
// regeneration trigger.
func RegenerationConfirmation(serial string) bool {
	return ConfirmOperation(
		"MANUAL REGENERATION",
		[]string{
			fmt.Sprintf("This starts a regeneration cycle on %s right away", serial),
			"Regeneration consumes salt and flushes waste water",
			"The cycle runs to completion and cannot be stopped from this tool",
			"Soft water capacity is reduced while the cycle runs",
		},
		"The command is delivered through the Grünbeck cloud and the appliance "+
			"begins the cycle as soon as it arrives. Trigger it only when the "+
			"appliance is ready for service.",
	)
}
