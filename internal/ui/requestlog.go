package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/gruenbeck-cloud/internal/diagnostics"
)

// RequestLog represents a box displaying recorded cloud exchanges.
// Used in verbose mode to show which requests a command performed.
// Entries are expected to come from the client's diagnostics ring,
// which redacts URLs and bodies on export.
type RequestLog struct {
	Title      string              // e.g., "Request Log"
	Entries    []diagnostics.Entry // Recorded exchanges, oldest first
	Width      int                 // Terminal width
	MaxEntries int                 // Maximum entries to display (0 = unlimited)
	ShowBodies bool                // Whether to include response body snippets
}

// NewRequestLog creates a new request log box
func NewRequestLog(entries []diagnostics.Entry) *RequestLog {
	return &RequestLog{
		Title:   "Request Log",
		Entries: entries,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (l *RequestLog) SetWidth(width int) *RequestLog {
	l.Width = width
	return l
}

// SetTitle sets a custom title for the box
func (l *RequestLog) SetTitle(title string) *RequestLog {
	l.Title = title
	return l
}

// SetMaxEntries limits the display to the most recent entries
func (l *RequestLog) SetMaxEntries(max int) *RequestLog {
	l.MaxEntries = max
	return l
}

// ShowResponseBodies includes the stored body snippet under each entry
func (l *RequestLog) ShowResponseBodies() *RequestLog {
	l.ShowBodies = true
	return l
}

// Failures filters the log to entries with non-2xx statuses
func (l *RequestLog) Failures() *RequestLog {
	var filtered []diagnostics.Entry
	for _, e := range l.Entries {
		if e.Status < 200 || e.Status >= 300 {
			filtered = append(filtered, e)
		}
	}
	l.Entries = filtered
	return l
}

// Render returns the styled request log box as a string
func (l *RequestLog) Render() string {
	width := l.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	// Apply max entries limit, keeping the most recent
	entries := l.Entries
	var omitted int
	if l.MaxEntries > 0 && len(entries) > l.MaxEntries {
		omitted = len(entries) - l.MaxEntries
		entries = entries[omitted:]
	}

	// Title with request count
	titleStyled := RequestLogTitleStyle.Render(fmt.Sprintf("%s (%d requests)", l.Title, len(l.Entries)))

	var lines []string
	if omitted > 0 {
		lines = append(lines, StepNoteStyle.Render(fmt.Sprintf("... (%d earlier requests not shown)", omitted)))
	}
	for _, e := range entries {
		lines = append(lines, l.renderEntry(e)...)
	}
	if len(entries) == 0 {
		lines = append(lines, StepNoteStyle.Render("(no requests recorded)"))
	}

	// Combine title and content
	inner := lipgloss.JoinVertical(lipgloss.Left, titleStyled, "", strings.Join(lines, "\n"))

	// Box with muted border
	boxWidth := width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(boxWidth).
		Padding(0, 1).
		MarginLeft(2).
		Render(inner)
}

// renderEntry renders one exchange as a summary line plus a muted URL line
func (l *RequestLog) renderEntry(e diagnostics.Entry) []string {
	statusStyle := StepCompleteStyle
	if e.Status < 200 || e.Status >= 300 {
		statusStyle = ErrorTitleStyle
	}

	summary := fmt.Sprintf("%s  %-7s %s  %s",
		e.Time.Format("15:04:05"),
		e.Method,
		statusStyle.Render(fmt.Sprintf("%3d", e.Status)),
		RequestLogContentStyle.Render(e.Endpoint),
	)

	lines := []string{summary}
	if e.URL != "" {
		lines = append(lines, RequestLogURLStyle.Render("          "+e.URL))
	}
	if l.ShowBodies && e.Body != "" {
		body := e.Body
		if len(body) > 120 {
			body = body[:120] + "…"
		}
		lines = append(lines, RequestLogURLStyle.Render("          "+body))
	}
	return lines
}

// String implements fmt.Stringer
func (l *RequestLog) String() string {
	return l.Render()
}

// --- Convenience functions ---

// RenderRequestLog renders a request log box with the given entries
func RenderRequestLog(entries []diagnostics.Entry) string {
	return NewRequestLog(entries).Render()
}
