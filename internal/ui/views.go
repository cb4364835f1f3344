package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/gruenbeck-cloud/internal/device"
)

// labelWidth aligns the value column across all detail views.
const labelWidth = 22

// RenderDeviceList renders the account's device listing as cards.
// nicknames maps serial numbers to user-chosen names from the local
// config; devices without one show their cloud name only.
func RenderDeviceList(summaries []device.Summary, nicknames map[string]string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if len(summaries) == 0 {
		return StepNoteStyle.Render("  No devices registered on this account.")
	}

	cards := make([]string, 0, len(summaries))
	for _, s := range summaries {
		cards = append(cards, renderDeviceCard(s, nicknames[s.SerialNumber], width))
	}
	return strings.Join(cards, "\n")
}

// renderDeviceCard renders one listing entry
func renderDeviceCard(s device.Summary, nickname string, width int) string {
	name := s.Name
	if nickname != "" && nickname != s.Name {
		name = fmt.Sprintf("%s (%s)", nickname, s.Name)
	}

	status := StepCompleteStyle.Render(SuccessMarker + " No errors")
	if s.HasError {
		status = ErrorTitleStyle.Render(FailureMarker + " Error reported")
	}

	title := lipgloss.NewStyle().Foreground(TextColor).Bold(true).Render(name)

	var lines []string
	lines = append(lines, title+"  "+status)
	lines = append(lines, kvRow("Serial", s.SerialNumber))
	lines = append(lines, kvRow("Series", s.Series))
	lines = append(lines, kvRow("Device ID", s.ID))
	if !s.Register {
		lines = append(lines, StepNoteStyle.Render("  (registration incomplete)"))
	}

	return DeviceCardStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderDeviceDetails renders the full state of one device: identity,
// water settings, regeneration schedule, error memory and consumption.
func RenderDeviceDetails(d *device.Device, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var sections []string
	sections = append(sections, renderIdentitySection(d))
	sections = append(sections, renderWaterSection(d))
	sections = append(sections, renderRegenerationSection(d))
	if s := renderErrorSection(d); s != "" {
		sections = append(sections, s)
	}
	if s := renderUsageSection(d.Salt, d.Water); s != "" {
		sections = append(sections, s)
	}

	return strings.Join(sections, "\n\n")
}

func renderIdentitySection(d *device.Device) string {
	rows := []string{SectionTitleStyle.Render("Device")}
	rows = append(rows, kvRow("Name", d.Name))
	rows = append(rows, kvRow("Serial", d.SerialNumber))
	rows = append(rows, kvRow("Series", d.Series))
	rows = append(rows, kvRow("Device ID", d.ID))
	rows = append(rows, kvRow("Hardware", fmtString(d.HardwareVersion)))
	rows = append(rows, kvRow("Software", fmtString(d.SoftwareVersion)))
	if d.Startup != nil {
		rows = append(rows, kvRow("Installed", d.Startup.String()))
	}
	if d.LastService != nil {
		rows = append(rows, kvRow("Last service", d.LastService.String()))
	}
	return strings.Join(rows, "\n")
}

func renderWaterSection(d *device.Device) string {
	unit := ""
	if d.Unit != nil {
		unit = device.WaterUnit(*d.Unit).String()
	}

	mode := "n/a"
	if d.Mode != nil {
		mode = device.OperationMode(*d.Mode).String()
	}

	rows := []string{SectionTitleStyle.Render("Water")}
	rows = append(rows, kvRow("Operating mode", mode))
	rows = append(rows, kvRow("Raw water hardness", fmtFloat(d.RawWater, 1, unit)))
	rows = append(rows, kvRow("Soft water hardness", fmtFloat(d.SoftWater, 1, unit)))
	rows = append(rows, kvRow("Nominal flow", fmtFloat(d.NominalFlow, 2, "m³/h")))
	return strings.Join(rows, "\n")
}

func renderRegenerationSection(d *device.Device) string {
	next := "not announced"
	if t, ok := d.NextRegeneration(); ok {
		next = t.Format("2006-01-02 15:04 MST")
	}

	rows := []string{SectionTitleStyle.Render("Regeneration")}
	rows = append(rows, kvRow("Next regeneration", next))
	return strings.Join(rows, "\n")
}

// renderErrorSection lists the most recent error memory entries, newest
// first as the cloud delivers them. Empty error memory renders nothing.
func renderErrorSection(d *device.Device) string {
	if len(d.Errors) == 0 {
		return ""
	}

	unresolved := 0
	for _, e := range d.Errors {
		if !e.IsResolved {
			unresolved++
		}
	}

	title := fmt.Sprintf("Errors (%d recorded, %d open)", len(d.Errors), unresolved)
	rows := []string{SectionTitleStyle.Render(title)}

	shown := d.Errors
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, e := range shown {
		marker := StepCompleteStyle.Render(SuccessMarker)
		if !e.IsResolved {
			marker = ErrorTitleStyle.Render(FailureMarker)
		}
		line := fmt.Sprintf("  %s %s  code %d  %s",
			marker,
			e.Date.Format("2006-01-02 15:04"),
			e.ErrorCode,
			e.Message,
		)
		rows = append(rows, line)
	}
	if len(d.Errors) > len(shown) {
		rows = append(rows, StepNoteStyle.Render(fmt.Sprintf("  ... and %d older entries", len(d.Errors)-len(shown))))
	}
	return strings.Join(rows, "\n")
}

// renderUsageSection sums the most recent week of each consumption
// series. Devices report salt in grams and water in liters.
func renderUsageSection(salt, water []device.DailyUsage) string {
	if len(salt) == 0 && len(water) == 0 {
		return ""
	}

	rows := []string{SectionTitleStyle.Render("Consumption")}
	if len(salt) > 0 {
		days, total := usageWindow(salt)
		rows = append(rows, kvRow(fmt.Sprintf("Salt (%d days)", days), fmt.Sprintf("%d g", total)))
	}
	if len(water) > 0 {
		days, total := usageWindow(water)
		rows = append(rows, kvRow(fmt.Sprintf("Water (%d days)", days), fmt.Sprintf("%d l", total)))
	}
	return strings.Join(rows, "\n")
}

// usageWindow totals the last seven entries of a daily series.
func usageWindow(series []device.DailyUsage) (days, total int) {
	window := series
	if len(window) > 7 {
		window = window[len(window)-7:]
	}
	for _, u := range window {
		total += u.Value
	}
	return len(window), total
}

// RenderParameters renders the settings document grouped by section.
// Fields the appliance does not report are skipped, so SD and SE models
// each show only what their firmware populates.
func RenderParameters(p *device.Parameters, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var sections []string

	// Operation
	rows := []string{SectionTitleStyle.Render("Operation")}
	if p.Mode != nil {
		rows = append(rows, kvRow("Mode", p.Mode.String()))
	}
	if p.Mode != nil && *p.Mode == device.OperationModeIndividual {
		dayModes := []struct {
			label string
			mode  *device.OperationMode
		}{
			{"Monday", p.ModeMonday},
			{"Tuesday", p.ModeTuesday},
			{"Wednesday", p.ModeWednesday},
			{"Thursday", p.ModeThursday},
			{"Friday", p.ModeFriday},
			{"Saturday", p.ModeSaturday},
			{"Sunday", p.ModeSunday},
		}
		for _, dm := range dayModes {
			if dm.mode != nil {
				rows = append(rows, kvRow("  "+dm.label, dm.mode.String()))
			}
		}
	}
	if p.RegenerationMode != nil {
		rows = append(rows, kvRow("Regeneration", p.RegenerationMode.String()))
	}
	if schedule := renderRegenerationSchedule(p); len(schedule) > 0 {
		rows = append(rows, schedule...)
	}
	if len(rows) > 1 {
		sections = append(sections, strings.Join(rows, "\n"))
	}

	// Water
	rows = []string{SectionTitleStyle.Render("Water")}
	unit := ""
	if p.WaterHardnessUnit != nil {
		unit = p.WaterHardnessUnit.String()
		rows = append(rows, kvRow("Hardness unit", unit))
	}
	if p.RawWaterHardness != nil {
		rows = append(rows, kvRow("Raw water hardness", fmtInt(p.RawWaterHardness, unit)))
	}
	if p.SoftWaterHardness != nil {
		rows = append(rows, kvRow("Soft water hardness", fmtInt(p.SoftWaterHardness, unit)))
	}
	if len(rows) > 1 {
		sections = append(sections, strings.Join(rows, "\n"))
	}

	// Notifications
	rows = []string{SectionTitleStyle.Render("Notifications")}
	if p.Buzzer != nil {
		value := fmtBool(p.Buzzer)
		if *p.Buzzer && p.BuzzerFrom != nil && p.BuzzerTo != nil {
			value = fmt.Sprintf("On (%s to %s)", p.BuzzerFrom, p.BuzzerTo)
		}
		rows = append(rows, kvRow("Audio signal", value))
	}
	if p.PushNotification != nil {
		rows = append(rows, kvRow("Push notifications", fmtBool(p.PushNotification)))
	}
	if p.EmailNotification != nil {
		rows = append(rows, kvRow("Email notifications", fmtBool(p.EmailNotification)))
	}
	if len(rows) > 1 {
		sections = append(sections, strings.Join(rows, "\n"))
	}

	// LED ring
	rows = []string{SectionTitleStyle.Render("LED ring")}
	if p.LEDRingMode != nil {
		rows = append(rows, kvRow("Mode", p.LEDRingMode.String()))
	}
	if p.LEDRingFlashOnSignal != nil {
		rows = append(rows, kvRow("Flash on salt alarm", fmtBool(p.LEDRingFlashOnSignal)))
	}
	if p.LEDRingBrightness != nil {
		rows = append(rows, kvRow("Brightness", fmtInt(p.LEDRingBrightness, "%")))
	}
	if len(rows) > 1 {
		sections = append(sections, strings.Join(rows, "\n"))
	}

	// Maintenance
	rows = []string{SectionTitleStyle.Render("Maintenance")}
	if p.MaintenanceInterval != nil {
		rows = append(rows, kvRow("Interval", fmtInt(p.MaintenanceInterval, "days")))
	}
	if p.InstallerName != nil && *p.InstallerName != "" {
		rows = append(rows, kvRow("Installer", *p.InstallerName))
	}
	if p.InstallerPhone != nil && *p.InstallerPhone != "" {
		rows = append(rows, kvRow("Installer phone", *p.InstallerPhone))
	}
	if p.InstallerEmail != nil && *p.InstallerEmail != "" {
		rows = append(rows, kvRow("Installer email", *p.InstallerEmail))
	}
	if len(rows) > 1 {
		sections = append(sections, strings.Join(rows, "\n"))
	}

	// Regional
	rows = []string{SectionTitleStyle.Render("Regional")}
	if p.Language != nil {
		rows = append(rows, kvRow("Language", p.Language.String()))
	}
	if p.DaylightSavingTime != nil {
		rows = append(rows, kvRow("Daylight saving", fmtBool(p.DaylightSavingTime)))
	}
	if p.NTPSync != nil {
		rows = append(rows, kvRow("NTP time sync", fmtBool(p.NTPSync)))
	}
	if len(rows) > 1 {
		sections = append(sections, strings.Join(rows, "\n"))
	}

	if len(sections) == 0 {
		return StepNoteStyle.Render("  The appliance reported no settings.")
	}
	return strings.Join(sections, "\n\n")
}

// renderRegenerationSchedule lists the fixed schedule slots per weekday.
// Days without a set slot render nothing.
func renderRegenerationSchedule(p *device.Parameters) []string {
	days := []struct {
		label string
		slots []*device.Clock
	}{
		{"Monday", []*device.Clock{p.RegenerationMonday1, p.RegenerationMonday2, p.RegenerationMonday3}},
		{"Tuesday", []*device.Clock{p.RegenerationTuesday1, p.RegenerationTuesday2, p.RegenerationTuesday3}},
		{"Wednesday", []*device.Clock{p.RegenerationWednesday1, p.RegenerationWednesday2, p.RegenerationWednesday3}},
		{"Thursday", []*device.Clock{p.RegenerationThursday1, p.RegenerationThursday2, p.RegenerationThursday3}},
		{"Friday", []*device.Clock{p.RegenerationFriday1, p.RegenerationFriday2, p.RegenerationFriday3}},
		{"Saturday", []*device.Clock{p.RegenerationSaturday1, p.RegenerationSaturday2, p.RegenerationSaturday3}},
		{"Sunday", []*device.Clock{p.RegenerationSunday1, p.RegenerationSunday2, p.RegenerationSunday3}},
	}

	var rows []string
	for _, day := range days {
		var times []string
		for _, slot := range day.slots {
			if slot != nil && slot.IsSet() {
				times = append(times, slot.String())
			}
		}
		if len(times) > 0 {
			rows = append(rows, kvRow("  "+day.label, strings.Join(times, ", ")))
		}
	}
	return rows
}

// --- Formatting helpers ---

// kvRow renders one aligned label/value row.
func kvRow(label, value string) string {
	key := lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(labelWidth).
		Render(label + ":")
	return "  " + key + " " + ResultValueStyle.Render(value)
}

func fmtString(v *string) string {
	if v == nil || *v == "" {
		return "n/a"
	}
	return *v
}

func fmtFloat(v *float64, precision int, unit string) string {
	if v == nil {
		return "n/a"
	}
	s := fmt.Sprintf("%.*f", precision, *v)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func fmtInt(v *int, unit string) string {
	if v == nil {
		return "n/a"
	}
	s := fmt.Sprintf("%d", *v)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func fmtBool(v *bool) string {
	if v == nil {
		return "n/a"
	}
	if *v {
		return "On"
	}
	return "Off"
}
