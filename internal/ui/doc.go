// Package ui provides terminal UI components for the gruenbeck-cli.
//
// This package uses Bubble Tea and Lipgloss to render polished terminal output
// for cloud commands. Most components follow a "run once and exit" pattern -
// they render output compellingly but don't require user interaction. The one
// exception is the watch model, a full Bubble Tea program that displays live
// telemetry until the user quits.
//
// # Architecture
//
// The UI package provides these component types:
//
//   - Header: Command banner showing operation name and parameters
//   - Progress: Progress bar with step list showing real-time status
//   - Result: Success/failure boxes with styled information
//   - RequestLog: Recorded cloud exchanges for verbose mode
//   - WatchModel: Interactive live telemetry view for the watch command
//
// The run-once components are orchestrated by the TaskRunner, which manages
// the header → progress → result flow for multi-step cloud operations.
//
// # Usage Pattern
//
// Cloud commands use this package by:
//
//  1. Creating a TaskRunner with command metadata
//  2. Calling Run() with their operation function
//  3. The operation reports progress via a step callback
//  4. TaskRunner handles all UI rendering automatically
//
// Example:
//
//	runner := ui.NewTaskRunner(ui.TaskConfig{
//	    Title:      "Parameter Update",
//	    Command:    "gruenbeck-cli set",
//	    Params:     map[string]string{"Device": "BS11022077"},
//	    TotalSteps: 3,
//	    Verbose:    verbose,
//	})
//
//	err := runner.Run(ctx, func(onStep ui.StepCallback) error {
//	    onStep(1, "Signing in", ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, "Signing in", ui.StepComplete, "")
//	    return nil
//	})
//
// # Logging Integration
//
// This package expects logging to be controlled via the GRUENBECK_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly. Set GRUENBECK_LOG_LEVEL to
// "debug", "info", "warn", or "error" to enable logging output.
//
// # Verbose Mode
//
// When --verbose is passed to cloud commands, the RequestLog component
// displays the recorded exchanges in a styled box after the result. Entries
// come from the client's diagnostics ring and are already redacted, so the
// box never shows credentials or tokens.
package ui
