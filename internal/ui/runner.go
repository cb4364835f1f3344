package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/gruenbeck-cloud/internal/diagnostics"
)

// TaskConfig holds configuration for a cloud command execution
type TaskConfig struct {
	Title      string            // Command title (e.g., "Parameter Update")
	Command    string            // Full command (e.g., "gruenbeck-cli set")
	Params     map[string]string // Parameters to display in header
	TotalSteps int               // Total number of steps (for progress)
	StepNames  []string          // Names for each step
	Verbose    bool              // Whether to show the request log
	Output     io.Writer         // Output writer (default: os.Stdout)
}

// TaskRunner orchestrates the UI for a cloud command execution.
// It manages the header → progress → result flow and provides
// callbacks for reporting progress.
type TaskRunner struct {
	config     TaskConfig
	header     *Header
	progress   *Progress
	output     io.Writer
	requestLog []diagnostics.Entry
	startTime  time.Time
	width      int
}

// NewTaskRunner creates a new runner for a cloud command
func NewTaskRunner(config TaskConfig) *TaskRunner {
	// Set defaults
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	// Create header
	header := NewHeader(config.Title, config.Command, config.Params)
	header.SetWidth(width)

	// Create progress tracker
	var progress *Progress
	if config.TotalSteps > 0 {
		progress = NewProgress("", config.TotalSteps)
		progress.SetWidth(width)
		if len(config.StepNames) > 0 {
			progress.SetStepNames(config.StepNames)
		}
	}

	return &TaskRunner{
		config:   config,
		header:   header,
		progress: progress,
		output:   config.Output,
		width:    width,
	}
}

// TaskOperation is the function signature for the actual cloud operation.
// The operation receives a StepCallback to report progress.
type TaskOperation func(onStep StepCallback) error

// Run executes the cloud operation with UI updates.
// It displays the header, tracks progress, and shows the result.
func (r *TaskRunner) Run(ctx context.Context, operation TaskOperation) error {
	r.startTime = time.Now()

	// Print header
	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	// Create step callback
	stepCallback := r.createStepCallback()

	// Execute the operation
	err := operation(stepCallback)
	duration := time.Since(r.startTime)

	// Print final result
	if err != nil {
		r.printFailure(err, duration)
	} else {
		r.printSuccess(duration)
	}

	return err
}

// RunWithResult executes the cloud operation and allows custom result handling.
// Returns the result details that were displayed.
func (r *TaskRunner) RunWithResult(ctx context.Context, operation func(onStep StepCallback) (map[string]string, error)) (map[string]string, error) {
	r.startTime = time.Now()

	// Print header
	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	// Create step callback
	stepCallback := r.createStepCallback()

	// Execute the operation
	details, err := operation(stepCallback)
	duration := time.Since(r.startTime)

	// Print final result
	if err != nil {
		r.printFailure(err, duration)
	} else {
		r.printSuccessWithDetails(details, duration)
	}

	return details, err
}

// SetRequestLog stores the recorded cloud exchanges for verbose display.
// Entries come from the client's diagnostics ring and are already redacted.
func (r *TaskRunner) SetRequestLog(entries []diagnostics.Entry) {
	r.requestLog = entries
}

// createStepCallback creates the step callback function
func (r *TaskRunner) createStepCallback() StepCallback {
	return func(stepNumber int, name string, status StepStatus, message string) {
		if r.progress == nil {
			return
		}

		// Update step name if provided
		if name != "" && stepNumber > 0 && stepNumber <= len(r.progress.Steps) {
			r.progress.Steps[stepNumber-1].Name = name
		}

		// Update step status
		r.progress.UpdateStep(stepNumber, status, message)

		// Print progress line
		if status == StepComplete || status == StepFailed || status == StepSkipped {
			// Print completed step
			step := r.progress.Steps[stepNumber-1]
			_, _ = fmt.Fprintln(r.output, r.progress.renderStepLine(step))
		} else if status == StepRunning {
			// Print running step (will be overwritten when complete)
			step := r.progress.Steps[stepNumber-1]
			_, _ = fmt.Fprint(r.output, r.progress.renderStepLine(step)+"\r")
		}
	}
}

// printSuccess prints a success result
func (r *TaskRunner) printSuccess(duration time.Duration) {
	_, _ = fmt.Fprintln(r.output)

	// Default success details
	details := map[string]string{
		"Duration": duration.Round(time.Millisecond).String(),
	}

	result := NewSuccessResult(r.config.Title+" complete", details)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())

	r.printRequestLogIfVerbose()
}

// printSuccessWithDetails prints a success result with custom details
func (r *TaskRunner) printSuccessWithDetails(details map[string]string, duration time.Duration) {
	_, _ = fmt.Fprintln(r.output)

	// Add duration to details
	if details == nil {
		details = make(map[string]string)
	}
	details["Duration"] = duration.Round(time.Millisecond).String()

	result := NewSuccessResult(r.config.Title+" complete", details)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())

	r.printRequestLogIfVerbose()
}

// printFailure prints a failure result with troubleshooting
func (r *TaskRunner) printFailure(err error, duration time.Duration) {
	_, _ = fmt.Fprintln(r.output)

	// Default troubleshooting tips
	troubleshooting := []string{
		"Check your internet connection",
		"Verify the account works in the myGrünbeck app",
		"Run with --verbose to see the recorded requests",
		"Set GRUENBECK_LOG_LEVEL=debug for full protocol logs",
	}

	result := NewFailureResult(r.config.Title+" failed", err, troubleshooting)
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())

	r.printRequestLogIfVerbose()
}

// printRequestLogIfVerbose shows the recorded exchanges in verbose mode
func (r *TaskRunner) printRequestLogIfVerbose() {
	if !r.config.Verbose || len(r.requestLog) == 0 {
		return
	}
	_, _ = fmt.Fprintln(r.output)
	log := NewRequestLog(r.requestLog)
	log.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, log.Render())
}

// --- Simple helper functions for commands that don't need full TaskRunner ---

// PrintCommandHeader prints a styled command header
func PrintCommandHeader(title, command string, params map[string]string) {
	width := GetTerminalWidth()
	header := NewHeader(title, command, params)
	header.SetWidth(width)
	fmt.Println(header.Render())
	fmt.Println()
}

// PrintSuccess prints a styled success result
func PrintSuccess(title string, details map[string]string) {
	width := GetTerminalWidth()
	result := NewSuccessResult(title, details)
	result.SetWidth(width)
	fmt.Println()
	fmt.Println(result.Render())
}

// PrintFailure prints a styled failure result
func PrintFailure(title string, err error, troubleshooting []string) {
	width := GetTerminalWidth()
	result := NewFailureResult(title, err, troubleshooting)
	result.SetWidth(width)
	fmt.Println()
	fmt.Println(result.Render())
}

// PrintWarning prints a styled warning result
func PrintWarning(title string, details map[string]string) {
	width := GetTerminalWidth()
	result := NewWarningResult(title, details)
	result.SetWidth(width)
	fmt.Println()
	fmt.Println(result.Render())
}

// PrintRequestLog prints the recorded cloud exchanges (for verbose mode)
func PrintRequestLog(entries []diagnostics.Entry) {
	width := GetTerminalWidth()
	log := NewRequestLog(entries)
	log.SetWidth(width)
	fmt.Println()
	fmt.Println(log.Render())
}

// PrintPleaseWait prints a styled "please wait" message for long-running operations.
// The message parameter should describe what's happening, e.g., "Signing in".
// The duration hint helps set user expectations, e.g., "up to 30 seconds".
func PrintPleaseWait(message string, durationHint string) {
	// Use primary/purple color - stands out but doesn't cause alarm
	style := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		PaddingLeft(2)

	hintStyle := lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	line := style.Render("⏳ " + message)
	if durationHint != "" {
		line += " " + hintStyle.Render("("+durationHint+")")
	}
	line += style.Render("...")

	fmt.Println()
	fmt.Println(line)
	fmt.Println()
}
