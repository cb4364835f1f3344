//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// relayFrame matches the Frame structure from internal/stream/frames.go
type relayFrame struct {
	Type      int               `json:"type"`
	Target    string            `json:"target,omitempty"`
	Error     string            `json:"error,omitempty"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// recordSeparator terminates every relay message, the handshake included.
const recordSeparator byte = 0x1e

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: replay-frames <capture-file>")
		fmt.Println("Example: replay-frames captures/relay-20260214-101500.bin")
		fmt.Println()
		fmt.Println("The capture is the raw relay byte stream: JSON frames separated")
		fmt.Println("by 0x1E, as saved from a websocket proxy or a debug log.")
		os.Exit(1)
	}

	filename := os.Args[1]
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}

	segments := bytes.Split(data, []byte{recordSeparator})

	fmt.Printf("=== Relay Frame Analyzer ===\n")
	fmt.Printf("File: %s\n", filename)
	fmt.Printf("Bytes: %d\n", len(data))
	fmt.Printf("Segments: %d\n\n", len(segments))

	stats := newCaptureStats()
	frameNum := 0
	for _, segment := range segments {
		segment = bytes.TrimSpace(segment)
		if len(segment) == 0 {
			continue
		}
		frameNum++
		analyzeSegment(frameNum, segment, stats)
	}

	stats.printSummary()
}

func analyzeSegment(num int, segment []byte, stats *captureStats) {
	fmt.Printf("========================================\n")
	fmt.Printf("Frame #%d - %d bytes\n", num, len(segment))
	fmt.Printf("========================================\n")

	// The handshake and its ack have no type discriminator
	if isHandshake(segment) {
		stats.handshakes++
		fmt.Printf("  Handshake: %s\n\n", string(segment))
		return
	}

	var frame relayFrame
	if err := json.Unmarshal(segment, &frame); err != nil {
		stats.unparseable++
		fmt.Printf("  UNPARSEABLE (%v)\n\n", err)
		hexDump(segment)
		fmt.Println()
		return
	}

	stats.byType[frame.Type]++
	fmt.Printf("  Type: %d (%s)\n", frame.Type, frameTypeName(frame.Type))

	switch frame.Type {
	case 1: // invocation carrying telemetry
		stats.byTarget[frame.Target]++
		fmt.Printf("  Target: %s\n", frame.Target)
		fmt.Printf("  Arguments: %d\n", len(frame.Arguments))
		for i, arg := range frame.Arguments {
			analyzeTelemetry(i, arg, stats)
		}
	case 6:
		// keep-alive, nothing to show
	case 7:
		if frame.Error != "" {
			fmt.Printf("  Error: %s\n", frame.Error)
		}
	default:
		fmt.Printf("  Raw: %s\n", truncate(string(segment), 200))
	}
	fmt.Println()
}

// analyzeTelemetry dumps one invocation argument: the device id envelope
// plus every reported field, and feeds the field histogram.
func analyzeTelemetry(index int, raw json.RawMessage, stats *captureStats) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		fmt.Printf("  Argument %d: not an object (%v)\n", index, err)
		return
	}

	if id, ok := fields["id"].(string); ok {
		stats.byDevice[id]++
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("  Argument %d (%d fields):\n", index, len(fields))
	for _, k := range keys {
		v := fields[k]
		if v == nil {
			continue
		}
		stats.fieldSeen[k]++
		if _, recorded := stats.fieldExample[k]; !recorded {
			stats.fieldExample[k] = fmt.Sprintf("%v", v)
		}
		fmt.Printf("    %-24s %v\n", k, v)
	}
}

func isHandshake(segment []byte) bool {
	if bytes.Equal(segment, []byte("{}")) {
		return true
	}
	return bytes.Contains(segment, []byte(`"protocol"`))
}

func frameTypeName(t int) string {
	switch t {
	case 1:
		return "Invocation"
	case 2:
		return "StreamItem"
	case 3:
		return "Completion"
	case 4:
		return "StreamInvocation"
	case 5:
		return "CancelInvocation"
	case 6:
		return "Ping"
	case 7:
		return "Close"
	default:
		return "unknown"
	}
}

// captureStats accumulates per-capture totals for the closing summary.
type captureStats struct {
	handshakes   int
	unparseable  int
	byType       map[int]int
	byTarget     map[string]int
	byDevice     map[string]int
	fieldSeen    map[string]int
	fieldExample map[string]string
}

func newCaptureStats() *captureStats {
	return &captureStats{
		byType:       map[int]int{},
		byTarget:     map[string]int{},
		byDevice:     map[string]int{},
		fieldSeen:    map[string]int{},
		fieldExample: map[string]string{},
	}
}

func (s *captureStats) printSummary() {
	fmt.Printf("========================================\n")
	fmt.Printf("Capture Summary\n")
	fmt.Printf("========================================\n\n")

	fmt.Println("Frame types:")
	if s.handshakes > 0 {
		fmt.Printf("  %-20s %d\n", "Handshake", s.handshakes)
	}
	types := make([]int, 0, len(s.byType))
	for t := range s.byType {
		types = append(types, t)
	}
	sort.Ints(types)
	for _, t := range types {
		fmt.Printf("  %-20s %d\n", frameTypeName(t), s.byType[t])
	}
	if s.unparseable > 0 {
		fmt.Printf("  %-20s %d\n", "UNPARSEABLE", s.unparseable)
	}
	fmt.Println()

	if len(s.byTarget) > 0 {
		fmt.Println("Invocation targets:")
		for _, target := range sortedKeys(s.byTarget) {
			fmt.Printf("  %-40s %d\n", target, s.byTarget[target])
		}
		fmt.Println()
	}

	if len(s.byDevice) > 0 {
		fmt.Println("Device ids:")
		for _, id := range sortedKeys(s.byDevice) {
			fmt.Printf("  %-40s %d\n", id, s.byDevice[id])
		}
		fmt.Println()
	}

	// The field histogram is how new firmware fields get noticed:
	// anything here that realtime.go does not map is a candidate.
	if len(s.fieldSeen) > 0 {
		fmt.Println("Telemetry fields (occurrences, first value):")
		for _, field := range sortedKeys(s.fieldSeen) {
			fmt.Printf("  %-24s %4d  %s\n",
				field, s.fieldSeen[field], truncate(s.fieldExample[field], 40))
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func hexDump(payload []byte) {
	for i := 0; i < len(payload); i += 16 {
		// Offset
		fmt.Printf("%04x  ", i)

		// Hex
		for j := 0; j < 16; j++ {
			if i+j < len(payload) {
				fmt.Printf("%02x ", payload[i+j])
			} else {
				fmt.Print("   ")
			}
			if j == 7 {
				fmt.Print(" ")
			}
		}

		// ASCII
		fmt.Print(" |")
		for j := 0; j < 16 && i+j < len(payload); j++ {
			b := payload[i+j]
			if b >= 32 && b <= 126 {
				fmt.Printf("%c", b)
			} else {
				fmt.Print(".")
			}
		}
		fmt.Println("|")
	}
}
