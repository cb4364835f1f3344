package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/gruenbeck-cloud/internal/logging"
	"github.com/muurk/gruenbeck-cloud/internal/rest"
)

// Frame type discriminators of the relay protocol.
const (
	frameTypeData = 1
	frameTypePing = 6
)

// recordSeparator terminates every relay message, the handshake included.
const recordSeparator byte = 0x1e

// handshake is the fixed first frame sent after the upgrade.
const handshake = `{"protocol":"json","version":1}`

// dataTargets are the hub methods that carry device telemetry. Frames
// with any other target are skipped.
var dataTargets = map[string]bool{
	"SendOneTimeMessageToDevice": true,
	"SendMessageToDevice":        true,
}

// Frame is one decoded relay message.
type Frame struct {
	Type      int               `json:"type"`
	Target    string            `json:"target,omitempty"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// Processor classifies relay traffic for one active device. A WebSocket
// message may carry several record-separated frames; Process returns the
// telemetry argument objects that passed classification, in order.
type Processor struct {
	serial string
	pings  int
}

// NewProcessor creates a processor bound to the active device's serial
// number.
func NewProcessor(serial string) *Processor {
	return &Processor{serial: serial}
}

// Pings returns the number of keep-alive frames seen. Liveness
// diagnostics only.
func (p *Processor) Pings() int {
	return p.pings
}

// Process splits payload on the record separator and classifies each
// frame. Unparseable segments and unknown frame types or targets are
// skipped; the relay intersperses control traffic this client has no use
// for. A telemetry argument whose embedded id names a different device
// is cross-talk between subscriptions and fails the whole payload,
// before any of its arguments are handed up.
func (p *Processor) Process(payload []byte) ([]json.RawMessage, error) {
	var updates []json.RawMessage

	for _, segment := range bytes.Split(payload, []byte{recordSeparator}) {
		segment = bytes.TrimSpace(segment)
		if len(segment) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(segment, &frame); err != nil {
			logging.Debug("Skipping unparseable stream segment",
				zap.Int("length", len(segment)),
			)
			continue
		}

		switch frame.Type {
		case frameTypePing:
			p.pings++
			logging.Debug("Stream keep-alive", zap.Int("count", p.pings))

		case frameTypeData:
			if !dataTargets[frame.Target] {
				logging.Debug("Ignoring unknown stream target",
					zap.String("target", frame.Target),
				)
				continue
			}
			for _, argument := range frame.Arguments {
				var envelope struct {
					ID string `json:"id"`
				}
				if err := json.Unmarshal(argument, &envelope); err != nil {
					logging.Debug("Skipping malformed stream argument",
						zap.String("target", frame.Target),
					)
					continue
				}
				if envelope.ID != p.serial {
					return nil, rest.NewProtocolMismatchError(fmt.Sprintf(
						"expected id value %s but got %s", p.serial, envelope.ID))
				}
				updates = append(updates, argument)
			}

		default:
			logging.Debug("Ignoring stream frame", zap.Int("type", frame.Type))
		}
	}

	return updates, nil
}
