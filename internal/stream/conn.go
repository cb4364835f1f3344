package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/gruenbeck-cloud/internal/diagnostics"
	"github.com/muurk/gruenbeck-cloud/internal/logging"
	"github.com/muurk/gruenbeck-cloud/internal/rest"
)

const (
	// Time allowed to write a message to the relay
	writeWait = 10 * time.Second

	// Time allowed to read the next frame from the relay before the
	// connection counts as dead
	pongWait = 60 * time.Second

	// Send pings to the relay with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second
)

// State is the connection lifecycle position of a Manager.
type State int

const (
	StateDisconnected State = iota
	StateNegotiating
	StateUpgrading
	StateConnected
	StateClosing
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateNegotiating:
		return "negotiating"
	case StateUpgrading:
		return "upgrading"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// TokenSource mints access tokens for the negotiation and streaming-mode
// calls. The session manager satisfies it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Manager owns the relay WebSocket: negotiation, upgrade, handshake,
// heartbeat and the receive loop. It does not reconnect on its own; when
// Listen returns, reconnecting is the caller's decision.
//
// Connect, Listen and Disconnect are not meant to be called concurrently
// with each other. Disconnect and Close may interrupt a running Listen;
// that is the supported way to stop it.
type Manager struct {
	table    *rest.Table
	executor *rest.Executor
	tokens   TokenSource

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	intentional bool
	stopPing    chan struct{}
}

// NewManager creates a disconnected manager.
func NewManager(table *rest.Table, executor *rest.Executor, tokens TokenSource) *Manager {
	return &Manager{
		table:    table,
		executor: executor,
		tokens:   tokens,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect negotiates a relay assignment, upgrades the WebSocket, sends
// the protocol handshake and arms the device-side push for deviceID. A
// no-op when already connected.
func (m *Manager) Connect(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	m.state = StateNegotiating
	m.mu.Unlock()

	relayBase, relayToken, err := m.negotiateRelay(ctx)
	if err != nil {
		m.setState(StateDisconnected)
		return err
	}

	connectionID, err := m.negotiateConnectionID(ctx, relayBase, relayToken)
	if err != nil {
		m.setState(StateDisconnected)
		return err
	}

	m.setState(StateUpgrading)

	conn, err := m.upgrade(ctx, relayBase, connectionID, relayToken)
	if err != nil {
		m.setState(StateDisconnected)
		return err
	}

	stop := make(chan struct{})
	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	m.intentional = false
	m.stopPing = stop
	m.mu.Unlock()

	go m.heartbeat(conn, stop)

	logging.Info("Stream connected", zap.String("device_id", deviceID))

	// Device-side arming. Without these the relay stays silent.
	if err := m.EnterSD(ctx, deviceID); err != nil {
		_ = m.Close()
		return err
	}
	if err := m.RefreshSD(ctx, deviceID); err != nil {
		_ = m.Close()
		return err
	}

	return nil
}

// negotiateRelay asks the primary API for a relay assignment. Both the
// relay URL and its short-lived access token are required.
func (m *Manager) negotiateRelay(ctx context.Context) (string, string, error) {
	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return "", "", err
	}

	req, err := m.table.Resolve(rest.StartWSNegotiation, rest.Vars{
		rest.VarAccessToken: token,
	})
	if err != nil {
		return "", "", err
	}

	resp, err := m.executor.Do(ctx, req)
	if err != nil {
		return "", "", err
	}

	var negotiation struct {
		URL         string `json:"url"`
		AccessToken string `json:"accessToken"`
	}
	if err := resp.JSON(&negotiation); err != nil {
		return "", "", err
	}
	if negotiation.URL == "" || negotiation.AccessToken == "" {
		return "", "", rest.NewResponseShapeError(rest.StartWSNegotiation,
			"negotiation response missing url or accessToken", nil)
	}

	return negotiation.URL, negotiation.AccessToken, nil
}

// negotiateConnectionID asks the assigned relay for a connection id.
func (m *Manager) negotiateConnectionID(ctx context.Context, relayBase, relayToken string) (string, error) {
	req, err := m.table.ResolveRelay(rest.GetWSConnectionID, relayBase, rest.Vars{
		rest.VarAccessToken: relayToken,
	})
	if err != nil {
		return "", err
	}

	resp, err := m.executor.Do(ctx, req)
	if err != nil {
		return "", err
	}

	var negotiation struct {
		ConnectionID string `json:"connectionId"`
	}
	if err := resp.JSON(&negotiation); err != nil {
		return "", err
	}
	if negotiation.ConnectionID == "" {
		return "", rest.NewResponseShapeError(rest.GetWSConnectionID,
			"negotiation response missing connectionId", nil)
	}

	return negotiation.ConnectionID, nil
}

// upgrade opens the WebSocket and sends the protocol handshake.
func (m *Manager) upgrade(ctx context.Context, relayBase, connectionID, relayToken string) (*websocket.Conn, error) {
	wsURL, err := m.table.WebSocketURL(relayBase, connectionID, relayToken)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	for key, value := range m.table.WebSocketHeaders() {
		header.Set(key, value)
	}

	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, rest.NewResponseStatusError("ws_upgrade", resp.StatusCode,
				"relay refused the WebSocket upgrade")
		}
		return nil, rest.NewConnectionError("ws_upgrade", "WebSocket upgrade failed", err)
	}

	payload := append([]byte(handshake), recordSeparator)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		_ = conn.Close()
		return nil, rest.NewConnectionError("ws_upgrade", "protocol handshake failed", err)
	}

	return conn, nil
}

// heartbeat pings the relay until stop closes. A failed write means the
// socket is gone; the read loop surfaces the actual error.
func (m *Manager) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logging.Debug("Heartbeat write failed", zap.Error(err))
				return
			}
		case <-stop:
			return
		}
	}
}

// Listen reads relay messages and hands each text payload to handle
// until the socket closes or handle returns an error. A binary frame is
// unexpected and fatal. Intentional closure through Disconnect or Close
// returns nil; cancelling ctx returns ctx.Err(); anything else is a
// StreamClosedError.
func (m *Manager) Listen(ctx context.Context, handle func(payload []byte) error) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return rest.NewMissingSessionError("no live stream; call Connect first")
	}

	// Cancelling ctx closes the socket, which unblocks the read.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-watchDone:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if m.wasIntentional() {
				return nil
			}
			m.teardown()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return rest.NewStreamClosedError("stream ended unexpectedly", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch messageType {
		case websocket.TextMessage:
			if logging.DebugEnabled() {
				logging.LogStreamFrame("recv", diagnostics.Redact(string(payload)))
			}
			if err := handle(payload); err != nil {
				return err
			}
		case websocket.BinaryMessage:
			m.teardown()
			return rest.NewStreamClosedError("unexpected binary frame", nil)
		}
	}
}

// EnterSD arms the device-side telemetry push.
func (m *Manager) EnterSD(ctx context.Context, deviceID string) error {
	return m.streamingMode(ctx, rest.EnterSD, deviceID)
}

// RefreshSD re-arms the push. The device stops sending a few minutes
// after the last refresh, so long-running listeners call this
// periodically.
func (m *Manager) RefreshSD(ctx context.Context, deviceID string) error {
	return m.streamingMode(ctx, rest.RefreshSD, deviceID)
}

// LeaveSD disarms the push.
func (m *Manager) LeaveSD(ctx context.Context, deviceID string) error {
	return m.streamingMode(ctx, rest.LeaveSD, deviceID)
}

func (m *Manager) streamingMode(ctx context.Context, name string, deviceID string) error {
	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	req, err := m.table.Resolve(name, rest.Vars{
		rest.VarAccessToken: token,
		rest.VarDeviceID:    deviceID,
	})
	if err != nil {
		return err
	}

	_, err = m.executor.Do(ctx, req)
	return err
}

// Disconnect leaves streaming mode, then closes the socket. A failure to
// leave is logged, not returned; the socket is closed regardless. A
// no-op when not connected.
func (m *Manager) Disconnect(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	if m.state != StateConnected || m.conn == nil {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosing
	m.intentional = true
	conn := m.conn
	m.mu.Unlock()

	if err := m.LeaveSD(ctx, deviceID); err != nil {
		logging.Warn("Leaving streaming mode failed", zap.Error(err))
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	err := conn.Close()

	m.teardown()

	logging.Info("Stream disconnected", zap.String("device_id", deviceID))
	if err != nil {
		return rest.NewConnectionError("ws_close", "closing WebSocket failed", err)
	}
	return nil
}

// Close closes the socket without the leave call. Used for hard
// teardown; a pending Listen returns nil.
func (m *Manager) Close() error {
	m.mu.Lock()
	conn := m.conn
	if conn != nil {
		m.intentional = true
	}
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	m.teardown()
	return err
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) wasIntentional() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intentional
}

// teardown drops the socket reference and stops the heartbeat. Safe to
// call more than once.
func (m *Manager) teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = nil
	m.state = StateDisconnected
	if m.stopPing != nil {
		close(m.stopPing)
		m.stopPing = nil
	}
}
