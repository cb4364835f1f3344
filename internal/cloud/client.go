package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/gruenbeck-cloud/internal/auth"
	"github.com/muurk/gruenbeck-cloud/internal/device"
	"github.com/muurk/gruenbeck-cloud/internal/diagnostics"
	"github.com/muurk/gruenbeck-cloud/internal/logging"
	"github.com/muurk/gruenbeck-cloud/internal/rest"
	"github.com/muurk/gruenbeck-cloud/internal/stream"
)

// softenerFilter selects water softeners from the account listing; the
// cloud lists other product families under the same account.
const softenerFilter = "soft"

// Config carries everything a Client needs. Username and Password are
// required, the rest defaults.
type Config struct {
	Username string
	Password string

	// Endpoints overrides the production bases, mainly for tests.
	Endpoints rest.TableConfig

	// DiagnosticsCapacity bounds the recorded exchange ring. Zero falls
	// back to diagnostics.DefaultCapacity.
	DiagnosticsCapacity int
}

// Client is the entry point for everything: session, device selection,
// REST operations and the realtime stream.
//
// REST operations and Listen may run concurrently; device selection is
// expected to happen before streaming starts.
type Client struct {
	table    *rest.Table
	executor *rest.Executor
	recorder *diagnostics.Recorder
	session  *auth.Manager
	stream   *stream.Manager

	mu     sync.Mutex
	device *device.Device
}

// NewClient validates cfg and builds a client. No network traffic
// happens here; the first operation that needs a session logs in
// lazily.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, rest.NewConfigurationError("username and password are required")
	}

	recorder := diagnostics.NewRecorder(cfg.DiagnosticsCapacity)
	executor, err := rest.NewExecutor(recorder)
	if err != nil {
		return nil, err
	}
	table := rest.NewTable(cfg.Endpoints)
	session := auth.NewManager(table, executor, cfg.Username, cfg.Password)

	return &Client{
		table:    table,
		executor: executor,
		recorder: recorder,
		session:  session,
		stream:   stream.NewManager(table, executor, session),
	}, nil
}

// Login forces a fresh full login. Operations log in lazily on their
// own; this exists for callers that want to validate credentials up
// front.
func (c *Client) Login(ctx context.Context) error {
	return c.session.Login(ctx)
}

// ListDevices returns the account's water softeners. Other product
// families on the account are filtered out.
func (c *Client) ListDevices(ctx context.Context) ([]device.Summary, error) {
	resp, err := c.do(ctx, rest.GetDevices, rest.Vars{}, nil)
	if err != nil {
		return nil, err
	}

	all, err := device.ParseSummaries(resp.Body)
	if err != nil {
		return nil, err
	}

	softeners := make([]device.Summary, 0, len(all))
	for _, s := range all {
		if strings.Contains(strings.ToLower(s.ID), softenerFilter) {
			softeners = append(softeners, s)
		}
	}
	return softeners, nil
}

// SelectDevice picks the account's first water softener and loads its
// device document.
func (c *Client) SelectDevice(ctx context.Context) (*device.Device, error) {
	softeners, err := c.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(softeners) == 0 {
		return nil, rest.NewConfigurationError("account has no water softener")
	}
	return c.selectSummary(ctx, softeners[0])
}

// SelectDeviceByID picks a softener by its listing id or serial number.
func (c *Client) SelectDeviceByID(ctx context.Context, id string) (*device.Device, error) {
	softeners, err := c.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range softeners {
		if s.ID == id || s.SerialNumber == id {
			return c.selectSummary(ctx, s)
		}
	}
	return nil, rest.NewConfigurationError(fmt.Sprintf("no device %q on this account", id))
}

func (c *Client) selectSummary(ctx context.Context, summary device.Summary) (*device.Device, error) {
	d := device.NewDevice(summary)
	c.mu.Lock()
	c.device = d
	c.mu.Unlock()

	if err := c.FetchDeviceInfo(ctx); err != nil {
		return nil, err
	}

	logging.Info("Device selected",
		zap.String("device_id", summary.ID),
		zap.String("serial", summary.SerialNumber),
	)
	return c.Device()
}

// Device returns a snapshot of the selected device. The copy stays
// stable when later updates come in.
func (c *Client) Device() (*device.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return nil, rest.NewMissingSessionError("no device selected")
	}
	snapshot := *c.device
	return &snapshot, nil
}

// selected returns the live selected device for internal use. All
// mutation of the returned value happens under c.mu.
func (c *Client) selected() (*device.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return nil, rest.NewMissingSessionError("no device selected")
	}
	return c.device, nil
}

// FetchDeviceInfo reloads the base device document into the selection.
func (c *Client) FetchDeviceInfo(ctx context.Context) error {
	d, err := c.selected()
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, rest.GetDeviceInfos, rest.Vars{
		rest.VarDeviceID: d.ID,
		rest.VarEndpoint: rest.InfoEndpointBase,
	}, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return d.UpdateFromInfo(resp.Body)
}

// FetchParameters loads the full parameter document, caches it on the
// device and returns a copy.
func (c *Client) FetchParameters(ctx context.Context) (*device.Parameters, error) {
	d, err := c.selected()
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, rest.GetDeviceInfos, rest.Vars{
		rest.VarDeviceID: d.ID,
		rest.VarEndpoint: rest.InfoEndpointParameters,
	}, nil)
	if err != nil {
		return nil, err
	}

	params, err := device.ParseParameters(resp.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	d.Parameters = params
	c.mu.Unlock()

	snapshot := *params
	return &snapshot, nil
}

// FetchSaltMeasurements loads the daily salt consumption series.
func (c *Client) FetchSaltMeasurements(ctx context.Context) ([]device.DailyUsage, error) {
	return c.fetchUsage(ctx, rest.InfoEndpointSaltMeasurements)
}

// FetchWaterMeasurements loads the daily water consumption series.
func (c *Client) FetchWaterMeasurements(ctx context.Context) ([]device.DailyUsage, error) {
	return c.fetchUsage(ctx, rest.InfoEndpointWaterMeasurements)
}

func (c *Client) fetchUsage(ctx context.Context, endpoint string) ([]device.DailyUsage, error) {
	d, err := c.selected()
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, rest.GetDeviceInfos, rest.Vars{
		rest.VarDeviceID: d.ID,
		rest.VarEndpoint: endpoint,
	}, nil)
	if err != nil {
		return nil, err
	}

	var series []device.DailyUsage
	if err := resp.JSON(&series); err != nil {
		return nil, err
	}

	c.mu.Lock()
	switch endpoint {
	case rest.InfoEndpointSaltMeasurements:
		d.Salt = series
	case rest.InfoEndpointWaterMeasurements:
		d.Water = series
	}
	c.mu.Unlock()

	return series, nil
}

// UpdateParameters sends the changed parameters to the device and
// replaces the cached document with the cloud's response. A patch that
// changes nothing returns the current parameters without any network
// traffic.
func (c *Client) UpdateParameters(ctx context.Context, patch *device.ParameterPatch) (*device.Parameters, error) {
	d, err := c.selected()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	current := d.Parameters
	c.mu.Unlock()
	if current == nil {
		if _, err := c.FetchParameters(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		current = d.Parameters
		c.mu.Unlock()
	}

	changed := patch.Diff(current)
	if len(changed) == 0 {
		logging.Warn("Parameter update skipped, nothing changed")
		snapshot := *current
		return &snapshot, nil
	}

	body, err := json.Marshal(changed)
	if err != nil {
		return nil, rest.NewConfigurationError(fmt.Sprintf("failed to encode parameter patch: %v", err))
	}

	resp, err := c.do(ctx, rest.UpdateParameter, rest.Vars{rest.VarDeviceID: d.ID}, body)
	if err != nil {
		return nil, err
	}

	params, err := device.ParseParameters(resp.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	d.Parameters = params
	c.mu.Unlock()

	snapshot := *params
	return &snapshot, nil
}

// Regenerate starts a manual regeneration cycle.
func (c *Client) Regenerate(ctx context.Context) error {
	d, err := c.selected()
	if err != nil {
		return err
	}
	_, err = c.do(ctx, rest.Regenerate, rest.Vars{rest.VarDeviceID: d.ID}, []byte("{}"))
	return err
}

// Connect opens the realtime stream for the selected device and arms
// the device-side push.
func (c *Client) Connect(ctx context.Context) error {
	d, err := c.selected()
	if err != nil {
		return err
	}
	return c.stream.Connect(ctx, d.ID)
}

// Listen consumes the realtime stream until ctx is cancelled, the
// stream closes, or a frame fails the protocol checks. Every merged
// telemetry update invokes onUpdate with a device snapshot. Intentional
// closure through Disconnect or Close returns nil.
func (c *Client) Listen(ctx context.Context, onUpdate func(device.Device)) error {
	d, err := c.selected()
	if err != nil {
		return err
	}
	processor := stream.NewProcessor(d.SerialNumber)

	return c.stream.Listen(ctx, func(payload []byte) error {
		updates, err := processor.Process(payload)
		if err != nil {
			return err
		}
		for _, update := range updates {
			c.mu.Lock()
			if err := d.Realtime.Merge(update); err != nil {
				c.mu.Unlock()
				logging.Debug("Skipping unparseable telemetry", zap.Error(err))
				continue
			}
			snapshot := *d
			c.mu.Unlock()
			if onUpdate != nil {
				onUpdate(snapshot)
			}
		}
		return nil
	})
}

// EnterRealtime arms the device-side push without touching the socket.
func (c *Client) EnterRealtime(ctx context.Context) error {
	d, err := c.selected()
	if err != nil {
		return err
	}
	return c.stream.EnterSD(ctx, d.ID)
}

// RefreshRealtime re-arms the push. The device stops sending a few
// minutes after the last refresh, so long-running listeners call this
// periodically.
func (c *Client) RefreshRealtime(ctx context.Context) error {
	d, err := c.selected()
	if err != nil {
		return err
	}
	return c.stream.RefreshSD(ctx, d.ID)
}

// LeaveRealtime disarms the push.
func (c *Client) LeaveRealtime(ctx context.Context) error {
	d, err := c.selected()
	if err != nil {
		return err
	}
	return c.stream.LeaveSD(ctx, d.ID)
}

// Disconnect leaves streaming mode and closes the stream. A pending
// Listen returns nil.
func (c *Client) Disconnect(ctx context.Context) error {
	d, err := c.selected()
	if err != nil {
		return err
	}
	return c.stream.Disconnect(ctx, d.ID)
}

// Close hard-closes the stream socket without the leave call. A pending
// Listen returns nil.
func (c *Client) Close() error {
	return c.stream.Close()
}

// StreamState reports where the realtime connection currently stands.
func (c *Client) StreamState() stream.State {
	return c.stream.State()
}

// HasSession reports whether a login has happened yet.
func (c *Client) HasSession() bool {
	return c.session.HasSession()
}

// Diagnostics exports the recorded cloud exchanges, oldest first, with
// tokens and credentials redacted.
func (c *Client) Diagnostics() []diagnostics.Entry {
	return c.recorder.Export()
}

// do resolves name with vars plus a fresh access token, attaches body
// when given and executes the request.
func (c *Client) do(ctx context.Context, name string, vars rest.Vars, body []byte) (*rest.Response, error) {
	token, err := c.session.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	if vars == nil {
		vars = rest.Vars{}
	}
	vars[rest.VarAccessToken] = token

	req, err := c.table.Resolve(name, vars)
	if err != nil {
		return nil, err
	}
	req.Body = body
	return c.executor.Do(ctx, req)
}
