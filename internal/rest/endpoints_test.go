package rest

import (
	"strings"
	"testing"
)

func TestResolve_GetDevices(t *testing.T) {
	table := NewTable(TableConfig{})

	req, err := table.Resolve(GetDevices, Vars{VarAccessToken: "token123"})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}

	if req.Method != "GET" {
		t.Errorf("Method = %s, want GET", req.Method)
	}
	if !strings.HasPrefix(req.URL, DefaultAPIBase+"/api/devices?") {
		t.Errorf("URL = %s, want prefix %s/api/devices?", req.URL, DefaultAPIBase)
	}
	if !strings.Contains(req.URL, "api-version="+APIVersion) {
		t.Errorf("URL = %s, want api-version query", req.URL)
	}
	if req.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("Authorization = %s, want Bearer token123", req.Headers["Authorization"])
	}
	if req.UseCookies {
		t.Error("device API calls must not send cookies")
	}
}

func TestResolve_BaseOverride(t *testing.T) {
	table := NewTable(TableConfig{APIBase: "http://127.0.0.1:9999"})

	req, err := table.Resolve(GetDevices, Vars{VarAccessToken: "t"})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}

	if !strings.HasPrefix(req.URL, "http://127.0.0.1:9999/api/devices") {
		t.Errorf("URL = %s, want overridden base", req.URL)
	}
}

func TestResolve_LoginStep1(t *testing.T) {
	table := NewTable(TableConfig{})

	req, err := table.Resolve(LoginStep1, Vars{VarCodeChallenge: "challenge-abc"})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}

	if !strings.Contains(req.URL, "code_challenge=challenge-abc") {
		t.Errorf("URL = %s, want substituted code challenge", req.URL)
	}
	if !strings.Contains(req.URL, "client_id=5a83cc16-ffb1-42e9-9859-9fbf07f36df8") {
		t.Errorf("URL = %s, want fixed client_id", req.URL)
	}
	if !strings.Contains(req.URL, "code_challenge_method=S256") {
		t.Errorf("URL = %s, want S256 challenge method", req.URL)
	}
	if req.Headers["User-Agent"] != UserAgentApp {
		t.Errorf("User-Agent = %s, want app agent", req.Headers["User-Agent"])
	}
	if !req.UseCookies {
		t.Error("login step 1 must use the cookie jar")
	}
}

func TestResolve_LoginStep2Form(t *testing.T) {
	table := NewTable(TableConfig{})

	req, err := table.Resolve(LoginStep2, Vars{
		VarTenant:    "/tenant.onmicrosoft.com/b2c_1a_signinup",
		VarTransID:   "tx-1",
		VarPolicy:    "b2c_1a_signinup",
		VarCSRFToken: "csrf-1",
		VarUsername:  "user@example.com",
		VarPassword:  "secret",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}

	if !strings.Contains(req.URL, "/tenant.onmicrosoft.com/b2c_1a_signinup/SelfAsserted") {
		t.Errorf("URL = %s, want tenant-prefixed path", req.URL)
	}
	if req.Headers["X-CSRF-TOKEN"] != "csrf-1" {
		t.Errorf("X-CSRF-TOKEN = %s, want csrf-1", req.Headers["X-CSRF-TOKEN"])
	}
	if req.Form.Get("request_type") != "RESPONSE" {
		t.Errorf("request_type = %s, want RESPONSE", req.Form.Get("request_type"))
	}
	if req.Form.Get("signInName") != "user@example.com" {
		t.Errorf("signInName = %s, want user@example.com", req.Form.Get("signInName"))
	}
	if req.Form.Get("password") != "secret" {
		t.Errorf("password = %s, want secret", req.Form.Get("password"))
	}
}

func TestResolve_LoginStep3Expects302(t *testing.T) {
	table := NewTable(TableConfig{})

	req, err := table.Resolve(LoginStep3, Vars{
		VarTenant:    "/tenant/policy",
		VarCSRFToken: "c",
		VarTransID:   "t",
		VarPolicy:    "p",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}

	if len(req.ExpectStatus) != 1 || req.ExpectStatus[0] != 302 {
		t.Errorf("ExpectStatus = %v, want [302]", req.ExpectStatus)
	}
}

func TestResolve_TokenRefreshSkipsCookies(t *testing.T) {
	table := NewTable(TableConfig{})

	req, err := table.Resolve(WebTokenRefresh, Vars{
		VarTenant:       "/tenant/policy",
		VarRefreshToken: "refresh-1",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want nil", err)
	}

	if req.UseCookies {
		t.Error("token refresh must not send cookies")
	}
	if req.Form.Get("grant_type") != "refresh_token" {
		t.Errorf("grant_type = %s, want refresh_token", req.Form.Get("grant_type"))
	}
}

func TestResolve_DeviceInfoSuffixes(t *testing.T) {
	table := NewTable(TableConfig{})

	tests := []struct {
		name     string
		endpoint string
		wantPath string
	}{
		{"base document", InfoEndpointBase, "/api/devices/softliQ.D/ABC123/"},
		{"parameters", InfoEndpointParameters, "/api/devices/softliQ.D/ABC123/parameters"},
		{"salt", InfoEndpointSaltMeasurements, "/api/devices/softliQ.D/ABC123/measurements/salt"},
		{"water", InfoEndpointWaterMeasurements, "/api/devices/softliQ.D/ABC123/measurements/water"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Device ids carry a literal slash; it stays a path separator
			// on the wire.
			req, err := table.Resolve(GetDeviceInfos, Vars{
				VarAccessToken: "t",
				VarDeviceID:    "softliQ.D/ABC123",
				VarEndpoint:    tt.endpoint,
			})
			if err != nil {
				t.Fatalf("Resolve() error = %v, want nil", err)
			}
			if !strings.Contains(req.URL, tt.wantPath) {
				t.Errorf("URL = %s, want path %s", req.URL, tt.wantPath)
			}
		})
	}
}

func TestResolve_UnresolvedPlaceholder(t *testing.T) {
	table := NewTable(TableConfig{})

	_, err := table.Resolve(LoginStep2, Vars{
		VarTransID:   "tx",
		VarPolicy:    "p",
		VarCSRFToken: "c",
		VarUsername:  "u",
		VarPassword:  "pw",
		// tenant deliberately missing
	})
	if err == nil {
		t.Fatal("Resolve() should fail with missing tenant")
	}
	if !IsConfigurationError(err) {
		t.Errorf("error should be configuration error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "{tenant}") {
		t.Errorf("error = %v, want placeholder named", err)
	}
}

func TestResolve_UnknownEndpoint(t *testing.T) {
	table := NewTable(TableConfig{})

	_, err := table.Resolve("does_not_exist", Vars{})
	if err == nil {
		t.Fatal("Resolve() should fail for unknown endpoint")
	}
	if !IsConfigurationError(err) {
		t.Errorf("error should be configuration error, got %T", err)
	}
}

func TestResolve_StreamArming(t *testing.T) {
	table := NewTable(TableConfig{})

	tests := []struct {
		name     string
		endpoint string
		wantPath string
	}{
		{"enter", EnterSD, "/realtime/enter"},
		{"refresh", RefreshSD, "/realtime/refresh"},
		{"leave", LeaveSD, "/realtime/leave"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := table.Resolve(tt.endpoint, Vars{
				VarAccessToken: "t",
				VarDeviceID:    "dev1",
			})
			if err != nil {
				t.Fatalf("Resolve() error = %v, want nil", err)
			}
			if !strings.Contains(req.URL, tt.wantPath) {
				t.Errorf("URL = %s, want %s", req.URL, tt.wantPath)
			}
			if len(req.ExpectStatus) != 2 || req.ExpectStatus[0] != 200 || req.ExpectStatus[1] != 202 {
				t.Errorf("ExpectStatus = %v, want [200 202]", req.ExpectStatus)
			}
		})
	}
}

func TestResolveRelay_UsesAnnouncedBase(t *testing.T) {
	table := NewTable(TableConfig{})

	req, err := table.ResolveRelay(GetWSConnectionID, "https://eu-relay-7.example.net/client/?hub=gruenbeck", Vars{
		VarAccessToken: "relay-token",
	})
	if err != nil {
		t.Fatalf("ResolveRelay() error = %v, want nil", err)
	}

	if !strings.HasPrefix(req.URL, "https://eu-relay-7.example.net/client/negotiate") {
		t.Errorf("URL = %s, want announced relay base", req.URL)
	}
	if !strings.Contains(req.URL, "hub=gruenbeck") {
		t.Errorf("URL = %s, want hub query", req.URL)
	}
}

func TestResolveRelay_FallsBackToDefault(t *testing.T) {
	table := NewTable(TableConfig{})

	req, err := table.ResolveRelay(GetWSConnectionID, "", Vars{VarAccessToken: "t"})
	if err != nil {
		t.Fatalf("ResolveRelay() error = %v, want nil", err)
	}

	if !strings.HasPrefix(req.URL, DefaultRelayBase) {
		t.Errorf("URL = %s, want default relay base", req.URL)
	}
}

func TestWebSocketURL(t *testing.T) {
	table := NewTable(TableConfig{})

	wsURL, err := table.WebSocketURL("https://eu-relay-7.example.net", "conn-1", "token-1")
	if err != nil {
		t.Fatalf("WebSocketURL() error = %v, want nil", err)
	}

	if !strings.HasPrefix(wsURL, "wss://eu-relay-7.example.net/client/?") {
		t.Errorf("URL = %s, want wss scheme and /client/ path", wsURL)
	}
	if !strings.Contains(wsURL, "hub=gruenbeck") {
		t.Errorf("URL = %s, want hub query", wsURL)
	}
	if !strings.Contains(wsURL, "id=conn-1") {
		t.Errorf("URL = %s, want connection id", wsURL)
	}
	if !strings.Contains(wsURL, "access_token=token-1") {
		t.Errorf("URL = %s, want access token", wsURL)
	}
}

func TestWebSocketURL_PlainHTTP(t *testing.T) {
	table := NewTable(TableConfig{})

	wsURL, err := table.WebSocketURL("http://127.0.0.1:8080", "c", "t")
	if err != nil {
		t.Fatalf("WebSocketURL() error = %v, want nil", err)
	}

	if !strings.HasPrefix(wsURL, "ws://127.0.0.1:8080/client/") {
		t.Errorf("URL = %s, want ws scheme for http base", wsURL)
	}
}

func TestWebSocketHeaders(t *testing.T) {
	table := NewTable(TableConfig{})
	headers := table.WebSocketHeaders()

	if headers["Origin"] != "null" {
		t.Errorf("Origin = %s, want null", headers["Origin"])
	}
	if headers["User-Agent"] != UserAgentWS {
		t.Errorf("User-Agent = %s, want websocket agent", headers["User-Agent"])
	}
	if _, ok := headers["Upgrade"]; ok {
		t.Error("Upgrade header is hop-by-hop and must be left to the dialer")
	}
}

func BenchmarkResolve(b *testing.B) {
	table := NewTable(TableConfig{})
	vars := Vars{VarAccessToken: "token", VarDeviceID: "dev1", VarEndpoint: "parameters"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = table.Resolve(GetDeviceInfos, vars)
	}
}
