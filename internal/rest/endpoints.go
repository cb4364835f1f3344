package rest

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// User agent configuration
const (
	// UserAgentApp is sent on every REST call; the cloud expects the
	// vendor app's identity.
	UserAgentApp = "Gruenbeck/354 CFNetwork/1209 Darwin/20.2.0"

	// UserAgentWS is sent on the relay WebSocket upgrade.
	UserAgentWS = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_2 like Mac OS X)" +
		" AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148"
)

// Production endpoints
const (
	// DefaultLoginBase is the Azure B2C identity provider.
	DefaultLoginBase = "https://gruenbeckb2c.b2clogin.com"

	// DefaultAPIBase is the device/REST API.
	DefaultAPIBase = "https://prod-eu-gruenbeck-api.azurewebsites.net"

	// DefaultRelayBase is the SignalR relay used for push updates.
	DefaultRelayBase = "https://prod-eu-gruenbeck-signalr.service.signalr.net"

	// APIVersion is the api-version query value the current vendor app uses.
	APIVersion = "2024-05-02"
)

// Symbolic endpoint names. These appear in logs and diagnostics entries.
const (
	LoginStep1         = "login_step_1"
	LoginStep2         = "login_step_2"
	LoginStep3         = "login_step_3"
	LoginStep4         = "login_step_4"
	WebTokenRefresh    = "web_token_refresh"
	StartWSNegotiation = "start_ws_negotiation"
	GetWSConnectionID  = "get_ws_connection_id"
	GetDevices         = "get_devices"
	GetDeviceInfos     = "get_device_infos_request"
	EnterSD            = "enter_sd"
	RefreshSD          = "refresh_sd"
	LeaveSD            = "leave_sd"
	UpdateParameter    = "update_device_parameter"
	Regenerate         = "regenerate"
)

// Device info endpoint suffixes for GetDeviceInfos.
const (
	InfoEndpointBase              = "" // empty suffix returns the base device document
	InfoEndpointParameters        = "parameters"
	InfoEndpointSaltMeasurements  = "measurements/salt"
	InfoEndpointWaterMeasurements = "measurements/water"
)

// Placeholder names used in endpoint templates. Values are substituted
// from a Vars map at resolve time.
const (
	VarCodeChallenge = "code_challenge"
	VarCSRFToken     = "csrf_token"
	VarTenant        = "tenant"
	VarTransID       = "transId"
	VarPolicy        = "policy"
	VarUsername      = "signInName"
	VarPassword      = "password"
	VarCode          = "code"
	VarCodeVerifier  = "code_verifier"
	VarAccessToken   = "access_token"
	VarRefreshToken  = "refresh_token"
	VarConnectionID  = "connection_id"
	VarDeviceID      = "device_id"
	VarEndpoint      = "endpoint"
)

// Vars carries the values substituted into an endpoint template.
type Vars map[string]string

// Endpoint describes the shape of one cloud API call. Path, query values,
// header values and form values may contain {placeholder} tokens.
type Endpoint struct {
	Name         string
	Method       string
	Base         string
	Path         string
	Query        map[string]string
	Headers      map[string]string
	Form         map[string]string
	JSONBody     bool
	UseCookies   bool
	ExpectStatus []int
	Timeout      time.Duration
}

// Request is a fully resolved cloud API call, ready for the Executor.
type Request struct {
	Name         string
	Method       string
	URL          string
	Headers      map[string]string
	Form         url.Values
	Body         []byte
	UseCookies   bool
	ExpectStatus []int
	Timeout      time.Duration
}

// TableConfig overrides the production bases, mainly for tests that point
// the client at local servers.
type TableConfig struct {
	LoginBase string
	APIBase   string
	RelayBase string
}

// Table resolves symbolic endpoint names into concrete requests.
type Table struct {
	loginBase string
	apiBase   string
	relayBase string
	byName    map[string]Endpoint
}

// NewTable creates an endpoint table. Zero-value config fields fall back
// to the production bases.
func NewTable(cfg TableConfig) *Table {
	t := &Table{
		loginBase: cfg.LoginBase,
		apiBase:   cfg.APIBase,
		relayBase: cfg.RelayBase,
	}
	if t.loginBase == "" {
		t.loginBase = DefaultLoginBase
	}
	if t.apiBase == "" {
		t.apiBase = DefaultAPIBase
	}
	if t.relayBase == "" {
		t.relayBase = DefaultRelayBase
	}
	t.byName = t.endpoints()
	return t
}

// RelayBase returns the configured relay fallback base.
func (t *Table) RelayBase() string {
	return t.relayBase
}

// Resolve expands the named endpoint with vars into a Request. A
// placeholder left unresolved after expansion is a configuration error.
func (t *Table) Resolve(name string, vars Vars) (*Request, error) {
	ep, ok := t.byName[name]
	if !ok {
		return nil, NewConfigurationError(fmt.Sprintf("unknown endpoint %q", name))
	}

	path, err := expand(ep.Name, ep.Path, vars)
	if err != nil {
		return nil, err
	}

	fullURL := ep.Base + path
	if len(ep.Query) > 0 {
		q := url.Values{}
		for key, tmpl := range ep.Query {
			value, err := expand(ep.Name, tmpl, vars)
			if err != nil {
				return nil, err
			}
			q.Set(key, value)
		}
		fullURL += "?" + q.Encode()
	}

	headers := make(map[string]string, len(ep.Headers))
	for key, tmpl := range ep.Headers {
		value, err := expand(ep.Name, tmpl, vars)
		if err != nil {
			return nil, err
		}
		headers[key] = value
	}

	var form url.Values
	if len(ep.Form) > 0 {
		form = url.Values{}
		for key, tmpl := range ep.Form {
			value, err := expand(ep.Name, tmpl, vars)
			if err != nil {
				return nil, err
			}
			form.Set(key, value)
		}
	}

	return &Request{
		Name:         ep.Name,
		Method:       ep.Method,
		URL:          fullURL,
		Headers:      headers,
		Form:         form,
		UseCookies:   ep.UseCookies,
		ExpectStatus: ep.ExpectStatus,
		Timeout:      ep.Timeout,
	}, nil
}

// ResolveRelay expands the relay negotiation endpoint against the base
// announced by the API negotiation response. An empty or unusable base
// falls back to the configured relay base.
func (t *Table) ResolveRelay(name string, relayBase string, vars Vars) (*Request, error) {
	base := normalizeRelayBase(relayBase)
	if base == "" {
		base = t.relayBase
	}

	req, err := t.Resolve(name, vars)
	if err != nil {
		return nil, err
	}

	ep := t.byName[name]
	req.URL = base + strings.TrimPrefix(req.URL, ep.Base)
	return req, nil
}

// WebSocketURL builds the relay upgrade URL for the given negotiated
// connection. The scheme is rewritten from http(s) to ws(s).
func (t *Table) WebSocketURL(relayBase string, connectionID string, accessToken string) (string, error) {
	base := normalizeRelayBase(relayBase)
	if base == "" {
		base = t.relayBase
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", NewConfigurationError(fmt.Sprintf("invalid relay base %q", base))
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = "/client/"

	q := url.Values{}
	q.Set("hub", "gruenbeck")
	q.Set("id", connectionID)
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// WebSocketHeaders returns the fixed header set for the relay upgrade.
// Hop-by-hop upgrade headers are managed by the dialer and excluded here.
func (t *Table) WebSocketHeaders() map[string]string {
	return map[string]string{
		"Origin":        "null",
		"Pragma":        "no-cache",
		"Cache-Control": "no-cache",
		"User-Agent":    UserAgentWS,
	}
}

// normalizeRelayBase reduces a negotiation-announced URL to scheme://host.
func normalizeRelayBase(relayBase string) string {
	if relayBase == "" {
		return ""
	}
	u, err := url.Parse(relayBase)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// expand substitutes {placeholder} tokens in tmpl from vars. Any token
// without a value is reported as a configuration error naming the endpoint
// and the placeholder.
func expand(endpoint string, tmpl string, vars Vars) (string, error) {
	if !strings.Contains(tmpl, "{") {
		return tmpl, nil
	}

	result := tmpl
	for name, value := range vars {
		result = strings.ReplaceAll(result, "{"+name+"}", value)
	}

	if start := strings.Index(result, "{"); start >= 0 {
		if end := strings.Index(result[start:], "}"); end > 0 {
			return "", NewConfigurationError(fmt.Sprintf(
				"endpoint %s: unresolved placeholder %s", endpoint, result[start:start+end+1]))
		}
	}

	return result, nil
}

const oauthScope = "https://gruenbeckb2c.onmicrosoft.com/iot/user_impersonation openid profile offline_access"

const (
	clientID    = "5a83cc16-ffb1-42e9-9859-9fbf07f36df8"
	redirectURI = "msal5a83cc16-ffb1-42e9-9859-9fbf07f36df8://auth"
)

// negotiateTimeout bounds both push negotiation calls; the relay can be
// slow to mint connection tokens.
const negotiateTimeout = 2 * time.Minute

// endpoints builds the full call table. The templates mirror the vendor
// app's traffic; header sets differ per endpoint and are preserved as-is.
func (t *Table) endpoints() map[string]Endpoint {
	eps := []Endpoint{
		{
			Name:   LoginStep1,
			Method: "GET",
			Base:   t.loginBase,
			Path:   "/a50d35c1-202f-4da7-aa87-76e51a3098c6/b2c_1a_signinup/oauth2/v2.0/authorize",
			Query: map[string]string{
				"x-client-Ver":             "0.8.0",
				"state":                    "NjkyQjZBQTgtQkM1My00ODBDLTn3MkYtOTZCQ0QyQkQ2NEE5",
				"client_info":              "1",
				"response_type":            "code",
				"code_challenge_method":    "S256",
				"x-app-name":               "Grünbeck",
				"x-client-OS":              "14.3",
				"x-app-ver":                "1.2.1",
				"scope":                    oauthScope,
				"x-client-SKU":             "MSAL.iOS",
				"code_challenge":           "{code_challenge}",
				"x-client-CPU":             "64",
				"client-request-id":        "F2929DED-2C9D-49F5-A0F4-31215427667C",
				"redirect_uri":             redirectURI,
				"client_id":                clientID,
				"haschrome":                "1",
				"return-client-request-id": "true",
				"x-client-DM":              "iPhone",
			},
			Headers: map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Connection":      "keep-alive",
				"Accept-Language": "de-de",
				"User-Agent":      UserAgentApp,
			},
			UseCookies:   true,
			ExpectStatus: []int{200},
		},
		{
			Name:   LoginStep2,
			Method: "POST",
			Base:   t.loginBase,
			Path:   "{tenant}/SelfAsserted",
			Query: map[string]string{
				"tx": "{transId}",
				"p":  "{policy}",
			},
			Headers: map[string]string{
				"Content-Type":     "application/x-www-form-urlencoded; charset=UTF-8",
				"X-CSRF-TOKEN":     "{csrf_token}",
				"Accept":           "application/json, text/javascript, */*; q=0.01",
				"X-Requested-With": "XMLHttpRequest",
				"Origin":           "https://gruenbeckb2c.b2clogin.com",
				"User-Agent":       UserAgentApp,
			},
			Form: map[string]string{
				"request_type": "RESPONSE",
				"signInName":   "{signInName}",
				"password":     "{password}",
			},
			UseCookies:   true,
			ExpectStatus: []int{200},
		},
		{
			Name:   LoginStep3,
			Method: "GET",
			Base:   t.loginBase,
			Path:   "{tenant}/api/CombinedSigninAndSignup/confirmed",
			Query: map[string]string{
				"csrf_token": "{csrf_token}",
				"tx":         "{transId}",
				"p":          "{policy}",
			},
			Headers: map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Connection":      "keep-alive",
				"Accept-Language": "de-de",
				"User-Agent":      UserAgentApp,
			},
			UseCookies:   true,
			ExpectStatus: []int{302},
		},
		{
			Name:   LoginStep4,
			Method: "POST",
			Base:   t.loginBase,
			Path:   "{tenant}/oauth2/v2.0/token",
			Headers: map[string]string{
				"x-client-SKU":             "MSAL.iOS",
				"Accept":                   "application/json",
				"x-client-OS":              "14.3",
				"x-app-name":               "Grünbeck",
				"x-client-CPU":             "64",
				"x-app-ver":                "1.2.0",
				"Accept-Language":          "de-de",
				"client-request-id":        "F2929DED-2C9D-49F5-A0F4-31215427667C",
				"x-ms-PkeyAuth":            "1.0",
				"x-client-Ver":             "0.8.0",
				"x-client-DM":              "iPhone",
				"User-Agent":               UserAgentApp,
				"return-client-request-id": "true",
			},
			Form: map[string]string{
				"client_info":   "1",
				"scope":         oauthScope,
				"code":          "{code}",
				"grant_type":    "authorization_code",
				"code_verifier": "{code_verifier}",
				"redirect_uri":  redirectURI,
				"client_id":     clientID,
			},
			UseCookies:   true,
			ExpectStatus: []int{200},
		},
		{
			Name:   WebTokenRefresh,
			Method: "POST",
			Base:   t.loginBase,
			Path:   "{tenant}/oauth2/v2.0/token",
			Headers: map[string]string{
				"x-client-SKU":             "MSAL.iOS",
				"Accept":                   "application/json",
				"x-client-OS":              "14.3",
				"x-app-name":               "Grünbeck",
				"x-client-CPU":             "64",
				"x-app-ver":                "1.2.0",
				"Accept-Language":          "de-de",
				"client-request-id":        "F2929DED-2C9D-49F5-A0F4-31215427667C",
				"User-Agent":               UserAgentApp,
				"x-client-Ver":             "0.8.0",
				"x-client-DM":              "iPhone",
				"return-client-request-id": "true",
				"cache-control":            "no-cache",
			},
			Form: map[string]string{
				"client_info":   "1",
				"scope":         oauthScope,
				"grant_type":    "refresh_token",
				"refresh_token": "{refresh_token}",
				"client_id":     clientID,
			},
			UseCookies:   false,
			ExpectStatus: []int{200},
		},
		{
			Name:   StartWSNegotiation,
			Method: "GET",
			Base:   t.apiBase,
			Path:   "/api/realtime/negotiate",
			Headers: map[string]string{
				"Content-Type":     "text/plain;charset=UTF-8",
				"Origin":           "file://",
				"Accept":           "*/*",
				"User-Agent":       UserAgentApp,
				"Authorization":    "Bearer {access_token}",
				"Accept-Language":  "de-de",
				"cache-control":    "no-cache",
				"X-Requested-With": "XMLHttpRequest",
			},
			UseCookies:   false,
			ExpectStatus: []int{200},
			Timeout:      negotiateTimeout,
		},
		{
			Name:   GetWSConnectionID,
			Method: "POST",
			Base:   t.relayBase,
			Path:   "/client/negotiate",
			Query: map[string]string{
				"hub": "gruenbeck",
			},
			Headers: map[string]string{
				"Content-Type":     "text/plain;charset=UTF-8",
				"Origin":           "file://",
				"Accept":           "*/*",
				"User-Agent":       UserAgentApp,
				"Authorization":    "Bearer {access_token}",
				"Accept-Language":  "de-de",
				"X-Requested-With": "XMLHttpRequest",
			},
			UseCookies:   false,
			ExpectStatus: []int{200},
			Timeout:      negotiateTimeout,
		},
		{
			Name:   GetDevices,
			Method: "GET",
			Base:   t.apiBase,
			Path:   "/api/devices",
			Query: map[string]string{
				"api-version": APIVersion,
			},
			Headers: map[string]string{
				"Accept":          "application/json, text/plain, */*",
				"User-Agent":      UserAgentApp,
				"Accept-Language": "de-de",
				"Authorization":   "Bearer {access_token}",
				"cache-control":   "no-cache",
			},
			UseCookies:   false,
			ExpectStatus: []int{200},
		},
		{
			Name:   GetDeviceInfos,
			Method: "GET",
			Base:   t.apiBase,
			Path:   "/api/devices/{device_id}/{endpoint}",
			Query: map[string]string{
				"api-version": APIVersion,
			},
			Headers: map[string]string{
				"Accept":          "application/json, text/plain, */*",
				"User-Agent":      UserAgentApp,
				"Accept-Language": "de-de",
				"Authorization":   "Bearer {access_token}",
				"cache-control":   "no-cache",
			},
			UseCookies:   false,
			ExpectStatus: []int{200},
		},
		{
			Name:   EnterSD,
			Method: "POST",
			Base:   t.apiBase,
			Path:   "/api/devices/{device_id}/realtime/enter",
			Query: map[string]string{
				"api-version": APIVersion,
			},
			Headers: map[string]string{
				"Accept":          "application/json, text/plain, */*",
				"User-Agent":      UserAgentApp,
				"Accept-Language": "de-de",
				"Authorization":   "Bearer {access_token}",
			},
			UseCookies:   false,
			ExpectStatus: []int{200, 202},
		},
		{
			Name:   RefreshSD,
			Method: "POST",
			Base:   t.apiBase,
			Path:   "/api/devices/{device_id}/realtime/refresh",
			Query: map[string]string{
				"api-version": APIVersion,
			},
			Headers: map[string]string{
				"Accept":          "application/json, text/plain, */*",
				"User-Agent":      UserAgentApp,
				"Accept-Language": "de-de",
				"Authorization":   "Bearer {access_token}",
			},
			UseCookies:   false,
			ExpectStatus: []int{200, 202},
		},
		{
			Name:   LeaveSD,
			Method: "POST",
			Base:   t.apiBase,
			Path:   "/api/devices/{device_id}/realtime/leave",
			Query: map[string]string{
				"api-version": APIVersion,
			},
			Headers: map[string]string{
				"Accept":          "application/json, text/plain, */*",
				"User-Agent":      UserAgentApp,
				"Accept-Language": "de-de",
				"Authorization":   "Bearer {access_token}",
			},
			UseCookies:   false,
			ExpectStatus: []int{200, 202},
		},
		{
			Name:   UpdateParameter,
			Method: "PATCH",
			Base:   t.apiBase,
			Path:   "/api/devices/{device_id}/parameters",
			Query: map[string]string{
				"api-version": APIVersion,
			},
			Headers: map[string]string{
				"Content-Type":    "application/json",
				"Accept":          "application/json, text/plain, */*",
				"User-Agent":      UserAgentApp,
				"Accept-Language": "de-de",
				"Authorization":   "Bearer {access_token}",
			},
			JSONBody:     true,
			UseCookies:   false,
			ExpectStatus: []int{200},
		},
		{
			Name:   Regenerate,
			Method: "POST",
			Base:   t.apiBase,
			Path:   "/api/devices/{device_id}/regenerate",
			Query: map[string]string{
				"api-version": APIVersion,
			},
			Headers: map[string]string{
				"Content-Type":    "application/json",
				"Accept":          "application/json, text/plain, */*",
				"User-Agent":      UserAgentApp,
				"Accept-Language": "de-de",
				"Authorization":   "Bearer {access_token}",
			},
			JSONBody:     true,
			UseCookies:   false,
			ExpectStatus: []int{200, 202},
		},
	}

	byName := make(map[string]Endpoint, len(eps))
	for _, ep := range eps {
		byName[ep.Name] = ep
	}
	return byName
}
