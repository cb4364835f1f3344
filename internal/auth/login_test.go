package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/gruenbeck-cloud/internal/rest"
)

const (
	testUsername = "user@example.com"
	testPassword = "correct-horse"

	testTenant   = "/a50d35c1-202f-4da7-aa87-76e51a3098c6/B2C_1A_SignInUp"
	testCSRF     = "Y3NyZi10b2tlbi12YWx1ZQ"
	testTransID  = "StateProperties=eyJUSUQiOiJmYWtlIn0"
	testPolicy   = "B2C_1A_SignInUp"
	testAuthCode = "eyJraWQiOiJkZW1vIn0.auth-code-fixture"

	authorizePath = "/a50d35c1-202f-4da7-aa87-76e51a3098c6/b2c_1a_signinup/oauth2/v2.0/authorize"
)

// fakeB2C is an httptest stand-in for the whole B2C login host. Counters
// let tests assert which rungs of the token ladder actually ran.
type fakeB2C struct {
	t      *testing.T
	server *httptest.Server

	mu               sync.Mutex
	logins           int
	refreshes        int
	refreshFail      bool
	expiresIn        int64
	lastRefreshToken string
}

func newFakeB2C(t *testing.T) *fakeB2C {
	t.Helper()
	f := &fakeB2C{t: t, expiresIn: 3600}

	mux := http.NewServeMux()
	mux.HandleFunc(authorizePath, f.handleAuthorize)
	mux.HandleFunc(testTenant+"/SelfAsserted", f.handleSelfAsserted)
	mux.HandleFunc(testTenant+"/api/CombinedSigninAndSignup/confirmed", f.handleConfirmed)
	mux.HandleFunc(testTenant+"/oauth2/v2.0/token", f.handleToken)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.t.Errorf("unexpected request path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeB2C) setExpiresIn(seconds int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiresIn = seconds
}

func (f *fakeB2C) setRefreshFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshFail = fail
}

func (f *fakeB2C) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeB2C) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *fakeB2C) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("code_challenge") == "" {
		f.t.Error("authorize request should carry a code_challenge")
	}
	if got := r.URL.Query().Get("code_challenge_method"); got != "S256" {
		f.t.Errorf("code_challenge_method = %q, want S256", got)
	}
	if got := r.Header.Get("User-Agent"); got != rest.UserAgentApp {
		f.t.Errorf("User-Agent = %q, want %q", got, rest.UserAgentApp)
	}
	// Any earlier login left this cookie behind; a fresh flow must not
	// send it back.
	if _, err := r.Cookie("x-ms-cpim-trans"); err == nil {
		f.t.Error("authorize request should start from a cleared cookie jar")
	}

	http.SetCookie(w, &http.Cookie{Name: "x-ms-cpim-trans", Value: "trans-cookie"})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w,
		`<!DOCTYPE html><html><head><script>var SETTINGS = {"remoteResource":null,"retryLimit":3,"csrf":%q,"transId":%q,"pageViewId":"8b38d95a","policy":%q,"tenant":%q,"api":"CombinedSigninAndSignup"};</script></head><body></body></html>`,
		testCSRF, testTransID, testPolicy, testTenant)
}

func (f *fakeB2C) handleSelfAsserted(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("X-CSRF-TOKEN"); got != testCSRF {
		f.t.Errorf("X-CSRF-TOKEN = %q, want %q", got, testCSRF)
	}
	if got := r.URL.Query().Get("tx"); got != testTransID {
		f.t.Errorf("tx = %q, want %q", got, testTransID)
	}
	if got := r.URL.Query().Get("p"); got != testPolicy {
		f.t.Errorf("p = %q, want %q", got, testPolicy)
	}
	if _, err := r.Cookie("x-ms-cpim-trans"); err != nil {
		f.t.Error("credential post should carry the transaction cookie from step 1")
	}
	if got := r.FormValue("request_type"); got != "RESPONSE" {
		f.t.Errorf("request_type = %q, want RESPONSE", got)
	}

	w.Header().Set("Content-Type", "application/json")
	if r.FormValue("signInName") != testUsername || r.FormValue("password") != testPassword {
		fmt.Fprint(w, `{"status":"400","errorCode":"UserNotFound"}`)
		return
	}
	fmt.Fprint(w, `{"status":"200"}`)
}

func (f *fakeB2C) handleConfirmed(w http.ResponseWriter, r *http.Request) {
	if got := r.URL.Query().Get("csrf_token"); got != testCSRF {
		f.t.Errorf("csrf_token = %q, want %q", got, testCSRF)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusFound)
	fmt.Fprintf(w,
		`<html><body>Object moved to <a href='msal5a83cc16-ffb1-42e9-9859-9fbf07f36df8://auth/?code%%3d%s'>here</a>.</body></html>`,
		testAuthCode)
}

func (f *fakeB2C) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch grant := r.FormValue("grant_type"); grant {
	case "authorization_code":
		if got := r.FormValue("code"); got != testAuthCode {
			f.t.Errorf("code = %q, want %q", got, testAuthCode)
		}
		if r.FormValue("code_verifier") == "" {
			f.t.Error("token request should carry a code_verifier")
		}
		f.logins++
		f.writeGrant(w, fmt.Sprintf("access-%d", f.logins), fmt.Sprintf("refresh-%d", f.logins))
	case "refresh_token":
		f.refreshes++
		if f.refreshFail {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		if got := r.FormValue("refresh_token"); got != f.lastRefreshToken {
			f.t.Errorf("refresh_token = %q, want %q", got, f.lastRefreshToken)
		}
		f.writeGrant(w, fmt.Sprintf("access-r%d", f.refreshes), fmt.Sprintf("refresh-r%d", f.refreshes))
	default:
		f.t.Errorf("grant_type = %q, want authorization_code or refresh_token", grant)
		w.WriteHeader(http.StatusBadRequest)
	}
}

// writeGrant must be called with f.mu held.
func (f *fakeB2C) writeGrant(w http.ResponseWriter, access string, refresh string) {
	f.lastRefreshToken = refresh
	now := time.Now().Unix()
	fmt.Fprintf(w,
		`{"access_token":%q,"refresh_token":%q,"not_before":%d,"expires_on":%d,"expires_in":%d,"token_type":"Bearer"}`,
		access, refresh, now, now+f.expiresIn, f.expiresIn)
}

func newTestFlow(t *testing.T, serverURL string) *Flow {
	t.Helper()
	table := rest.NewTable(rest.TableConfig{LoginBase: serverURL})
	executor, err := rest.NewExecutor(nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return NewFlow(table, executor)
}

func TestFlow_Login(t *testing.T) {
	f := newFakeB2C(t)
	defer f.server.Close()

	flow := newTestFlow(t, f.server.URL)
	session, err := flow.Login(context.Background(), testUsername, testPassword)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if session.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q, want access-1", session.AccessToken)
	}
	if session.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want refresh-1", session.RefreshToken)
	}
	if session.Tenant != testTenant {
		t.Errorf("Tenant = %q, want %q", session.Tenant, testTenant)
	}
	if session.ExpiresIn != time.Hour {
		t.Errorf("ExpiresIn = %v, want 1h", session.ExpiresIn)
	}
	if remaining := time.Until(session.ExpiresOn); remaining < 55*time.Minute || remaining > 65*time.Minute {
		t.Errorf("ExpiresOn = %v, want about an hour out", session.ExpiresOn)
	}
	if session.IsExpired(time.Now()) {
		t.Error("fresh session should not be expired")
	}
}

func TestFlow_Login_BadCredentials(t *testing.T) {
	f := newFakeB2C(t)
	defer f.server.Close()

	flow := newTestFlow(t, f.server.URL)
	_, err := flow.Login(context.Background(), testUsername, "wrong-password")
	if err == nil {
		t.Fatal("Login() should fail for rejected credentials")
	}
	if !rest.IsCredentialsRejectedError(err) {
		t.Errorf("error should be credentials rejected, got %v", err)
	}
	if f.loginCount() != 0 {
		t.Errorf("login count = %d, want 0 (flow must stop at step 2)", f.loginCount())
	}
}

func TestFlow_Login_MissingMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Authorize page without a transId marker.
		fmt.Fprint(w, `<html><script>var SETTINGS = {"csrf":"abc123","policy":"x",};</script></html>`)
	}))
	defer server.Close()

	flow := newTestFlow(t, server.URL)
	_, err := flow.Login(context.Background(), testUsername, testPassword)
	if err == nil {
		t.Fatal("Login() should fail when the authorize page lacks a marker")
	}
	if !rest.IsResponseShapeError(err) {
		t.Errorf("error should be response shape, got %v", err)
	}
	if !strings.Contains(err.Error(), "transId") {
		t.Errorf("error = %q, want the missing marker named", err.Error())
	}
}

func TestExtractMarker(t *testing.T) {
	// The live page always carries settings after the tenant, so every
	// scraped value has a trailing comma.
	page := `{"csrf":"token-value","transId":"StateProperties=eyJUSUQi","policy":"B2C_1A_SignInUp","tenant":"/a50d/B2C_1A_SignInUp","api":"CombinedSigninAndSignup"}`

	tests := []struct {
		marker string
		want   string
	}{
		{"csrf", "token-value"},
		{"transId", "StateProperties=eyJUSUQi"},
		{"policy", "B2C_1A_SignInUp"},
		{"tenant", "/a50d/B2C_1A_SignInUp"},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			got, err := extractMarker("test_endpoint", page, tt.marker)
			if err != nil {
				t.Fatalf("extractMarker(%q) error = %v", tt.marker, err)
			}
			if got != tt.want {
				t.Errorf("extractMarker(%q) = %q, want %q", tt.marker, got, tt.want)
			}
		})
	}
}

func TestExtractMarker_Missing(t *testing.T) {
	_, err := extractMarker("test_endpoint", `{"other":"x"}`, "csrf")
	if err == nil {
		t.Fatal("extractMarker() should fail for a missing marker")
	}
	if !rest.IsResponseShapeError(err) {
		t.Errorf("error should be response shape, got %v", err)
	}
	if !strings.Contains(err.Error(), "csrf") {
		t.Errorf("error = %q, want the marker named", err.Error())
	}
}

func TestExtractMarker_NoTerminator(t *testing.T) {
	_, err := extractMarker("test_endpoint", `{"csrf":"dangling`, "csrf")
	if err == nil {
		t.Fatal("extractMarker() should fail when the value never terminates")
	}
	if !rest.IsResponseShapeError(err) {
		t.Errorf("error should be response shape, got %v", err)
	}
}

func TestExtractAuthCode(t *testing.T) {
	body := `<html>Object moved to <a href='msal5a83cc16://auth/?code%3dthe-auth-code'>here</a>.</html>`

	got, err := extractAuthCode(body)
	if err != nil {
		t.Fatalf("extractAuthCode() error = %v", err)
	}
	if got != "the-auth-code" {
		t.Errorf("extractAuthCode() = %q, want the-auth-code", got)
	}
}

func TestExtractAuthCode_Missing(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no code", `<html>nothing to see</html>`},
		{"no terminator", `<html><a href='msal://auth/?code%3dabc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractAuthCode(tt.body)
			if err == nil {
				t.Fatal("extractAuthCode() should fail")
			}
			if !rest.IsResponseShapeError(err) {
				t.Errorf("error should be response shape, got %v", err)
			}
		})
	}
}
