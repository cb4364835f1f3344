package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/muurk/gruenbeck-cloud/internal/diagnostics"
)

func testRequest(url string) *Request {
	return &Request{
		Name:         "test_endpoint",
		Method:       "GET",
		URL:          url,
		Headers:      map[string]string{"User-Agent": UserAgentApp},
		UseCookies:   true,
		ExpectStatus: []int{200},
	}
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Request method = %s, want GET", r.Method)
		}
		if r.Header.Get("User-Agent") != UserAgentApp {
			t.Errorf("User-Agent = %s, want %s", r.Header.Get("User-Agent"), UserAgentApp)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	executor, err := NewExecutor(nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	resp, err := executor.Do(context.Background(), testRequest(server.URL))
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if !resp.IsJSON() {
		t.Error("IsJSON() should be true for application/json")
	}

	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := resp.JSON(&parsed); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if !parsed.OK {
		t.Error("parsed body should have ok=true")
	}
}

func TestDo_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	executor, err := NewExecutor(nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	_, err = executor.Do(context.Background(), testRequest(server.URL))
	if err == nil {
		t.Fatal("Do() should fail on unexpected status")
	}
	if !IsResponseStatusError(err) {
		t.Errorf("error should be response status error, got %T: %v", err, err)
	}

	var cloudErr *CloudError
	if !errors.As(err, &cloudErr) {
		t.Fatalf("error should be *CloudError, got %T", err)
	}
	if cloudErr.StatusCode != 502 {
		t.Errorf("StatusCode = %d, want 502", cloudErr.StatusCode)
	}
	if cloudErr.Op != "test_endpoint" {
		t.Errorf("Op = %s, want test_endpoint", cloudErr.Op)
	}
}

func TestDo_RedirectNotFollowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirected" {
			t.Error("redirect should not be followed")
		}
		w.Header().Set("Location", "/redirected")
		w.WriteHeader(http.StatusFound)
		w.Write([]byte(`You are being redirected <a href="...">here</a>`))
	}))
	defer server.Close()

	executor, err := NewExecutor(nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	req := testRequest(server.URL)
	req.ExpectStatus = []int{302}

	resp, err := executor.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if resp.StatusCode != 302 {
		t.Errorf("StatusCode = %d, want 302", resp.StatusCode)
	}
	if !strings.Contains(resp.Text(), "redirected") {
		t.Errorf("Body = %q, want the literal redirect page", resp.Text())
	}
}

func TestDo_CookieJar(t *testing.T) {
	var sawCookie bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/set":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
			w.WriteHeader(http.StatusOK)
		case "/check":
			if c, err := r.Cookie("session"); err == nil && c.Value == "abc" {
				sawCookie = true
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	executor, err := NewExecutor(nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	if _, err := executor.Do(context.Background(), testRequest(server.URL+"/set")); err != nil {
		t.Fatalf("Do(/set) error = %v", err)
	}
	if _, err := executor.Do(context.Background(), testRequest(server.URL+"/check")); err != nil {
		t.Fatalf("Do(/check) error = %v", err)
	}
	if !sawCookie {
		t.Error("cookie set by the server should round-trip on the next request")
	}

	// After clearing the jar the cookie must be gone.
	if err := executor.ClearCookies(); err != nil {
		t.Fatalf("ClearCookies() error = %v", err)
	}
	sawCookie = false
	if _, err := executor.Do(context.Background(), testRequest(server.URL+"/check")); err != nil {
		t.Fatalf("Do(/check) error = %v", err)
	}
	if sawCookie {
		t.Error("cookie should be gone after ClearCookies")
	}
}

func TestDo_NoCookiesWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/set":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
			w.WriteHeader(http.StatusOK)
		case "/bare":
			if _, err := r.Cookie("session"); err == nil {
				t.Error("cookie must not be sent when the request disables cookies")
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	executor, err := NewExecutor(nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	if _, err := executor.Do(context.Background(), testRequest(server.URL+"/set")); err != nil {
		t.Fatalf("Do(/set) error = %v", err)
	}

	bare := testRequest(server.URL + "/bare")
	bare.UseCookies = false
	if _, err := executor.Do(context.Background(), bare); err != nil {
		t.Fatalf("Do(/bare) error = %v", err)
	}
}

func TestDo_FormBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %s, want refresh_token", r.Form.Get("grant_type"))
		}
		if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/x-www-form-urlencoded") {
			t.Errorf("Content-Type = %s, want form encoding", ct)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	executor, err := NewExecutor(nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	table := NewTable(TableConfig{LoginBase: server.URL})
	req, err := table.Resolve(WebTokenRefresh, Vars{
		VarTenant:       "/tenant/policy",
		VarRefreshToken: "r1",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, err := executor.Do(context.Background(), req); err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
}

func TestDo_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // nothing is listening anymore

	executor, err := NewExecutor(nil)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	_, err = executor.Do(context.Background(), testRequest(url))
	if err == nil {
		t.Fatal("Do() should fail when nothing is listening")
	}
	if !IsConnectionError(err) {
		t.Errorf("error should be connection error, got %T: %v", err, err)
	}
}

func TestDo_RecordsDiagnostics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"access_token": "super-secret-token"}`))
	}))
	defer server.Close()

	recorder := diagnostics.NewRecorder(10)
	executor, err := NewExecutor(recorder)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	// Status 418 is unexpected, but the exchange must still be recorded.
	_, err = executor.Do(context.Background(), testRequest(server.URL))
	if err == nil {
		t.Fatal("Do() should fail on unexpected status")
	}

	entries := recorder.Export()
	if len(entries) != 1 {
		t.Fatalf("Export() returned %d entries, want 1", len(entries))
	}
	if entries[0].Endpoint != "test_endpoint" {
		t.Errorf("Endpoint = %s, want test_endpoint", entries[0].Endpoint)
	}
	if entries[0].Status != 418 {
		t.Errorf("Status = %d, want 418", entries[0].Status)
	}
	if strings.Contains(entries[0].Body, "super-secret-token") {
		t.Errorf("exported body should be redacted, got %q", entries[0].Body)
	}
}

func TestResponse_JSONShapeError(t *testing.T) {
	resp := &Response{Name: GetDevices, StatusCode: 200, Body: []byte("not json")}

	var out map[string]any
	err := resp.JSON(&out)
	if err == nil {
		t.Fatal("JSON() should fail for invalid body")
	}
	if !IsResponseShapeError(err) {
		t.Errorf("error should be response shape error, got %T: %v", err, err)
	}
}

func BenchmarkDo(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	executor, err := NewExecutor(nil)
	if err != nil {
		b.Fatalf("NewExecutor() error = %v", err)
	}
	req := testRequest(server.URL)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = executor.Do(context.Background(), req)
	}
}
