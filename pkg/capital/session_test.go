package capital

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSession_AuthenticateStoresTokenPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderCST, "abc")
		w.Header().Set(HeaderSecurityToken, "xyz")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	session := NewSession(testCredentials(server.URL), server.Client())

	if err := session.SelectEnvironment("demo"); err != nil {
		t.Fatalf("SelectEnvironment failed: %v", err)
	}
	if session.Authenticated() {
		t.Error("expected unauthenticated session before login")
	}

	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if !session.Authenticated() {
		t.Error("expected authenticated session after login")
	}

	session.Invalidate()
	if session.Authenticated() {
		t.Error("expected tokens to be cleared after Invalidate")
	}
}

func TestSession_MissingTokenHeadersFailsAuthentication(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "both headers missing", headers: nil},
		{name: "security token missing", headers: map[string]string{HeaderCST: "abc"}},
		{name: "cst missing", headers: map[string]string{HeaderSecurityToken: "xyz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for key, value := range tt.headers {
					w.Header().Set(key, value)
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			session := NewSession(testCredentials(server.URL), server.Client())
			if err := session.SelectEnvironment("demo"); err != nil {
				t.Fatalf("SelectEnvironment failed: %v", err)
			}

			err := session.Authenticate(context.Background())

			var authErr *AuthError
			if !errors.As(err, &authErr) || authErr.Reason != ReasonMissingTokens {
				t.Fatalf("expected AuthError(MissingTokens), got %v", err)
			}
			if session.Authenticated() {
				t.Error("expected no tokens cached after failed login")
			}
		})
	}
}

func TestSession_UpstreamRejectCarriesStatusAndMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorCode":"error.invalid.details","message":"bad credentials"}`))
	}))
	defer server.Close()

	session := NewSession(testCredentials(server.URL), server.Client())
	if err := session.SelectEnvironment("demo"); err != nil {
		t.Fatalf("SelectEnvironment failed: %v", err)
	}

	err := session.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Reason != ReasonUpstreamReject {
		t.Errorf("expected UpstreamReject, got %s", authErr.Reason)
	}
	if authErr.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", authErr.Status)
	}
	if authErr.Message != "bad credentials" {
		t.Errorf("expected body-derived message, got %q", authErr.Message)
	}
}

func TestSession_TransportFailureIsNotAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	session := NewSession(testCredentials(server.URL), nil)
	if err := session.SelectEnvironment("demo"); err != nil {
		t.Fatalf("SelectEnvironment failed: %v", err)
	}

	err := session.Authenticate(context.Background())

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		t.Error("transport failure must not be classified as AuthError")
	}
}

func TestSession_SwitchingEnvironmentInvalidatesTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderCST, "abc")
		w.Header().Set(HeaderSecurityToken, "xyz")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	session := NewSession(testCredentials(server.URL), server.Client())

	if err := session.SelectEnvironment("demo"); err != nil {
		t.Fatalf("SelectEnvironment(demo) failed: %v", err)
	}
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	// Tokens acquired under demo must never survive a switch to live.
	if err := session.SelectEnvironment("real"); err != nil {
		t.Fatalf("SelectEnvironment(real) failed: %v", err)
	}
	if session.Authenticated() {
		t.Error("expected demo tokens to be invalidated on switch to live")
	}
	if session.Environment() != Live {
		t.Errorf("expected live environment, got %q", session.Environment())
	}

	// Re-selecting the already active environment keeps the session.
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if err := session.SelectEnvironment("live"); err != nil {
		t.Fatalf("SelectEnvironment(live) failed: %v", err)
	}
	if !session.Authenticated() {
		t.Error("expected tokens to survive re-selecting the active environment")
	}
}

func TestSession_InvalidEnvironmentLeavesStateUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderCST, "abc")
		w.Header().Set(HeaderSecurityToken, "xyz")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	session := NewSession(testCredentials(server.URL), server.Client())
	if err := session.SelectEnvironment("demo"); err != nil {
		t.Fatalf("SelectEnvironment failed: %v", err)
	}
	if err := session.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	err := session.SelectEnvironment("bogus")

	var invalidErr *InvalidEnvironmentError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidEnvironmentError, got %v", err)
	}
	if invalidErr.Value != "bogus" {
		t.Errorf("expected rejected value in error, got %q", invalidErr.Value)
	}
	if session.Environment() != Demo {
		t.Errorf("expected demo to stay active, got %q", session.Environment())
	}
	if !session.Authenticated() {
		t.Error("expected tokens to stay cached after rejected switch")
	}
}

func TestSession_AuthenticateWithoutSelection(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	session := NewSession(testCredentials(server.URL), server.Client())

	err := session.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Reason != ReasonNotSelected {
		t.Fatalf("expected AuthError(NotSelected), got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("expected no upstream calls without a selected environment, got %d", got)
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		value   string
		want    Environment
		wantErr bool
	}{
		{value: "demo", want: Demo},
		{value: "live", want: Live},
		{value: "real", want: Live},
		{value: "DEMO", wantErr: true},
		{value: "", wantErr: true},
		{value: "staging", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			env, err := ParseEnvironment(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env != tt.want {
				t.Errorf("expected %q, got %q", tt.want, env)
			}
		})
	}
}
