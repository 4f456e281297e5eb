package capital

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

const (
	// HeaderAPIKey is the static platform API key header.
	HeaderAPIKey = "X-CAP-API-KEY"

	// HeaderCST is the first of the paired opaque session token headers.
	HeaderCST = "CST"

	// HeaderSecurityToken is the second of the paired session token headers.
	HeaderSecurityToken = "X-SECURITY-TOKEN"
)

// tokens is the opaque session pair issued by the platform on login.
// The pair is replaced wholesale on renewal, never partially updated.
type tokens struct {
	cst      string
	security string
}

// Session owns the credential state and the current session token pair
// for the selected environment. All state transitions happen under one
// mutex so that concurrent 401s coalesce into a single re-login and no
// caller ever observes a half-replaced token pair.
//
// Token validity is controlled entirely by the platform and is not
// locally predictable: expiry is discovered reactively via a 401, never
// by proactive validation.
type Session struct {
	mu sync.Mutex

	// credentials per environment, immutable after construction
	credentials map[Environment]Credentials

	env    Environment // empty until SelectEnvironment succeeds
	active *tokens     // nil while unauthenticated

	// generation is bumped every time the token pair is stored or
	// cleared. Renewal requests carry the generation they observed, so
	// a renewal triggered by a stale 401 can detect that another caller
	// already re-authenticated and reuse the fresh pair.
	generation uint64

	httpClient *http.Client
	logger     *slog.Logger
}

// NewSession creates a session manager over the given per-environment
// credentials. No environment is selected initially; every call fails
// with AuthError(NotSelected) until SelectEnvironment succeeds.
func NewSession(credentials map[Environment]Credentials, httpClient *http.Client) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	creds := make(map[Environment]Credentials, len(credentials))
	for env, c := range credentials {
		creds[env] = c
	}
	return &Session{
		credentials: creds,
		httpClient:  httpClient,
		logger:      slog.Default().With("component", "capital.session"),
	}
}

// SelectEnvironment activates one of the two upstream environments.
// An unknown value returns InvalidEnvironmentError and leaves the prior
// environment and any cached tokens untouched. Switching to a different
// environment drops the cached token pair before returning: tokens
// obtained under one environment are never presented under another.
func (s *Session) SelectEnvironment(value string) error {
	env, err := ParseEnvironment(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if env != s.env {
		s.clearLocked()
		s.logger.Info("environment selected", "environment", env, "previous", string(s.env))
	}
	s.env = env
	return nil
}

// Environment returns the currently active environment, or "" when none
// has been selected yet.
func (s *Session) Environment() Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env
}

// Authenticated reports whether a token pair is currently cached.
// It says nothing about whether the platform still honors the pair.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Authenticate performs a login against the platform's session endpoint
// and stores the issued token pair, replacing any cached pair.
func (s *Session) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginLocked(ctx)
}

// Invalidate unconditionally clears the cached token pair. It is used
// on environment switch, explicit logout, and 401 detection.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// ensure returns the cached token pair, logging in first if none is
// cached. It never proactively re-validates a cached pair.
func (s *Session) ensure(ctx context.Context) (cst, security string, generation uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		if err := s.loginLocked(ctx); err != nil {
			return "", "", 0, err
		}
	}
	return s.active.cst, s.active.security, s.generation, nil
}

// renew handles a 401 observed under the given token generation. If the
// generation is stale and a fresh pair is already cached, another caller
// has re-authenticated in the meantime and the fresh pair is returned
// without a duplicate login. Otherwise the stale pair is dropped and a
// single login is performed.
func (s *Session) renew(ctx context.Context, observed uint64) (cst, security string, generation uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.generation != observed {
		return s.active.cst, s.active.security, s.generation, nil
	}

	s.clearLocked()
	if err := s.loginLocked(ctx); err != nil {
		return "", "", 0, err
	}
	return s.active.cst, s.active.security, s.generation, nil
}

// CheckCredentials verifies that an environment is selected and its
// credentials are complete, without performing any network call. It is
// used by readiness checks; the errors match what the first real call
// would return.
func (s *Session) CheckCredentials() error {
	_, err := s.activeCredentials()
	return err
}

// activeCredentials returns the selected environment's credentials,
// failing the same way authentication would when nothing is selected
// or the configuration is incomplete.
func (s *Session) activeCredentials() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpointLocked()
}

// endpointLocked returns the active environment's credentials.
// Must be called with s.mu held.
func (s *Session) endpointLocked() (Credentials, error) {
	if s.env == "" {
		return Credentials{}, &AuthError{Reason: ReasonNotSelected}
	}
	creds := s.credentials[s.env]
	if err := creds.validate(s.env); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// loginRequest is the platform's session creation body.
type loginRequest struct {
	Identifier        string `json:"identifier"`
	Password          string `json:"password"`
	EncryptedPassword bool   `json:"encryptedPassword"`
}

// loginLocked performs the POST /session login and stores the resulting
// token pair. Must be called with s.mu held; the lock is held across the
// network call so concurrent authentication attempts serialize, bounded
// by the HTTP client timeout.
func (s *Session) loginLocked(ctx context.Context) error {
	creds, err := s.endpointLocked()
	if err != nil {
		return err
	}

	body, err := json.Marshal(loginRequest{
		Identifier:        creds.Identifier,
		Password:          creds.Password,
		EncryptedPassword: false,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.BaseURL+"/session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAPIKey, creds.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "login", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		s.logger.Warn("login rejected by platform",
			"environment", s.env,
			"status", resp.StatusCode,
		)
		return &AuthError{
			Reason:  ReasonUpstreamReject,
			Status:  resp.StatusCode,
			Message: errorMessage(raw),
		}
	}

	cst := resp.Header.Get(HeaderCST)
	security := resp.Header.Get(HeaderSecurityToken)
	if cst == "" || security == "" {
		return &AuthError{Reason: ReasonMissingTokens, Status: resp.StatusCode}
	}

	s.active = &tokens{cst: cst, security: security}
	s.generation++
	s.logger.Info("session established", "environment", s.env)
	return nil
}

// clearLocked drops the cached token pair. Must be called with s.mu held.
func (s *Session) clearLocked() {
	if s.active != nil {
		s.logger.Debug("session tokens invalidated", "environment", s.env)
	}
	s.active = nil
	s.generation++
}
