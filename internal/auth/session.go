package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/gruenbeck-cloud/internal/logging"
	"github.com/muurk/gruenbeck-cloud/internal/rest"
)

// ExpiryMargin is how long before the wire expiry a token counts as
// expired. Refreshing early keeps long-running streams from racing the
// real deadline mid-request.
const ExpiryMargin = 10 * time.Minute

// Session holds the tokens of one completed login plus the tenant they
// were minted under. The tenant is needed again at refresh time because
// the token endpoint lives beneath it.
type Session struct {
	AccessToken  string
	RefreshToken string
	NotBefore    time.Time
	ExpiresOn    time.Time
	ExpiresIn    time.Duration
	Tenant       string
}

// IsExpired reports whether the session needs refreshing at the given
// instant. A session expires ExpiryMargin ahead of its wire deadline.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresOn.Add(-ExpiryMargin))
}

// tokenResponse is the token endpoint's grant payload. The epoch fields
// are seconds.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	NotBefore    int64  `json:"not_before"`
	ExpiresOn    int64  `json:"expires_on"`
	ExpiresIn    int64  `json:"expires_in"`
}

// sessionFromToken validates a grant payload and binds it to a tenant.
func sessionFromToken(op string, token tokenResponse, tenant string) (*Session, error) {
	if token.AccessToken == "" || token.RefreshToken == "" {
		return nil, rest.NewResponseShapeError(op, "token response missing access or refresh token", nil)
	}
	return &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		NotBefore:    time.Unix(token.NotBefore, 0),
		ExpiresOn:    time.Unix(token.ExpiresOn, 0),
		ExpiresIn:    time.Duration(token.ExpiresIn) * time.Second,
		Tenant:       tenant,
	}, nil
}

// Manager hands out access tokens for the lifetime of a client. All
// token state lives behind one mutex so concurrent callers cannot race
// a refresh or trigger duplicate logins.
type Manager struct {
	mu       sync.Mutex
	flow     *Flow
	table    *rest.Table
	executor *rest.Executor
	username string
	password string
	session  *Session
}

// NewManager creates a session manager for the given account. No network
// traffic happens until the first token is requested.
func NewManager(table *rest.Table, executor *rest.Executor, username string, password string) *Manager {
	return &Manager{
		flow:     NewFlow(table, executor),
		table:    table,
		executor: executor,
		username: username,
		password: password,
	}
}

// Login forces a full login, replacing any current session.
func (m *Manager) Login(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginLocked(ctx)
}

// AccessToken returns a token that is good for at least ExpiryMargin.
// Without a session it logs in; with a fresh session it answers from
// memory; with a stale one it refreshes, and falls back to a full
// re-login when the refresh grant is rejected.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		if err := m.loginLocked(ctx); err != nil {
			return "", err
		}
		return m.session.AccessToken, nil
	}

	if !m.session.IsExpired(time.Now()) {
		return m.session.AccessToken, nil
	}

	if err := m.refreshLocked(ctx); err != nil {
		logging.Info("token refresh failed, performing full login",
			zap.String("reason", rest.GetShortErrorMessage(err)))
		if err := m.loginLocked(ctx); err != nil {
			return "", err
		}
	}

	return m.session.AccessToken, nil
}

// Session returns a copy of the current session, or nil before the
// first login.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	copied := *m.session
	return &copied
}

// HasSession reports whether a login has completed.
func (m *Manager) HasSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

func (m *Manager) loginLocked(ctx context.Context) error {
	session, err := m.flow.Login(ctx, m.username, m.password)
	if err != nil {
		return err
	}
	m.session = session
	return nil
}

// refreshLocked exchanges the refresh token for a new grant. The call
// deliberately runs without cookies; jar state from a login must not
// leak into the grant.
func (m *Manager) refreshLocked(ctx context.Context) error {
	req, err := m.table.Resolve(rest.WebTokenRefresh, rest.Vars{
		rest.VarTenant:       m.session.Tenant,
		rest.VarRefreshToken: m.session.RefreshToken,
	})
	if err != nil {
		return err
	}

	resp, err := m.executor.Do(ctx, req)
	if err != nil {
		return err
	}

	var token tokenResponse
	if err := resp.JSON(&token); err != nil {
		return err
	}

	session, err := sessionFromToken(rest.WebTokenRefresh, token, m.session.Tenant)
	if err != nil {
		return err
	}
	m.session = session

	logging.Debug("web token refreshed", zap.Time("expires_on", session.ExpiresOn))
	return nil
}
