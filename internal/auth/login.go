package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/gruenbeck-cloud/internal/logging"
	"github.com/muurk/gruenbeck-cloud/internal/rest"
)

// Flow drives the four-step B2C login handshake. It is stateless between
// runs; everything a run needs travels through loginState.
type Flow struct {
	table    *rest.Table
	executor *rest.Executor
}

// NewFlow creates a login flow over the shared endpoint table and
// executor. The executor must be the cookie-bearing one the rest of the
// client uses; steps 1-3 thread B2C state through its jar.
func NewFlow(table *rest.Table, executor *rest.Executor) *Flow {
	return &Flow{table: table, executor: executor}
}

// loginState carries the values scraped in step 1 into the later steps.
type loginState struct {
	csrfToken     string
	transactionID string
	policy        string
	tenant        string
}

// Login runs the complete handshake and returns a fresh session. The
// cookie jar is cleared first; stale B2C cookies make the authorize page
// skip the form and the scrape come up empty.
func (f *Flow) Login(ctx context.Context, username string, password string) (*Session, error) {
	challenge, err := NewChallenge()
	if err != nil {
		return nil, err
	}

	if err := f.executor.ClearCookies(); err != nil {
		return nil, err
	}

	state, err := f.step1(ctx, challenge.Challenge)
	if err != nil {
		return nil, err
	}

	if err := f.step2(ctx, state, username, password); err != nil {
		return nil, err
	}

	code, err := f.step3(ctx, state)
	if err != nil {
		return nil, err
	}

	session, err := f.step4(ctx, state, code, challenge.Verifier)
	if err != nil {
		return nil, err
	}

	logging.Info("login complete",
		zap.String("tenant", state.tenant),
		zap.Time("expires_on", session.ExpiresOn))
	return session, nil
}

// step1 fetches the authorize page and scrapes its settings blob for the
// CSRF token, transaction id, policy and tenant.
func (f *Flow) step1(ctx context.Context, codeChallenge string) (*loginState, error) {
	req, err := f.table.Resolve(rest.LoginStep1, rest.Vars{
		rest.VarCodeChallenge: codeChallenge,
	})
	if err != nil {
		return nil, err
	}

	resp, err := f.executor.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	body := resp.Text()
	state := &loginState{}
	for _, field := range []struct {
		marker string
		dest   *string
	}{
		{"csrf", &state.csrfToken},
		{"transId", &state.transactionID},
		{"policy", &state.policy},
		{"tenant", &state.tenant},
	} {
		value, err := extractMarker(rest.LoginStep1, body, field.marker)
		if err != nil {
			return nil, err
		}
		*field.dest = value
	}

	return state, nil
}

// step2 posts the credentials. The endpoint answers 200 even for bad
// credentials and signals the real outcome in a JSON status field.
func (f *Flow) step2(ctx context.Context, state *loginState, username string, password string) error {
	req, err := f.table.Resolve(rest.LoginStep2, rest.Vars{
		rest.VarTenant:    state.tenant,
		rest.VarTransID:   state.transactionID,
		rest.VarPolicy:    state.policy,
		rest.VarCSRFToken: state.csrfToken,
		rest.VarUsername:  username,
		rest.VarPassword:  password,
	})
	if err != nil {
		return err
	}

	resp, err := f.executor.Do(ctx, req)
	if err != nil {
		return err
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := resp.JSON(&result); err != nil {
		return err
	}
	if result.Status != "200" {
		return rest.NewCredentialsRejectedError("sign-in rejected, wrong username or password")
	}
	return nil
}

// step3 requests the confirmation page. The cloud answers with a 302
// whose body carries the authorization code inside an msal redirect
// link; the redirect itself must not be followed.
func (f *Flow) step3(ctx context.Context, state *loginState) (string, error) {
	req, err := f.table.Resolve(rest.LoginStep3, rest.Vars{
		rest.VarTenant:    state.tenant,
		rest.VarCSRFToken: state.csrfToken,
		rest.VarTransID:   state.transactionID,
		rest.VarPolicy:    state.policy,
	})
	if err != nil {
		return "", err
	}

	resp, err := f.executor.Do(ctx, req)
	if err != nil {
		return "", err
	}

	return extractAuthCode(resp.Text())
}

// step4 exchanges the authorization code and PKCE verifier for tokens.
func (f *Flow) step4(ctx context.Context, state *loginState, code string, verifier string) (*Session, error) {
	req, err := f.table.Resolve(rest.LoginStep4, rest.Vars{
		rest.VarTenant:       state.tenant,
		rest.VarCode:         code,
		rest.VarCodeVerifier: verifier,
	})
	if err != nil {
		return nil, err
	}

	resp, err := f.executor.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var token tokenResponse
	if err := resp.JSON(&token); err != nil {
		return nil, err
	}
	return sessionFromToken(rest.LoginStep4, token, state.tenant)
}

// extractMarker pulls a quoted settings value out of the authorize page.
// The page embeds a JSON settings object, so the value starts three
// bytes past the marker (skipping the `":"` separator) and runs to the
// byte before the next comma, dropping the closing quote.
func extractMarker(op string, body string, marker string) (string, error) {
	idx := strings.Index(body, marker)
	if idx < 0 {
		return "", rest.NewResponseShapeError(op,
			fmt.Sprintf("marker %q not found in login response", marker), nil)
	}

	start := idx + len(marker) + 3
	if start > len(body) {
		return "", rest.NewResponseShapeError(op,
			fmt.Sprintf("marker %q truncated in login response", marker), nil)
	}

	rel := strings.Index(body[start:], ",")
	if rel < 0 {
		return "", rest.NewResponseShapeError(op,
			fmt.Sprintf("marker %q has no terminator in login response", marker), nil)
	}

	end := start + rel - 1
	if end < start {
		end = start
	}
	return body[start:end], nil
}

// extractAuthCode pulls the authorization code out of the confirmation
// body, which links the msal redirect as ...?code%3d<code>'>here</a>.
func extractAuthCode(body string) (string, error) {
	const opener = "code%3d"
	const closer = ">here"

	idx := strings.Index(body, opener)
	if idx < 0 {
		return "", rest.NewResponseShapeError(rest.LoginStep3,
			"authorization code not found in confirmation response", nil)
	}
	start := idx + len(opener)

	stop := strings.Index(body, closer)
	if stop < 0 {
		return "", rest.NewResponseShapeError(rest.LoginStep3,
			"authorization code unterminated in confirmation response", nil)
	}

	end := stop - 1
	if end < start {
		end = start
	}
	return body[start:end], nil
}
