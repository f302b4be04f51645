package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

var (
	// ErrOperationInFlight rejects a mutating operation started while
	// another is still pending; transitions never interleave.
	ErrOperationInFlight = errors.New("another auth operation is in flight")

	// ErrLoginFailed is the single user-facing login failure; it never
	// distinguishes an unknown email from a wrong password.
	ErrLoginFailed = errors.New("invalid email or password")

	// ErrSignupFailed covers signup rejections not tied to a field.
	ErrSignupFailed = errors.New("signup failed, please try again")
)

const tryAgainMsg = "something went wrong, please try again"

// AuthState is the single source of truth for the current session on the
// client. IsAuthenticated is true iff Identity and Token are both set.
type AuthState struct {
	IsAuthenticated bool
	Identity        *user.User
	Token           string
	Loading         bool
	Error           string
}

// Manager owns the AuthState and the transitions over it: Restore, Login,
// Signup, Logout and ClearError. At most one mutating transition runs at a
// time; a second caller is rejected with ErrOperationInFlight rather than
// interleaved. A completed Logout is authoritative over any transition
// still in flight: the epoch counter discards stale resolutions.
type Manager struct {
	api    APIClient
	store  Store
	logger core.Logger

	mu       sync.Mutex
	inFlight bool
	epoch    uint64
	state    AuthState
}

// NewManager starts in an unauthenticated, loading state; Restore decides
// what the session actually is.
func NewManager(api APIClient, store Store, logger core.Logger) *Manager {
	return &Manager{
		api:    api,
		store:  store,
		logger: logger,
		state:  AuthState{Loading: true},
	}
}

// State returns a copy of the current AuthState.
func (m *Manager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Restore re-enters a previous session from the persisted token, checking
// it against the identity service. Absence or failure lands in a clean
// unauthenticated state with any stale token cleared.
func (m *Manager) Restore(ctx context.Context) (AuthState, error) {
	epoch, err := m.begin()
	if err != nil {
		return m.State(), err
	}

	rec, ok, err := m.store.Load()
	if err != nil || !ok {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.finish(epoch) {
			m.state = AuthState{}
		}
		return m.snapshot(), nil
	}

	usr, apiErr := m.api.Profile(ctx, rec.Token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.finish(epoch) {
		return m.snapshot(), nil
	}
	if apiErr != nil {
		_ = m.store.Clear() // token is stale, drop it
		m.state = AuthState{}
		return m.snapshot(), nil
	}
	m.state = AuthState{IsAuthenticated: true, Identity: &usr, Token: rec.Token}
	return m.snapshot(), nil
}

// Login authenticates an email/password pair. On success the token is
// persisted and the returned redirect points at the caller's home
// namespace. On failure the state carries a generic error message.
func (m *Manager) Login(ctx context.Context, email, password string) (AuthState, string, error) {
	epoch, err := m.begin()
	if err != nil {
		return m.State(), "", err
	}

	email = core.CleanString(email, true /* lower */)
	if email == "" || password == "" {
		return m.fail(epoch, ErrLoginFailed.Error()), "", ErrLoginFailed
	}

	res, apiErr := m.api.Login(ctx, email, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.finish(epoch) {
		// a logout completed while we were waiting; its word is final
		return m.snapshot(), "", nil
	}
	if apiErr != nil {
		m.state = AuthState{Error: loginErrorMessage(apiErr)}
		return m.snapshot(), "", ErrLoginFailed
	}

	if err = m.store.Save(SessionRecord{Token: res.Token, Role: res.Identity.Role}); err != nil {
		m.logger.Warn("persisting session", err)
	}
	usr := res.Identity
	m.state = AuthState{IsAuthenticated: true, Identity: &usr, Token: res.Token}
	return m.snapshot(), auth.HomePath(usr.Role), nil
}

// Signup registers a new account. It never auto-authenticates: on success
// the returned redirect points at the sign-in surface.
func (m *Manager) Signup(ctx context.Context, nu user.NewUser) (AuthState, string, error) {
	epoch, err := m.begin()
	if err != nil {
		return m.State(), "", err
	}

	if err = precheckSignup(nu); err != nil {
		return m.fail(epoch, err.Error()), "", err
	}

	_, apiErr := m.api.Signup(ctx, nu)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.finish(epoch) {
		return m.snapshot(), "", nil
	}
	if apiErr != nil {
		m.state = AuthState{Error: signupErrorMessage(apiErr)}
		return m.snapshot(), "", ErrSignupFailed
	}
	m.state = AuthState{}
	return m.snapshot(), "/login?registered=true", nil
}

// Logout clears the persisted token and in-memory identity
// unconditionally, then notifies the service best-effort. It is never
// blocked by an in-flight transition: it supersedes it instead, and is
// idempotent.
func (m *Manager) Logout(ctx context.Context) AuthState {
	m.mu.Lock()
	m.epoch++ // discard whatever is still in flight
	m.inFlight = false
	token := m.state.Token
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing persisted session", err)
	}
	m.state = AuthState{}
	snap := m.snapshot()
	m.mu.Unlock()

	if token != "" {
		// local session is already gone; the server call only revokes
		if err := m.api.DeleteSession(ctx, token); err != nil {
			m.logger.Warn("revoking remote session", err)
		}
	}
	return snap
}

// ClearError resets the error message without touching anything else.
func (m *Manager) ClearError() {
	m.mu.Lock()
	m.state.Error = ""
	m.mu.Unlock()
}

// begin acquires the single transition slot, clearing any previous error.
func (m *Manager) begin() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return 0, ErrOperationInFlight
	}
	m.inFlight = true
	m.state.Loading = true
	m.state.Error = ""
	return m.epoch, nil
}

// finish releases the transition slot iff the operation has not been
// superseded by a Logout; callers must hold the lock. A superseded
// operation must not mutate anything.
func (m *Manager) finish(epoch uint64) bool {
	if m.epoch != epoch {
		return false
	}
	m.inFlight = false
	m.state.Loading = false
	return true
}

// fail ends the transition in an unauthenticated state with an error set.
func (m *Manager) fail(epoch uint64, msg string) AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finish(epoch) {
		m.state = AuthState{Error: msg}
	}
	return m.snapshot()
}

// snapshot copies the state; callers must hold the lock.
func (m *Manager) snapshot() AuthState {
	st := m.state
	if m.state.Identity != nil {
		cp := *m.state.Identity
		st.Identity = &cp
	}
	return st
}

// precheckSignup mirrors the server-side required checks so obviously
// incomplete submissions never leave the client.
func precheckSignup(nu user.NewUser) error {
	if core.CleanString(nu.FirstName) == "" ||
		core.CleanString(nu.LastName) == "" ||
		core.CleanString(nu.Email) == "" ||
		nu.Password == "" {
		return errors.New("all fields are required")
	}
	if nu.Password != nu.PasswordConfirm {
		return errors.New("passwords do not match")
	}
	return nil
}

func loginErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusBadRequest, http.StatusForbidden:
			return ErrLoginFailed.Error()
		}
	}
	return tryAgainMsg
}

func signupErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && apiErr.Message != "" {
		return apiErr.Message
	}
	return tryAgainMsg
}
