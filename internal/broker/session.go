package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mt5copier/tradecopier/pkg/types"
)

// Session owns the single process-wide terminal connection. It caches which
// account is currently logged in so SwitchTo is a no-op when the engine asks
// to switch to the account it is already on — the batching discipline the
// engine relies on depends on this being cheap to call speculatively.
//
// Logging into an account is a multi-hundred-millisecond round trip; tearing
// the terminal down and re-initialising it on every account switch would
// make that cost recur on every batch. Session never re-initialises after
// the first successful Initialise call.
type Session struct {
	mu sync.Mutex

	client       Client
	initialised  bool
	currentLogin uint64
	loggedIn     bool

	// failingLogin/failing track a run of consecutive SwitchTo failures
	// against one target login, so loginLimiter only throttles repeated
	// failures and never a normal, successful account switch.
	failingLogin uint64
	failing      bool
	loginLimiter *TokenBucket

	logger *slog.Logger
}

// NewSession wraps a Client with session discipline.
func NewSession(client Client, logger *slog.Logger) *Session {
	return &Session{
		client:       client,
		loginLimiter: NewLoginLimiter(),
		logger:       logger.With("component", "broker-session"),
	}
}

// Initialise starts the terminal connection. Safe to call more than once;
// only the first call reaches the underlying Client. Initialisation
// failure is fatal — callers should abort the process on a non-nil error.
func (s *Session) Initialise(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialised {
		return nil
	}
	if err := s.client.Initialise(ctx); err != nil {
		return fmt.Errorf("initialise terminal: %w", err)
	}
	s.initialised = true
	return nil
}

// Shutdown tears the terminal connection down. Intended for process exit.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialised {
		return nil
	}
	return s.client.Shutdown(ctx)
}

// SwitchTo logs into the requested account unless it is already the current
// login. On login failure, currentLogin is left untouched so the session
// keeps a truthful view of which account it actually holds: a transient
// failure to reach the slave must not make future SwitchTo calls believe
// they are already there.
func (s *Session) SwitchTo(ctx context.Context, creds types.CredentialSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loggedIn && s.currentLogin == creds.Login {
		return nil
	}

	if s.failing && s.failingLogin == creds.Login && !s.loginLimiter.Allow() {
		return fmt.Errorf("login to %d: backing off after repeated failures", creds.Login)
	}

	if err := s.client.Login(ctx, creds.Login, creds.Password, creds.Server); err != nil {
		s.failing = true
		s.failingLogin = creds.Login
		s.logger.Warn("login failed", "login", creds.Login, "error", err)
		return fmt.Errorf("login to %d: %w", creds.Login, err)
	}

	s.failing = false
	s.currentLogin = creds.Login
	s.loggedIn = true
	return nil
}

// CurrentLogin reports the account the session believes it holds, and
// whether any successful login has occurred yet.
func (s *Session) CurrentLogin() (login uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLogin, s.loggedIn
}

// Client exposes the underlying capability client for callers that already
// hold the session (the engine dispatch code calls through Session so every
// use site goes through the same account-switch discipline, then issues
// the actual RPCs against Client directly).
func (s *Session) Client() Client {
	return s.client
}
