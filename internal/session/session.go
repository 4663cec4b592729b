// Package session owns the process-wide identity: who is signed in, and
// the transitions between signed in and signed out.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jaekwang-park/todo-notes/internal/cognito"
	"github.com/jaekwang-park/todo-notes/internal/metrics"
	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrMissingFields      = errors.New("email and password are required")

	// ErrConfirmationRequired means the account exists but the emailed code
	// has to be confirmed before it can sign in.
	ErrConfirmationRequired = errors.New("account confirmation required")
	ErrUserNotConfirmed     = errors.New("account not confirmed")
	ErrInvalidCode          = errors.New("invalid or expired confirmation code")
)

// accessTokenMargin is how close to expiry an access token is refreshed
// before it is used.
const accessTokenMargin = time.Minute

// Binder attaches per-principal resources. Unbind must release everything
// Bind acquired before it returns.
type Binder interface {
	Bind(ctx context.Context, p model.Principal) error
	Unbind()
}

type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (cognito.Identity, error)
}

type Session struct {
	client   cognito.Client
	verifier TokenVerifier
	users    repository.UserRepository
	store    TokenStore
	binder   Binder
	logger   *slog.Logger

	now func() time.Time

	// op serializes transitions; mu guards the fields below it.
	op        sync.Mutex
	mu        sync.RWMutex
	state     State
	principal model.Principal
	creds     credentials
	watchers  map[chan Status]struct{}
}

// credentials are the tokens held for the signed-in principal.
type credentials struct {
	email        string
	accessToken  string
	refreshToken string
	// expiresAt is zero when the provider did not report a lifetime.
	expiresAt    time.Time
}

func New(
	client cognito.Client,
	verifier TokenVerifier,
	users repository.UserRepository,
	store TokenStore,
	binder Binder,
	logger *slog.Logger,
) *Session {
	return &Session{
		client:   client,
		verifier: verifier,
		users:    users,
		store:    store,
		binder:   binder,
		logger:   logger,
		now:      time.Now,
		state:    StateLoading,
		watchers: make(map[chan Status]struct{}),
	}
}

// Current returns the principal and state. The principal is zero unless
// the state is StateAuthenticated.
func (s *Session) Current() (model.Principal, State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal, s.state
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	st := Status{State: s.state}
	if s.state == StateAuthenticated {
		p := s.principal
		st.Principal = &p
	}
	return st
}

// Resolve settles the initial Loading state from the stored refresh token.
// Any failure to restore the session leaves it Anonymous.
func (s *Session) Resolve(ctx context.Context) (Status, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.require(StateLoading); err != nil {
		return s.Status(), err
	}

	p, creds, err := s.restore(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			s.logger.Warn("stored session not restored", "error", err)
			if cerr := s.store.Clear(); cerr != nil {
				s.logger.Warn("failed to clear stored session", "error", cerr)
			}
		}
		s.transition(StateAnonymous, model.Principal{}, credentials{})
		return s.Status(), nil
	}

	s.transition(StateAuthenticated, p, creds)
	return s.Status(), nil
}

func (s *Session) restore(ctx context.Context) (model.Principal, credentials, error) {
	tok, err := s.store.Load()
	if err != nil {
		return model.Principal{}, credentials{}, err
	}

	auth, err := s.client.RefreshTokens(ctx, cognito.RefreshInput{
		Email:        tok.Email,
		RefreshToken: tok.RefreshToken,
	})
	if err != nil {
		return model.Principal{}, credentials{}, fmt.Errorf("refresh tokens: %w", err)
	}

	p, err := s.establish(ctx, auth, "")
	if err != nil {
		return model.Principal{}, credentials{}, err
	}
	if auth.RefreshToken == "" {
		auth.RefreshToken = tok.RefreshToken
	}
	return p, s.credentialsFor(tok.Email, auth), nil
}

func (s *Session) SignIn(ctx context.Context, email, password string) (model.Principal, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.require(StateAnonymous); err != nil {
		return model.Principal{}, err
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.Principal{}, ErrInvalidCredentials
	}

	auth, err := s.client.Login(ctx, cognito.LoginInput{Email: email, Password: password})
	if err != nil {
		return model.Principal{}, mapAuthError(err)
	}

	return s.complete(ctx, email, auth, "")
}

// SignUp registers a new account and signs it in. An account that still
// needs its emailed code returns ErrConfirmationRequired and the session
// stays Anonymous until Confirm.
func (s *Session) SignUp(ctx context.Context, name, email, password string) (model.Principal, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.require(StateAnonymous); err != nil {
		return model.Principal{}, err
	}

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.Principal{}, ErrMissingFields
	}

	out, err := s.client.SignUp(ctx, cognito.SignUpInput{Name: name, Email: email, Password: password})
	if err != nil {
		return model.Principal{}, mapAuthError(err)
	}
	s.logger.Info("account created", "user_sub", out.UserSub, "confirmed", out.Confirmed)
	if !out.Confirmed {
		return model.Principal{}, ErrConfirmationRequired
	}

	auth, err := s.client.Login(ctx, cognito.LoginInput{Email: email, Password: password})
	if err != nil {
		return model.Principal{}, fmt.Errorf("sign in after sign-up: %w", mapAuthError(err))
	}

	return s.complete(ctx, email, auth, name)
}

// Confirm submits the emailed code for an account created by SignUp and
// signs it in.
func (s *Session) Confirm(ctx context.Context, email, code, password string) (model.Principal, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.require(StateAnonymous); err != nil {
		return model.Principal{}, err
	}

	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || password == "" {
		return model.Principal{}, ErrMissingFields
	}
	if code == "" {
		return model.Principal{}, ErrInvalidCode
	}

	if err := s.client.ConfirmSignUp(ctx, cognito.ConfirmSignUpInput{Email: email, Code: code}); err != nil {
		return model.Principal{}, mapAuthError(err)
	}
	s.logger.Info("account confirmed", "email", email)

	auth, err := s.client.Login(ctx, cognito.LoginInput{Email: email, Password: password})
	if err != nil {
		return model.Principal{}, fmt.Errorf("sign in after confirmation: %w", mapAuthError(err))
	}

	return s.complete(ctx, email, auth, "")
}

// ResendConfirmation asks the provider to email a new confirmation code.
func (s *Session) ResendConfirmation(ctx context.Context, email string) error {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.require(StateAnonymous); err != nil {
		return err
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return ErrMissingFields
	}

	if err := s.client.ResendConfirmationCode(ctx, cognito.ResendCodeInput{Email: email}); err != nil {
		return mapAuthError(err)
	}
	return nil
}

func (s *Session) complete(ctx context.Context, email string, auth cognito.AuthOutput, name string) (model.Principal, error) {
	p, err := s.establish(ctx, auth, name)
	if err != nil {
		return model.Principal{}, err
	}

	if auth.RefreshToken != "" {
		if err := s.store.Save(StoredToken{Email: email, RefreshToken: auth.RefreshToken}); err != nil {
			s.logger.Warn("failed to persist session", "error", err)
		}
	}

	s.transition(StateAuthenticated, p, s.credentialsFor(email, auth))
	return p, nil
}

func (s *Session) credentialsFor(email string, auth cognito.AuthOutput) credentials {
	c := credentials{
		email:        email,
		accessToken:  auth.AccessToken,
		refreshToken: auth.RefreshToken,
	}
	if auth.ExpiresIn > 0 {
		c.expiresAt = s.now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	}
	return c
}

// establish verifies the ID token, resolves the application user and binds
// per-principal resources.
func (s *Session) establish(ctx context.Context, auth cognito.AuthOutput, name string) (model.Principal, error) {
	id, err := s.verifier.Verify(ctx, auth.IDToken)
	if err != nil {
		return model.Principal{}, fmt.Errorf("verify id token: %w", err)
	}

	user, err := s.resolveUser(ctx, id, name)
	if err != nil {
		return model.Principal{}, fmt.Errorf("resolve user: %w", err)
	}
	p := user.Principal()

	if err := s.binder.Bind(ctx, p); err != nil {
		s.binder.Unbind()
		return model.Principal{}, fmt.Errorf("bind principal: %w", err)
	}
	return p, nil
}

// resolveUser reuses a known user unless a sign-up name or a changed email
// has to be written.
func (s *Session) resolveUser(ctx context.Context, id cognito.Identity, name string) (model.User, error) {
	if name == "" {
		user, err := s.users.GetByCognitoSub(ctx, id.Subject)
		switch {
		case err == nil && user.Email == id.Email:
			return user, nil
		case err != nil && !errors.Is(err, repository.ErrUserNotFound):
			return model.User{}, err
		}
		name = id.Name
	}
	return s.users.GetOrCreate(ctx, id.Subject, id.Email, name)
}

// SignOut releases the principal's resources, then clears the identity.
// Remote sign-out is best effort.
func (s *Session) SignOut(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.require(StateAuthenticated); err != nil {
		return err
	}

	s.binder.Unbind()

	accessToken, err := s.currentAccessToken(ctx)
	switch {
	case err != nil:
		s.logger.Warn("remote sign-out skipped", "error", err)
	case accessToken != "":
		if err := s.client.GlobalSignOut(ctx, cognito.GlobalSignOutInput{AccessToken: accessToken}); err != nil {
			s.logger.Warn("remote sign-out failed", "error", err)
		}
	}
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("failed to clear stored session", "error", err)
	}

	s.transition(StateAnonymous, model.Principal{}, credentials{})
	return nil
}

// currentAccessToken returns the held access token, refreshed first when
// it is within accessTokenMargin of expiry.
func (s *Session) currentAccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	c := s.creds
	s.mu.RUnlock()

	if c.accessToken == "" || c.expiresAt.IsZero() || c.refreshToken == "" {
		return c.accessToken, nil
	}
	if s.now().Before(c.expiresAt.Add(-accessTokenMargin)) {
		return c.accessToken, nil
	}

	auth, err := s.client.RefreshTokens(ctx, cognito.RefreshInput{Email: c.email, RefreshToken: c.refreshToken})
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	return auth.AccessToken, nil
}

func (s *Session) require(want State) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != want {
		return fmt.Errorf("%w: session is %s", ErrInvalidTransition, s.state)
	}
	return nil
}

func (s *Session) transition(to State, p model.Principal, creds credentials) {
	s.mu.Lock()
	from := s.state
	if !canTransition(from, to) {
		s.mu.Unlock()
		s.logger.Error("illegal session transition", "from", from.String(), "to", to.String())
		return
	}
	s.state = to
	s.principal = p
	s.creds = creds
	st := s.statusLocked()
	for ch := range s.watchers {
		offer(ch, st)
	}
	s.mu.Unlock()

	metrics.SessionTransitions.WithLabelValues(from.String(), to.String()).Inc()
	s.logger.Info("session state changed", "from", from.String(), "to", to.String(), "user_id", p.ID)
}

// Watch delivers the current status and then every change. A slow reader
// only sees the latest status. The channel closes when ctx ends.
func (s *Session) Watch(ctx context.Context) <-chan Status {
	ch := make(chan Status, 1)

	s.mu.Lock()
	ch <- s.statusLocked()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		s.mu.Unlock()
		close(ch)
	}()

	return ch
}

func offer(ch chan Status, st Status) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, cognito.ErrNotAuthorized), errors.Is(err, cognito.ErrUserNotFound):
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	case errors.Is(err, cognito.ErrUserAlreadyExists):
		return fmt.Errorf("%w: %v", ErrEmailAlreadyExists, err)
	case errors.Is(err, cognito.ErrUserNotConfirmed):
		return fmt.Errorf("%w: %v", ErrUserNotConfirmed, err)
	case errors.Is(err, cognito.ErrInvalidCode), errors.Is(err, cognito.ErrCodeExpired):
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return err
}
