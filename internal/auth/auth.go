// Package auth owns the authenticated identity: credential checks, session
// tokens, session-change notification, and lazy profile provisioning.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fileportal/internal/config"
	"fileportal/internal/model"
	"fileportal/internal/repository"
)

var (
	ErrEmailRequired      = errors.New("email and password are required")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrProfileNotFound    = errors.New("profile not found")
)

// Session is an authenticated identity with its bearer token.
type Session struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignUpAttrs are optional attributes carried into the new user's profile.
// When Role is empty, no profile is created up front; the profile is
// provisioned on first sign-in instead.
type SignUpAttrs struct {
	Role      model.Role
	CompanyID string
}

// Service manages identity and the current session. Session-change
// subscribers are notified on sign-in and sign-out; Subscribe returns a
// cancel func rather than exposing the callback list.
type Service struct {
	accounts repository.AccountRepository
	profiles repository.ProfileRepository
	cfg      config.AuthConfig

	mu      sync.Mutex
	current *Session
	subs    map[int]func(*Session)
	nextSub int
}

// NewService constructs an auth Service.
func NewService(accounts repository.AccountRepository, profiles repository.ProfileRepository, cfg config.AuthConfig) *Service {
	return &Service{
		accounts: accounts,
		profiles: profiles,
		cfg:      cfg,
		subs:     make(map[int]func(*Session)),
	}
}

// SignUp registers a new identity. Attributes, when present, also create the
// application profile (the user-management path); a plain sign-up defers the
// profile to the first sign-in.
func (s *Service) SignUp(ctx context.Context, email, password string, attrs SignUpAttrs) (*model.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrEmailRequired
	}

	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.Create(ctx, &model.Account{Email: email, PasswordHash: string(hash)})
	if err != nil {
		return nil, err
	}

	if attrs.Role != "" {
		if _, err := s.profiles.Create(ctx, &model.Profile{
			ID:        acc.ID,
			Email:     acc.Email,
			Role:      attrs.Role,
			CompanyID: attrs.CompanyID,
		}); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// SignIn verifies credentials, provisions the profile if it is missing, and
// issues a session token. Subscribers are notified with the new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.ensureProfile(ctx, acc); err != nil {
		// Sign-in still succeeds; the profile can be provisioned later.
		log.Printf("ensure profile for %s: %v", acc.ID, err)
	}

	token, err := signToken([]byte(s.cfg.JWTSecret), acc.ID, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		AccountID: acc.ID,
		Email:     acc.Email,
		Token:     token,
		ExpiresAt: time.Now().Add(s.cfg.TokenTTL),
	}

	s.mu.Lock()
	s.current = sess
	subs := s.snapshotSubs()
	s.mu.Unlock()
	for _, fn := range subs {
		fn(sess)
	}
	return sess, nil
}

// ensureProfile lazily provisions the application profile on first sign-in,
// defaulting the role to "company" with no company assigned.
func (s *Service) ensureProfile(ctx context.Context, acc *model.Account) error {
	_, err := s.profiles.FindByID(ctx, acc.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = s.profiles.Create(ctx, &model.Profile{
		ID:    acc.ID,
		Email: acc.Email,
		Role:  model.RoleCompany,
	})
	return err
}

// SignOut clears the current session and notifies subscribers with nil.
func (s *Service) SignOut() {
	s.mu.Lock()
	s.current = nil
	subs := s.snapshotSubs()
	s.mu.Unlock()
	for _, fn := range subs {
		fn(nil)
	}
}

// CurrentSession returns the active session, or nil when signed out.
func (s *Service) CurrentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers a session-change callback and returns a cancel func.
// If a session is already active the callback fires immediately.
func (s *Service) Subscribe(fn func(*Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := s.current
	s.mu.Unlock()

	if current != nil {
		fn(current)
	}
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) snapshotSubs() []func(*Session) {
	out := make([]func(*Session), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	return parseToken([]byte(s.cfg.JWTSecret), token)
}

// Profile returns the application profile layered over an account.
func (s *Service) Profile(ctx context.Context, accountID string) (*model.Profile, error) {
	p, err := s.profiles.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// ResetPassword issues a single-use reset token for the account. An unknown
// email returns no error and no token so addresses cannot be probed.
// Delivering the token (e.g. by email) is outside this service.
func (s *Service) ResetPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	expiry := time.Now().Add(s.cfg.ResetTokenTTL).Unix()
	if err := s.accounts.SetResetToken(ctx, acc.ID, token, expiry); err != nil {
		return "", err
	}
	return token, nil
}
