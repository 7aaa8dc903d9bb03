// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"mealtracker/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

const (
	// SessionTTL is the lifetime of a regular session.
	SessionTTL = 24 * time.Hour
	// RememberMeTTL is the lifetime of a session created with remember_me.
	RememberMeTTL = 30 * 24 * time.Hour

	minUsernameLen = 3
	minPasswordLen = 6
)

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = domain.Unauthenticatedf("invalid username or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = domain.Unauthenticatedf("authentication required")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = domain.Unauthenticatedf("invalid or expired session")
	// ErrUserNotFound indicates that the session's user no longer exists.
	ErrUserNotFound = domain.Unauthenticatedf("invalid or expired session")
)

// ClientInfo describes the client a session is issued to.
type ClientInfo struct {
	UserAgent string
	IP        string
}

// IssuedSession is a freshly created session. Token is the only copy of the
// bearer secret; the store keeps its digest.
type IssuedSession struct {
	Token      string
	User       *domain.User
	ExpiresAt  time.Time
	Persistent bool
}

// AuthService handles registration, authentication and session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	now      func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		now:      time.Now,
	}
}

// CreateUser validates the credentials and stores a new user.
func (s *AuthService) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen {
		return nil, domain.Invalidf("username must be at least %d characters", minUsernameLen)
	}
	if len(password) < minPasswordLen {
		return nil, domain.Invalidf("password must be at least %d characters", minPasswordLen)
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Conflictf("username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, username, string(hash))
}

// Register creates a user and signs them in.
func (s *AuthService) Register(ctx context.Context, username, password string, client ClientInfo) (*IssuedSession, error) {
	user, err := s.CreateUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, false, client)
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, username, password string, rememberMe bool, client ClientInfo) (*IssuedSession, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.Invalidf("username and password required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user, rememberMe, client)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, HashToken(token))
}

// ValidateSession checks if a session token is valid and matches the user agent.
func (s *AuthService) ValidateSession(ctx context.Context, token, userAgent string) (*domain.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	digest := HashToken(token)

	session, err := s.sessions.GetByToken(ctx, digest)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionExpired
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, digest)
		return nil, ErrSessionExpired
	}

	if !ConstantTimeCompare(session.UserAgent, userAgent) {
		_ = s.sessions.Delete(ctx, digest)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = s.sessions.Delete(ctx, digest)
		return nil, ErrUserNotFound
	}

	return user, nil
}

// ValidateForwardAuth validates a request from a trusted forward-auth proxy.
// It checks for the Remote-User header set by the proxy.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.User, error) {
	if remoteUser == "" {
		return nil, ErrSessionNotFound
	}

	user, err := s.users.GetByUsername(ctx, remoteUser)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Auto-create user from SSO if they don't exist
		return s.provision(ctx, remoteUser)
	}

	return user, nil
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, username string, client ClientInfo) (*IssuedSession, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.provision(ctx, username)
		if err != nil {
			return nil, err
		}
	}

	return s.issue(ctx, user, false, client)
}

// provision creates a user with no password. An empty hash can never match a
// password login.
func (s *AuthService) provision(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.Create(ctx, username, "")
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}
	// Lost a race with a concurrent first login.
	user, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NotFoundf("user %q not found", username)
	}
	return user, nil
}

// SweepExpired deletes sessions past their expiry.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User, rememberMe bool, client ClientInfo) (*IssuedSession, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	ttl := SessionTTL
	if rememberMe {
		ttl = RememberMeTTL
	}
	expiresAt := s.now().Add(ttl)
	if err := s.sessions.Create(ctx, user.ID, HashToken(token), client.UserAgent, client.IP, expiresAt); err != nil {
		return nil, err
	}

	return &IssuedSession{Token: token, User: user, ExpiresAt: expiresAt, Persistent: rememberMe}, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 digest under which a token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
