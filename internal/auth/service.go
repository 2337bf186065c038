package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/session"
	"github.com/dukerupert/bywater/internal/store"
)

// ErrInvalidOrExpired covers every way a magic token can fail exchange:
// unknown, already used, or past expiry. The causes are deliberately
// indistinguishable so the endpoint cannot be used to probe which tokens
// exist.
var ErrInvalidOrExpired = errors.New("invalid or expired token")

const (
	// LoginTokenTTL bounds how long an emailed sign-in link works.
	LoginTokenTTL = time.Hour
	// InviteTokenTTL is longer; invitees may not see the email for a while.
	InviteTokenTTL = 24 * time.Hour
)

// Service is the token and session authority: it issues and exchanges
// single-use magic tokens and owns the bearer sessions minted from them.
type Service struct {
	tokens   *store.MagicTokenStore
	users    *store.UserStore
	sessions session.Store
}

func NewService(tokens *store.MagicTokenStore, users *store.UserStore, sessions session.Store) *Service {
	return &Service{
		tokens:   tokens,
		users:    users,
		sessions: sessions,
	}
}

// IssueMagicToken creates a single-use token for the user. The expiry policy
// is driven by purpose: one hour for login links, a day for invitations.
// Sending the email is the caller's business.
func (s *Service) IssueMagicToken(userID int64, purpose string) (*model.MagicToken, error) {
	ttl := LoginTokenTTL
	if purpose == model.TokenPurposeInvite {
		ttl = InviteTokenTTL
	}
	return s.tokens.Create(userID, purpose, ttl)
}

// ExchangeMagicToken consumes the token and mints a session for its owner.
// Consumption is atomic: of two concurrent exchanges of the same token,
// exactly one succeeds. Failures all surface as ErrInvalidOrExpired.
func (s *Service) ExchangeMagicToken(token string) (*session.Session, *model.User, error) {
	mt, err := s.tokens.Consume(token)
	if err != nil {
		return nil, nil, fmt.Errorf("consume token: %w", err)
	}
	if mt == nil {
		return nil, nil, ErrInvalidOrExpired
	}

	user, err := s.users.GetByID(mt.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup token owner: %w", err)
	}
	if user == nil || !user.Active {
		return nil, nil, ErrInvalidOrExpired
	}

	if err := s.users.TouchLastLogin(user.ID); err != nil {
		return nil, nil, fmt.Errorf("touch last login: %w", err)
	}

	sess, err := s.sessions.Create(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return sess, user, nil
}

// ValidateSession resolves a bearer token to its session and owning user.
// Returns (nil, nil, nil) when the session is unknown or idle-expired, and
// (sess, nil, nil) when the session exists but its owner is gone or
// deactivated.
func (s *Service) ValidateSession(token string) (*session.Session, *model.User, error) {
	sess, err := s.sessions.Validate(token)
	if err != nil {
		return nil, nil, fmt.Errorf("validate session: %w", err)
	}
	if sess == nil {
		return nil, nil, nil
	}

	user, err := s.users.GetByID(sess.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup session owner: %w", err)
	}
	if user == nil || !user.Active {
		return sess, nil, nil
	}
	return sess, user, nil
}

// Logout discards the session. Unknown tokens are a no-op.
func (s *Service) Logout(token string) error {
	return s.sessions.Delete(token)
}
