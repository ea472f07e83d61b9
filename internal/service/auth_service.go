package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/xxxsen/docscan/internal/model"
	appErr "github.com/xxxsen/docscan/internal/pkg/errors"
	"github.com/xxxsen/docscan/internal/pkg/jwt"
	"github.com/xxxsen/docscan/internal/pkg/password"
	"github.com/xxxsen/docscan/internal/pkg/timeutil"
	"github.com/xxxsen/docscan/internal/session"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
}

type AuthService struct {
	users     UserStore
	sessions  *session.Manager
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users UserStore, sessions *session.Manager, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, sessions: sessions, jwtSecret: secret, jwtTTL: ttl}
}

func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", fmt.Errorf("invalid email: %w", appErr.ErrInvalid)
	}
	if err := password.Validate(plainPassword); err != nil {
		return nil, "", err
	}
	now := timeutil.NowUnix()
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, "", appErr.ErrUnauthorized
		}
		return nil, "", err
	}
	if !password.Match(user.PasswordHash, plainPassword) {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout drops the session state bound to the token. The token itself is
// not revoked.
func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	if sessionID != "" {
		s.sessions.Remove(sessionID)
	}
}

func (s *AuthService) issue(user *model.User) (string, error) {
	sess := s.sessions.Create(user.ID)
	token, err := jwt.GenerateToken(user.ID, user.Email, sess.ID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		s.sessions.Remove(sess.ID)
		return "", err
	}
	return token, nil
}
