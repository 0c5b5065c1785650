package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"mtolling/internal/domain"
	"mtolling/internal/logging"
	"mtolling/internal/repository"
)

var emailPattern = regexp.MustCompile(
	`^[a-zA-Z0-9+._%\-]{1,256}@[a-zA-Z0-9][a-zA-Z0-9\-]{0,64}(\.[a-zA-Z0-9][a-zA-Z0-9\-]{0,25})+$`,
)

// AuthAPI is the remote login call.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (domain.AuthToken, error)
}

// TokenSource yields the bearer token for authenticated calls.
type TokenSource interface {
	// ValidToken returns the stored token when it is present and not expired.
	ValidToken(ctx context.Context) (string, bool)
}

// AuthService owns login, logout and the stored session token.
type AuthService struct {
	store repository.CredentialStore
	api   AuthAPI
	log   *logrus.Entry
	now   func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.CredentialStore, api AuthAPI, log *logrus.Entry) *AuthService {
	if log == nil {
		log = logging.Discard()
	}
	return &AuthService{store: store, api: api, log: log, now: time.Now}
}

// ValidateCredentials checks the inputs locally, before any network call.
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return ErrEmptyCredentials
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// Login authenticates and persists the token and email together.
// Nothing is persisted on failure.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.AuthToken, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return domain.AuthToken{}, err
	}
	email = strings.TrimSpace(email)

	log := s.log.WithField("user", logging.MaskEmail(email))
	log.Info("login attempt")

	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		log.WithError(err).Warn("login failed")
		return domain.AuthToken{}, err
	}

	if err := s.store.SetString(ctx, repository.KeyAuthToken, token.Value); err != nil {
		return domain.AuthToken{}, fmt.Errorf("store token: %w", err)
	}
	if err := s.store.SetString(ctx, repository.KeyUserEmail, email); err != nil {
		if delErr := s.store.Delete(ctx, repository.KeyAuthToken); delErr != nil {
			log.WithError(delErr).Error("rollback of token write failed")
		}
		return domain.AuthToken{}, fmt.Errorf("store email: %w", err)
	}

	log.WithField("token_preview", logging.MaskToken(token.Value)).Info("login succeeded")
	return s.decorate(token.Value), nil
}

// Logout clears the auth keys. Preferences are kept.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, repository.AuthKeys...); err != nil {
		return fmt.Errorf("clear auth data: %w", err)
	}
	s.log.Info("logged out")
	return nil
}

// IsLoggedIn reports whether a non-empty, unexpired token is stored.
func (s *AuthService) IsLoggedIn(ctx context.Context) bool {
	_, ok := s.ValidToken(ctx)
	return ok
}

// ValidToken implements TokenSource.
func (s *AuthService) ValidToken(ctx context.Context) (string, bool) {
	token, err := s.GetAuthToken(ctx)
	if err != nil || token == nil {
		return "", false
	}
	if !token.IsValid(s.now()) {
		return "", false
	}
	return token.Value, true
}

// GetAuthToken returns the stored token, or nil when unset.
func (s *AuthService) GetAuthToken(ctx context.Context) (*domain.AuthToken, error) {
	value, err := s.store.GetString(ctx, repository.KeyAuthToken)
	if err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	token := s.decorate(value)
	return &token, nil
}

// GetCurrentUser returns the signed-in user, or nil when no email is stored.
func (s *AuthService) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	email, err := s.store.GetString(ctx, repository.KeyUserEmail)
	if err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if email == "" {
		return nil, nil
	}
	return &domain.User{ID: email, Email: email, IsLoggedIn: s.IsLoggedIn(ctx)}, nil
}

// decorate reads iat and exp when the token is a JWT. The signature is not checked.
func (s *AuthService) decorate(value string) domain.AuthToken {
	token := domain.AuthToken{Value: value, Scheme: domain.TokenSchemeBearer}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(value, claims); err != nil {
		return token
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		token.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		token.ExpiresAt = &t
	}
	return token
}

var _ TokenSource = (*AuthService)(nil)
