// Package auth registers and logs in users, issues the identity cookie and
// resolves it back to a user on every request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abdusco/snip/internal"
	"github.com/abdusco/snip/internal/repo"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	passwordCost      = 10
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and rejects longer input
	maxPasswordLength = 72
)

type Authenticator struct {
	users         repo.UserStore
	tokens        *Tokens
	secureCookies bool
	cost          int
}

// NewAuthenticator wires the user store to token signing. secureCookies marks
// the identity cookie Secure, which production deployments behind TLS need.
func NewAuthenticator(users repo.UserStore, tokens *Tokens, secureCookies bool) *Authenticator {
	return &Authenticator{
		users:         users,
		tokens:        tokens,
		secureCookies: secureCookies,
		cost:          passwordCost,
	}
}

// Register creates an account and returns it with a fresh token.
func (a *Authenticator) Register(ctx context.Context, name, email, password string) (*internal.User, string, error) {
	name = strings.TrimSpace(name)
	email = internal.NormalizeEmail(email)

	switch {
	case name == "":
		return nil, "", internal.Validationf("name is required")
	case email == "" || !strings.Contains(email, "@"):
		return nil, "", internal.Validationf("a valid email is required")
	case len(password) < minPasswordLength:
		return nil, "", internal.Validationf("password must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordLength:
		return nil, "", internal.Validationf("password must be at most %d bytes", maxPasswordLength)
	}

	_, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, "", internal.ErrEmailExists
	}
	if !errors.Is(err, internal.ErrUserNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate id: %w", err)
	}

	now := time.Now().UTC()
	user := &internal.User{
		ID:           id.String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Avatar:       internal.AvatarURL(email),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// a concurrent signup with the same email still loses on the unique index
	if err := a.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := a.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", err
	}

	log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, token, nil
}

// Login checks credentials and returns the user with a fresh token. Unknown
// emails and wrong passwords both fail with internal.ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*internal.User, string, error) {
	user, err := a.users.GetByEmail(ctx, internal.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, "", internal.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Debug().Str("user_id", user.ID).Msg("password mismatch")
		return nil, "", internal.ErrInvalidCredentials
	}

	token, err := a.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", err
	}

	log.Info().Str("user_id", user.ID).Msg("user logged in")
	return user, token, nil
}

// Identify resolves a token to its user. Any failure (bad signature, expiry,
// deleted user, store error) yields no identity.
func (a *Authenticator) Identify(ctx context.Context, token string) (*internal.User, bool) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		log.Debug().Err(err).Msg("ignoring invalid token")
		return nil, false
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Msg("token user could not be resolved")
		return nil, false
	}
	return user, true
}

func (a *Authenticator) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(tokenExpiry / time.Second),
	}
}

func (a *Authenticator) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	}
}
