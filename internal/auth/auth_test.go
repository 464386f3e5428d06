package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdusco/snip/internal"
	"github.com/abdusco/snip/internal/repo"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	ctx := context.Background()
	stores, err := repo.Open(ctx, filepath.Join(t.TempDir(), "snip.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close(ctx) })

	a := NewAuthenticator(stores.Users, NewTokens(testSecret), false)
	a.cost = bcrypt.MinCost
	return a
}

func TestTokens_SignAndVerify(t *testing.T) {
	tokens := NewTokens(testSecret)

	signed, err := tokens.Sign("user-1")
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(6*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokens_RejectsExpired(t *testing.T) {
	tokens := NewTokens(testSecret)
	tokens.now = func() time.Time { return time.Now().Add(-7 * time.Hour) }

	signed, err := tokens.Sign("user-1")
	require.NoError(t, err)

	_, err = NewTokens(testSecret).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsForeignSignature(t *testing.T) {
	signed, err := NewTokens("other-secret").Sign("user-1")
	require.NoError(t, err)

	_, err = NewTokens(testSecret).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsTamperedPayload(t *testing.T) {
	tokens := NewTokens(testSecret)
	signed, err := tokens.Sign("user-1")
	require.NoError(t, err)

	other, err := tokens.Sign("user-2")
	require.NoError(t, err)

	// splice user-2's payload onto user-1's signature
	a := strings.Split(signed, ".")
	b := strings.Split(other, ".")
	forged := strings.Join([]string{a[0], b[1], a[2]}, ".")

	_, err = tokens.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegister(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	user, token, err := a.Register(ctx, " Ada ", " Ada@Example.com", "hunter22")
	require.NoError(t, err)

	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, internal.AvatarURL("ada@example.com"), user.Avatar)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))

	claims, err := a.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegister_UsesSlowHash(t *testing.T) {
	a := newTestAuthenticator(t)
	a.cost = passwordCost

	user, _, err := a.Register(context.Background(), "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(user.PasswordHash))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cost, 10)
}

func TestRegister_DuplicateEmailIsConflict(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	_, _, err := a.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = a.Register(ctx, "Imposter", "ADA@example.com", "password")
	assert.ErrorIs(t, err, internal.ErrEmailExists)
	assert.ErrorIs(t, err, internal.ErrConflict)
}

func TestRegister_Validation(t *testing.T) {
	a := newTestAuthenticator(t)

	tests := []struct {
		name, userName, email, password string
	}{
		{"missing name", "", "ada@example.com", "hunter22"},
		{"missing email", "Ada", "", "hunter22"},
		{"malformed email", "Ada", "ada.example.com", "hunter22"},
		{"short password", "Ada", "ada@example.com", "123"},
		{"password over bcrypt limit", "Ada", "ada@example.com", strings.Repeat("p", 80)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := a.Register(context.Background(), tt.userName, tt.email, tt.password)
			assert.ErrorIs(t, err, internal.ErrValidation)
		})
	}
}

func TestLogin(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	registered, _, err := a.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	user, token, err := a.Login(ctx, "ADA@example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	resolved, ok := a.Identify(ctx, token)
	require.True(t, ok)
	assert.Equal(t, registered.ID, resolved.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	_, _, err := a.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = a.Login(ctx, "ada@example.com", "hunter23")
	assert.ErrorIs(t, err, internal.ErrInvalidCredentials)
	assert.ErrorIs(t, err, internal.ErrUnauthorized)
}

func TestLogin_UnknownEmail(t *testing.T) {
	a := newTestAuthenticator(t)

	_, _, err := a.Login(context.Background(), "ghost@example.com", "hunter22")
	assert.ErrorIs(t, err, internal.ErrUnauthorized)
}

func TestIdentify_UnknownUser(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.tokens.Sign(uuid.NewString())
	require.NoError(t, err)

	_, ok := a.Identify(context.Background(), token)
	assert.False(t, ok)
}

func TestCookies(t *testing.T) {
	a := NewAuthenticator(nil, NewTokens(testSecret), true)

	cookie := a.Cookie("tok")
	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, "tok", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 6*60*60, cookie.MaxAge)

	expired := a.ExpiredCookie()
	assert.Equal(t, CookieName, expired.Name)
	assert.Empty(t, expired.Value)
	assert.Equal(t, -1, expired.MaxAge)
}

func TestIdentityMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	user, token, err := a.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	expiredTokens := NewTokens(testSecret)
	expiredTokens.now = func() time.Time { return time.Now().Add(-7 * time.Hour) }
	expired, err := expiredTokens.Sign(user.ID)
	require.NoError(t, err)

	forged, err := NewTokens("not-the-secret").Sign(user.ID)
	require.NoError(t, err)

	tests := []struct {
		name     string
		cookie   string
		bearer   string
		wantUser bool
	}{
		{name: "no credentials"},
		{name: "valid cookie", cookie: token, wantUser: true},
		{name: "valid bearer", bearer: token, wantUser: true},
		{name: "expired cookie", cookie: expired},
		{name: "forged cookie", cookie: forged},
		{name: "garbage cookie", cookie: "not.a.jwt"},
		{name: "bad cookie, good bearer", cookie: forged, bearer: token, wantUser: true},
	}

	mw := NewIdentityMiddleware(a)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var got *internal.User
			var present bool
			err := mw(func(c echo.Context) error {
				got, present = UserFrom(c)
				return c.NoContent(http.StatusOK)
			})(c)

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantUser, present)
			if tt.wantUser {
				assert.Equal(t, user.ID, got.ID)
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	e := echo.New()
	handler := RequireUser(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	assert.ErrorIs(t, err, internal.ErrUnauthorized)

	req = req.WithContext(WithUser(req.Context(), &internal.User{ID: "u1"}))
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
