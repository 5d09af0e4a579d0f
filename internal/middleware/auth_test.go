package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"blogicum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type revocationStub struct {
	revoked map[string]bool
	err     error
}

func (s *revocationStub) IsRevoked(_ context.Context, jti string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[jti], nil
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	raw, issued, err := tm.Issue(123, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := tm.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(123), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, issued.ID, claims.ID)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": strconv.Itoa(5),
			"iss": TokenIssuer,
			"aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	expired := base()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	wrongIssuer := base()
	wrongIssuer["iss"] = "someone-else"
	wrongAudience := base()
	wrongAudience["aud"] = "other-client"
	noExpiry := base()
	delete(noExpiry, "exp")
	badSubject := base()
	badSubject["sub"] = "not-a-number"

	tests := map[string]string{
		"expired":        sign(expired, testSecret),
		"wrong issuer":   sign(wrongIssuer, testSecret),
		"wrong audience": sign(wrongAudience, testSecret),
		"no expiry":      sign(noExpiry, testSecret),
		"bad subject":    sign(badSubject, testSecret),
		"wrong secret":   sign(base(), "another-secret-another-secret-another"),
		"garbage":        "not.a.token",
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tm.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func newAuthApp(tm *TokenManager, revoked RevocationChecker, policy ...FailPolicy) *fiber.App {
	onCheckError := FailClosed
	if len(policy) > 0 {
		onCheckError = policy[0]
	}
	app := fiber.New()
	app.Use(Authenticate(tm, revoked, onCheckError))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": CurrentUserID(c)})
	})
	app.Post("/posts/create", RequireUser("/auth/login/"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func whoami(t *testing.T, app *fiber.App, setup func(*http.Request)) uint {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	setup(req)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UserID uint `json:"user_id"`
	}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.UserID
}

func TestAuthenticate(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	raw, claims, err := tm.Issue(9, "bob")
	require.NoError(t, err)

	revoked := &revocationStub{revoked: map[string]bool{}}
	app := newAuthApp(tm, revoked)

	assert.Equal(t, uint(9), whoami(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+raw)
	}))
	assert.Equal(t, uint(9), whoami(t, app, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AuthCookie, Value: raw})
	}))
	assert.Equal(t, uint(0), whoami(t, app, func(*http.Request) {}))
	assert.Equal(t, uint(0), whoami(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	}))
	assert.Equal(t, uint(0), whoami(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	}))

	revoked.revoked[claims.ID] = true
	assert.Equal(t, uint(0), whoami(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+raw)
	}))
}

func TestAuthenticate_RevocationStoreDown(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	raw, _, err := tm.Issue(4, "dora")
	require.NoError(t, err)
	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+raw) }
	down := &revocationStub{err: errors.New("connection refused")}

	assert.Equal(t, uint(0), whoami(t, newAuthApp(tm, down, FailClosed), bearer))
	assert.Equal(t, uint(4), whoami(t, newAuthApp(tm, down, FailOpen), bearer))

	// Without a revocation store there is nothing to fail.
	assert.Equal(t, uint(4), whoami(t, newAuthApp(tm, nil, FailClosed), bearer))
}

func TestRequireUser_RedirectsAnonymous(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	app := newAuthApp(tm, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/posts/create", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next=%2Fposts%2Fcreate", resp.Header.Get("Location"))

	var body models.RedirectResponse
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "/auth/login/?next=%2Fposts%2Fcreate", body.Redirect)

	token, _, err := tm.Issue(1, "carol")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/posts/create", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestLoginRedirect(t *testing.T) {
	assert.Equal(t, "/auth/login/", LoginRedirect("/auth/login/", ""))
	assert.Equal(t, "/auth/login/?next=%2Fedit_profile%2F", LoginRedirect("/auth/login/", "/edit_profile/"))
}
