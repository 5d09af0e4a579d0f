// Package middleware provides the HTTP middleware chain: authentication,
// rate limiting, logging, tracing and metrics.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"blogicum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenIssuer and TokenAudience are stamped on every issued token.
	TokenIssuer   = "blogicum-api"
	TokenAudience = "blogicum-client"
	// AuthCookie carries the token for browser clients.
	AuthCookie = "blogicum_token"

	localTokenID      = "tokenID"
	localTokenExpires = "tokenExpires"
)

// ErrInvalidToken is returned for tokens that fail any verification step.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the decoded identity carried by a token.
type Claims struct {
	UserID    uint
	Username  string
	ID        string
	ExpiresAt time.Time
}

// RevocationChecker reports whether a token id was revoked at logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager; a non-positive ttl defaults to seven days.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user.
func (m *TokenManager) Issue(userID uint, username string) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		ID:        uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      claims.ExpiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      claims.ID,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse validates signature, issuer, audience and lifetime and returns the claims.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	out := &Claims{UserID: uint(userID)}
	out.Username, _ = claims["username"].(string)
	out.ID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// tokenFromRequest reads a bearer token from the Authorization header or the auth cookie.
func tokenFromRequest(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(AuthCookie)
}

// Authenticate resolves the request's user when a valid token is present.
// Anonymous requests pass through untouched; individual routes decide
// whether a user is required. onCheckError decides what happens when the
// revocation store cannot be asked: FailOpen trusts the token, FailClosed
// treats the request as anonymous.
func Authenticate(tm *TokenManager, revoked RevocationChecker, onCheckError FailPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := tokenFromRequest(c)
		if raw == "" {
			return c.Next()
		}

		claims, err := tm.Parse(raw)
		if err != nil {
			return c.Next()
		}

		if claims.ID != "" && revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.UserContext(), claims.ID)
			if err != nil {
				Logger.WarnContext(c.UserContext(), "token revocation check failed",
					slog.String("error", err.Error()),
					slog.Bool("fail_closed", onCheckError == FailClosed))
				if onCheckError == FailClosed {
					return c.Next()
				}
			}
			if isRevoked {
				return c.Next()
			}
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(localTokenID, claims.ID)
		c.Locals(localTokenExpires, claims.ExpiresAt)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
		return c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or 0 for anonymous requests.
func CurrentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals(LocalUserID).(uint); ok {
		return uid
	}
	return 0
}

// CurrentToken returns the id and expiry of the token that authenticated the request.
func CurrentToken(c *fiber.Ctx) (string, time.Time, bool) {
	jti, ok := c.Locals(localTokenID).(string)
	if !ok || jti == "" {
		return "", time.Time{}, false
	}
	exp, _ := c.Locals(localTokenExpires).(time.Time)
	return jti, exp, true
}

// LoginRedirect builds the login URL that returns the user to next afterwards.
func LoginRedirect(loginPath, next string) string {
	if next == "" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

// RequireUser redirects anonymous requests to loginPath instead of failing them.
func RequireUser(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUserID(c) == 0 {
			return models.RespondWithRedirect(c, LoginRedirect(loginPath, c.OriginalURL()))
		}
		return c.Next()
	}
}
