package security

import (
	"errors"
	"time"

	"github.com/clarion-legal/careers/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// Token purposes. A login token proves a fresh credential check and is only
// exchangeable for a session cookie; a session token is the cookie itself.
const (
	PurposeLogin   = "login"
	PurposeSession = "session"
)

// LoginTokenTTL bounds the window between credential login and session mint.
const LoginTokenTTL = 5 * time.Minute

// SessionClaims defines the claims carried by login and session tokens.
type SessionClaims struct {
	UID             string `json:"uid"`
	Email           string `json:"email"`
	Name            string `json:"name,omitempty"`
	Admin           bool   `json:"admin"`
	SuperAdmin      bool   `json:"superAdmin,omitempty"`
	RestrictedAdmin bool   `json:"restrictedAdmin,omitempty"`
	Purpose         string `json:"purpose"`
	jwt.RegisteredClaims
}

// CustomClaims returns the role-claim map in the shape exposed by the
// session-read endpoint.
func (c *SessionClaims) CustomClaims() map[string]bool {
	claims := map[string]bool{"admin": c.Admin}
	if c.SuperAdmin {
		claims["superAdmin"] = true
	}
	if c.RestrictedAdmin {
		claims["restrictedAdmin"] = true
	}
	return claims
}

// GenerateLoginToken signs a short-lived token proving a credential login.
func GenerateLoginToken(secret string, admin *models.Admin) (string, error) {
	return generateToken(secret, admin, PurposeLogin, LoginTokenTTL)
}

// GenerateSessionToken signs a session token with the configured TTL.
func GenerateSessionToken(secret string, admin *models.Admin, ttl time.Duration) (string, error) {
	return generateToken(secret, admin, PurposeSession, ttl)
}

func generateToken(secret string, admin *models.Admin, purpose string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		UID:             admin.ID,
		Email:           admin.Email,
		Name:            admin.DisplayName,
		Admin:           true,
		SuperAdmin:      admin.IsSuperAdmin,
		RestrictedAdmin: admin.IsRestrictedAdmin,
		Purpose:         purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseLoginToken validates a login token and returns its claims.
func ParseLoginToken(secret, tokenString string) (*SessionClaims, error) {
	return parseToken(secret, tokenString, PurposeLogin)
}

// ParseSessionToken validates a session token and returns its claims.
//
// Revocation is not checked here: the caller compares IssuedAt against the
// principal's revocation watermark.
func ParseSessionToken(secret, tokenString string) (*SessionClaims, error) {
	return parseToken(secret, tokenString, PurposeSession)
}

func parseToken(secret, tokenString, purpose string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RevokedSince reports whether a token issued at issuedAt predates the
// principal's revocation watermark.
func RevokedSince(issuedAt time.Time, revokedAt *time.Time) bool {
	if revokedAt == nil {
		return false
	}
	return !issuedAt.After(*revokedAt)
}
