package utils // package utils provides helper functions for admin tokens and hashing

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// RoleAdmin is the only role the admin token carries.
const RoleAdmin = "ADMIN"

var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// Claims is what the admin middleware needs from a verified token.
type Claims struct {
    Subject string
    Role    string
}

// NewAccessToken builds and signs an HS256 JWT carrying sub, role, exp and
// iat.  now is passed in so callers can stamp tokens with their clock.
func NewAccessToken(secret, subject, role string, ttl time.Duration, now time.Time) (AccessToken, error) {
    exp := now.UTC().Add(ttl)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.UTC().Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry and returns the claims.
// Tokens signed with anything but HMAC are rejected.
func ParseAccessToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    sub, _ := mc["sub"].(string)
    role, _ := mc["role"].(string)
    return Claims{Subject: sub, Role: role}, nil
}
