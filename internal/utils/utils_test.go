package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestAccessToken_RoundTrip(t *testing.T) {
    now := time.Now()
    tok, err := NewAccessToken("s3cret", "admin", RoleAdmin, time.Hour, now)
    require.NoError(t, err)
    assert.Equal(t, now.UTC().Add(time.Hour).Unix(), tok.Exp.Unix())

    claims, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, Claims{Subject: "admin", Role: RoleAdmin}, claims)
}

func TestAccessToken_Rejected(t *testing.T) {
    now := time.Now()
    tok, err := NewAccessToken("s3cret", "admin", RoleAdmin, time.Hour, now)
    require.NoError(t, err)

    _, err = ParseAccessToken("other", tok.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    expired, err := NewAccessToken("s3cret", "admin", RoleAdmin, time.Minute, now.Add(-2*time.Hour))
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", expired.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
        "sub": "admin", "role": RoleAdmin, "exp": now.Add(time.Hour).Unix(),
    }).SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", none)
    assert.ErrorIs(t, err, ErrInvalidToken)

    _, err = ParseAccessToken("s3cret", "garbage")
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
    hash, err := HashPassword("hunter2", bcrypt.MinCost)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "hunter2"))
    assert.False(t, VerifyPassword(hash, "hunter3"))
    assert.False(t, VerifyPassword("not-a-hash", "hunter2"))
    assert.False(t, VerifyPassword(hash, ""))
    assert.NoError(t, CheckHash(hash))
    assert.Error(t, CheckHash("plain-text"))

    _, err = HashPassword("", bcrypt.MinCost)
    assert.ErrorIs(t, err, ErrEmptyPassword)
}
