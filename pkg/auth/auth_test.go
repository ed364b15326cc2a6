package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	gen, err := NewJWTGenerator("secret", "vctalenthub", []string{"graph"}, time.Hour)
	require.NoError(t, err)
	v, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256", SecretKey: "secret", Issuer: "vctalenthub", Audience: []string{"graph"}})
	require.NoError(t, err)

	token, err := gen.GenerateToken("alice", "alice@example.com", []string{"member"})
	require.NoError(t, err)

	claims, err := v.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, []string{"member"}, claims.Roles)
}

func TestJWT_Rejections(t *testing.T) {
	v, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256", SecretKey: "secret", Issuer: "vctalenthub"})
	require.NoError(t, err)

	_, err = v.ValidateToken("  ")
	assert.ErrorIs(t, err, ErrMissingToken)

	other, _ := NewJWTGenerator("other-secret", "vctalenthub", nil, time.Hour)
	forged, _ := other.GenerateToken("alice", "", nil)
	_, err = v.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	wrongIssuer, _ := NewJWTGenerator("secret", "someone-else", nil, time.Hour)
	token, _ := wrongIssuer.GenerateToken("alice", "", nil)
	_, err = v.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "vctalenthub",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "vctalenthub"},
	})
	signed, err = noSubject.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestNewJWTValidator_Config(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256"})
	assert.Error(t, err)
	_, err = NewJWTValidator(JWTConfig{SigningMethod: "RS256"})
	assert.Error(t, err)
	_, err = NewJWTValidator(JWTConfig{SigningMethod: "ES512", SecretKey: "x"})
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "alice"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserID)
}

func TestKeyedLimiter(t *testing.T) {
	l := NewKeyedLimiter(60, 2, time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"), "burst exhausted")
	assert.True(t, l.Allow("5.6.7.8"), "keys are independent")
	assert.Greater(t, l.RetryAfter("1.2.3.4"), time.Duration(0))

	l.evictIdle(time.Now().Add(2 * time.Minute))
	assert.True(t, l.Allow("1.2.3.4"), "evicted bucket starts full")
}
