// Package services provides technical concerns like session tokens
package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T) TokenService {
	t.Helper()
	svc, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		issuer      string
		audience    string
		secretKey   string
		expectError bool
	}{
		{name: "valid configuration", ttl: 15 * time.Minute, issuer: "test-issuer", audience: "test-audience", secretKey: testSecret},
		{name: "missing secret key", ttl: 15 * time.Minute, secretKey: "", expectError: true},
		{name: "non-positive ttl", ttl: 0, secretKey: testSecret, expectError: true},
		{name: "empty issuer and audience", ttl: time.Minute, secretKey: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(tt.ttl, tt.issuer, tt.audience, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, service)
		})
	}
}

func TestGenerateAndValidateSessionToken(t *testing.T) {
	svc := createTestTokenService(t)
	sessionID := uuid.New()

	token, issued, err := svc.GenerateSessionToken(sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, sessionID, issued.SessionID)
	assert.Len(t, issued.TokenID, 32)
	assert.Equal(t, 15*time.Minute, issued.ExpiresAt.Sub(issued.IssuedAt))

	claims, err := svc.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, issued.SessionID, claims.SessionID)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.Equal(t, issued.ExpiresAt, claims.ExpiresAt)
}

func TestValidateSessionTokenRejects(t *testing.T) {
	svc := createTestTokenService(t)
	now := time.Now()

	sign := func(secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"session_id": uuid.NewString(),
			"token_type": "session",
			"jti":        "abc",
			"iat":        now.Unix(),
			"exp":        now.Add(time.Minute).Unix(),
			"iss":        "test-issuer",
			"aud":        "test-audience",
		}
	}
	with := func(key string, value any) jwt.MapClaims {
		c := base()
		if value == nil {
			delete(c, key)
		} else {
			c[key] = value
		}
		return c
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "garbage", token: "not-a-token", want: ErrTokenInvalid},
		{name: "wrong secret", token: sign("another-secret-another-secret-00", jwt.SigningMethodHS256, base()), want: ErrTokenInvalid},
		{name: "wrong algorithm", token: sign(testSecret, jwt.SigningMethodHS512, base()), want: ErrTokenInvalid},
		{name: "expired", token: sign(testSecret, jwt.SigningMethodHS256, with("exp", now.Add(-time.Minute).Unix())), want: ErrTokenExpired},
		{name: "missing expiry", token: sign(testSecret, jwt.SigningMethodHS256, with("exp", nil)), want: ErrTokenInvalid},
		{name: "wrong issuer", token: sign(testSecret, jwt.SigningMethodHS256, with("iss", "someone-else")), want: ErrTokenInvalid},
		{name: "wrong audience", token: sign(testSecret, jwt.SigningMethodHS256, with("aud", "someone-else")), want: ErrTokenInvalid},
		{name: "wrong token type", token: sign(testSecret, jwt.SigningMethodHS256, with("token_type", "access")), want: ErrTokenInvalid},
		{name: "malformed session id", token: sign(testSecret, jwt.SigningMethodHS256, with("session_id", "42")), want: ErrTokenInvalid},
		{name: "missing jti", token: sign(testSecret, jwt.SigningMethodHS256, with("jti", nil)), want: ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateSessionToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, claims)
		})
	}
}

func TestRevokeToken(t *testing.T) {
	svc := createTestTokenService(t)

	token, claims, err := svc.GenerateSessionToken(uuid.New())
	require.NoError(t, err)
	other, _, err := svc.GenerateSessionToken(uuid.New())
	require.NoError(t, err)

	assert.False(t, svc.IsTokenRevoked(claims.TokenID))
	require.NoError(t, svc.RevokeToken(token))
	assert.True(t, svc.IsTokenRevoked(claims.TokenID))

	_, err = svc.ValidateSessionToken(token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.ValidateSessionToken(other)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.RevokeToken("garbage"), ErrTokenInvalid)
}
