package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func TestJWTGenerator(t *testing.T) {
	pemData := generateTestKey(t)
	gen, err := NewJWTGenerator(12345, pemData)
	require.NoError(t, err)

	signed, err := gen.Generate()
	require.NoError(t, err)

	block, _ := pem.Decode(pemData)
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "12345", claims.Issuer)
	assert.LessOrEqual(t, claims.ExpiresAt.Sub(claims.IssuedAt.Time), MaxJWTDuration)
}

func TestNewJWTGeneratorErrors(t *testing.T) {
	_, err := NewJWTGenerator(0, generateTestKey(t))
	assert.Error(t, err)

	_, err = NewJWTGenerator(1, []byte("not a pem"))
	assert.Error(t, err)

	_, err = NewTokenManager(1, 0, generateTestKey(t))
	assert.Error(t, err)
}

func TestTokenManagerRefreshesBeforeExpiry(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/app/installations/99/access_tokens", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"token":      fmt.Sprintf("ghs_%d", calls),
			"expires_at": now.Add(time.Hour).Format(time.RFC3339),
		})
	}))
	t.Cleanup(server.Close)

	clock := now
	tm, err := NewTokenManager(1, 99, generateTestKey(t), WithTokenBaseURL(server.URL), WithTokenClock(func() time.Time { return clock }))
	require.NoError(t, err)
	ctx := context.Background()

	token, err := tm.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ghs_1", token)

	clock = now.Add(50 * time.Minute)
	token, err = tm.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ghs_1", token)

	clock = now.Add(56 * time.Minute)
	token, err = tm.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ghs_2", token)
	assert.Equal(t, 2, calls)
}

func TestTokenManagerExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"message": "Bad credentials"})
	}))
	t.Cleanup(server.Close)

	tm, err := NewTokenManager(1, 99, generateTestKey(t), WithTokenBaseURL(server.URL))
	require.NoError(t, err)

	_, err = tm.Token(context.Background())
	assert.ErrorContains(t, err, "failed to exchange installation token")
}
