package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// MaxJWTDuration はGitHub Appが受け付けるJWTの最大有効期間
	MaxJWTDuration = 10 * time.Minute

	// TokenRefreshBuffer はインストールトークンを期限前に更新する猶予
	TokenRefreshBuffer = 5 * time.Minute
)

// JWTGenerator はGitHub App認証用のJWTを生成します
type JWTGenerator struct {
	appID      int64
	privateKey *rsa.PrivateKey
	now        func() time.Time
}

// NewJWTGenerator はApp IDとPEM形式の秘密鍵からJWTGeneratorを作成します
func NewJWTGenerator(appID int64, privateKeyPEM []byte) (*JWTGenerator, error) {
	if appID <= 0 {
		return nil, fmt.Errorf("app ID must be positive")
	}
	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &JWTGenerator{appID: appID, privateKey: key, now: time.Now}, nil
}

// Generate は有効期間がMaxJWTDurationのJWTを生成します
// 時計のずれを考慮して発行時刻を60秒前にします
func (g *JWTGenerator) Generate() (string, error) {
	now := g.now()
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(g.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(MaxJWTDuration - time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(g.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}

// TokenManager はインストールトークンを期限前まで保持し、必要に応じて更新します
type TokenManager struct {
	mu sync.Mutex

	installationID int64
	jwt            *JWTGenerator
	baseURL        string
	httpClient     *http.Client
	now            func() time.Time

	token     string
	expiresAt time.Time
}

// TokenManagerOption はTokenManagerのオプションです
type TokenManagerOption func(*TokenManager)

// WithTokenBaseURL はGitHub APIのベースURLを設定します
func WithTokenBaseURL(baseURL string) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.baseURL = baseURL
	}
}

// WithTokenClock は現在時刻の取得関数を設定します
func WithTokenClock(now func() time.Time) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.now = now
		tm.jwt.now = now
	}
}

// NewTokenManager は新しいTokenManagerを作成します
func NewTokenManager(appID, installationID int64, privateKeyPEM []byte, opts ...TokenManagerOption) (*TokenManager, error) {
	if installationID <= 0 {
		return nil, fmt.Errorf("installation ID must be positive")
	}
	gen, err := NewJWTGenerator(appID, privateKeyPEM)
	if err != nil {
		return nil, err
	}
	tm := &TokenManager{
		installationID: installationID,
		jwt:            gen,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Token は有効なインストールトークンを返します
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token != "" && tm.expiresAt.After(tm.now().Add(TokenRefreshBuffer)) {
		return tm.token, nil
	}

	signed, err := tm.jwt.Generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT: %w", err)
	}
	client, err := newRESTClient(tm.httpClient, tm.baseURL)
	if err != nil {
		return "", err
	}
	installToken, _, err := client.WithAuthToken(signed).Apps.CreateInstallationToken(ctx, tm.installationID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to exchange installation token: %w", err)
	}

	tm.token = installToken.GetToken()
	tm.expiresAt = installToken.GetExpiresAt().Time
	return tm.token, nil
}

// appTransport はリクエストごとにインストールトークンを付与します
type appTransport struct {
	tokens *TokenManager
	base   http.RoundTripper
}

func (t *appTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.Token(req.Context())
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}
