package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// token 签名密钥与有效期，服务启动时通过 Configure 注入
var (
	jwtSecret       []byte
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// Claims carries the authenticated identity embedded in a token.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenPair 是登录/注册时签发的 access + refresh 令牌对
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Configure sets the signing secret and token lifetimes.
// Must be called once before any token is issued or parsed.
func Configure(secret string, accessTTL, refreshTTL time.Duration) {
	jwtSecret = []byte(secret)
	if accessTTL != 0 {
		accessTokenTTL = accessTTL
	}
	if refreshTTL != 0 {
		refreshTokenTTL = refreshTTL
	}
}

// GenerateToken issues a signed access token for the user.
func GenerateToken(userID int64, username string) (string, error) {
	return generate(userID, username, accessTokenTTL)
}

// GenerateRefreshToken issues a longer-lived refresh token.
func GenerateRefreshToken(userID int64, username string) (string, error) {
	return generate(userID, username, refreshTokenTTL)
}

// GenerateTokenPair issues both tokens at once.
func GenerateTokenPair(userID int64, username string) (*TokenPair, error) {
	access, err := GenerateToken(userID, username)
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateRefreshToken(userID, username)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func generate(userID int64, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a signed token and returns its claims.
// Expired, malformed or wrongly-signed tokens all return an error.
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
