package auth

import (
	"errors"
	"fmt"
	"time"

	"mazeserver/models"

	jwt "github.com/dgrijalva/jwt-go"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenManager は登録済みユーザー名を証明するJWTを発行・検証します。
type TokenManager struct {
	key []byte
	ttl time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{key: []byte(secret), ttl: ttl}
}

// GenerateToken はユーザー名をSubjectとするトークンを生成します。
func (tm *TokenManager) GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := &models.MyClaims{
		Username: username,
		StandardClaims: jwt.StandardClaims{
			Subject:   username,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(tm.ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.key)
}

// ParseToken はトークンを検証してクレームを返します。
func (tm *TokenManager) ParseToken(tokenString string) (*models.MyClaims, error) {
	claims := &models.MyClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsValidToken はトークンが指定のユーザー名に対して有効かを返します。
func (tm *TokenManager) IsValidToken(tokenString, username string) (bool, error) {
	claims, err := tm.ParseToken(tokenString)
	if err != nil {
		return false, err
	}
	return claims.Subject == username, nil
}
