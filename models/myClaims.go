package models

import (
	"github.com/dgrijalva/jwt-go"
)

// MyClaims はJWTクレームの構造体定義です。Subjectにはユーザー名が入ります。
type MyClaims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}
