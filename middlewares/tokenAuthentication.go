package middlewares

import (
	"net/http"
	"strings"

	"mazeserver/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextUsernameKey はトークンから取り出したユーザー名をgin.Contextに格納するキー
const ContextUsernameKey = "Username"

// BearerToken はAuthorizationヘッダーまたはtokenクエリからトークンを取り出します。
// ブラウザのWebSocketはヘッダーを付けられないためクエリも受け付ける
func BearerToken(c *gin.Context) string {
	tokenString := c.GetHeader("Authorization")
	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	return tokenString
}

// TokenAuthentication はトークンがあれば検証し、ユーザー名をコンテキストにセットします。
// トークンが無い場合はそのまま通し、無効なトークンは401で拒否します。
func TokenAuthentication(tm *auth.TokenManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := tm.ParseToken(tokenString)
		if err != nil {
			logger.Warn("Token validation error", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		c.Set(ContextUsernameKey, claims.Subject)
		c.Next()
	}
}

// UsernameFromContext はTokenAuthenticationがセットしたユーザー名を返します。
func UsernameFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUsernameKey)
	if !ok {
		return "", false
	}
	username, ok := v.(string)
	return username, ok && username != ""
}
