package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ロガーを初期化
func InitLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// NewDevelopmentLogger はコマンドラインツール用の読みやすいロガーを返します。
func NewDevelopmentLogger() (*zap.Logger, error) {
	return zap.NewDevelopment()
}

// requestLevel はステータスコードからログレベルを決めます。
func requestLevel(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// RequestLogger はリクエストごとにステータスに応じたレベルでログを出すginミドルウェアです。
// ポーリング系のエンドポイントはusernameクエリを持つため、それも記録する
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if username := c.Query("username"); username != "" {
			fields = append(fields, zap.String("Username", username))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if ce := logger.Check(requestLevel(status), "request"); ce != nil {
			ce.Write(fields...)
		}
	}
}
