// Package logutil は zerolog を用いた構造化ログの生成と受け渡しを提供します。
package logutil

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	key byte
)

var (
	loggerKey = key(1)
)

// New はサービス名付きのルートロガーを作成します。
func New(service string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// WithLogger はロガーをコンテキストに格納します。
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetOrDefault はコンテキストからロガーを取り出します。
// 格納されていない場合はグローバルロガーを返します。
func GetOrDefault(ctx context.Context) zerolog.Logger {
	v := ctx.Value(loggerKey)
	if v == nil {
		return log.Logger
	}
	return v.(zerolog.Logger)
}

// RequestLogger はリクエスト単位のロガーを付与し、処理結果を記録するミドルウェアを返します。
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.With().
			Str("http.method", c.Request.Method).
			Str("http.path", c.Request.URL.Path).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		reqLogger.Info().
			Int("http.status", c.Writer.Status()).
			Dur("http.duration", time.Since(start)).
			Msg("request completed")
	}
}
