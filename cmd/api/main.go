// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/Theoverflow/zero2prod/internal/auth"
	"github.com/Theoverflow/zero2prod/internal/config"
	"github.com/Theoverflow/zero2prod/internal/logutil"
	"github.com/Theoverflow/zero2prod/internal/storage"
)

func main() {
	logger := logutil.New("zero2prod")

	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	// データベース接続とマイグレーション
	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	if err := storage.RunMigrations(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// 配信ワーカーの起動
	manager, deliveryStore, err := setupDelivery(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up delivery queue")
	}
	manager.StartWorkers()
	defer manager.Shutdown(ctx)

	// Ginルーターの初期化
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logutil.RequestLogger(logger))

	// セッションストアの設定（クッキー署名鍵は必須）
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		// ログイン後のリダイレクト遷移でもクッキーが送られるよう Lax にする
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, cfg, db, manager, deliveryStore)

	// サーバーの起動
	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("mode", cfg.GinMode).Msg("starting API server")
	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
