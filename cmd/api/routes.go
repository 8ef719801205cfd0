package main

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Theoverflow/zero2prod/internal/auth"
	"github.com/Theoverflow/zero2prod/internal/config"
	"github.com/Theoverflow/zero2prod/internal/delivery"
	"github.com/Theoverflow/zero2prod/internal/newsletter"
	"github.com/Theoverflow/zero2prod/internal/password"
	"github.com/Theoverflow/zero2prod/internal/signing"
	"github.com/Theoverflow/zero2prod/internal/subscriptions"
)

// handleHealthCheck はヘルスチェックエンドポイントのハンドラーです。
func handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "zero2prod-api",
	})
}

// handleHome はトップページのハンドラーです。
func handleHome(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(`<!DOCTYPE html>
<html lang="en">
<head>
<meta http-equiv="content-type" content="text/html; charset=utf-8">
<title>Newsletter</title>
</head>
<body>
<p>Welcome to our newsletter!</p>
</body>
</html>`))
}

// setupRoutes はルーティングと各ハンドラーの配線を行います。
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	manager *delivery.Manager,
	deliveryStore *delivery.Store,
) {
	router.GET("/health_check", handleHealthCheck)
	router.GET("/", handleHome)

	// ログインフロー
	credentialStore := auth.NewPostgresStore(db)
	pool := password.NewPool(cfg.HashPoolSize)
	validator := auth.NewValidator(credentialStore, pool)
	signer := signing.NewSigner(cfg.HmacSecret)
	authHandler := auth.NewHandler(validator, signer, credentialStore)

	router.GET("/login", authHandler.LoginForm)
	router.POST("/login", authHandler.Login)

	// 購読フロー
	subscriptionStore := subscriptions.NewStore(db)
	scheduler := &confirmationScheduler{manager: manager}
	router.POST("/subscriptions", subscriptions.SubscribeHandler(subscriptionStore, scheduler))
	router.GET("/subscriptions/confirm", subscriptions.ConfirmHandler(subscriptionStore))

	// 管理画面（要ログイン）
	admin := router.Group("/admin")
	admin.Use(auth.RequireLogin())
	{
		admin.GET("/dashboard", authHandler.Dashboard)
		admin.GET("/deliveries/:id", deliveryStatusHandler(deliveryStore))
	}

	// ニュースレター発行（要ログイン）
	router.POST("/newsletters", auth.RequireLogin(), newsletter.PublishHandler(subscriptionStore, manager))
}
