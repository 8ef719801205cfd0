package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Theoverflow/zero2prod/internal/config"
	"github.com/Theoverflow/zero2prod/internal/delivery"
	"github.com/Theoverflow/zero2prod/internal/email"
)

// confirmationScheduler は購読ハンドラーと配信マネージャーをつなぎます。
type confirmationScheduler struct {
	manager *delivery.Manager
}

func (s *confirmationScheduler) ScheduleConfirmation(ctx context.Context, recipient string, token string) error {
	return s.manager.EnqueueConfirmation(ctx, &delivery.ConfirmationPayload{
		DeliveryID: uuid.New().String(),
		Recipient:  recipient,
		Token:      token,
	})
}

func setupDelivery(cfg *config.Config, logger zerolog.Logger) (*delivery.Manager, *delivery.Store, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, nil, err
	}

	redisClient := redis.NewClient(opt)
	ttlMinutes := cfg.DeliveryTTLMinute
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	store := delivery.NewStore(redisClient, time.Duration(ttlMinutes)*time.Minute)

	mailer := email.NewClient(cfg.EmailBaseURL, cfg.EmailSender, cfg.EmailAuthToken, cfg.EmailTimeout)

	manager, err := delivery.NewManager(cfg, store, mailer, logger)
	if err != nil {
		return nil, nil, err
	}
	return manager, store, nil
}

// deliveryStatusHandler は GET /admin/deliveries/:id のハンドラーを返します。
func deliveryStatusHandler(store *delivery.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		deliveryID := c.Param("id")
		if strings.TrimSpace(deliveryID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "deliveryId を指定してください",
			})
			return
		}

		record, err := store.Get(c.Request.Context(), deliveryID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "配信情報の取得に失敗しました",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "DELIVERY_NOT_FOUND",
				"message": "指定された配信は存在しません",
			})
			return
		}

		c.JSON(http.StatusOK, record)
	}
}
