package subscriptions

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Theoverflow/zero2prod/internal/logutil"
)

const tokenLength = 25

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ConfirmationScheduler は確認メールの送信を非同期キューに投入します。
type ConfirmationScheduler interface {
	ScheduleConfirmation(ctx context.Context, recipient string, token string) error
}

// SubscriptionStore はハンドラーが必要とするストア操作です。
type SubscriptionStore interface {
	Subscribe(ctx context.Context, subscriber NewSubscriber, token string) (uuid.UUID, error)
	Confirm(ctx context.Context, token string) error
}

type subscribeRequest struct {
	Name  string `form:"name" binding:"required"`
	Email string `form:"email" binding:"required,email"`
}

// SubscribeHandler は POST /subscriptions のハンドラーを返します。
func SubscribeHandler(store SubscriptionStore, scheduler ConfirmationScheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscribeRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "name と email をフォームで送ってください",
			})
			return
		}

		name, err := ParseSubscriberName(req.Name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": err.Error(),
			})
			return
		}

		token, err := generateSubscriptionToken()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "確認トークンの生成に失敗しました",
			})
			return
		}

		subscriber := NewSubscriber{Email: req.Email, Name: name}
		subscriberID, err := store.Subscribe(c.Request.Context(), subscriber, token)
		if err != nil {
			logger := logutil.GetOrDefault(c.Request.Context())
			logger.Error().
				Err(err).
				Msg("failed to store new subscriber")
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "購読者の登録に失敗しました",
			})
			return
		}

		if err := scheduler.ScheduleConfirmation(c.Request.Context(), subscriber.Email, token); err != nil {
			logger := logutil.GetOrDefault(c.Request.Context())
			logger.Error().
				Err(err).
				Str("subscriber_id", subscriberID.String()).
				Msg("failed to enqueue confirmation email")
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "確認メールの送信依頼に失敗しました",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "pending_confirmation",
		})
	}
}

// ConfirmHandler は GET /subscriptions/confirm のハンドラーを返します。
func ConfirmHandler(store SubscriptionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("subscription_token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "subscription_token を指定してください",
			})
			return
		}

		err := store.Confirm(c.Request.Context(), token)
		if err != nil {
			if err == ErrTokenNotFound {
				c.JSON(http.StatusUnauthorized, gin.H{
					"code":    "TOKEN_UNKNOWN",
					"message": "確認トークンが見つかりません",
				})
				return
			}
			logger := logutil.GetOrDefault(c.Request.Context())
			logger.Error().
				Err(err).
				Msg("failed to confirm subscriber")
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "購読の確認に失敗しました",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "confirmed",
		})
	}
}

// generateSubscriptionToken は25文字の英数字トークンを生成します。
func generateSubscriptionToken() (string, error) {
	buf := make([]byte, tokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
