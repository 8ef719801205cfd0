// Package newsletter はニュースレター号の発行を提供します。
package newsletter

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Theoverflow/zero2prod/internal/delivery"
	"github.com/Theoverflow/zero2prod/internal/logutil"
)

// SubscriberSource は配信対象の購読者一覧を返します。
type SubscriberSource interface {
	ConfirmedEmails(ctx context.Context) ([]string, error)
}

// IssueScheduler は1通分の配信をキューに投入します。
type IssueScheduler interface {
	EnqueueIssue(ctx context.Context, payload *delivery.IssuePayload) error
}

type publishRequest struct {
	Title   string `json:"title" binding:"required"`
	Content struct {
		Text string `json:"text" binding:"required"`
		HTML string `json:"html" binding:"required"`
	} `json:"content" binding:"required"`
}

// PublishHandler は POST /newsletters のハンドラーを返します。
// ログイン済みの管理者のみが呼び出せる前提で、RequireLogin の配下に配置します。
func PublishHandler(source SubscriberSource, scheduler IssueScheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req publishRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "title と content (text, html) を JSON で送ってください",
			})
			return
		}

		recipients, err := source.ConfirmedEmails(c.Request.Context())
		if err != nil {
			logger := logutil.GetOrDefault(c.Request.Context())
			logger.Error().
				Err(err).
				Msg("failed to list confirmed subscribers")
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "購読者一覧の取得に失敗しました",
			})
			return
		}

		issueID := uuid.New().String()
		enqueued := 0
		for _, recipient := range recipients {
			payload := &delivery.IssuePayload{
				DeliveryID: uuid.New().String(),
				IssueID:    issueID,
				Recipient:  recipient,
				Title:      req.Title,
				HTML:       req.Content.HTML,
				Text:       req.Content.Text,
			}
			if err := scheduler.EnqueueIssue(c.Request.Context(), payload); err != nil {
				logger := logutil.GetOrDefault(c.Request.Context())
				logger.Error().
					Err(err).
					Str("issue_id", issueID).
					Msg("failed to enqueue issue delivery")
				c.JSON(http.StatusInternalServerError, gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "配信ジョブの投入に失敗しました",
				})
				return
			}
			enqueued++
		}

		c.JSON(http.StatusAccepted, gin.H{
			"issueId":    issueID,
			"recipients": enqueued,
		})
	}
}
