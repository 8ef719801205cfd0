package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequireLogin はセッションを検証するミドルウェアを返します。
// 未ログインの場合はログインフォームへ 303 でリダイレクトします。
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		raw, ok := session.Get(sessionKeyUserID).(string)
		if !ok || raw == "" {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			// 壊れたセッションは破棄してログインからやり直させる
			session.Clear()
			_ = session.Save()
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, userID)
		c.Next()
	}
}
