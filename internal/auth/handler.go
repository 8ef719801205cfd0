package auth

import (
	"html"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Theoverflow/zero2prod/internal/logutil"
	"github.com/Theoverflow/zero2prod/internal/signing"
)

const (
	// SessionCookieName はセッションクッキーの名前です。
	SessionCookieName = "z2p_session"

	sessionKeyUserID = "user_id"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーIDを共有するためのキーです。
const ContextUserKey = "auth.user_id"

// 失敗時に利用者へ表示する文言。内部原因は含めません。
// どの失敗でも同じステータス(303)と遷移先に収束させ、原因の違いが
// 応答から漏れないようにします。
const (
	msgAuthenticationFailed = "Authentication failed"
	msgSomethingWentWrong   = "Something went wrong"
)

// Handler はログインフローのHTTPハンドラーをまとめます。
type Handler struct {
	validator *Validator
	signer    *signing.Signer
	store     CredentialStore
}

// NewHandler は Handler を作成します。
func NewHandler(validator *Validator, signer *signing.Signer, store CredentialStore) *Handler {
	return &Handler{
		validator: validator,
		signer:    signer,
		store:     store,
	}
}

// LoginForm は GET /login のハンドラーです。
//
// error と tag のクエリペアを受け取った場合、署名の検証に成功したときのみ
// エラーメッセージを描画します。検証に失敗した場合は警告ログを残し、
// メッセージ無しのフォームを返します。失敗を訪問者に通知することはありません。
func (h *Handler) LoginForm(c *gin.Context) {
	errorHTML := ""

	message := c.Query("error")
	tag := c.Query("tag")
	if message != "" || tag != "" {
		if err := h.signer.Verify(message, tag); err != nil {
			logger := logutil.GetOrDefault(c.Request.Context())
			logger.Warn().
				Err(err).
				Msg("failed to verify error message using the hmac tag")
		} else {
			errorHTML = "<p><i>" + html.EscapeString(message) + "</i></p>"
		}
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage(errorHTML)))
}

// Login は POST /login のハンドラーです。
//
// 成功時はセッションを再発行してユーザーIDを保存し、管理ダッシュボードへ
// 303 でリダイレクトします。失敗時は種別を問わず署名付きメッセージを付けて
// /login へ 303 でリダイレクトします。
func (h *Handler) Login(c *gin.Context) {
	credentials := Credentials{
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
	}

	logger := logutil.GetOrDefault(c.Request.Context()).With().
		Str("username", credentials.Username).
		Logger()

	userID, err := h.validator.Validate(c.Request.Context(), credentials)
	if err != nil {
		if IsInvalidCredentials(err) {
			logger.Warn().Err(err).Msg("authentication failed")
			h.redirectWithError(c, msgAuthenticationFailed)
		} else {
			logger.Error().Err(err).Msg("credential validation failed unexpectedly")
			h.redirectWithError(c, msgSomethingWentWrong)
		}
		return
	}

	// セッション固定化を防ぐため、既存の内容を破棄してから発行し直す
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionKeyUserID, userID.String())
	if err := session.Save(); err != nil {
		logger.Error().Err(err).Msg("failed to save session")
		h.redirectWithError(c, msgSomethingWentWrong)
		return
	}

	logger.Info().Str("user_id", userID.String()).Msg("login succeeded")
	c.Redirect(http.StatusSeeOther, "/admin/dashboard")
}

// Dashboard は GET /admin/dashboard のハンドラーです。RequireLogin の配下で使います。
func (h *Handler) Dashboard(c *gin.Context) {
	userID, ok := c.MustGet(ContextUserKey).(uuid.UUID)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	username, err := h.store.Username(c.Request.Context(), userID)
	if err != nil {
		logger := logutil.GetOrDefault(c.Request.Context())
		logger.Error().
			Err(err).
			Msg("failed to resolve username for dashboard")
		c.String(http.StatusInternalServerError, "Something went wrong")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(dashboardPage(username)))
}

func (h *Handler) redirectWithError(c *gin.Context, message string) {
	location := "/login?" + h.signer.QueryString(message) + "&tag=" + h.signer.Sign(message)
	c.Redirect(http.StatusSeeOther, location)
}

func loginPage(errorHTML string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
<meta http-equiv="content-type" content="text/html; charset=utf-8">
<title>Login</title>
</head>
<body>
` + errorHTML + `
<form action="/login" method="post">
<label>Username
<input type="text" placeholder="Enter Username" name="username">
</label>
<label>Password
<input type="password" placeholder="Enter Password" name="password">
</label>
<button type="submit">Login</button>
</form>
</body>
</html>`
}

func dashboardPage(username string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
<meta http-equiv="content-type" content="text/html; charset=utf-8">
<title>Admin dashboard</title>
</head>
<body>
<p>Welcome ` + html.EscapeString(username) + `!</p>
</body>
</html>`
}
