package auth

import "errors"

// Kind は認証エラーの分類です。
type Kind int

const (
	// KindInvalidCredentials はユーザー名またはパスワードの不一致を表します。
	// どちらが原因かは呼び出し側からも利用者からも区別できません。
	KindInvalidCredentials Kind = iota

	// KindUnexpected はハッシュ形式の破損やストア障害など、
	// 資格情報の正否とは無関係な内部エラーを表します。
	KindUnexpected
)

// Error は認証処理の失敗を分類付きで表します。
// 内部原因はログ出力用に保持しますが、利用者への表示には使いません。
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidCredentials:
		return "invalid credentials"
	default:
		return "unexpected error during credential validation"
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

func invalidCredentials(cause error) *Error {
	return &Error{Kind: KindInvalidCredentials, cause: cause}
}

func unexpected(cause error) *Error {
	return &Error{Kind: KindUnexpected, cause: cause}
}

// IsInvalidCredentials は err が資格情報の不一致によるものか判定します。
func IsInvalidCredentials(err error) bool {
	var authErr *Error
	return errors.As(err, &authErr) && authErr.Kind == KindInvalidCredentials
}
