// Package auth はログインフローの資格情報検証とセッション確立を提供します。
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Theoverflow/zero2prod/internal/password"
)

// fallbackPasswordHash はユーザーが存在しない場合に検証へ渡すダミーハッシュです。
//
// 未知のユーザー名でも本物と同じパラメータのハッシュ検証を必ず1回実行することで、
// 「ユーザーが存在しない」場合と「パスワードが違う」場合のCPUコストを揃え、
// 応答時間からユーザー名の存在が推測されることを防ぎます。
const fallbackPasswordHash = "$argon2id$v=19$m=15000,t=2,p=1$" +
	"gZiV/M1gPc22ElAH/Jh1Hw$" +
	"CWOrkoo7oJBQ/iyh7uJ0LO2aLEfrHwTWllSAxT0zRno"

// Credentials はログインフォームから送信された資格情報です。
// Password はログにも画面にも出力してはいけません。
type Credentials struct {
	Username string
	Password string
}

// StoredCredentials はストアに保存されたユーザーの認証レコードです。
type StoredCredentials struct {
	UserID       uuid.UUID
	PasswordHash string // PHC形式の自己記述ハッシュ文字列
}

// CredentialStore はユーザー名から認証レコードを引くストアです。
// レコードが存在しない場合は (nil, nil) を返します。存在しないことは
// エラーではありません。
type CredentialStore interface {
	Lookup(ctx context.Context, username string) (*StoredCredentials, error)
	Username(ctx context.Context, userID uuid.UUID) (string, error)
}

// hashVerifier はハッシュ検証の実行先です。本番では password.Pool を使います。
type hashVerifier interface {
	Verify(ctx context.Context, encodedHash string, candidate string) error
}

// Validator は資格情報の検証を行います。
type Validator struct {
	store  CredentialStore
	hasher hashVerifier
}

// NewValidator は Validator を作成します。
func NewValidator(store CredentialStore, hasher hashVerifier) *Validator {
	return &Validator{store: store, hasher: hasher}
}

// Validate は資格情報を検証し、成功時にユーザーIDを返します。
//
// ユーザーの存在確認とハッシュ検証は独立した条件です。レコードが見つかった
// 場合のみユーザーIDを保持し、検証はレコードの有無にかかわらず毎回実行します。
// 万一ダミーハッシュが候補パスワードと一致しても、レコードが無い試行を
// 認証することはありません。
func (v *Validator) Validate(ctx context.Context, credentials Credentials) (uuid.UUID, error) {
	var userID *uuid.UUID
	expectedHash := fallbackPasswordHash

	stored, err := v.store.Lookup(ctx, credentials.Username)
	if err != nil {
		return uuid.Nil, unexpected(fmt.Errorf("looking up stored credentials: %w", err))
	}
	if stored != nil {
		id := stored.UserID
		userID = &id
		expectedHash = stored.PasswordHash
	}

	verifyErr := v.hasher.Verify(ctx, expectedHash, credentials.Password)
	switch {
	case verifyErr == nil:
		// 一致。ただし下の存在チェックを通るまで認証しない。
	case errors.Is(verifyErr, password.ErrMismatch):
		return uuid.Nil, invalidCredentials(verifyErr)
	default:
		return uuid.Nil, unexpected(fmt.Errorf("verifying password hash: %w", verifyErr))
	}

	if userID == nil {
		return uuid.Nil, invalidCredentials(errors.New("unknown username"))
	}
	return *userID, nil
}
