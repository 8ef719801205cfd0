// Package signing はリダイレクトURLに載せるエラーメッセージの署名と検証を提供します。
//
// ログイン失敗時のメッセージは認証されていないリダイレクトを経由して
// 画面に表示されるため、HMAC-SHA256 のタグを付与して改竄と偽造を検出します。
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrMalformedTag はタグが16進文字列として解釈できない場合に返されます。
	ErrMalformedTag = errors.New("malformed hmac tag")

	// ErrInvalidTag は再計算したMACと受信タグが一致しない場合に返されます。
	ErrInvalidTag = errors.New("invalid hmac tag")
)

// Signer はプロセス全体で共有される署名鍵を保持します。
// 鍵は起動時に一度だけ設定され、以後変更されません。
type Signer struct {
	secret []byte
}

// NewSigner は署名鍵 secret を持つ Signer を作成します。
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// QueryString は message を署名対象の正規形（error=<URLエンコード済み文字列>）に変換します。
//
// 署名と検証は復号後のテキストではなく、実際に送信されるクエリ文字列の
// バイト列そのものに対して行います。両者のエンコードが一致しないと
// 正当なタグでも検証に失敗するためです。
func (s *Signer) QueryString(message string) string {
	return "error=" + url.QueryEscape(message)
}

// Sign は message の正規形に対するMACタグを16進文字列で返します。
func (s *Signer) Sign(message string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(s.QueryString(message)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify は受信した message と hexTag の組を検証します。
//
// タグの復号に失敗した場合は ErrMalformedTag、MACが一致しない場合は
// ErrInvalidTag を返します。いずれの場合も呼び出し側はメッセージを
// 「存在しないもの」として扱います。
func (s *Signer) Verify(message string, hexTag string) error {
	tag, err := hex.DecodeString(hexTag)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTag, err)
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(s.QueryString(message)))
	if !hmac.Equal(mac.Sum(nil), tag) {
		return ErrInvalidTag
	}
	return nil
}
