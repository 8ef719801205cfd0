// Package subscriptions は購読者の登録と確認フローを提供します。
package subscriptions

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// forbiddenNameChars は購読者名に使用できない文字です。
// HTMLやURLへ埋め込んだ際に構造を壊しうる文字を拒否します。
var forbiddenNameChars = []rune{'/', '(', ')', '"', '<', '>', '\\', '{', '}'}

// NewSubscriber は検証済みの購読者情報です。
type NewSubscriber struct {
	Email string
	Name  string
}

// ParseSubscriberName は購読者名を検証します。
// 空白のみ・256文字超・禁止文字を含む名前を拒否します。
func ParseSubscriberName(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("subscriber name must not be empty")
	}
	if utf8.RuneCountInString(s) > 256 {
		return "", fmt.Errorf("subscriber name must not exceed 256 characters")
	}
	for _, forbidden := range forbiddenNameChars {
		if strings.ContainsRune(s, forbidden) {
			return "", fmt.Errorf("subscriber name must not contain %q", forbidden)
		}
	}
	return s, nil
}
