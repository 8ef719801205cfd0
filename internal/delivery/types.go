// Package delivery はメール配信の非同期ジョブ管理機能を提供します。
package delivery

import "time"

// Kind は配信の種類を表します。
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindIssue        Kind = "issue"
)

// Status は配信の実行状態を表します。
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSending   Status = "sending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "error"
)

// ErrorInfo は配信失敗時のエラー情報を保持します。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record は配信1件の現在状態を表します。
type Record struct {
	DeliveryID string     `json:"deliveryId"`
	Kind       Kind       `json:"kind"`
	Recipient  string     `json:"recipient"`
	IssueID    string     `json:"issueId,omitempty"`
	Status     Status     `json:"status"`
	Error      *ErrorInfo `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}
