package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrTokenNotFound は確認トークンに対応する購読者が存在しない場合に返されます。
var ErrTokenNotFound = errors.New("subscription token not found")

// Store は購読者と確認トークンを Postgres に保存します。
type Store struct {
	db *sql.DB
}

// NewStore は Store を作成します。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Subscribe は購読者を pending_confirmation 状態で登録し、
// 確認トークンを同一トランザクションで保存します。
func (s *Store) Subscribe(ctx context.Context, subscriber NewSubscriber, token string) (uuid.UUID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("db error: %w", err)
	}
	defer tx.Rollback()

	subscriberID := uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		 VALUES ($1, $2, $3, $4, 'pending_confirmation')`,
		subscriberID.String(), subscriber.Email, subscriber.Name, time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting subscriber: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		 VALUES ($1, $2)`,
		token, subscriberID.String(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storing subscription token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("db error: %w", err)
	}
	return subscriberID, nil
}

// Confirm は確認トークンに対応する購読者を confirmed 状態に更新します。
func (s *Store) Confirm(ctx context.Context, token string) error {
	var subscriberID string
	err := s.db.QueryRowContext(ctx,
		`SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1`,
		token,
	).Scan(&subscriberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = 'confirmed' WHERE id = $1`,
		subscriberID,
	)
	if err != nil {
		return fmt.Errorf("confirming subscriber: %w", err)
	}
	return nil
}

// ConfirmedEmails は確認済み購読者のメールアドレス一覧を返します。
func (s *Store) ConfirmedEmails(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM subscriptions WHERE status = 'confirmed'`,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return emails, nil
}
