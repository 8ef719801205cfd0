package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore は users テーブルを参照する CredentialStore 実装です。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Lookup はユーザー名から認証レコードを取得します。
// 該当行が無い場合は (nil, nil) を返します。
func (s *PostgresStore) Lookup(ctx context.Context, username string) (*StoredCredentials, error) {
	query := `SELECT user_id, password_hash FROM users WHERE username = $1`

	var (
		userID       string
		passwordHash string
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(&userID, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id in users table: %w", err)
	}

	return &StoredCredentials{
		UserID:       id,
		PasswordHash: passwordHash,
	}, nil
}

// Username はユーザーIDからユーザー名を取得します。
func (s *PostgresStore) Username(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT username FROM users WHERE user_id = $1`

	var username string
	err := s.db.QueryRowContext(ctx, query, userID.String()).Scan(&username)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return username, nil
}
