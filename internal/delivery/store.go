package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "delivery:"

// Store は配信状態を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get は配信情報を取得します。存在しない場合は (nil, nil) を返します。
func (s *Store) Get(ctx context.Context, deliveryID string) (*Record, error) {
	if deliveryID == "" {
		return nil, fmt.Errorf("deliveryID is required")
	}
	data, err := s.rdb.Get(ctx, deliveryKey(deliveryID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert は配信情報を保存します（存在しない場合は作成）。
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ExpiresAt.IsZero() && s.ttl > 0 {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, deliveryKey(record.DeliveryID), payload, s.ttl).Err()
}

// MarkSending は配信を送信中に更新します。
func (s *Store) MarkSending(ctx context.Context, deliveryID string) error {
	return s.updatePartial(ctx, deliveryID, func(record *Record) {
		record.Status = StatusSending
	})
}

// MarkDelivered は配信完了を記録します。
func (s *Store) MarkDelivered(ctx context.Context, deliveryID string) error {
	return s.updatePartial(ctx, deliveryID, func(record *Record) {
		record.Status = StatusDelivered
		record.Error = nil
	})
}

// MarkFailed は配信失敗を記録します。
func (s *Store) MarkFailed(ctx context.Context, deliveryID string, errInfo *ErrorInfo) error {
	return s.updatePartial(ctx, deliveryID, func(record *Record) {
		record.Status = StatusFailed
		if errInfo != nil {
			record.Error = errInfo
		}
	})
}

func (s *Store) updatePartial(ctx context.Context, deliveryID string, mutate func(*Record)) error {
	key := deliveryKey(deliveryID)
	for {
		tx := s.rdb.TxPipeline()
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return fmt.Errorf("delivery not found: %s", deliveryID)
			}
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		mutate(&record)
		record.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		tx.Set(ctx, key, payload, s.ttl)
		_, err = tx.Exec(ctx)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
}

func deliveryKey(id string) string {
	return deliveryKeyPrefix + id
}
