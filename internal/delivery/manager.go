package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/Theoverflow/zero2prod/internal/config"
)

const (
	taskTypeConfirmation = "email:confirmation"
	taskTypeIssue        = "email:issue"
)

// Mailer はメールを1通送信できるクライアントが実装します。
type Mailer interface {
	Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error
}

// Manager は配信ジョブの投入と実行を担います。
type Manager struct {
	cfg    *config.Config
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  *Store
	mailer Mailer
	logger zerolog.Logger
}

// ConfirmationPayload は購読確認メールジョブのペイロードです。
type ConfirmationPayload struct {
	DeliveryID string `json:"deliveryId"`
	Recipient  string `json:"recipient"`
	Token      string `json:"token"`
}

// IssuePayload はニュースレター配信ジョブのペイロードです。
type IssuePayload struct {
	DeliveryID string `json:"deliveryId"`
	IssueID    string `json:"issueId"`
	Recipient  string `json:"recipient"`
	Title      string `json:"title"`
	HTML       string `json:"html"`
	Text       string `json:"text"`
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, store *Store, mailer Mailer, logger zerolog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if mailer == nil {
		return nil, errors.New("mailer is nil")
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"email": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		cfg:    cfg,
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		mailer: mailer,
		logger: logger,
	}
	mux.HandleFunc(taskTypeConfirmation, manager.handleConfirmationTask)
	mux.HandleFunc(taskTypeIssue, manager.handleIssueTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logger.Error().Err(err).Msg("asynq server stopped with error")
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// EnqueueConfirmation は購読確認メールをキューに投入します。
func (m *Manager) EnqueueConfirmation(ctx context.Context, payload *ConfirmationPayload) error {
	if payload == nil {
		return fmt.Errorf("payload is nil")
	}
	if payload.DeliveryID == "" {
		return fmt.Errorf("payload.DeliveryID is required")
	}

	record := &Record{
		DeliveryID: payload.DeliveryID,
		Kind:       KindConfirmation,
		Recipient:  payload.Recipient,
		Status:     StatusQueued,
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return err
	}
	return m.enqueue(ctx, taskTypeConfirmation, payload)
}

// EnqueueIssue はニュースレター1通分の配信をキューに投入します。
func (m *Manager) EnqueueIssue(ctx context.Context, payload *IssuePayload) error {
	if payload == nil {
		return fmt.Errorf("payload is nil")
	}
	if payload.DeliveryID == "" {
		return fmt.Errorf("payload.DeliveryID is required")
	}

	record := &Record{
		DeliveryID: payload.DeliveryID,
		Kind:       KindIssue,
		Recipient:  payload.Recipient,
		IssueID:    payload.IssueID,
		Status:     StatusQueued,
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return err
	}
	return m.enqueue(ctx, taskTypeIssue, payload)
}

func (m *Manager) enqueue(ctx context.Context, taskType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskType, body, asynq.Queue("email"))
	_, err = m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	return err
}

func (m *Manager) handleConfirmationTask(ctx context.Context, task *asynq.Task) error {
	var payload ConfirmationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.DeliveryID == "" {
		return fmt.Errorf("missing deliveryId in payload")
	}

	if err := m.store.MarkSending(ctx, payload.DeliveryID); err != nil {
		return err
	}

	confirmationLink := fmt.Sprintf(
		"%s/subscriptions/confirm?subscription_token=%s",
		m.cfg.BaseURL, payload.Token,
	)
	htmlBody := fmt.Sprintf(
		"Welcome to our newsletter!<br />Click <a href=\"%s\">here</a> to confirm your subscription.",
		confirmationLink,
	)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.",
		confirmationLink,
	)

	if err := m.mailer.Send(ctx, payload.Recipient, "Welcome!", htmlBody, textBody); err != nil {
		return m.failDelivery(ctx, payload.DeliveryID, err)
	}
	return m.store.MarkDelivered(ctx, payload.DeliveryID)
}

func (m *Manager) handleIssueTask(ctx context.Context, task *asynq.Task) error {
	var payload IssuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.DeliveryID == "" {
		return fmt.Errorf("missing deliveryId in payload")
	}

	if err := m.store.MarkSending(ctx, payload.DeliveryID); err != nil {
		return err
	}

	if err := m.mailer.Send(ctx, payload.Recipient, payload.Title, payload.HTML, payload.Text); err != nil {
		return m.failDelivery(ctx, payload.DeliveryID, err)
	}
	return m.store.MarkDelivered(ctx, payload.DeliveryID)
}

// failDelivery は失敗を記録した上で元のエラーを返し、Asynq のリトライに委ねます。
func (m *Manager) failDelivery(ctx context.Context, deliveryID string, cause error) error {
	if err := m.store.MarkFailed(ctx, deliveryID, &ErrorInfo{
		Code:    "SEND_FAILED",
		Message: cause.Error(),
	}); err != nil {
		m.logger.Error().Err(err).Str("delivery_id", deliveryID).Msg("failed to record delivery failure")
	}
	return cause
}
