package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailflow/backend/internal/cache"
	"mailflow/backend/internal/domain"
	"mailflow/backend/internal/monitoring"
	"mailflow/backend/internal/storage"
)

// ErrDeliveryDenied 投递凭证不匹配
var ErrDeliveryDenied = errors.New("delivery credentials rejected")

// Publisher 定义通知发布能力
type Publisher interface {
	Publish(ctx context.Context, userID string, body []byte) error
}

// MessageService 邮件业务逻辑
type MessageService struct {
	store     storage.Store
	cache     *cache.Cache
	publisher Publisher
	log       *zap.Logger
	metrics   *monitoring.Metrics // 可为 nil
}

// NewMessageService 创建邮件服务
func NewMessageService(store storage.Store, c *cache.Cache, publisher Publisher, log *zap.Logger) *MessageService {
	return &MessageService{
		store:     store,
		cache:     c,
		publisher: publisher,
		log:       log,
	}
}

// SetMetrics 设置监控指标（可选）
func (s *MessageService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// Get 获取邮件全文，经由所属收件箱校验属主
func (s *MessageService) Get(ctx context.Context, userID, messageID string) (*domain.Message, error) {
	message, err := s.store.GetMessage(messageID)
	if err != nil {
		return nil, err
	}

	if _, err := s.owningInbox(ctx, userID, message.InboxID); err != nil {
		return nil, err
	}

	return message, nil
}

// Delete 删除邮件并失效所属收件箱的缓存
func (s *MessageService) Delete(ctx context.Context, userID, messageID string) error {
	message, err := s.store.GetMessage(messageID)
	if err != nil {
		return err
	}

	inbox, err := s.owningInbox(ctx, userID, message.InboxID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteMessage(messageID); err != nil {
		return err
	}

	s.cache.InvalidateInbox(ctx, inbox.ID, inbox.UserID)

	if s.metrics != nil {
		s.metrics.MessagesDeleted.Inc()
	}
	return nil
}

// IngestInput 投递输入，由外部接收器（SMTP 服务）提供。
// Login/Password 是收件箱的投递凭证。
type IngestInput struct {
	Login     string
	Password  string
	FromAddr  string
	ToAddr    string
	Subject   string
	BodyPlain string
	BodyHTML  string
	Source    string
}

// Ingest 接收一封新邮件：持久化、失效缓存、发布通知。
// 三步严格有序，通知发布失败不回滚已落库的邮件。
func (s *MessageService) Ingest(ctx context.Context, input IngestInput) (*domain.Message, error) {
	inbox, err := s.store.GetInboxByLogin(input.Login)
	if err != nil {
		if errors.Is(err, storage.ErrInboxNotFound) {
			return nil, ErrDeliveryDenied
		}
		return nil, err
	}
	if inbox.Password != input.Password {
		return nil, ErrDeliveryDenied
	}

	message := &domain.Message{
		ID:        uuid.NewString(),
		InboxID:   inbox.ID,
		FromAddr:  input.FromAddr,
		ToAddr:    input.ToAddr,
		Subject:   input.Subject,
		BodyPlain: input.BodyPlain,
		BodyHTML:  input.BodyHTML,
		Source:    input.Source,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.SaveMessage(message); err != nil {
		return nil, err
	}

	s.cache.InvalidateInbox(ctx, inbox.ID, inbox.UserID)

	s.publish(ctx, inbox.UserID, message)

	if s.metrics != nil {
		s.metrics.MessagesStored.Inc()
	}
	s.log.Info("message ingested",
		zap.String("message_id", message.ID),
		zap.String("inbox_id", inbox.ID),
	)
	return message, nil
}

// publish 向属主推送新邮件通知，失败只记录日志。
// 没有重放机制，掉线客户端错过的通知不补发。
func (s *MessageService) publish(ctx context.Context, userID string, message *domain.Message) {
	if s.publisher == nil {
		return
	}

	body, err := json.Marshal(message.Summary(true))
	if err != nil {
		s.log.Warn("failed to marshal notification", zap.Error(err))
		return
	}

	if err := s.publisher.Publish(ctx, userID, body); err != nil {
		s.log.Warn("failed to publish notification",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.NotificationsPublished.Inc()
	}
}

// owningInbox 读取所属收件箱并校验属主
func (s *MessageService) owningInbox(ctx context.Context, userID, inboxID string) (*domain.Inbox, error) {
	inbox, err := s.cache.GetInboxByID(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	if inbox.UserID != userID {
		return nil, ErrForbidden
	}
	return inbox, nil
}
