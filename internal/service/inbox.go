package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailflow/backend/internal/cache"
	"mailflow/backend/internal/config"
	"mailflow/backend/internal/domain"
	"mailflow/backend/internal/monitoring"
	"mailflow/backend/internal/storage"
)

var (
	// ErrForbidden 资源不属于当前用户
	ErrForbidden = errors.New("forbidden")
	// ErrPageNotFound 请求的页码超出范围
	ErrPageNotFound = errors.New("page not found")
	// ErrInvalidName 收件箱名称无效
	ErrInvalidName = errors.New("invalid inbox name")
)

// InboxService 收件箱业务逻辑。
// 所有读取走缓存层，所有变更在落库后同步触发缓存失效。
type InboxService struct {
	store   storage.Store
	cache   *cache.Cache
	cfg     config.InboxConfig
	log     *zap.Logger
	metrics *monitoring.Metrics // 可为 nil
}

// NewInboxService 创建收件箱服务
func NewInboxService(store storage.Store, c *cache.Cache, cfg config.InboxConfig, log *zap.Logger) *InboxService {
	return &InboxService{
		store: store,
		cache: c,
		cfg:   cfg,
		log:   log,
	}
}

// SetMetrics 设置监控指标（可选）
func (s *InboxService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// InboxPage 收件箱详情加一页邮件
type InboxPage struct {
	Inbox      *domain.Inbox
	Messages   []domain.Message
	Page       int
	PageCount  int
	TotalCount int
}

// Create 为用户创建收件箱并分配投递凭证
func (s *InboxService) Create(ctx context.Context, userID, name string) (*domain.Inbox, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	now := time.Now().UTC()
	inbox := &domain.Inbox{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inbox.EnsureCredentials(s.cfg.LoginLength, s.cfg.PasswordLength)

	if err := s.store.SaveInbox(inbox); err != nil {
		return nil, err
	}

	s.cache.InvalidateInbox(ctx, inbox.ID, userID)

	if s.metrics != nil {
		s.metrics.InboxesCreated.Inc()
	}
	s.log.Info("inbox created",
		zap.String("inbox_id", inbox.ID),
		zap.String("user_id", userID),
	)
	return inbox, nil
}

// List 返回用户的全部收件箱
func (s *InboxService) List(ctx context.Context, userID string) ([]domain.Inbox, error) {
	return s.cache.ListInboxesForUser(ctx, userID)
}

// Get 获取收件箱，校验属主
func (s *InboxService) Get(ctx context.Context, userID, inboxID string) (*domain.Inbox, error) {
	inbox, err := s.cache.GetInboxByID(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	if inbox.UserID != userID {
		return nil, ErrForbidden
	}
	return inbox, nil
}

// GetPage 获取收件箱详情和第 page 页邮件。
// 页码超出当前总页数按未找到处理，收件箱为空时第一页合法。
func (s *InboxService) GetPage(ctx context.Context, userID, inboxID string, page int) (*InboxPage, error) {
	if page < 1 {
		return nil, ErrPageNotFound
	}

	inbox, err := s.Get(ctx, userID, inboxID)
	if err != nil {
		return nil, err
	}

	pageCount := inbox.PageCount(s.cfg.PageSize)
	if inbox.MessageCount > 0 && page > pageCount {
		return nil, ErrPageNotFound
	}

	messages, err := s.cache.GetMessagePage(ctx, inboxID, page)
	if err != nil {
		return nil, err
	}

	return &InboxPage{
		Inbox:      inbox,
		Messages:   messages,
		Page:       page,
		PageCount:  pageCount,
		TotalCount: inbox.MessageCount,
	}, nil
}

// Rename 重命名收件箱
func (s *InboxService) Rename(ctx context.Context, userID, inboxID, name string) (*domain.Inbox, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	inbox, err := s.ownedInbox(userID, inboxID)
	if err != nil {
		return nil, err
	}

	inbox.Name = name
	if err := s.store.UpdateInbox(inbox); err != nil {
		return nil, err
	}

	s.cache.InvalidateInbox(ctx, inboxID, userID)
	return inbox, nil
}

// Delete 删除收件箱及其全部邮件
func (s *InboxService) Delete(ctx context.Context, userID, inboxID string) error {
	if _, err := s.ownedInbox(userID, inboxID); err != nil {
		return err
	}

	if err := s.store.DeleteInbox(inboxID); err != nil {
		return err
	}

	s.cache.InvalidateInbox(ctx, inboxID, userID)

	if s.metrics != nil {
		s.metrics.InboxesDeleted.Inc()
	}
	s.log.Info("inbox deleted",
		zap.String("inbox_id", inboxID),
		zap.String("user_id", userID),
	)
	return nil
}

// Truncate 清空收件箱的全部邮件，返回删除数量
func (s *InboxService) Truncate(ctx context.Context, userID, inboxID string) (int, error) {
	if _, err := s.ownedInbox(userID, inboxID); err != nil {
		return 0, err
	}

	deleted, err := s.store.DeleteAllMessages(inboxID)
	if err != nil {
		return 0, err
	}

	s.cache.InvalidateInbox(ctx, inboxID, userID)

	s.log.Info("inbox truncated",
		zap.String("inbox_id", inboxID),
		zap.Int("deleted", deleted),
	)
	return deleted, nil
}

// ownedInbox 绕过缓存读取收件箱并校验属主，供变更路径使用
func (s *InboxService) ownedInbox(userID, inboxID string) (*domain.Inbox, error) {
	inbox, err := s.store.GetInbox(inboxID)
	if err != nil {
		return nil, err
	}
	if inbox.UserID != userID {
		return nil, ErrForbidden
	}
	return inbox, nil
}
