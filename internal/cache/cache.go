package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailflow/backend/internal/domain"
	"mailflow/backend/internal/monitoring"
	"mailflow/backend/internal/storage"
)

// KV 定义缓存服务的键值能力。
// Get 在键不存在时返回 ok=false 且 err=nil。
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cache 是三类读取操作的读穿缓存。
//
// 缓存是建议性的：键值服务不可用时直接回源计算，不向调用方报错。
// 一致性由失效引擎（invalidate.go）与 TTL 过期共同保证。
type Cache struct {
	kv       KV // 可为 nil，表示无缓存服务
	store    storage.Store
	ttl      time.Duration
	pageSize int
	log      *zap.Logger
	metrics  *monitoring.Metrics // 可为 nil
}

// New 创建读穿缓存。
func New(kv KV, store storage.Store, ttl time.Duration, pageSize int, log *zap.Logger) *Cache {
	return &Cache{
		kv:       kv,
		store:    store,
		ttl:      ttl,
		pageSize: pageSize,
		log:      log,
	}
}

// SetMetrics 设置监控指标（可选）。
func (c *Cache) SetMetrics(m *monitoring.Metrics) {
	c.metrics = m
}

// PageSize 返回缓存使用的分页大小。
func (c *Cache) PageSize() int {
	return c.pageSize
}

// 缓存键由操作名加参数元组构成
func inboxKey(inboxID string) string {
	return fmt.Sprintf("inbox:%s", inboxID)
}

func inboxListKey(userID string) string {
	return fmt.Sprintf("inbox_list:%s", userID)
}

func pageKey(inboxID string, page int) string {
	return fmt.Sprintf("inbox_page:%s:%d", inboxID, page)
}

// GetInboxByID 读取收件箱，命中时不访问底层存储。
func (c *Cache) GetInboxByID(ctx context.Context, inboxID string) (*domain.Inbox, error) {
	key := inboxKey(inboxID)

	var cached domain.Inbox
	if c.lookup(ctx, "get_inbox", key, &cached) {
		return &cached, nil
	}

	inbox, err := c.store.GetInbox(inboxID)
	if err != nil {
		return nil, err
	}

	c.fill(ctx, key, inbox)
	return inbox, nil
}

// ListInboxesForUser 读取用户的收件箱列表。
func (c *Cache) ListInboxesForUser(ctx context.Context, userID string) ([]domain.Inbox, error) {
	key := inboxListKey(userID)

	var cached []domain.Inbox
	if c.lookup(ctx, "list_inboxes", key, &cached) {
		return cached, nil
	}

	inboxes, err := c.store.ListInboxesByUserID(userID)
	if err != nil {
		return nil, err
	}

	c.fill(ctx, key, inboxes)
	return inboxes, nil
}

// GetMessagePage 读取收件箱第 page 页的邮件（page 从 1 开始）。
func (c *Cache) GetMessagePage(ctx context.Context, inboxID string, page int) ([]domain.Message, error) {
	key := pageKey(inboxID, page)

	var cached []domain.Message
	if c.lookup(ctx, "get_message_page", key, &cached) {
		return cached, nil
	}

	messages, err := c.store.ListMessagePage(inboxID, page, c.pageSize)
	if err != nil {
		return nil, err
	}

	c.fill(ctx, key, messages)
	return messages, nil
}

// lookup 尝试从键值服务读取并反序列化缓存值。
// 未命中、服务不可用或数据损坏都按未命中处理。
func (c *Cache) lookup(ctx context.Context, op, key string, out interface{}) bool {
	if c.kv == nil {
		return false
	}

	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		// 缓存不可用时直接回源，不影响读取
		c.log.Warn("cache read failed, falling back to store",
			zap.String("key", key), zap.Error(err))
		c.markMiss(op)
		return false
	}
	if !ok {
		c.markMiss(op)
		return false
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.log.Warn("cache entry corrupted, falling back to store",
			zap.String("key", key), zap.Error(err))
		c.markMiss(op)
		return false
	}

	c.markHit(op)
	return true
}

// fill 以新 TTL 写入缓存条目，失败只记录日志。
func (c *Cache) fill(ctx context.Context, key string, value interface{}) {
	if c.kv == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.kv.Set(ctx, key, string(data), c.ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) markHit(op string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(op).Inc()
	}
}

func (c *Cache) markMiss(op string) {
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(op).Inc()
	}
}
