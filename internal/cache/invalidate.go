package cache

import (
	"context"

	"go.uber.org/zap"
)

// InvalidateInbox 清除某个收件箱的全部缓存足迹。
//
// 在每次影响该收件箱的变更（邮件增删、收件箱增改删）落库之后、
// 变更调用返回之前同步执行。分页总数随邮件数量变化，页边界会整体
// 移动，因此必须清除 1..page_count 的所有分页键，而不仅是受影响
// 邮件所在的那一页；page_count 基于变更后的最新邮件数计算。
// 同时清除收件箱条目和属主的收件箱列表（两者都暴露派生计数）。
//
// 失效是尽力而为：键值服务不可用时记录日志并继续，残留的陈旧
// 条目由 TTL 过期兜底。重复执行与执行一次结果相同。
func (c *Cache) InvalidateInbox(ctx context.Context, inboxID, userID string) {
	if c.kv == nil {
		return
	}

	pages := 0
	count, err := c.store.CountMessages(inboxID)
	if err != nil {
		// 无法确定分页范围时仍然清除基础键加第一页
		c.log.Warn("failed to count messages for invalidation scope",
			zap.String("inbox_id", inboxID), zap.Error(err))
	} else if c.pageSize > 0 {
		pages = (count + c.pageSize - 1) / c.pageSize
	}

	// 至少清除第一页：清空到零条时 page_count 为 0，
	// 但第一页可能仍缓存着清空前的内容
	if pages < 1 {
		pages = 1
	}

	keys := make([]string, 0, pages+2)
	for p := 1; p <= pages; p++ {
		keys = append(keys, pageKey(inboxID, p))
	}
	keys = append(keys, inboxKey(inboxID), inboxListKey(userID))

	if err := c.kv.Del(ctx, keys...); err != nil {
		// 变更本身不能因缓存失效失败而中止，陈旧窗口以 TTL 为界
		c.log.Warn("cache invalidation failed, staleness bounded by TTL",
			zap.String("inbox_id", inboxID),
			zap.Int("keys", len(keys)),
			zap.Error(err))
		if c.metrics != nil {
			c.metrics.InvalidationFailures.Inc()
		}
		return
	}

	if c.metrics != nil {
		c.metrics.InvalidationsTotal.Inc()
		c.metrics.InvalidationKeysEvicted.Add(float64(len(keys)))
	}

	c.log.Debug("cache invalidated",
		zap.String("inbox_id", inboxID),
		zap.String("user_id", userID),
		zap.Int("pages", pages),
	)
}
