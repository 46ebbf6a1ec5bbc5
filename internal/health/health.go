package health

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailflow/backend/internal/storage"
)

// Checker 聚合各依赖的存活检查
type Checker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewChecker 创建健康检查器，数据库检查默认注册
func NewChecker(store storage.Store, logger *zap.Logger) *Checker {
	c := &Checker{
		health: healthcheck.NewHandler(),
		logger: logger,
	}

	c.health.AddReadinessCheck("database", func() error {
		return store.Health()
	})

	return c
}

// AddCheck 注册额外的就绪检查（Redis、消息代理等可选依赖）
func (c *Checker) AddCheck(name string, check healthcheck.Check) {
	c.health.AddReadinessCheck(name, check)
}

// LiveHandler 返回存活探针处理器
func (c *Checker) LiveHandler() http.Handler {
	return http.HandlerFunc(c.health.LiveEndpoint)
}

// ReadyHandler 返回就绪探针处理器
func (c *Checker) ReadyHandler() http.Handler {
	return http.HandlerFunc(c.health.ReadyEndpoint)
}
