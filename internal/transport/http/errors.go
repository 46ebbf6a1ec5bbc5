package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mailflow/backend/internal/auth"
	"mailflow/backend/internal/broker"
	"mailflow/backend/internal/service"
	"mailflow/backend/internal/storage"
)

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgAuthRequired   = "需要登录认证"
	MsgInternalError  = "服务器内部错误，请稍后重试"

	MsgInboxNotFound    = "收件箱不存在"
	MsgMessageNotFound  = "邮件不存在"
	MsgPageNotFound     = "页码超出范围"
	MsgForbidden        = "无权访问该资源"
	MsgInvalidName      = "收件箱名称无效"
	MsgEmailExists      = "该邮箱已被注册"
	MsgInvalidLogin     = "邮箱或密码错误"
	MsgUserInactive     = "账户已被禁用"
	MsgBrokerDown       = "推送服务暂不可用，请稍后重试"
	MsgDeliveryRejected = "投递凭证无效"
)

// writeError 将业务错误映射为 HTTP 响应。
// 未识别的错误一律按服务器内部错误处理，不泄露细节。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrInboxNotFound):
		NotFound(c, MsgInboxNotFound)
	case errors.Is(err, storage.ErrMessageNotFound):
		NotFound(c, MsgMessageNotFound)
	case errors.Is(err, service.ErrPageNotFound):
		NotFound(c, MsgPageNotFound)
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, MsgForbidden)
	case errors.Is(err, service.ErrInvalidName):
		BadRequest(c, MsgInvalidName)
	case errors.Is(err, service.ErrDeliveryDenied):
		Unauthorized(c, MsgDeliveryRejected)
	case errors.Is(err, auth.ErrInvalidEmail):
		BadRequest(c, err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		Conflict(c, MsgEmailExists)
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(c, MsgInvalidLogin)
	case errors.Is(err, auth.ErrUserInactive):
		Forbidden(c, MsgUserInactive)
	case errors.Is(err, broker.ErrUnavailable):
		ServiceUnavailable(c, MsgBrokerDown)
	default:
		InternalError(c, MsgInternalError)
	}
}
