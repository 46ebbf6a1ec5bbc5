package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailflow/backend/internal/middleware"
	"mailflow/backend/internal/service"
)

// MessageHandler 邮件相关端点
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler 创建邮件处理器
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Get 获取邮件全文
func (h *MessageHandler) Get(c *gin.Context) {
	message, err := h.messages.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	Success(c, message)
}

// Delete 删除邮件
func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.messages.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	NoContent(c)
}

type ingestRequest struct {
	Login     string `json:"login" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FromAddr  string `json:"fromAddr"`
	ToAddr    string `json:"toAddr"`
	Subject   string `json:"subject"`
	BodyPlain string `json:"bodyPlain"`
	BodyHTML  string `json:"bodyHtml"`
	Source    string `json:"source"`
}

// Ingest 接收外部投递服务转入的新邮件
func (h *MessageHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	message, err := h.messages.Ingest(c.Request.Context(), service.IngestInput{
		Login:     req.Login,
		Password:  req.Password,
		FromAddr:  req.FromAddr,
		ToAddr:    req.ToAddr,
		Subject:   req.Subject,
		BodyPlain: req.BodyPlain,
		BodyHTML:  req.BodyHTML,
		Source:    req.Source,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	Created(c, message.Summary(true))
}
