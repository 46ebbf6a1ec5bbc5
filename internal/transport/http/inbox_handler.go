package httptransport

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailflow/backend/internal/config"
	"mailflow/backend/internal/domain"
	"mailflow/backend/internal/middleware"
	"mailflow/backend/internal/service"
)

// InboxHandler 收件箱相关端点
type InboxHandler struct {
	inboxes *service.InboxService
	cfg     config.InboxConfig
}

// NewInboxHandler 创建收件箱处理器
func NewInboxHandler(inboxes *service.InboxService, cfg config.InboxConfig) *InboxHandler {
	return &InboxHandler{
		inboxes: inboxes,
		cfg:     cfg,
	}
}

type inboxRequest struct {
	Name string `json:"name" binding:"required"`
}

type inboxResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	TotalMessages int       `json:"totalMessages"`
	CreatedAt     time.Time `json:"createdAt"`
}

type inboxDetailResponse struct {
	inboxResponse
	Login             string                  `json:"login"`
	Password          string                  `json:"password"`
	Host              string                  `json:"host"`
	Port              int                     `json:"port"`
	PageNumber        int                     `json:"pageNumber"`
	TotalPages        int                     `json:"totalPages"`
	MessagesOnPage    int                     `json:"messagesOnPage"`
	MaxMessagesOnPage int                     `json:"maxMessagesOnPage"`
	Messages          []domain.MessageSummary `json:"messages"`
}

type inboxListResponse struct {
	Items []inboxResponse `json:"items"`
	Count int             `json:"count"`
}

// List 返回当前用户的收件箱列表
func (h *InboxHandler) List(c *gin.Context) {
	inboxes, err := h.inboxes.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]inboxResponse, 0, len(inboxes))
	for i := range inboxes {
		items = append(items, toInboxResponse(&inboxes[i]))
	}

	Success(c, inboxListResponse{Items: items, Count: len(items)})
}

// Create 创建收件箱
func (h *InboxHandler) Create(c *gin.Context) {
	var req inboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	inbox, err := h.inboxes.Create(c.Request.Context(), middleware.UserID(c), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	Created(c, h.toDetailResponse(inbox, nil, 1, 1))
}

// Get 收件箱详情加一页邮件，page 参数默认为 1
func (h *InboxHandler) Get(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		page = parsed
	}

	result, err := h.inboxes.GetPage(c.Request.Context(), middleware.UserID(c), c.Param("id"), page)
	if err != nil {
		writeError(c, err)
		return
	}

	Success(c, h.toDetailResponse(result.Inbox, result.Messages, result.Page, result.PageCount))
}

// Rename 重命名收件箱
func (h *InboxHandler) Rename(c *gin.Context) {
	var req inboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	inbox, err := h.inboxes.Rename(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	Success(c, toInboxResponse(inbox))
}

// Delete 删除收件箱
func (h *InboxHandler) Delete(c *gin.Context) {
	if err := h.inboxes.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	NoContent(c)
}

// Clean 清空收件箱邮件
func (h *InboxHandler) Clean(c *gin.Context) {
	deleted, err := h.inboxes.Truncate(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	Success(c, gin.H{"deleted": deleted})
}

func toInboxResponse(inbox *domain.Inbox) inboxResponse {
	return inboxResponse{
		ID:            inbox.ID,
		Name:          inbox.Name,
		TotalMessages: inbox.MessageCount,
		CreatedAt:     inbox.CreatedAt,
	}
}

func (h *InboxHandler) toDetailResponse(inbox *domain.Inbox, messages []domain.Message, page, pageCount int) inboxDetailResponse {
	summaries := make([]domain.MessageSummary, 0, len(messages))
	for i := range messages {
		summaries = append(summaries, messages[i].Summary(false))
	}

	return inboxDetailResponse{
		inboxResponse:     toInboxResponse(inbox),
		Login:             inbox.Login,
		Password:          inbox.Password,
		Host:              h.cfg.Host,
		Port:              h.cfg.Port,
		PageNumber:        page,
		TotalPages:        pageCount,
		MessagesOnPage:    len(summaries),
		MaxMessagesOnPage: h.cfg.PageSize,
		Messages:          summaries,
	}
}
