package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailflow/backend/internal/auth"
	"mailflow/backend/internal/monitoring"
)

// AuthHandler 认证相关端点
type AuthHandler struct {
	auth    *auth.Service
	metrics *monitoring.Metrics // 可为 nil
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, metrics *monitoring.Metrics) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		metrics: metrics,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type authResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.auth.Register(auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.UsersRegistered.Inc()
	}
	Created(c, toAuthResponse(result))
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.auth.Login(auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	Success(c, toAuthResponse(result))
}

// Refresh 刷新访问令牌
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	accessToken, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		Unauthorized(c, "刷新令牌无效或已过期")
		return
	}

	Success(c, gin.H{"accessToken": accessToken})
}

// Me 返回当前登录用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.GetUserByID(c.GetString("userID"))
	if err != nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	Success(c, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"createdAt": user.CreatedAt,
	})
}

func toAuthResponse(result *auth.AuthResult) authResponse {
	return authResponse{
		UserID:       result.User.ID,
		Email:        result.User.Email,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    result.Tokens.ExpiresIn,
	}
}
