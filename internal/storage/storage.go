package storage

import (
	"errors"

	"mailflow/backend/internal/domain"
)

var (
	// ErrInboxNotFound 收件箱未找到错误
	ErrInboxNotFound = errors.New("inbox not found")
	// ErrMessageNotFound 邮件未找到错误
	ErrMessageNotFound = errors.New("message not found")
	// ErrUserNotFound 用户未找到错误
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists 邮箱地址已被注册错误
	ErrEmailExists = errors.New("email already exists")
	// ErrLoginExists 收件箱登录凭证冲突错误（唯一约束被破坏）
	ErrLoginExists = errors.New("inbox login already exists")
)

// InboxRepository 定义收件箱数据存取操作。
//
// 读取返回的 Inbox.MessageCount 必须基于当前已提交状态实时计算，
// 失效引擎依赖它推导分页范围。
type InboxRepository interface {
	SaveInbox(inbox *domain.Inbox) error
	GetInbox(id string) (*domain.Inbox, error)
	GetInboxByLogin(login string) (*domain.Inbox, error)
	ListInboxesByUserID(userID string) ([]domain.Inbox, error)
	UpdateInbox(inbox *domain.Inbox) error
	DeleteInbox(id string) error // 级联删除所有邮件
	CountMessages(inboxID string) (int, error)
}

// MessageRepository 定义邮件数据存取操作。
type MessageRepository interface {
	SaveMessage(message *domain.Message) error
	GetMessage(id string) (*domain.Message, error)
	// ListMessagePage 返回按接收时间倒序排列的第 page 页邮件（page 从 1 开始）。
	ListMessagePage(inboxID string, page, pageSize int) ([]domain.Message, error)
	DeleteMessage(id string) error
	DeleteAllMessages(inboxID string) (int, error) // 清空收件箱，返回删除数量
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	UpdateLastLogin(userID string) error
}

// Store 聚合全部存储能力。
type Store interface {
	InboxRepository
	MessageRepository
	UserRepository

	Health() error
	Close() error
}
