package domain

import (
	"time"
)

// Inbox 表示用户的收件箱实体。
//
// Login/Password 是该收件箱的投递凭证，仅在创建时生成一次，
// 之后不会被隐式重新生成。
type Inbox struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"userId" gorm:"type:varchar(36);index"`
	Name      string    `json:"name" gorm:"type:varchar(255);index"`
	Login     string    `json:"login" gorm:"type:varchar(255);uniqueIndex"`
	Password  string    `json:"password" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// MessageCount 是派生字段：当前收件箱拥有的邮件总数。
	// 由存储层在读取时用最新的 COUNT 填充，从不落库。
	MessageCount int `json:"totalMessages" gorm:"-"`
}

// PageCount 按页大小计算分页总数（向上取整）。
// 始终基于当前 MessageCount 计算，不做任何缓存。
func (i *Inbox) PageCount(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (i.MessageCount + pageSize - 1) / pageSize
}

// EnsureCredentials 为收件箱生成投递凭证。
// 已设置的字段不会被覆盖（对预置值幂等）。
func (i *Inbox) EnsureCredentials(loginLength, passwordLength int) {
	if i.Login == "" {
		i.Login = RandomCredential(loginLength)
	}
	if i.Password == "" {
		i.Password = RandomCredential(passwordLength)
	}
}
