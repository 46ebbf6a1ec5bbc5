package domain

import (
	"time"
)

// User 表示平台的注册用户，拥有若干收件箱。
type User struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email       string     `json:"email" gorm:"type:varchar(255);uniqueIndex"`
	Password    string     `json:"-" gorm:"type:varchar(255)"` // bcrypt 哈希
	IsActive    bool       `json:"isActive" gorm:"default:true"`
	IsAdmin     bool       `json:"isAdmin" gorm:"default:false"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
