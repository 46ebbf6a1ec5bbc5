package domain

import (
	"time"
)

// Message 表示收到的一封邮件。除删除外不可变更。
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	InboxID   string    `json:"inboxId" gorm:"type:varchar(36);index"`
	FromAddr  string    `json:"fromAddr" gorm:"type:varchar(255)"`
	ToAddr    string    `json:"toAddr" gorm:"type:varchar(255)"`
	Subject   string    `json:"subject" gorm:"type:text"`
	BodyPlain string    `json:"bodyPlain,omitempty" gorm:"type:text"`
	BodyHTML  string    `json:"bodyHtml,omitempty" gorm:"type:text"`
	Source    string    `json:"-" gorm:"type:text"` // 原始邮件内容
	CreatedAt time.Time `json:"createdAt"`
}

// MessageSummary 是用于列表展示与推送通知的精简视图。
type MessageSummary struct {
	ID        string    `json:"id"`
	InboxID   string    `json:"inboxId,omitempty"`
	FromAddr  string    `json:"fromAddr"`
	ToAddr    string    `json:"toAddr"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary 生成邮件的精简视图。withInboxID 控制是否携带所属收件箱 ID。
func (m *Message) Summary(withInboxID bool) MessageSummary {
	s := MessageSummary{
		ID:        m.ID,
		FromAddr:  m.FromAddr,
		ToAddr:    m.ToAddr,
		Subject:   m.Subject,
		CreatedAt: m.CreatedAt,
	}
	if withInboxID {
		s.InboxID = m.InboxID
	}
	return s
}
