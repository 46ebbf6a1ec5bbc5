package memory

import (
	"sort"
	"sync"
	"time"

	"mailflow/backend/internal/domain"
	"mailflow/backend/internal/storage"
)

// Store 使用内存保存收件箱与邮件数据，主要用于开发验证和测试。
type Store struct {
	mu       sync.RWMutex
	inboxes  map[string]*domain.Inbox
	byLogin  map[string]string                     // login -> inboxID
	messages map[string]map[string]*domain.Message // inboxID -> messageID -> message
	users    map[string]*domain.User               // userID -> user
	byEmail  map[string]string                     // email -> userID
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		inboxes:  make(map[string]*domain.Inbox),
		byLogin:  make(map[string]string),
		messages: make(map[string]map[string]*domain.Message),
		users:    make(map[string]*domain.User),
		byEmail:  make(map[string]string),
	}
}

// ========== Inbox Repository ==========

// SaveInbox 保存收件箱
func (s *Store) SaveInbox(inbox *domain.Inbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byLogin[inbox.Login]; ok && existing != inbox.ID {
		return storage.ErrLoginExists
	}

	clone := *inbox
	s.inboxes[inbox.ID] = &clone
	s.byLogin[inbox.Login] = inbox.ID
	if _, ok := s.messages[inbox.ID]; !ok {
		s.messages[inbox.ID] = make(map[string]*domain.Message)
	}
	return nil
}

// GetInbox 根据 ID 获取收件箱，MessageCount 实时计算
func (s *Store) GetInbox(id string) (*domain.Inbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inbox, ok := s.inboxes[id]
	if !ok {
		return nil, storage.ErrInboxNotFound
	}

	clone := *inbox
	clone.MessageCount = len(s.messages[id])
	return &clone, nil
}

// GetInboxByLogin 根据投递登录凭证获取收件箱
func (s *Store) GetInboxByLogin(login string) (*domain.Inbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byLogin[login]
	if !ok {
		return nil, storage.ErrInboxNotFound
	}

	clone := *s.inboxes[id]
	clone.MessageCount = len(s.messages[id])
	return &clone, nil
}

// ListInboxesByUserID 返回用户的全部收件箱（按创建时间排序）
func (s *Store) ListInboxesByUserID(userID string) ([]domain.Inbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Inbox, 0)
	for id, inbox := range s.inboxes {
		if inbox.UserID != userID {
			continue
		}
		clone := *inbox
		clone.MessageCount = len(s.messages[id])
		out = append(out, clone)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateInbox 更新收件箱
func (s *Store) UpdateInbox(inbox *domain.Inbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.inboxes[inbox.ID]
	if !ok {
		return storage.ErrInboxNotFound
	}

	delete(s.byLogin, existing.Login)
	clone := *inbox
	s.inboxes[inbox.ID] = &clone
	s.byLogin[inbox.Login] = inbox.ID
	return nil
}

// DeleteInbox 删除收件箱并级联删除其所有邮件
func (s *Store) DeleteInbox(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inbox, ok := s.inboxes[id]
	if !ok {
		return storage.ErrInboxNotFound
	}

	delete(s.byLogin, inbox.Login)
	delete(s.inboxes, id)
	delete(s.messages, id)
	return nil
}

// CountMessages 返回收件箱当前的邮件总数
func (s *Store) CountMessages(inboxID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[inboxID]), nil
}

// ========== Message Repository ==========

// SaveMessage 保存邮件
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inboxes[message.InboxID]; !ok {
		return storage.ErrInboxNotFound
	}

	clone := *message
	if _, ok := s.messages[message.InboxID]; !ok {
		s.messages[message.InboxID] = make(map[string]*domain.Message)
	}
	s.messages[message.InboxID][message.ID] = &clone
	return nil
}

// GetMessage 根据 ID 获取邮件
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, byID := range s.messages {
		if message, ok := byID[id]; ok {
			clone := *message
			return &clone, nil
		}
	}
	return nil, storage.ErrMessageNotFound
}

// ListMessagePage 返回按接收时间倒序的第 page 页邮件
func (s *Store) ListMessagePage(inboxID string, page, pageSize int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if page < 1 {
		page = 1
	}

	all := make([]domain.Message, 0, len(s.messages[inboxID]))
	for _, message := range s.messages[inboxID] {
		all = append(all, *message)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(all) {
		return []domain.Message{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// DeleteMessage 删除邮件
func (s *Store) DeleteMessage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for inboxID, byID := range s.messages {
		if _, ok := byID[id]; ok {
			delete(s.messages[inboxID], id)
			return nil
		}
	}
	return storage.ErrMessageNotFound
}

// DeleteAllMessages 清空收件箱所有邮件，返回删除数量
func (s *Store) DeleteAllMessages(inboxID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.messages[inboxID])
	s.messages[inboxID] = make(map[string]*domain.Message)
	return count, nil
}

// ========== User Repository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return storage.ErrEmailExists
	}

	clone := *user
	s.users[user.ID] = &clone
	s.byEmail[user.Email] = user.ID
	return nil
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

// GetUserByEmail 根据邮箱地址获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *s.users[id]
	return &clone, nil
}

// UpdateLastLogin 更新用户最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return nil
}

// ========== 运维 ==========

// Health 内存存储始终健康
func (s *Store) Health() error { return nil }

// Close 关闭存储（内存实现为空操作）
func (s *Store) Close() error { return nil }
