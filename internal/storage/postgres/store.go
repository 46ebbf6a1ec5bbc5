package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailflow/backend/internal/domain"
	"mailflow/backend/internal/storage"
)

// Store 关系型存储实现（PostgreSQL / MySQL）
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.Inbox{},
		&domain.Message{},
	)
}

// ========== Inbox Repository ==========

// SaveInbox 保存收件箱
func (s *Store) SaveInbox(inbox *domain.Inbox) error {
	err := s.db.Create(inbox).Error
	if err != nil && isUniqueViolation(err) {
		return storage.ErrLoginExists
	}
	return err
}

// GetInbox 根据 ID 获取收件箱，MessageCount 实时计算
func (s *Store) GetInbox(id string) (*domain.Inbox, error) {
	var inbox domain.Inbox
	err := s.db.Where("id = ?", id).First(&inbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrInboxNotFound
		}
		return nil, err
	}

	count, err := s.CountMessages(inbox.ID)
	if err != nil {
		return nil, err
	}
	inbox.MessageCount = count

	return &inbox, nil
}

// GetInboxByLogin 根据投递登录凭证获取收件箱
func (s *Store) GetInboxByLogin(login string) (*domain.Inbox, error) {
	var inbox domain.Inbox
	err := s.db.Where("login = ?", login).First(&inbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrInboxNotFound
		}
		return nil, err
	}
	return &inbox, nil
}

// ListInboxesByUserID 返回用户的全部收件箱（按创建时间排序）
func (s *Store) ListInboxesByUserID(userID string) ([]domain.Inbox, error) {
	var inboxes []domain.Inbox
	err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&inboxes).Error
	if err != nil {
		return nil, err
	}

	for i := range inboxes {
		count, err := s.CountMessages(inboxes[i].ID)
		if err != nil {
			return nil, err
		}
		inboxes[i].MessageCount = count
	}

	return inboxes, nil
}

// UpdateInbox 更新收件箱
func (s *Store) UpdateInbox(inbox *domain.Inbox) error {
	result := s.db.Model(&domain.Inbox{}).Where("id = ?", inbox.ID).
		Updates(map[string]interface{}{
			"name":     inbox.Name,
			"login":    inbox.Login,
			"password": inbox.Password,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrInboxNotFound
	}
	return nil
}

// DeleteInbox 删除收件箱并级联删除其所有邮件（同一事务内）
func (s *Store) DeleteInbox(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inbox_id = ?", id).Delete(&domain.Message{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&domain.Inbox{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrInboxNotFound
		}
		return nil
	})
}

// CountMessages 返回收件箱当前的邮件总数
func (s *Store) CountMessages(inboxID string) (int, error) {
	var count int64
	err := s.db.Model(&domain.Message{}).Where("inbox_id = ?", inboxID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ========== Message Repository ==========

// SaveMessage 保存邮件
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.db.Create(message).Error
}

// GetMessage 根据 ID 获取邮件
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// ListMessagePage 返回按接收时间倒序的第 page 页邮件
func (s *Store) ListMessagePage(inboxID string, page, pageSize int) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}

	var messages []domain.Message
	err := s.db.Where("inbox_id = ?", inboxID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteMessage 删除邮件
func (s *Store) DeleteMessage(id string) error {
	result := s.db.Where("id = ?", id).Delete(&domain.Message{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

// DeleteAllMessages 清空收件箱所有邮件，返回删除数量
func (s *Store) DeleteAllMessages(inboxID string) (int, error) {
	result := s.db.Where("inbox_id = ?", inboxID).Delete(&domain.Message{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// ========== User Repository ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	err := s.db.Create(user).Error
	if err != nil && isUniqueViolation(err) {
		return storage.ErrEmailExists
	}
	return err
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	var user domain.User
	err := s.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 根据邮箱地址获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	var user domain.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin 更新用户最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	now := time.Now().UTC()
	return s.db.Model(&domain.User{}).Where("id = ?", userID).
		Update("last_login_at", &now).Error
}

// ========== 运维 ==========

// Health 检查数据库连接
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueViolation 判断错误是否为唯一约束冲突。
// gorm 在不同驱动下返回的错误类型不一致，这里统一按 ErrDuplicatedKey
// 加错误文本兜底判断。
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
