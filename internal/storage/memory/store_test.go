package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailflow/backend/internal/domain"
	"mailflow/backend/internal/storage"
)

func newInbox(userID string) *domain.Inbox {
	inbox := &domain.Inbox{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "box",
		CreatedAt: time.Now().UTC(),
	}
	inbox.EnsureCredentials(16, 16)
	return inbox
}

func newMessage(inboxID string, i int) *domain.Message {
	return &domain.Message{
		ID:        uuid.NewString(),
		InboxID:   inboxID,
		FromAddr:  "sender@example.com",
		Subject:   fmt.Sprintf("message %d", i),
		CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
	}
}

func TestSaveAndGetInbox(t *testing.T) {
	store := NewStore()
	inbox := newInbox("user-1")

	require.NoError(t, store.SaveInbox(inbox))

	got, err := store.GetInbox(inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, inbox.Name, got.Name)
	assert.Equal(t, 0, got.MessageCount)

	_, err = store.GetInbox("missing")
	assert.ErrorIs(t, err, storage.ErrInboxNotFound)
}

func TestSaveInboxRejectsDuplicateLogin(t *testing.T) {
	store := NewStore()
	first := newInbox("user-1")
	require.NoError(t, store.SaveInbox(first))

	second := newInbox("user-2")
	second.Login = first.Login
	assert.ErrorIs(t, store.SaveInbox(second), storage.ErrLoginExists)
}

func TestGetInboxByLogin(t *testing.T) {
	store := NewStore()
	inbox := newInbox("user-1")
	require.NoError(t, store.SaveInbox(inbox))

	got, err := store.GetInboxByLogin(inbox.Login)
	require.NoError(t, err)
	assert.Equal(t, inbox.ID, got.ID)

	_, err = store.GetInboxByLogin("missing")
	assert.ErrorIs(t, err, storage.ErrInboxNotFound)
}

func TestMessageCountIsLive(t *testing.T) {
	store := NewStore()
	inbox := newInbox("user-1")
	require.NoError(t, store.SaveInbox(inbox))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveMessage(newMessage(inbox.ID, i)))
	}

	got, err := store.GetInbox(inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MessageCount)

	count, err := store.CountMessages(inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestListMessagePageOrderAndBounds(t *testing.T) {
	store := NewStore()
	inbox := newInbox("user-1")
	require.NoError(t, store.SaveInbox(inbox))

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveMessage(newMessage(inbox.ID, i)))
	}

	page, err := store.ListMessagePage(inbox.ID, 1, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	// 按接收时间倒序
	assert.Equal(t, "message 4", page[0].Subject)
	assert.Equal(t, "message 2", page[2].Subject)

	page, err = store.ListMessagePage(inbox.ID, 2, 3)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = store.ListMessagePage(inbox.ID, 3, 3)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestDeleteInboxCascades(t *testing.T) {
	store := NewStore()
	inbox := newInbox("user-1")
	require.NoError(t, store.SaveInbox(inbox))

	msg := newMessage(inbox.ID, 0)
	require.NoError(t, store.SaveMessage(msg))

	require.NoError(t, store.DeleteInbox(inbox.ID))

	_, err := store.GetInbox(inbox.ID)
	assert.ErrorIs(t, err, storage.ErrInboxNotFound)
	_, err = store.GetMessage(msg.ID)
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)

	// 登录凭证可再次使用
	again := newInbox("user-1")
	again.Login = inbox.Login
	assert.NoError(t, store.SaveInbox(again))
}

func TestDeleteAllMessages(t *testing.T) {
	store := NewStore()
	inbox := newInbox("user-1")
	require.NoError(t, store.SaveInbox(inbox))

	for i := 0; i < 4; i++ {
		require.NoError(t, store.SaveMessage(newMessage(inbox.ID, i)))
	}

	deleted, err := store.DeleteAllMessages(inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)

	count, err := store.CountMessages(inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUserRepository(t *testing.T) {
	store := NewStore()
	user := &domain.User{
		ID:       uuid.NewString(),
		Email:    "user@example.com",
		Password: "hash",
		IsActive: true,
	}

	require.NoError(t, store.CreateUser(user))
	assert.ErrorIs(t, store.CreateUser(&domain.User{ID: uuid.NewString(), Email: user.Email}), storage.ErrEmailExists)

	byEmail, err := store.GetUserByEmail("user@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	require.NoError(t, store.UpdateLastLogin(user.ID))
	byID, err := store.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.NotNil(t, byID.LastLoginAt)
}
