package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailflow/backend/internal/cache"
	"mailflow/backend/internal/config"
	"mailflow/backend/internal/domain"
	"mailflow/backend/internal/logger"
	"mailflow/backend/internal/storage"
	"mailflow/backend/internal/storage/memory"
)

// fakePublisher 记录发布的通知
type fakePublisher struct {
	published []publishedNotification
	err       error
}

type publishedNotification struct {
	UserID string
	Body   []byte
}

func (f *fakePublisher) Publish(ctx context.Context, userID string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedNotification{UserID: userID, Body: body})
	return nil
}

// fakeKV 供失效联动测试使用
type fakeKV struct {
	data map[string]string
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type fixture struct {
	store    *memory.Store
	kv       *fakeKV
	inboxes  *InboxService
	messages *MessageService
	pub      *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	kv := &fakeKV{data: make(map[string]string)}
	log := logger.NewDevelopment()
	c := cache.New(kv, store, time.Hour, 50, log)
	cfg := config.InboxConfig{PageSize: 50, LoginLength: 16, PasswordLength: 16}
	pub := &fakePublisher{}
	return &fixture{
		store:    store,
		kv:       kv,
		inboxes:  NewInboxService(store, c, cfg, log),
		messages: NewMessageService(store, c, pub, log),
		pub:      pub,
	}
}

func TestCreateInboxAssignsCredentials(t *testing.T) {
	f := newFixture(t)

	inbox, err := f.inboxes.Create(context.Background(), "user-1", "工作邮箱")
	require.NoError(t, err)
	assert.NotEmpty(t, inbox.ID)
	assert.Len(t, inbox.Login, 16)
	assert.Len(t, inbox.Password, 16)
	assert.Equal(t, "user-1", inbox.UserID)
}

func TestCreateInboxRejectsEmptyName(t *testing.T) {
	f := newFixture(t)

	_, err := f.inboxes.Create(context.Background(), "user-1", "   ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestGetInboxOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)

	got, err := f.inboxes.Get(ctx, "user-1", inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, inbox.ID, got.ID)

	_, err = f.inboxes.Get(ctx, "user-2", inbox.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.inboxes.Get(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, storage.ErrInboxNotFound)
}

func TestGetPageBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)

	// 空收件箱第一页合法
	page, err := f.inboxes.GetPage(ctx, "user-1", inbox.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Equal(t, 0, page.TotalCount)

	// 空收件箱第二页不合法
	_, err = f.inboxes.GetPage(ctx, "user-1", inbox.ID, 2)
	assert.ErrorIs(t, err, ErrPageNotFound)

	_, err = f.inboxes.GetPage(ctx, "user-1", inbox.ID, 0)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestGetPagePastEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)
	ingestMessages(t, f, inbox, 60)

	page, err := f.inboxes.GetPage(ctx, "user-1", inbox.ID, 2)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 10)
	assert.Equal(t, 2, page.PageCount)
	assert.Equal(t, 60, page.TotalCount)

	_, err = f.inboxes.GetPage(ctx, "user-1", inbox.ID, 3)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestRenameInbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "old")
	require.NoError(t, err)

	renamed, err := f.inboxes.Rename(ctx, "user-1", inbox.ID, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", renamed.Name)
	// 凭证保持不变
	assert.Equal(t, inbox.Login, renamed.Login)

	_, err = f.inboxes.Rename(ctx, "user-2", inbox.ID, "stolen")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteInboxCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)
	ingestMessages(t, f, inbox, 3)

	require.NoError(t, f.inboxes.Delete(ctx, "user-1", inbox.ID))

	_, err = f.store.GetInbox(inbox.ID)
	assert.ErrorIs(t, err, storage.ErrInboxNotFound)
}

func TestTruncateInbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)
	ingestMessages(t, f, inbox, 5)

	deleted, err := f.inboxes.Truncate(ctx, "user-1", inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	count, err := f.store.CountMessages(inbox.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngestPersistsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)

	message, err := f.messages.Ingest(ctx, IngestInput{
		Login:     inbox.Login,
		Password:  inbox.Password,
		FromAddr:  "sender@example.com",
		ToAddr:    inbox.Login + "@mail.example.com",
		Subject:   "hello",
		BodyPlain: "plain body",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, message.ID)

	// 通知发给属主，内容为邮件摘要
	require.Len(t, f.pub.published, 1)
	assert.Equal(t, "user-1", f.pub.published[0].UserID)

	var summary domain.MessageSummary
	require.NoError(t, json.Unmarshal(f.pub.published[0].Body, &summary))
	assert.Equal(t, message.ID, summary.ID)
	assert.Equal(t, "hello", summary.Subject)
}

func TestIngestRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)

	_, err = f.messages.Ingest(ctx, IngestInput{Login: inbox.Login, Password: "wrong"})
	assert.ErrorIs(t, err, ErrDeliveryDenied)

	_, err = f.messages.Ingest(ctx, IngestInput{Login: "unknown", Password: "x"})
	assert.ErrorIs(t, err, ErrDeliveryDenied)
}

func TestIngestSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)

	f.pub.err = assert.AnError
	message, err := f.messages.Ingest(ctx, IngestInput{
		Login:    inbox.Login,
		Password: inbox.Password,
		Subject:  "hello",
	})
	require.NoError(t, err)

	// 邮件已落库，通知丢失不补发
	_, err = f.store.GetMessage(message.ID)
	assert.NoError(t, err)
}

func TestIngestEvictsCachedPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)
	ingestMessages(t, f, inbox, 1)

	// 预热第一页缓存
	page, err := f.inboxes.GetPage(ctx, "user-1", inbox.ID, 1)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)

	ingestMessages(t, f, inbox, 1)

	// 新邮件立即可见，缓存中没有陈旧分页
	page, err = f.inboxes.GetPage(ctx, "user-1", inbox.ID, 1)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
}

func TestMessageGetAndDeleteOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbox, err := f.inboxes.Create(ctx, "user-1", "box")
	require.NoError(t, err)
	ingestMessages(t, f, inbox, 1)

	page, err := f.inboxes.GetPage(ctx, "user-1", inbox.ID, 1)
	require.NoError(t, err)
	messageID := page.Messages[0].ID

	got, err := f.messages.Get(ctx, "user-1", messageID)
	require.NoError(t, err)
	assert.Equal(t, messageID, got.ID)

	_, err = f.messages.Get(ctx, "user-2", messageID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.messages.Delete(ctx, "user-2", messageID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.messages.Delete(ctx, "user-1", messageID))

	_, err = f.messages.Get(ctx, "user-1", messageID)
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)
}

func ingestMessages(t *testing.T, f *fixture, inbox *domain.Inbox, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.messages.Ingest(context.Background(), IngestInput{
			Login:     inbox.Login,
			Password:  inbox.Password,
			FromAddr:  "sender@example.com",
			Subject:   "test message",
			BodyPlain: "body",
		})
		require.NoError(t, err)
	}
}
