package httptransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailflow/backend/internal/broker"
)

func TestStreamRejectsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/message/update", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStreamBrokerUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.subscriber.err = broker.ErrUnavailable

	w := env.do(t, http.MethodGet, "/api/message/update", env.token(t, "user-1"), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStreamDeliversFrames(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	// 预先投入两条通知，随后关闭订阅让处理器退出
	env.subscriber.sub.ch <- broker.Notification{Key: "newmail.user-1.t1", Body: []byte(`{"id":"m1"}`)}
	env.subscriber.sub.ch <- broker.Notification{Key: "newmail.user-1.t2", Body: []byte(`{"id":"m2"}`)}
	env.subscriber.sub.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/message/update", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "data: {\"id\":\"m1\"}\n\n")
	assert.Contains(t, body, "data: {\"id\":\"m2\"}\n\n")
}

func TestStreamStopsOnClientDisconnect(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/message/update", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.router.ServeHTTP(w, req)
	}()

	// 模拟客户端断开
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not stop after client disconnect")
	}
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStreamQueryParamToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")
	env.subscriber.sub.Close()

	// EventSource 无法设置请求头，令牌经 query 参数传递
	w := env.do(t, http.MethodGet, "/api/message/update?token="+token, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
