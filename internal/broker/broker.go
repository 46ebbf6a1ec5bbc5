package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"mailflow/backend/internal/config"
)

// ErrUnavailable 消息代理不可达错误。
// 打开订阅或发布通知时代理不可达，调用方据此返回服务端错误。
var ErrUnavailable = errors.New("broker unavailable")

// Broker 封装 RabbitMQ 连接与共享 topic exchange。
//
// 连接按需建立：启动时代理不可达不会导致进程退出，
// 后续的订阅/发布调用会重试拨号并在失败时返回 ErrUnavailable。
type Broker struct {
	url      string
	exchange string
	codec    Codec
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

// New 创建 Broker 并尝试建立首个连接。
// 首次拨号失败只记录警告，连接会在下一次使用时重建。
func New(cfg *config.BrokerConfig, log *zap.Logger) *Broker {
	b := &Broker{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		codec:    Codec{Namespace: cfg.Namespace},
		log:      log,
	}

	if err := b.ensureConnection(); err != nil {
		log.Warn("broker not reachable at startup, will retry on demand", zap.Error(err))
	}

	return b
}

// Codec 返回路由键编解码器。
func (b *Broker) Codec() Codec {
	return b.codec
}

// Publish 以指定用户的具体路由键发布一条通知。
// token 为每条通知随机选取，订阅方通过通配模式接收。
func (b *Broker) Publish(ctx context.Context, userID string, body []byte) error {
	ch, err := b.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	key := b.codec.ConcreteKey(userID, uuid.NewString())
	err = ch.PublishWithContext(ctx, b.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	b.log.Debug("notification published",
		zap.String("user_id", userID),
		zap.Int("bytes", len(body)),
	)
	return nil
}

// Health 检查代理连接状态。
func (b *Broker) Health() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.conn.IsClosed() {
		return ErrUnavailable
	}
	return nil
}

// Close 关闭代理连接。
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	if err != nil {
		b.log.Error("failed to close broker connection", zap.Error(err))
		return err
	}
	b.log.Info("broker connection closed")
	return nil
}

// ensureConnection 确保存在可用连接，并在新连接上声明共享 exchange。
func (b *Broker) ensureConnection() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil && !b.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// topic exchange 为持久声明，所有连接共享同一个
	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ch.Close()

	b.conn = conn
	b.log.Info("connected to broker", zap.String("exchange", b.exchange))
	return nil
}

// channel 在当前连接上开启一个新信道，必要时先重建连接。
func (b *Broker) channel() (*amqp.Channel, error) {
	if err := b.ensureConnection(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ch, nil
}
