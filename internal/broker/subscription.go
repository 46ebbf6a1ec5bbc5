package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notification 是订阅收到的一条通知。
type Notification struct {
	Key  string // 发布时使用的具体路由键
	Body []byte
}

// Subscription 是一条推送流对应的订阅句柄。
//
// 生命周期必须显式管理：打开后无论哪条路径退出都要调用 Close，
// 代理侧的 auto-delete 仅作为连接异常时的兜底清理。
type Subscription interface {
	// Notifications 返回通知接收通道。代理连接丢失时通道被关闭。
	Notifications() <-chan Notification
	// Close 释放订阅及其底层队列。可安全地重复调用。
	Close() error
}

// Subscriber 定义订阅能力，推送端点依赖此接口而非具体实现。
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// Subscribe 为指定用户打开一个新订阅：
// 声明一个以新随机 token 命名的非持久、排他、auto-delete 队列，
// 以该用户的通配模式绑定到共享 exchange 并开始消费。
// 每条推送流各自持有一个订阅，互不影响。
func (b *Broker) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	ch, err := b.channel()
	if err != nil {
		return nil, err
	}

	queueName := b.codec.ConcreteKey(userID, uuid.NewString())
	queue, err := ch.QueueDeclare(queueName, false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pattern := b.codec.WildcardPattern(userID)
	if err := ch.QueueBind(queue.Name, pattern, b.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// 每个活跃订阅至多投递一次，不为离线客户端保留
	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sub := &queueSubscription{
		ch:   ch,
		out:  make(chan Notification),
		done: make(chan struct{}),
	}
	go sub.pump(deliveries)

	b.log.Debug("subscription opened",
		zap.String("user_id", userID),
		zap.String("queue", queue.Name),
		zap.String("pattern", pattern),
	)
	return sub, nil
}

// queueSubscription 是基于 AMQP 队列的订阅实现。
type queueSubscription struct {
	ch   *amqp.Channel
	out  chan Notification
	done chan struct{}
	once sync.Once
}

// pump 把 AMQP 投递转发到通知通道。
// 信道关闭或 Close 被调用后退出并关闭通知通道。
func (s *queueSubscription) pump(deliveries <-chan amqp.Delivery) {
	defer close(s.out)
	for d := range deliveries {
		select {
		case s.out <- Notification{Key: d.RoutingKey, Body: d.Body}:
		case <-s.done:
			return
		}
	}
}

func (s *queueSubscription) Notifications() <-chan Notification {
	return s.out
}

func (s *queueSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ch.Close()
	})
	return err
}
