// Package amqp turns messages on a RabbitMQ queue into catalog change
// notifications, for catalog sources that cannot be watched directly.
package amqp

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/effectus/schemadraft/adapters"
)

// Config holds the queue a notifier consumes
type Config struct {
	URL             string `json:"url" yaml:"url"`
	Queue           string `json:"queue" yaml:"queue"`
	Exchange        string `json:"exchange" yaml:"exchange"`
	ExchangeType    string `json:"exchange_type" yaml:"exchange_type"`
	ExchangeDeclare bool   `json:"exchange_declare" yaml:"exchange_declare"`
	RoutingKey      string `json:"routing_key" yaml:"routing_key"`
	ConsumerTag     string `json:"consumer_tag" yaml:"consumer_tag"`
	QueueDeclare    bool   `json:"queue_declare" yaml:"queue_declare"`
	QueueDurable    bool   `json:"queue_durable" yaml:"queue_durable"`
	QueueExclusive  bool   `json:"queue_exclusive" yaml:"queue_exclusive"`
	QueueAutoDel    bool   `json:"queue_auto_delete" yaml:"queue_auto_delete"`
	Prefetch        int    `json:"prefetch" yaml:"prefetch"`
}

// channel is the part of *amqp.Channel a notifier uses
type channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type dialFunc func(url string) (channel, func() error, error)

// Notifier calls back whenever a message arrives on its queue. Messages are
// auto-acked; a notification carries no state beyond "reload".
type Notifier struct {
	config *Config
	dial   dialFunc

	mu      sync.Mutex
	running bool
}

// NewNotifier validates config and fills in defaults
func NewNotifier(config *Config) (*Notifier, error) {
	if config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := validate(config); err != nil {
		return nil, err
	}
	if config.ConsumerTag == "" {
		config.ConsumerTag = "schemadraft-watch"
	}
	if config.ExchangeType == "" {
		config.ExchangeType = "topic"
	}
	return &Notifier{config: config, dial: dial}, nil
}

func validate(config *Config) error {
	if config.URL == "" {
		return fmt.Errorf("url is required")
	}
	if config.Queue == "" {
		return fmt.Errorf("queue is required")
	}
	return nil
}

func dial(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

// Watch consumes the queue and calls onChange per message until ctx is
// done or the broker closes the delivery channel.
func (n *Notifier) Watch(ctx context.Context, logger *zap.SugaredLogger, onChange func()) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return fmt.Errorf("notifier already running")
	}
	n.running = true
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		n.running = false
		n.mu.Unlock()
	}()

	ch, closeConn, err := n.dial(n.config.URL)
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer closeConn()
	defer ch.Close()

	msgs, err := n.setup(ch)
	if err != nil {
		return err
	}
	logger.Infow("waiting for catalog notifications", "queue", n.config.Queue, "exchange", n.config.Exchange)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed by broker")
			}
			kind, uid := describe(msg.Body)
			logger.Debugw("catalog notification", "routing_key", msg.RoutingKey, "kind", kind, "uid", uid)
			onChange()
		}
	}
}

func (n *Notifier) setup(ch channel) (<-chan amqp.Delivery, error) {
	c := n.config
	if c.Prefetch > 0 {
		if err := ch.Qos(c.Prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("setting prefetch: %w", err)
		}
	}
	if c.ExchangeDeclare {
		if err := ch.ExchangeDeclare(c.Exchange, c.ExchangeType, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declaring exchange %s: %w", c.Exchange, err)
		}
	}
	if c.QueueDeclare {
		if _, err := ch.QueueDeclare(c.Queue, c.QueueDurable, c.QueueAutoDel, c.QueueExclusive, false, nil); err != nil {
			return nil, fmt.Errorf("declaring queue %s: %w", c.Queue, err)
		}
	}
	if c.Exchange != "" {
		if err := ch.QueueBind(c.Queue, c.RoutingKey, c.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("binding queue %s: %w", c.Queue, err)
		}
	}
	msgs, err := ch.Consume(c.Queue, c.ConsumerTag, true, c.QueueExclusive, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consuming %s: %w", c.Queue, err)
	}
	return msgs, nil
}

// describe pulls the optional kind and uid out of a JSON notification
func describe(body []byte) (string, string) {
	if !gjson.ValidBytes(body) {
		return "", ""
	}
	fields := gjson.GetManyBytes(body, "kind", "uid")
	return fields[0].String(), fields[1].String()
}

// FromSourceConfig builds a notifier from a free-form config block
func FromSourceConfig(config adapters.SourceConfig) (*Notifier, error) {
	var cfg Config
	if err := adapters.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewNotifier(&cfg)
}
