// Package amqp publishes and consumes ledger events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"moneysaver/internal/core"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures        = 5
	openTimeout        = 30 * time.Second
	maxBackoff         = 30 * time.Second
	maxPublishAttempts = 3
	publishTimeout     = 5 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	// Circuit breaker
	state        int32
	failureCount int64
	cbMu         sync.Mutex
	lastFailure  time.Time

	// backoff is swapped in tests
	backoff func(attempt int) time.Duration
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		backoff:      exponentialBackoff,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	return nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// ensureChannel reconnects when the connection or channel was dropped.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}

	c.closeLocked()
	if err := c.connect(); err != nil {
		return nil, err
	}
	slog.Info("Reconnected to AMQP broker", "exchange", c.exchangeName, "queue", c.queueName)
	return c.channel, nil
}

// PublishTransactionCreated publishes a transaction.created event
func (c *Client) PublishTransactionCreated(ctx context.Context, tx core.Transaction, source core.TransactionSource, ruleID string) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish transaction %s: %w", tx.ID, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewTransactionCreatedMessage(tx, source, ruleID)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publishWithRetry(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published transaction created message",
		"id", tx.ID,
		"source", source,
		"rule_id", ruleID,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

func (c *Client) publishWithRetry(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		lastErr = c.publishOnce(ctx, body)
		if lastErr == nil {
			c.recordSuccess()
			return nil
		}

		c.recordFailure()
		if !isConnectionError(lastErr) || c.isCircuitOpen() {
			break
		}

		slog.WarnContext(ctx, "AMQP publish failed, retrying",
			"attempt", attempt+1, "error", lastErr)
		c.dropConnection()
	}
	return fmt.Errorf("publish message: %w", lastErr)
}

func (c *Client) publishOnce(ctx context.Context, body []byte) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// ConsumeTransactionCreated consumes transaction.created messages until ctx is
// done. Undecodable messages are dropped; handler failures are requeued.
func (c *Client) ConsumeTransactionCreated(ctx context.Context, handler func(context.Context, *TransactionCreatedMessage) error) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming transaction messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := TransactionCreatedMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"id", msg.Transaction.ID,
					"redelivered", delivery.Redelivered)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
			slog.InfoContext(ctx, "Processed transaction message",
				"id", msg.Transaction.ID,
				"source", msg.Source)
		}
	}
}

// Ping reports whether the broker connection is usable.
func (c *Client) Ping() error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}
	_, err := c.ensureChannel()
	return err
}

func (c *Client) dropConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.cbMu.Lock()
	c.lastFailure = time.Now()
	c.cbMu.Unlock()

	failures := atomic.AddInt64(&c.failureCount, 1)
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			slog.Warn("AMQP circuit breaker opened", "failures", failures)
		}
	}
}

// isCircuitOpen reports whether publishing is currently blocked. An open
// circuit moves to half-open once openTimeout has passed since the last failure.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}

	c.cbMu.Lock()
	last := c.lastFailure
	c.cbMu.Unlock()

	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "dial"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
