package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// pendingCall is a (correlation_id, result sink) pair held while the
// caller awaits a reply, tracked through the states
// registered -> resolved | timed_out | channel_closed.
type pendingCall struct {
	mu     sync.Mutex
	state  PendingState
	result chan []byte
}

func newPendingCall() *pendingCall {
	return &pendingCall{state: PendingRegistered, result: make(chan []byte, 1)}
}

func (p *pendingCall) resolve(body []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PendingRegistered {
		return false // late reply after timeout/close: silently discarded
	}
	p.state = PendingResolved
	p.result <- body
	return true
}

func (p *pendingCall) expire(state PendingState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PendingRegistered {
		p.state = state
	}
}

// RPCClient implements the request/response surface: an exclusive,
// auto-delete reply queue declared at initialization; a fresh
// correlation id per call; a one-shot result sink parked under that
// id; a background consumer that resolves it on the matching reply;
// and a timeout that unregisters the sink and surfaces Timeout.
type RPCClient struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	cfg        RPCClientConfig
	replyQueue string

	mu        sync.Mutex
	callbacks map[string]*pendingCall

	log *logrus.Entry
}

// NewRPCClient connects, declares the client's exclusive/auto-delete
// reply queue named "{prefix}.{uuid}", and starts the background
// consumer that dispatches replies to pending calls.
func NewRPCClient(ctx context.Context, cfg RPCClientConfig, log *logrus.Logger) (*RPCClient, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, &Error{Op: "connect", Code: ErrTransport, Err: err}
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, &Error{Op: "channel", Code: ErrTransport, Err: err}
	}

	replyQueueName := fmt.Sprintf("%s.%s", cfg.ReplyQueuePrefix, uuid.New().String())
	queue, err := ch.QueueDeclare(replyQueueName, false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, &Error{Op: "declare_reply_queue", Code: ErrTransport, Err: err}
	}

	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("component", "rpc_client")

	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, &Error{Op: "consume_reply_queue", Code: ErrTransport, Err: err}
	}

	c := &RPCClient{
		conn:       conn,
		channel:    ch,
		cfg:        cfg,
		replyQueue: queue.Name,
		callbacks:  make(map[string]*pendingCall),
		log:        entry,
	}
	go c.consumeReplies(deliveries)
	return c, nil
}

func (c *RPCClient) consumeReplies(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		if d.CorrelationId == "" {
			continue
		}
		c.mu.Lock()
		pending, ok := c.callbacks[d.CorrelationId]
		if ok {
			delete(c.callbacks, d.CorrelationId)
		}
		c.mu.Unlock()
		if !ok {
			continue // no one is waiting; a reply arriving after timeout is discarded
		}
		pending.resolve(d.Body)
	}
	// channel closed: anyone still registered transitions to CHANNEL_CLOSED.
	c.mu.Lock()
	for id, pending := range c.callbacks {
		pending.expire(PendingChannelClosed)
		delete(c.callbacks, id)
	}
	c.mu.Unlock()
}

// Call publishes payload to routingKey with a fresh correlation id and
// this client's reply queue, and awaits the matching reply or timeout.
// On timeout the pending sink is removed and Error{Code: ErrTimeout} is
// returned; a reply that arrives afterward is silently discarded by
// consumeReplies's "no one is waiting" branch.
func (c *RPCClient) Call(ctx context.Context, routingKey string, payload []byte) ([]byte, error) {
	correlationID := uuid.New().String()
	pending := newPendingCall()

	c.mu.Lock()
	c.callbacks[correlationID] = pending
	c.mu.Unlock()

	err := c.channel.PublishWithContext(ctx, c.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		ReplyTo:       c.replyQueue,
		Timestamp:     time.Now(),
		Body:          payload,
	})
	if err != nil {
		c.mu.Lock()
		delete(c.callbacks, correlationID)
		c.mu.Unlock()
		return nil, &Error{Op: "publish", Code: ErrTransport, Err: err}
	}

	timeout := c.cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case body := <-pending.result:
		return body, nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.callbacks, correlationID)
		c.mu.Unlock()
		pending.expire(PendingTimedOut)
		return nil, &Error{Op: "call", Code: ErrTimeout, Err: fmt.Errorf("no reply within %s", timeout)}
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.callbacks, correlationID)
		c.mu.Unlock()
		pending.expire(PendingTimedOut)
		return nil, &Error{Op: "call", Code: ErrTimeout, Err: ctx.Err()}
	}
}

// PendingCount reports the number of calls currently awaiting a reply.
func (c *RPCClient) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.callbacks)
}

// Close releases the channel and connection.
func (c *RPCClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
