package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RPCServer mirrors the client: declare queue, bind it to
// exchange+routing-key, consume with configured prefetch. For each
// delivery it decodes the payload, invokes the registered handler, and
// on success (if the delivery carries reply_to and correlation_id)
// publishes the response to the default exchange at reply_to with the
// matching correlation id. The delivery is always acknowledged whether
// or not the handler errored, to avoid poison-message storms; handler
// errors are recorded instead.
type RPCServer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     RPCServerConfig
	handler RPCHandler
	log     *logrus.Entry

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRPCServer connects and sets the configured prefetch (QoS).
func NewRPCServer(cfg RPCServerConfig, handler RPCHandler, log *logrus.Logger) (*RPCServer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, &Error{Op: "connect", Code: ErrTransport, Err: err}
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, &Error{Op: "channel", Code: ErrTransport, Err: err}
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return nil, &Error{Op: "qos", Code: ErrTransport, Err: err}
		}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RPCServer{conn: conn, channel: ch, cfg: cfg, handler: handler, log: log.WithField("component", "rpc_server")}, nil
}

// Start declares the server's durable queue, binds it to the
// configured exchange/routing key if both are set, and launches the
// consumer supervisor. It returns once consumption has begun.
func (s *RPCServer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("messaging: rpc server already running")
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	queue, err := s.channel.QueueDeclare(s.cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return &Error{Op: "declare_queue", Code: ErrTransport, Err: err}
	}
	if s.cfg.Exchange != "" && s.cfg.RoutingKey != "" {
		if err := s.channel.QueueBind(queue.Name, s.cfg.RoutingKey, s.cfg.Exchange, false, nil); err != nil {
			return &Error{Op: "bind_queue", Code: ErrTransport, Err: err}
		}
	}

	deliveries, err := s.channel.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return &Error{Op: "consume", Code: ErrTransport, Err: err}
	}

	s.wg.Add(1)
	go s.consume(runCtx, deliveries)
	return nil
}

func (s *RPCServer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			s.handleDelivery(d)
		}
	}
}

func (s *RPCServer) handleDelivery(d amqp.Delivery) {
	start := time.Now()
	response, err := s.handler(d.Body)
	if err != nil {
		s.log.WithError(err).WithField("correlation_id", d.CorrelationId).Error("rpc handler failed")
	} else if d.ReplyTo != "" && d.CorrelationId != "" {
		pubErr := s.channel.PublishWithContext(context.Background(), "", d.ReplyTo, false, false, amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: d.CorrelationId,
			Timestamp:     time.Now(),
			Body:          response,
		})
		if pubErr != nil {
			s.log.WithError(pubErr).Error("rpc reply publish failed")
		}
	}
	// Always ack, success or failure, to avoid poison-message storms;
	// the failure is recorded above instead.
	if ackErr := d.Ack(false); ackErr != nil {
		s.log.WithError(ackErr).Error("ack failed")
	}
	s.log.WithField("duration", time.Since(start)).Debug("rpc delivery handled")
}

// Stop cancels the consumer and waits for it to exit.
func (s *RPCServer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("messaging: rpc server is not running")
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
