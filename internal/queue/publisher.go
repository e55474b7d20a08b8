package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dialTimeout    = 5 * time.Second
	publishTimeout = 5 * time.Second
	outboxSize     = 256
)

// ErrOutboxFull is returned when events arrive faster than the broker
// accepts them.
var ErrOutboxFull = errors.New("queue: outbox full")

// Publisher sends events to the default exchange. PublishBookingConfirmed
// only queues the event; Run drains the queue over one long-lived
// connection, redialing after the broker drops it.
type Publisher struct {
	url string
	log *zap.Logger
	out chan BookingConfirmedEvent

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log, out: make(chan BookingConfirmedEvent, outboxSize)}
}

// PublishBookingConfirmed queues ev without blocking.
func (p *Publisher) PublishBookingConfirmed(_ context.Context, ev BookingConfirmedEvent) error {
	select {
	case p.out <- ev:
		return nil
	default:
		p.log.Warn("rabbitmq outbox full, dropping event", zap.Uint64("booking_id", ev.BookingID))
		return ErrOutboxFull
	}
}

// Run publishes queued events until ctx is cancelled. A failed publish is
// logged and not retried.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.out:
			if err := p.publish(ctx, ev); err != nil {
				p.log.Warn("rabbitmq publish failed", zap.Uint64("booking_id", ev.BookingID), zap.Error(err))
				p.close()
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev BookingConfirmedEvent) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", BookingConfirmedQueue, false, false, pub); err != nil {
		return err
	}
	p.log.Debug("published booking confirmation", zap.Uint64("booking_id", ev.BookingID))
	return nil
}

// channel returns the open channel, dialing and declaring the queue when
// there is none.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := dial(p.url)
		if err != nil {
			return nil, err
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// dial connects with a bounded TCP dial instead of amqp.Dial's 30s default.
func dial(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
}
