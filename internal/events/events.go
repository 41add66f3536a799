// Package events publishes gym reservation lifecycle events to RabbitMQ.
// Publishing is best effort. Requests hand events to an AsyncPublisher and
// never wait on the broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ReservationCreated    = "gym.reservation.created"
	ReservationCheckedIn  = "gym.reservation.checked_in"
	ReservationCheckedOut = "gym.reservation.checked_out"
	ReservationCancelled  = "gym.reservation.cancelled"
	ReservationExpired    = "gym.reservation.expired"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

func NewEvent(eventType string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// DefaultDialTimeout bounds the TCP connect and AMQP handshake.
const DefaultDialTimeout = 5 * time.Second

// AMQPPublisher keeps one connection and channel open and redials on demand.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, queue string, dialTimeout time.Duration) *AMQPPublisher {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return &AMQPPublisher{url: url, queue: queue, dialTimeout: dialTimeout}
}

// connection returns the open connection, dialing without holding mu.
func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn != nil && !conn.IsClosed() {
		return conn, nil
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		// another caller won the race
		conn.Close()
		return p.conn, nil
	}
	p.conn = conn
	p.ch = nil
	return conn, nil
}

// channel returns an open channel with the queue declared.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()
	if ch != nil && !ch.IsClosed() {
		return ch, nil
	}

	conn, err := p.connection()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err = conn.Channel()
	if err != nil {
		return nil, err
	}

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("[EVENTS] marshal %s failed: %v", event.Type, err)
		return err
	}

	ch, err := p.channel()
	if err != nil {
		log.Printf("[EVENTS] rabbitmq unavailable, dropping %s: %v", event.Type, err)
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		log.Printf("[EVENTS] publish %s failed: %v", event.Type, err)
		return err
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

var (
	// ErrBufferFull is returned when an event is dropped because the queue is full.
	ErrBufferFull = errors.New("event buffer full")
	ErrClosed     = errors.New("publisher closed")
)

const DefaultBufferSize = 256

// AsyncPublisher queues events in memory and publishes them from a single
// goroutine so callers never block on the broker. Events are dropped when
// the buffer is full.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration
	queue   chan Event
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewAsyncPublisher(next Publisher, size int, timeout time.Duration) *AsyncPublisher {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	p := &AsyncPublisher{
		next:    next,
		timeout: timeout,
		queue:   make(chan Event, size),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		// next logs its own failures
		_ = p.next.Publish(ctx, event)
		cancel()
	}
}

// Publish enqueues the event without waiting. ctx is ignored; the worker
// publishes under its own timeout.
func (p *AsyncPublisher) Publish(_ context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- event:
		return nil
	default:
		p.dropped.Add(1)
		log.Printf("[EVENTS] buffer full, dropping %s", event.Type)
		return ErrBufferFull
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (p *AsyncPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close drains queued events, then closes the wrapped publisher if it can be closed.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	if c, ok := p.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
