// Package transport owns the single connection to the relay daemon: the
// address handshake, reconnect-with-fixed-delay, and correlation of
// asynchronous responses to outbound requests.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/saleel/nymdrive/internal/common"
	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/wire"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
)

// EventType distinguishes lifecycle events.
type EventType int

const (
	// EventConnected is emitted on the first successful address handshake
	// after a disconnected period.
	EventConnected EventType = iota
	// EventDisconnected is emitted when an established connection closes.
	EventDisconnected
)

// Event is a lifecycle notification consumed by exactly one subscriber.
type Event struct {
	Type    EventType
	Address string
}

// ReconnectDelay is the fixed pause between reconnect attempts. There is no
// backoff growth and no retry limit; the relay daemon is local and assumed
// to eventually come back.
const ReconnectDelay = time.Second

// ReceiveHandler is invoked for unsolicited inbound payloads (messages that
// do not match a pending correlation id).
type ReceiveHandler func(ctx context.Context, p *wire.Payload)

// Client maintains the WebSocket connection to the relay daemon.
type Client struct {
	url   string
	log   logging.Logger
	clock clockwork.Clock

	dialer *websocket.Dialer

	mu          sync.Mutex
	conn        *websocket.Conn
	state       State
	selfAddress string
	ready       chan struct{}
	announced   bool
	waiters     map[string]chan *wire.Payload

	writeMu sync.Mutex

	requestTimeout time.Duration

	handler ReceiveHandler
	events  chan Event
}

// NewClient returns a client for the relay daemon at url. Run must be
// called to establish and maintain the connection.
func NewClient(url string, log logging.Logger, clock clockwork.Clock) *Client {
	return &Client{
		url:     url,
		log:     log.With("component", "transport"),
		clock:   clock,
		dialer:  websocket.DefaultDialer,
		ready:   make(chan struct{}),
		waiters: make(map[string]chan *wire.Payload),
		events:  make(chan Event, 16),
	}
}

// SetReceiveHandler registers the handler for unsolicited messages. Must be
// called before Run.
func (c *Client) SetReceiveHandler(h ReceiveHandler) {
	c.handler = h
}

// SetRequestTimeout bounds every Request with d. Zero (the default) keeps
// the historical wait-forever contract. Must be called before Run.
func (c *Client) SetRequestTimeout(d time.Duration) {
	c.requestTimeout = d
}

// Events returns the lifecycle event channel. It is consumed by a single
// subscriber (the sync coordinator).
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelfAddress returns this device's relay address, or "" before the first
// handshake.
func (c *Client) SelfAddress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfAddress
}

// Run dials the relay and keeps the connection alive until ctx is canceled,
// reconnecting after a fixed delay whenever the socket closes.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Warn(ctx, "relay dial failed", "url", c.url, "error", err)
		} else {
			c.attach(conn)
			if err := c.writeFrame(wire.EncodeSelfAddressQuery()); err != nil {
				c.log.Warn(ctx, "address query failed", "error", err)
			} else {
				c.readPump(ctx, conn)
			}
			_ = conn.Close()
			c.detach(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(ReconnectDelay):
		}
	}
}

// Request sends p to recipient, registers a waiter under the correlation id
// and blocks until the correlated response arrives or ctx is canceled. A
// lost reply blocks until cancellation; the relay gives no delivery
// guarantee.
func (c *Client) Request(ctx context.Context, p *wire.Payload, recipient string) (*wire.Payload, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}
	if err := c.awaitReady(ctx); err != nil {
		return nil, err
	}

	actionID := p.ActionID
	if actionID == "" {
		actionID = uuid.NewString()
	}

	waiter := make(chan *wire.Payload, 1)
	c.mu.Lock()
	c.waiters[actionID] = waiter
	c.mu.Unlock()

	if err := c.transmit(p, actionID, recipient); err != nil {
		c.removeWaiter(actionID)
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.removeWaiter(actionID)
		return nil, ctx.Err()
	case resp := <-waiter:
		return resp, nil
	}
}

// Send transmits p to recipient without waiting for a response.
func (c *Client) Send(ctx context.Context, p *wire.Payload, recipient string) error {
	if err := c.awaitReady(ctx); err != nil {
		return err
	}

	actionID := p.ActionID
	if actionID == "" {
		actionID = uuid.NewString()
	}
	return c.transmit(p, actionID, recipient)
}

func (c *Client) transmit(p *wire.Payload, actionID, recipient string) error {
	out := *p
	out.ActionID = actionID
	out.SenderAddress = c.SelfAddress()

	data, err := wire.EncodeSend(&out, recipient)
	if err != nil {
		return err
	}
	if err := c.writeFrame(data); err != nil {
		return fmt.Errorf("sending %s: %w", out.Action, err)
	}
	return nil
}

func (c *Client) writeFrame(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return common.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// awaitReady suspends the caller until the address handshake has completed,
// or ctx is canceled. The barrier is a one-shot channel, not a poll loop.
func (c *Client) awaitReady(ctx context.Context) error {
	for {
		c.mu.Lock()
		ready := c.ready
		if c.state == StateReady {
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
		}
	}
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn(ctx, "relay connection closed", "error", err)
			return
		}
		c.handleFrame(ctx, data)
	}
}

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	frame, err := wire.ParseFrame(data)
	if err != nil {
		// Malformed frames are logged and dropped, never fatal.
		c.log.Warn(ctx, "dropping malformed frame", "error", err)
		return
	}

	if frame.SelfAddress != "" {
		c.handleSelfAddress(ctx, frame.SelfAddress)
		return
	}

	p := frame.Payload
	if p.ActionID != "" {
		c.mu.Lock()
		waiter, ok := c.waiters[p.ActionID]
		if ok {
			delete(c.waiters, p.ActionID)
		}
		c.mu.Unlock()
		if ok {
			waiter <- p
			return
		}
	}

	// Unsolicited message, or a response whose waiter is long gone (e.g. a
	// replayed ADD_DEVICE_APPROVED): hand it to the receive handler in its
	// own goroutine so a slow handler cannot stall the read pump.
	if c.handler != nil {
		go c.handler(ctx, p)
	} else {
		c.log.Warn(ctx, "no receive handler registered", "action", p.Action)
	}
}

func (c *Client) handleSelfAddress(ctx context.Context, address string) {
	c.mu.Lock()
	c.selfAddress = address
	c.state = StateReady
	select {
	case <-c.ready:
		// barrier already open
	default:
		close(c.ready)
	}
	announce := !c.announced
	c.announced = true
	c.mu.Unlock()

	c.log.Info(ctx, "relay ready", "address", address)

	if announce {
		c.events <- Event{Type: EventConnected, Address: address}
	}
}

func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Client) detach(ctx context.Context) {
	c.mu.Lock()
	c.conn = nil
	c.state = StateDisconnected
	c.ready = make(chan struct{})
	announce := c.announced
	c.announced = false
	// Waiters are deliberately left registered: a request in flight at
	// disconnect time stays unresolved (documented limitation); only its
	// caller's context can release it.
	c.mu.Unlock()

	if announce {
		c.log.Info(ctx, "relay disconnected")
		c.events <- Event{Type: EventDisconnected}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Client) removeWaiter(actionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.waiters, actionID)
}
