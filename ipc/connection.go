package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrRemote wraps a failure reported by the device in a result envelope.
	ErrRemote = errors.New("device error")
	// ErrClosed is returned by calls pending when the connection goes away.
	ErrClosed = errors.New("connection closed")
)

// Handler processes a received envelope. Return nil to send no reply.
// Handlers run on the read loop and must not block on Call.
type Handler func(env Envelope) (*Envelope, error)

// Connection represents a single device app talking to the sidecar.
// Each device gets its own connection, identified after the hello handshake.
type Connection struct {
	conn     io.ReadWriteCloser
	handlers map[string]Handler
	Device   string

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Envelope

	closed    chan struct{}
	closeOnce sync.Once
}

func NewConnection(conn io.ReadWriteCloser, handlers map[string]Handler) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &Connection{
		conn:     conn,
		handlers: handlers,
		pending:  make(map[string]chan Envelope),
		closed:   make(chan struct{}),
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

func (c *Connection) Send(msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return c.write(env)
}

func (c *Connection) write(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteEnvelope(c.conn, env)
}

// Call sends a request and blocks until the matching result arrives, ctx
// is done or the connection closes. resp may be nil when the result
// carries no data.
func (c *Connection) Call(ctx context.Context, msgType string, req, resp any) error {
	env, err := NewEnvelope(msgType, req)
	if err != nil {
		return err
	}
	env.ID = uuid.NewString()

	ch := make(chan Envelope, 1)
	c.mu.Lock()
	c.pending[env.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, env.ID)
		c.mu.Unlock()
	}()

	if err := c.write(env); err != nil {
		return fmt.Errorf("%s: %w", msgType, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return fmt.Errorf("%s: %w", msgType, ErrClosed)
	case res := <-ch:
		if res.Error != "" {
			return fmt.Errorf("%s: %w: %s", msgType, ErrRemote, res.Error)
		}
		if resp != nil && len(res.Data) > 0 {
			if err := json.Unmarshal(res.Data, resp); err != nil {
				return fmt.Errorf("unmarshal %s result: %w", msgType, err)
			}
		}
		return nil
	}
}

func (c *Connection) deliver(env Envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	c.mu.Unlock()
	if !ok {
		slog.Warn("result for unknown request", "id", env.ID, "device", c.Device)
		return
	}
	select {
	case ch <- env:
	default:
		slog.Warn("duplicate result dropped", "id", env.ID, "device", c.Device)
	}
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} { return c.closed }

func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// ReadLoop blocks until the connection closes or errors. It owns the conn lifetime
// so callers don't need to track cleanup.
func (c *Connection) ReadLoop() {
	defer c.Close()

	for {
		env, err := ReadEnvelope(c.conn)
		if err != nil {
			slog.Info("connection read ended", "device", c.Device, "error", err)
			return
		}

		if env.Type == TypeResult {
			c.deliver(env)
			continue
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			slog.Warn("no handler for message type", "type", env.Type)
			continue
		}

		resp, err := handler(env)
		if err != nil {
			slog.Error("handler error", "type", env.Type, "error", err)
			continue
		}

		if resp != nil {
			if err := c.write(*resp); err != nil {
				slog.Error("failed to send response", "type", resp.Type, "error", err)
				return
			}
			slog.Info("sent response", "type", resp.Type, "device", c.Device)
		}
	}
}
