package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
)

// HelloFunc is called once per connection with the device's hello. It
// should start the run in the background and return the ack to send.
type HelloFunc func(ctx context.Context, c *Connection, hello HelloMessage) (AckMessage, error)

// Server accepts device connections on a unix socket.
type Server struct {
	Path    string
	OnHello HelloFunc

	wg sync.WaitGroup
}

// Serve listens until ctx is cancelled, then closes every live connection
// and waits for their read loops to end.
func (s *Server) Serve(ctx context.Context) error {
	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(s.Path); err != nil {
		return fmt.Errorf("clean up socket %s: %w", s.Path, err)
	}

	listener, err := net.Listen("unix", s.Path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Path, err)
	}
	defer os.Remove(s.Path)

	slog.Info("listening on domain socket", "path", s.Path)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				slog.Error("failed to accept connection", "error", err)
				continue
			}
		}
		slog.Info("new connection accepted")
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	c := NewConnection(conn, nil)
	c.RegisterHandler(TypeHello, s.helloHandler(ctx, c))

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.Done():
		}
	}()
	c.ReadLoop()
}

func (s *Server) helloHandler(ctx context.Context, c *Connection) Handler {
	greeted := false
	return func(env Envelope) (*Envelope, error) {
		var hello HelloMessage
		if err := json.Unmarshal(env.Data, &hello); err != nil {
			return nil, fmt.Errorf("unmarshal hello: %w", err)
		}
		if greeted {
			return nil, fmt.Errorf("duplicate hello from %q", hello.Device)
		}
		greeted = true

		c.Device = hello.Device
		slog.Info("device identified", "device", hello.Device, "campaign", hello.Campaign)

		ack := AckMessage{Status: "ok"}
		if s.OnHello != nil {
			var err error
			ack, err = s.OnHello(ctx, c, hello)
			if err != nil {
				slog.Error("rejecting device", "device", hello.Device, "error", err)
				ack = AckMessage{Status: "error", Reason: err.Error()}
			}
		}

		resp, err := NewEnvelope(TypeAck, ack)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	}
}
