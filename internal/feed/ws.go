package feed

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures the websocket feed source.
type WSConfig struct {
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// WriteTimeout is the deadline for control frames.
	WriteTimeout time.Duration
	// Buffer is the decoded-event channel depth.
	Buffer int
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		Buffer:       256,
	}
}

// WSSource consumes the live event feed over a websocket. The transport
// collaborator guarantees delivery in (blockNumber, logIndex) order; this
// source only decodes and hands events to the engine one at a time.
type WSSource struct {
	endpoint string
	config   WSConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	events chan *Event
	errs   chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewWSSource connects to the feed endpoint and starts reading.
func NewWSSource(ctx context.Context, endpoint string, config *WSConfig) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &WSSource{
		endpoint: endpoint,
		config:   cfg,
		conn:     conn,
		events:   make(chan *Event, cfg.Buffer),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

// Next returns the next decoded event. Returns io.EOF after Close, or the
// read error that terminated the connection.
func (s *WSSource) Next(ctx context.Context) (*Event, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	case err := <-s.errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down the connection and the reader.
func (s *WSSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	err := s.conn.Close()
	s.connMu.Unlock()

	s.wg.Wait()
	return err
}

func (s *WSSource) readLoop() {
	defer s.wg.Done()
	defer close(s.events)

	for {
		if s.config.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.errs <- fmt.Errorf("websocket read: %w", err)
			}
			return
		}

		ev, err := DecodeEvent(message)
		if err != nil {
			s.errs <- err
			return
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *WSSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.connMu.Lock()
			_ = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
			s.connMu.Unlock()
		case <-s.done:
			return
		}
	}
}

var _ Source = (*WSSource)(nil)
