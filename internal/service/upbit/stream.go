package upbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applogger "FlowTrader/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream is the websocket transport for the feed multiplexer.
type Stream struct {
	url              string
	handshakeTimeout time.Duration
	pingInterval     time.Duration
	log              *applogger.Logger

	conn      *websocket.Conn
	stopPing  chan struct{}
	closeOnce sync.Once
}

func NewStream(url string, handshakeTimeout, pingInterval time.Duration, l *applogger.Logger) *Stream {
	if l == nil {
		l = applogger.Nop()
	}
	return &Stream{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		pingInterval:     pingInterval,
		log:              l,
	}
}

// Open dials the endpoint and writes the subscription frame.
func (s *Stream) Open(ctx context.Context, subscription []byte) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("upbit connect: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, subscription); err != nil {
		_ = conn.Close()
		return fmt.Errorf("upbit subscribe: %w", err)
	}
	s.conn = conn
	s.stopPing = make(chan struct{})
	s.log.Info("upbit: connected", applogger.String("url", s.url))

	if s.pingInterval > 0 {
		go s.pingLoop(conn, s.stopPing)
	}
	return nil
}

func (s *Stream) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.pingInterval / 2)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.log.Debug("upbit: ping failed", applogger.Error(err))
			}
		}
	}
}

// Read returns the next text or binary frame.
func (s *Stream) Read() ([]byte, error) {
	if s.conn == nil {
		return nil, errors.New("upbit: not connected")
	}
	_, b, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("upbit read: %w", err)
	}
	return b, nil
}

// Close sends a close frame and releases the connection. Safe to call twice.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.conn == nil {
			return
		}
		close(s.stopPing)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = s.conn.Close()
		s.log.Info("upbit: connection closed")
	})
	return err
}
