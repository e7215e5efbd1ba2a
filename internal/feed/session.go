package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a control frame to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long the session may stay silent before the read fails.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	handshakeTimeout = 15 * time.Second
)

// Session is one live WebSocket connection. ReadMessage follows gorilla's
// contract: it returns the frame type and payload, or an error once the
// session is over. Close may be called from any goroutine.
type Session interface {
	ReadMessage() (messageType int, data []byte, err error)
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, url string) (Session, error)
}

// WSDialer dials real WebSocket sessions with gorilla/websocket.
type WSDialer struct {
	dialer websocket.Dialer
	header http.Header
}

// NewWSDialer returns a WSDialer with the default handshake timeout.
func NewWSDialer() *WSDialer {
	return &WSDialer{
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial connects to url and starts the keep-alive ping loop.
func (d *WSDialer) Dial(ctx context.Context, url string) (Session, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, d.header)
	if err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", url, err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	s := &wsSession{conn: conn, done: make(chan struct{})}
	go s.pingLoop()
	return s, nil
}

type wsSession struct {
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (s *wsSession) ReadMessage() (int, []byte, error) {
	mt, data, err := s.conn.ReadMessage()
	if err == nil {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	return mt, data, err
}

func (s *wsSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		err = s.conn.Close()
	})
	return err
}

// pingLoop sends control pings only; the channel carries no client messages.
func (s *wsSession) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
