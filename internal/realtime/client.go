package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsSender adapts one gorilla connection to the Sender interface: a
// buffered channel drained by the write pump, with send-or-drop
// semantics so one slow reader never stalls a broadcast.
type wsSender struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newWSSender(conn *websocket.Conn) *wsSender {
	return &wsSender{conn: conn, send: make(chan []byte, 64)}
}

func (s *wsSender) TrySend(b []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (s *wsSender) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	_ = s.conn.Close()
	s.mu.Unlock()
}
