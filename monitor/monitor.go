// Package monitor streams telemetry events to websocket clients.
package monitor

import (
	"context"
	"encoding/json"
	"evroaming/internal"
	"evroaming/telemetry"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	wsEndpoint = "/monitor/ws"
	sendBuffer = 64
	writeWait  = 5 * time.Second
)

type subscriber struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Monitor fans events out to connected clients. A client whose buffer is
// full is dropped instead of slowing the caller down.
type Monitor struct {
	upgrader websocket.Upgrader
	logger   internal.LogHandler
	mux      sync.Mutex
	clients  map[*subscriber]struct{}
}

func New(logger internal.LogHandler) *Monitor {
	return &Monitor{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*subscriber]struct{}),
	}
}

func (m *Monitor) Register(router *httprouter.Router) {
	router.GET(wsEndpoint, m.handleWsRequest)
}

func (m *Monitor) Count() int {
	m.mux.Lock()
	defer m.mux.Unlock()
	return len(m.clients)
}

// Observe is a telemetry observer.
func (m *Monitor) Observe(_ context.Context, event *telemetry.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	m.mux.Lock()
	defer m.mux.Unlock()
	for s := range m.clients {
		select {
		case s.send <- data:
		default:
			delete(m.clients, s)
			s.close()
			m.debug("monitor client %s dropped: too slow", s.remote)
		}
	}
	return nil
}

// Close disconnects every client.
func (m *Monitor) Close() {
	m.mux.Lock()
	defer m.mux.Unlock()
	for s := range m.clients {
		delete(m.clients, s)
		s.close()
	}
}

func (m *Monitor) handleWsRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if m.logger != nil {
			m.logger.Error("monitor upgrade failed", err)
		}
		return
	}
	s := &subscriber{conn: conn, remote: r.RemoteAddr, send: make(chan []byte, sendBuffer)}
	m.mux.Lock()
	m.clients[s] = struct{}{}
	m.mux.Unlock()
	m.debug("monitor client connected from %s", r.RemoteAddr)

	go m.writePump(s)
	m.readPump(s)
}

// readPump only watches for the client going away.
func (m *Monitor) readPump(s *subscriber) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			m.mux.Lock()
			delete(m.clients, s)
			m.mux.Unlock()
			s.close()
			return
		}
	}
}

func (m *Monitor) writePump(s *subscriber) {
	defer func() {
		_ = s.conn.Close()
	}()
	for data := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			m.debug("monitor write to %s: %s", s.remote, err)
			return
		}
	}
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (m *Monitor) debug(format string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(fmt.Sprintf(format, args...))
	}
}
