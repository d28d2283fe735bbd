package websocket

import (
	"encoding/json"
	"time"

	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// управляющие сообщения консоли маленькие
	maxControlMessageSize = 4096
	sendQueueSize         = 256
)

// controlMessage команда от консоли
type controlMessage struct {
	Action      string   `json:"action"`
	VesselIDs   []string `json:"vesselIds"`
	MinSeverity string   `json:"minSeverity"`
}

// Session одно подключение консоли
type Session struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	send   chan Message
	filter Filter // меняется только под hub.mu
	logger *logger.Logger
}

func NewSession(hub *Hub, conn *websocket.Conn, filter Filter, log *logger.Logger) *Session {
	return &Session{
		id:     uuid.NewString(),
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, sendQueueSize),
		filter: filter,
		logger: log,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) info() SubscriptionInfo {
	return SubscriptionInfo{
		SessionID:   s.id,
		VesselIDs:   s.filter.VesselList(),
		MinSeverity: string(s.filter.MinSeverity),
	}
}

// Serve регистрирует сессию и обслуживает соединение до его закрытия
func (s *Session) Serve() {
	s.hub.Join(s)
	go s.writeLoop()
	s.readLoop()
}

// handleControl разбирает команду консоли
func (s *Session) handleControl(raw []byte) {
	var cmd controlMessage
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.hub.sendTo(s, Message{Type: MessageError, Data: "malformed control message"})
		return
	}

	switch cmd.Action {
	case "subscribe":
		filter, err := NewFilter(cmd.VesselIDs, cmd.MinSeverity)
		if err != nil {
			s.hub.sendTo(s, Message{Type: MessageError, Data: err.Error()})
			return
		}
		s.hub.resubscribe(s, filter)
	default:
		s.hub.sendTo(s, Message{Type: MessageError, Data: "unknown action " + cmd.Action})
	}
}

func (s *Session) readLoop() {
	defer func() {
		s.hub.Leave(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxControlMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Live feed read failed", "session_id", s.id, "error", err.Error())
			}
			return
		}
		if kind == websocket.TextMessage {
			s.handleControl(raw)
		}
	}
}

// writeLoop единственный писатель в conn
func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Debug("Live feed write failed", "session_id", s.id, "error", err.Error())
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
