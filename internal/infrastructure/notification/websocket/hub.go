// Package websocket живая лента вердиктов и alert'ов для консолей вахты.
// Консоль подписывается на суда и минимальный уровень через query или
// управляющим сообщением {"action":"subscribe", ...}.
package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

const (
	MessageWelcome    = "welcome"
	MessageSubscribed = "subscribed"
	MessageVerdict    = "verdict"
	MessageAlert      = "alert"
	MessageError      = "error"
)

// Message конверт всех сообщений ленты
type Message struct {
	Type     string    `json:"type"`
	VesselID string    `json:"vesselId,omitempty"`
	Severity string    `json:"severity,omitempty"`
	Data     any       `json:"data,omitempty"`
	SentAt   time.Time `json:"sentAt"`
}

// SubscriptionInfo тело welcome и subscribed
type SubscriptionInfo struct {
	SessionID   string   `json:"sessionId"`
	VesselIDs   []string `json:"vesselIds"`
	MinSeverity string   `json:"minSeverity,omitempty"`
}

type directMessage struct {
	session *Session
	msg     Message
}

// Hub владеет набором сессий; все изменения набора идут через Run
type Hub struct {
	sessions map[*Session]struct{}
	mu       sync.RWMutex

	events chan Message
	direct chan directMessage
	join   chan *Session
	leave  chan *Session

	// dropped события, не доставленные из-за переполнения очередей
	dropped atomic.Int64

	logger *logger.Logger
	now    func() time.Time
}

var _ port.LiveFeed = (*Hub)(nil)

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		events:   make(chan Message, 256),
		direct:   make(chan directMessage, 64),
		join:     make(chan *Session),
		leave:    make(chan *Session),
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run обслуживает hub до отмены ctx; при остановке закрывает все сессии
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Live feed hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.sessions {
				h.drop(s)
			}
			h.mu.Unlock()
			h.logger.Info("Live feed hub stopped", "dropped_events", h.dropped.Load())
			return

		case s := <-h.join:
			h.mu.Lock()
			h.sessions[s] = struct{}{}
			h.offer(s, h.stamp(Message{Type: MessageWelcome, Data: s.info()}))
			total := len(h.sessions)
			h.mu.Unlock()
			h.logger.Debug("Live feed session joined", "session_id", s.id, "sessions", total)

		case s := <-h.leave:
			h.mu.Lock()
			if _, ok := h.sessions[s]; ok {
				h.drop(s)
			}
			total := len(h.sessions)
			h.mu.Unlock()
			h.logger.Debug("Live feed session left", "session_id", s.id, "sessions", total)

		case d := <-h.direct:
			h.mu.Lock()
			if _, ok := h.sessions[d.session]; ok {
				h.offer(d.session, d.msg)
			}
			h.mu.Unlock()

		case msg := <-h.events:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	severity := valueobject.Severity(msg.Severity)
	for s := range h.sessions {
		if s.filter.Matches(msg.VesselID, severity) {
			h.offer(s, msg)
		}
	}
}

// offer кладет сообщение в очередь сессии; переполненная сессия отключается.
// Вызывается под h.mu.
func (h *Hub) offer(s *Session, msg Message) {
	select {
	case s.send <- msg:
	default:
		h.dropped.Add(1)
		h.drop(s)
		h.logger.Warn("Live feed session too slow, disconnected", "session_id", s.id)
	}
}

// drop вызывается под h.mu
func (h *Hub) drop(s *Session) {
	delete(h.sessions, s)
	close(s.send)
}

func (h *Hub) stamp(msg Message) Message {
	msg.SentAt = h.now()
	return msg
}

func (h *Hub) Join(s *Session)  { h.join <- s }
func (h *Hub) Leave(s *Session) { h.leave <- s }

// resubscribe меняет фильтр сессии и подтверждает новую подписку
func (h *Hub) resubscribe(s *Session, f Filter) {
	h.mu.Lock()
	s.filter = f
	h.mu.Unlock()
	h.sendTo(s, Message{Type: MessageSubscribed, Data: s.info()})
}

// sendTo адресное сообщение одной сессии (ответы на управляющие команды)
func (h *Hub) sendTo(s *Session, msg Message) {
	select {
	case h.direct <- directMessage{session: s, msg: h.stamp(msg)}:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hub) PushVerdict(verdict *dto.AnomalyVerdictDTO) {
	h.publish(Message{Type: MessageVerdict, VesselID: verdict.VesselID, Severity: verdict.Severity, Data: verdict})
}

func (h *Hub) PushAlert(alert *dto.AlertDTO) {
	h.publish(Message{Type: MessageAlert, VesselID: alert.VesselID, Severity: alert.Level, Data: alert})
}

func (h *Hub) publish(msg Message) {
	select {
	case h.events <- h.stamp(msg):
	default:
		h.dropped.Add(1)
		h.logger.Warn("Live feed queue full, dropping event", "type", msg.Type, "vessel_id", msg.VesselID)
	}
}

// Subscribers число подключенных сессий
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }
