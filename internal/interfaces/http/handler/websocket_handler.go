package handler

import (
	"net/http"
	"net/url"
	"strings"

	wsInfra "github.com/dreschagin/vessel-guard/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/gorilla/websocket"
)

// originPolicy список разрешенных Origin в виде scheme://host; "*" разрешает любой
type originPolicy map[string]struct{}

func newOriginPolicy(origins []string) originPolicy {
	policy := make(originPolicy, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			policy[trimmed] = struct{}{}
		}
	}
	return policy
}

// allows: запрос без Origin или с неразобранным Origin отклоняется
func (p originPolicy) allows(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if len(p) == 0 || origin == "" {
		return false
	}
	if _, ok := p["*"]; ok {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	_, ok := p[parsed.Scheme+"://"+parsed.Host]
	return ok
}

// WebSocketHandler открывает сессии живой ленты на /ws
type WebSocketHandler struct {
	hub      *wsInfra.Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewWebSocketHandler(hub *wsInfra.Hub, allowedOrigins []string, logger *logger.Logger) *WebSocketHandler {
	policy := newOriginPolicy(allowedOrigins)
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   4096,
			EnableCompression: true,
			CheckOrigin:       policy.allows,
		},
		logger: logger,
	}
}

// HandleConnection: ?vesselId=a,b&minSeverity=high задают начальную подписку,
// позже ее меняет команда subscribe
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	filter, err := wsInfra.FilterFromQuery(r.URL.Query())
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.FromContext(r.Context()).Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}

	session := wsInfra.NewSession(h.hub, conn, filter, h.logger)
	h.logger.FromContext(r.Context()).Debug("Live feed session opened",
		"session_id", session.ID(), "vessels", len(filter.Vessels), "min_severity", string(filter.MinSeverity))
	go session.Serve()
}
