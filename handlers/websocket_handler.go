package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/fair-measure/realtime"
	"github.com/Dosada05/fair-measure/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub                *realtime.Hub
	competitionService services.CompetitionService
	upgrader           websocket.Upgrader
	logger             *slog.Logger
}

// NewWebSocketHandler создает обработчик. allowedOrigins "*" разрешает любой Origin.
func NewWebSocketHandler(hub *realtime.Hub, cs services.CompetitionService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                hub,
		competitionService: cs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// ServeWs подписывает клиента на события состава соревнования.
// Клиент подключается к /ws/competitions/{competitionID} и получает MEMBERS_UPDATED.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.competitionService.GetByID(r.Context(), competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		h.logger.Warn("failed to upgrade websocket connection", slog.String("competition_id", competitionID), slog.Any("error", err))
		return
	}

	roomID := realtime.RoomForCompetition(competitionID)
	h.hub.Attach(conn, roomID)
	h.logger.Debug("websocket client attached", slog.String("room", roomID))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
