package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub           *brackets.Hub
	leagueService services.LeagueService
	upgrader      websocket.Upgrader
	logger        *slog.Logger
}

// NewWebSocketHandler accepts connections from any origin when allowedOrigins is empty.
func NewWebSocketHandler(hub *brackets.Hub, ls services.LeagueService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WebSocketHandler{
		hub:           hub,
		leagueService: ls,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ServeWs subscribes the connection to a league's change stream. The optional client_id
// query parameter must match the X-Client-ID header the same client sends with its own
// mutations; those broadcasts then skip it.
//
// @Summary Subscribe to league changes
// @Tags leagues
// @Param leagueID path string true "League ID"
// @Param client_id query string false "Client id echoed in X-Client-ID"
// @Router /ws/leagues/{leagueID} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getUUIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.leagueService.GetLeague(r.Context(), leagueID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket connection",
			slog.String("league_id", leagueID.String()), slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		ID:   r.URL.Query().Get("client_id"),
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.LeagueRoom(leagueID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Debug("websocket client subscribed",
		slog.String("room", client.Room), slog.String("client_id", client.ID))
}
