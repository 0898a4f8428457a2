package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matchgrid/matchgrid/live"
)

type WebSocketHandler struct {
	hub    *live.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeEvent godoc
// @Summary Subscribe to live bracket and match updates for an event
// @Tags live
// @Param eventID path int true "Event ID"
// @Success 101
// @Router /ws/events/{eventID} [get]
func (h *WebSocketHandler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	if _, err := idParam(r, "eventID"); err != nil {
		badRequestResponse(w, err)
		return
	}
	h.serve(w, r, chi.URLParam(r, "eventID"))
}

// ServeDivision godoc
// @Summary Subscribe to live standings updates for a division
// @Tags live
// @Param divisionID path int true "Division ID"
// @Success 101
// @Router /ws/divisions/{divisionID} [get]
func (h *WebSocketHandler) ServeDivision(w http.ResponseWriter, r *http.Request) {
	if _, err := idParam(r, "divisionID"); err != nil {
		badRequestResponse(w, err)
		return
	}
	h.serve(w, r, "division:"+chi.URLParam(r, "divisionID"))
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("room", room), slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, room)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
