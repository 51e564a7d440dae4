package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"studyspot-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // public read-only feed
	},
}

// WebSocketHandler serves the per-spot occupancy feed
type WebSocketHandler struct {
	hub            *services.OccupancyHub
	checkinService *services.CheckinService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.OccupancyHub, checkinService *services.CheckinService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		checkinService: checkinService,
	}
}

// HandleWebSocket handles GET /ws/spots/{spot_id}. The client receives the
// current occupancy on connect and again after every check-in or check-out.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	spotID, err := pathID(r, "spot_id")
	if err != nil {
		respondServiceError(w, r, err, "parse spot id")
		return
	}

	// Unknown spots are rejected before the upgrade
	ctx := r.Context()
	if _, err := h.checkinService.ActiveCount(ctx, spotID); err != nil {
		respondServiceError(w, r, err, "open occupancy feed")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	// The server read timeout survives the hijack
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		log.Error().Err(err).Msg("Failed to clear WebSocket read deadline")
		conn.Close()
		return
	}

	h.hub.Subscribe(spotID, conn)
	defer h.hub.Unsubscribe(spotID, conn)

	h.sendSnapshot(ctx, spotID, conn)

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Int64("studyspot_id", spotID).Msg("WebSocket error")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.send(spotID, conn, services.WSMessage{Type: "error", Message: "Invalid message format"})
			continue
		}

		switch msg.Type {
		case "ping":
			h.send(spotID, conn, services.WSMessage{Type: "pong", Timestamp: time.Now().UnixMilli()})
		case "refresh":
			h.sendSnapshot(ctx, spotID, conn)
		default:
			h.send(spotID, conn, services.WSMessage{Type: "error", Message: "Unknown message type"})
		}
	}
}

func (h *WebSocketHandler) sendSnapshot(ctx context.Context, spotID int64, conn *websocket.Conn) {
	count, err := h.checkinService.ActiveCount(ctx, spotID)
	if err != nil {
		log.Error().Err(err).Int64("studyspot_id", spotID).Msg("Failed to load occupancy snapshot")
		h.send(spotID, conn, services.WSMessage{Type: "error", Message: "Occupancy unavailable"})
		return
	}
	h.send(spotID, conn, services.WSMessage{
		Type:           "occupancy",
		StudySpotID:    spotID,
		ActiveCheckins: &count.ActiveCheckins,
		Timestamp:      time.Now().UnixMilli(),
	})
}

func (h *WebSocketHandler) send(spotID int64, conn *websocket.Conn, msg services.WSMessage) {
	if err := h.hub.SendTo(spotID, conn, msg); err != nil {
		log.Error().Err(err).Int64("studyspot_id", spotID).Str("type", msg.Type).Msg("Failed to send WebSocket message")
	}
}
