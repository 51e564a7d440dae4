package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type           string `json:"type"`
	StudySpotID    int64  `json:"studyspot_id,omitempty"`
	ActiveCheckins *int   `json:"active_checkins,omitempty"`
	Timestamp      int64  `json:"timestamp,omitempty"`
	Message        string `json:"message,omitempty"`
}

// wsClient serializes writes, gorilla connections allow one writer at a time
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// OccupancyHub fans occupancy changes out to the WebSocket subscribers of each spot
type OccupancyHub struct {
	mu          sync.RWMutex
	subscribers map[int64]map[*websocket.Conn]*wsClient
}

// NewOccupancyHub creates an empty hub
func NewOccupancyHub() *OccupancyHub {
	return &OccupancyHub{
		subscribers: make(map[int64]map[*websocket.Conn]*wsClient),
	}
}

// Subscribe registers conn for updates of spotID
func (h *OccupancyHub) Subscribe(spotID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.subscribers[spotID]
	if !ok {
		conns = make(map[*websocket.Conn]*wsClient)
		h.subscribers[spotID] = conns
	}
	conns[conn] = &wsClient{conn: conn}

	log.Info().Int64("studyspot_id", spotID).Int("subscribers", len(conns)).Msg("WebSocket subscriber registered")
}

// Unsubscribe removes and closes conn
func (h *OccupancyHub) Unsubscribe(spotID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.subscribers[spotID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	conn.Close()
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.subscribers, spotID)
	}
	log.Info().Int64("studyspot_id", spotID).Msg("WebSocket subscriber unregistered")
}

// Subscribers returns the number of connections watching spotID
func (h *OccupancyHub) Subscribers(spotID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[spotID])
}

// SendTo writes message to a single connection of spotID
func (h *OccupancyHub) SendTo(spotID int64, conn *websocket.Conn, message WSMessage) error {
	h.mu.RLock()
	client, ok := h.subscribers[spotID][conn]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("connection is not subscribed to spot %d", spotID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := client.write(data); err != nil {
		h.Unsubscribe(spotID, conn)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// PublishOccupancy sends the current open check-in count to every subscriber of spotID.
// Connections that fail to accept the write are dropped.
func (h *OccupancyHub) PublishOccupancy(spotID int64, active int) {
	message := WSMessage{
		Type:           "occupancy",
		StudySpotID:    spotID,
		ActiveCheckins: &active,
		Timestamp:      time.Now().UnixMilli(),
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal occupancy message")
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.subscribers[spotID]))
	for _, client := range h.subscribers[spotID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(data); err != nil {
			log.Error().Err(err).Int64("studyspot_id", spotID).Msg("Failed to send occupancy update")
			h.Unsubscribe(spotID, client.conn)
		}
	}
}
