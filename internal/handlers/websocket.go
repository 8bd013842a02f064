package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"disco-backend/internal/apperr"
	"disco-backend/internal/middleware"
	"disco-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for MVP
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub         *services.Hub
	userService *services.UserService
	matching    *services.MatchingService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.Hub, userService *services.UserService, matching *services.MatchingService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
		matching:    matching,
	}
}

// clientMessage is one inbound frame from a connected client.
type clientMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel,omitempty"`
	MatchID string `json:"match_id,omitempty"`
	Text    string `json:"text,omitempty"`
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, err := middleware.ValidateWebSocketToken(token, h.userService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := h.hub.Register(userID, conn)
	defer h.hub.Unregister(client)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(conn, "Invalid message format")
			continue
		}

		h.handleMessage(r, client, conn, msg)
	}
}

func (h *WebSocketHandler) handleMessage(r *http.Request, client *services.Client, conn *websocket.Conn, msg clientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.Channel == "" {
			h.sendError(conn, "channel required")
			return
		}
		h.hub.Subscribe(client, msg.Channel)
	case "unsubscribe":
		if msg.Channel == "" {
			h.sendError(conn, "channel required")
			return
		}
		h.hub.Unsubscribe(client, msg.Channel)
	case "chat":
		h.relayChat(r, client, conn, msg)
	case "typing":
		h.relayTyping(r, client, conn, msg)
	default:
		h.sendError(conn, "Unknown action")
	}
}

// relayChat forwards a chat message to both match participants. The sender
// must be a participant of the match.
func (h *WebSocketHandler) relayChat(r *http.Request, client *services.Client, conn *websocket.Conn, msg clientMessage) {
	if msg.MatchID == "" || msg.Text == "" {
		h.sendError(conn, "match_id and text required")
		return
	}
	match, err := h.matching.GetMatch(r.Context(), client.UserID, msg.MatchID)
	if err != nil {
		h.sendError(conn, apperr.MessageOf(err))
		return
	}

	event := services.Event{
		Type: services.EventChatMessage,
		Payload: map[string]interface{}{
			"match_id":  msg.MatchID,
			"sender_id": client.UserID,
			"text":      msg.Text,
			"sent_at":   time.Now().UTC(),
		},
	}
	h.hub.SendToMatch(match.UserID, match.MatchedUserID, services.ChatChannel(msg.MatchID), event)
}

// relayTyping forwards a typing indicator on the match's typing channel.
func (h *WebSocketHandler) relayTyping(r *http.Request, client *services.Client, conn *websocket.Conn, msg clientMessage) {
	if msg.MatchID == "" {
		h.sendError(conn, "match_id required")
		return
	}
	match, err := h.matching.GetMatch(r.Context(), client.UserID, msg.MatchID)
	if err != nil {
		h.sendError(conn, apperr.MessageOf(err))
		return
	}

	event := services.Event{
		Type: services.EventTyping,
		Payload: map[string]interface{}{
			"match_id": msg.MatchID,
			"user_id":  client.UserID,
		},
	}
	h.hub.SendToMatch(match.UserID, match.MatchedUserID, services.TypingChannel(msg.MatchID), event)
}

// sendError sends an error frame to the client
func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	errMsg := map[string]string{"type": "error", "error": message}
	data, _ := json.Marshal(errMsg)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Error().Err(err).Msg("Failed to send error message")
	}
}
