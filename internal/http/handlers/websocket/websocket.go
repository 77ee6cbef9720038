package websocket

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/princekumarofficial/impact-stories/internal/utils/jwt"
	"github.com/princekumarofficial/impact-stories/internal/utils/response"
	wsClient "github.com/princekumarofficial/impact-stories/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Editors connect from the admin console on another origin
		return true
	},
}

// WebSocketHandler streams story events to an authenticated client
// @Summary Story events stream
// @Description Upgrades to a WebSocket that receives story.* events. Pass story to follow a single story.
// @Tags events
// @Param token query string true "JWT"
// @Param story query string false "Story ID to follow"
// @Success 101
// @Failure 401 {object} response.Response
// @Router /ws [get]
func WebSocketHandler(hub *wsClient.Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			slog.Warn("WebSocket connection attempted without token")
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("token required")))
			return
		}

		userID, err := jwt.ExtractUserIDFromToken(token, jwtSecret)
		if err != nil {
			slog.Warn("WebSocket connection attempted with invalid token", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid token")))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("Failed to upgrade WebSocket connection", slog.String("error", err.Error()))
			return
		}

		client := wsClient.NewClient(conn, userID, r.URL.Query().Get("story"), hub)
		hub.RegisterClient(client)
		client.Start()
	}
}

// Stats reports how many event streams are open and which users hold them
// @Summary Event stream statistics
// @Tags events
// @Produce json
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /ws/stats [get]
func Stats(hub *wsClient.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Event stream stats retrieved", map[string]interface{}{
			"connected_clients": hub.GetClientCount(),
			"connected_users":   hub.GetConnectedUsers(),
		}))
	}
}
