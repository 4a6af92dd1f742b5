package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"offerlens/internal/logger"
	"offerlens/internal/service"
	hub "offerlens/internal/service/websocket"
)

// NewUpgrader returns a WebSocket upgrader that accepts same-origin requests,
// requests without an Origin header, and origins listed in allowed ("*" allows any).
func NewUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, a := range allowed {
				if a == "*" || strings.EqualFold(a, origin) {
					return true
				}
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// DisplayWebsocketHandler registers a display screen with the hub. The
// connection only receives; anything the client sends is discarded.
func DisplayWebsocketHandler(displays *hub.HubService, allowedOrigins []string, logger *logger.Logger) http.HandlerFunc {
	upgrader := NewUpgrader(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		displays.Register(connection)
		defer displays.Unregister(connection)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Display disconnected normally")
				} else {
					logger.Warning("Display disconnected with error: %v", err)
				}
				break
			}
		}
	}
}

// CloseDisplayHandler clears every connected display.
func CloseDisplayHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.CloseDisplay()
		w.WriteHeader(http.StatusNoContent)
	}
}
