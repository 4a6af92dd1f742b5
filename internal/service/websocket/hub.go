package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"offerlens/internal/dto"
	"offerlens/internal/logger"
	"offerlens/internal/model"
)

const writeWait = 10 * time.Second

// HubService fans display messages out to every connected display client.
// Run is the only goroutine that writes to the connections.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan [][]byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

// NewHubService creates a hub; start it with Run.
func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan [][]byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Display connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Display disconnected. Total: %d", total)

		case batch := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				for _, message := range batch {
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						h.logger.Error("Error sending message: %v", err)
						delete(h.clients, client)
						client.Close()
						break
					}
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a display connection.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes a display connection.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Clear tells every display to drop the cards it is showing.
func (h *HubService) Clear() {
	h.send(dto.DisplayMessage{Type: dto.DisplayClear})
}

// Show tells every display to show cards for label. With no cards the
// displays get the "no offers" placeholder instead.
func (h *HubService) Show(label string, cards []model.OfferCard, image string) {
	h.send(showMessage(label, cards, image))
}

// Replace clears the displays and shows cards for label. Both messages are
// queued together: a full queue drops the pair, never just one of them.
func (h *HubService) Replace(label string, cards []model.OfferCard, image string) {
	h.send(dto.DisplayMessage{Type: dto.DisplayClear}, showMessage(label, cards, image))
}

func showMessage(label string, cards []model.OfferCard, image string) dto.DisplayMessage {
	msg := dto.DisplayMessage{Type: dto.DisplayShow, Label: label, Image: image}
	if len(cards) == 0 {
		msg.Empty = true
		msg.Message = dto.NoOffersMessage
	} else {
		msg.Offers = cards
	}
	return msg
}

func (h *HubService) send(msgs ...dto.DisplayMessage) {
	batch := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			h.logger.Error("Error encoding display message: %v", err)
			return
		}
		batch = append(batch, payload)
	}

	select {
	case h.broadcast <- batch:
	default:
		h.logger.Warning("Display broadcast queue full - dropping %d message(s)", len(batch))
	}
}

// ClientCount returns the number of connected displays.
func (h *HubService) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
