package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-hovertip-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const clusterChannel = "usage_cluster_events"

// Hub pushes usage updates to connected installs so gate state changes
// propagate back into what the tooltips render without polling.
type Hub struct {
	// Registered clients map: InstallID -> List of Clients (popup +
	// content surfaces of the same install)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance fan-out; nil for single-node.
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.InstallID] = append(h.clients[client.InstallID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"install_id": client.InstallID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.InstallID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.InstallID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.InstallID]) == 0 {
					delete(h.clients, client.InstallID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"install_id": client.InstallID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers a usage push to every surface of one install.
func (h *Hub) Send(installID string, messageType string, payload interface{}) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": messageType,
		"data": payload,
	})

	h.mu.RLock()
	clients, localFound := h.clients[installID]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"install_id": installID})
				close(client.Send)
				h.unregister <- client
			}
		}
	}

	// Publish to Redis so other broker instances can reach the install.
	if h.rdb != nil {
		envelope, _ := json.Marshal(map[string]interface{}{
			"target_install_id": installID,
			"message":           json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), clusterChannel, envelope)
	}
}

func (h *Hub) subscribeToRedis() {
	// Every instance subscribes to the cluster channel; a message is
	// delivered locally only when the target install has a connection
	// here.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetInstallID string          `json:"target_install_id"`
			Message         json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[payload.TargetInstallID]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					close(client.Send)
					h.unregister <- client
				}
			}
		}
	}
}
