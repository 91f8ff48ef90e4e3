package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers an upgraded connection with the hub and runs its
// pumps. It blocks until the connection ends.
func ServeWs(hub *Hub, conn *websocket.Conn, installID string) {
	client := &Client{
		Hub:       hub,
		Conn:      conn,
		InstallID: installID,
		Send:      make(chan []byte, 16),
	}
	hub.register <- client

	go client.writePump()
	client.readPump()
}
