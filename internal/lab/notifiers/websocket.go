package notifiers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chemverse/labsim/internal/lab"
	"github.com/gorilla/websocket"
)

// WebSocketNotifier broadcasts lab events to connected WebSocket clients.
// The rendering front-end subscribes here to mirror pours and reaction
// effects live.
type WebSocketNotifier struct {
	id         string
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	upgrader   websocket.Upgrader
	broadcast  chan lab.LabEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewWebSocketNotifier creates a new WebSocket notifier
func NewWebSocketNotifier(id string) *WebSocketNotifier {
	notifier := &WebSocketNotifier{
		id:         id,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan lab.LabEvent, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	// Start the broadcaster goroutine
	notifier.wg.Add(1)
	go notifier.run()

	return notifier
}

// ID returns the notifier ID
func (wsn *WebSocketNotifier) ID() string {
	return wsn.id
}

// Type returns the notifier type
func (wsn *WebSocketNotifier) Type() string {
	return "websocket"
}

// RegisterClient registers a new WebSocket client connection
func (wsn *WebSocketNotifier) RegisterClient(conn *websocket.Conn) {
	select {
	case wsn.register <- conn:
	case <-wsn.done:
		// Notifier is closing, ignore
	}
}

// UnregisterClient unregisters a WebSocket client connection
func (wsn *WebSocketNotifier) UnregisterClient(conn *websocket.Conn) {
	select {
	case wsn.unregister <- conn:
	case <-wsn.done:
		// Notifier is closing, ignore
	}
}

// ClientCount returns how many clients are currently connected.
func (wsn *WebSocketNotifier) ClientCount() int {
	wsn.mu.RLock()
	defer wsn.mu.RUnlock()
	return len(wsn.clients)
}

// Notify queues the event for broadcast to all connected clients
func (wsn *WebSocketNotifier) Notify(ctx context.Context, event lab.LabEvent) error {
	select {
	case wsn.broadcast <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(1 * time.Second):
		return fmt.Errorf("notification queue full")
	}
}

// run handles client registration/unregistration and message broadcasting
func (wsn *WebSocketNotifier) run() {
	defer wsn.wg.Done()
	for {
		select {
		case <-wsn.done:
			return

		case conn := <-wsn.register:
			if conn == nil {
				continue
			}
			wsn.mu.Lock()
			wsn.clients[conn] = true
			wsn.mu.Unlock()

		case conn := <-wsn.unregister:
			if conn == nil {
				continue
			}
			wsn.mu.Lock()
			if _, ok := wsn.clients[conn]; ok {
				delete(wsn.clients, conn)
				conn.Close()
			}
			wsn.mu.Unlock()

		case event, ok := <-wsn.broadcast:
			if !ok {
				return
			}
			jsonData, err := event.JSON()
			if err != nil {
				continue
			}

			// Collect connections first so writes happen outside the lock
			wsn.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(wsn.clients))
			for conn := range wsn.clients {
				conns = append(conns, conn)
			}
			wsn.mu.RUnlock()

			var toRemove []*websocket.Conn
			for _, conn := range conns {
				if conn == nil {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
					toRemove = append(toRemove, conn)
					conn.Close()
				}
			}

			if len(toRemove) > 0 {
				wsn.mu.Lock()
				for _, conn := range toRemove {
					delete(wsn.clients, conn)
				}
				wsn.mu.Unlock()
			}
		}
	}
}

// Close closes all WebSocket connections and stops the broadcaster
func (wsn *WebSocketNotifier) Close() error {
	close(wsn.done)

	wsn.mu.Lock()
	for conn := range wsn.clients {
		conn.Close()
		delete(wsn.clients, conn)
	}
	wsn.mu.Unlock()

	wsn.wg.Wait()

	return nil
}

// Upgrader returns the WebSocket upgrader for HTTP handlers
func (wsn *WebSocketNotifier) Upgrader() websocket.Upgrader {
	return wsn.upgrader
}
