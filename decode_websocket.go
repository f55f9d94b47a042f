package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (configure CORS properly in production)
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// DecodeWSHandler streams decode jobs over a WebSocket connection: the
// client sends DecodeRequest JSON messages and receives a DecodeResponse
// for each, in order, on the same connection.
type DecodeWSHandler struct {
	config  *Config
	metrics *DecodeMetrics
}

// NewDecodeWSHandler creates the WebSocket handler
func NewDecodeWSHandler(config *Config, metrics *DecodeMetrics) *DecodeWSHandler {
	return &DecodeWSHandler{config: config, metrics: metrics}
}

// wsError is sent when a job cannot be decoded
type wsError struct {
	Error string `json:"error"`
}

// HandleWebSocket handles GET /ws/decode
func (h *DecodeWSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Upgrade failed: %v", err)
		return
	}

	connID := uuid.New().String()
	log.Printf("WS: Decode stream %s connected from %s", connID, r.RemoteAddr)

	var writeMu sync.Mutex
	writeJSON := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	// Keepalive pings
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	defer func() {
		conn.Close()
		log.Printf("WS: Decode stream %s closed", connID)
	}()

	for {
		var req DecodeRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WS: Decode stream %s read error: %v", connID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

		resp, decodeErr := runDecode(h.config, h.metrics, &req)
		if decodeErr != nil {
			if err := writeJSON(wsError{Error: decodeErr.Error()}); err != nil {
				return
			}
			continue
		}
		if err := writeJSON(resp); err != nil {
			return
		}
	}
}
