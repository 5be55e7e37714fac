package transport

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocket carries one DAP payload per websocket message, for editors that
// reach the bridge over the network instead of stdio.
type WebSocket struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

// ReadPayload reads the next text or binary websocket message.
func (w *WebSocket) ReadPayload() ([]byte, error) {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// WritePayload writes one payload as a text message.
func (w *WebSocket) WritePayload(payload []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *WebSocket) Close() error {
	return w.conn.Close()
}
