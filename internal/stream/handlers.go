package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeSession upgrades the request to a websocket and streams the
// session's events until the peer disconnects. hello, when non-nil, is
// sent first.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string, hello []byte) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := h.Register(sessionID)
	if hello != nil {
		client.Send <- hello
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range client.Send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.Unregister(client)
	<-done
}
