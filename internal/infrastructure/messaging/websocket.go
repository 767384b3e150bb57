package messaging

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/pulsetrack-go/internal/infrastructure/observability/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request to a websocket and pumps broadcast messages for
// one session until the client disconnects.
func ServeWS(b *Broadcaster, logger *logging.ChanneledLogger, w http.ResponseWriter, r *http.Request, sessionID string) {
	log := logger.WithSession(logging.ChannelSSE, sessionID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "error", err.Error())
		return
	}

	log.Debug("Websocket client connected")
	ch := b.AddClient(sessionID)
	defer func() {
		b.RemoveClient(sessionID, ch)
		conn.Close()
		log.Debug("Websocket client disconnected")
	}()

	// Reader goroutine only watches for close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
