package websocket

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"scoreboard/realtime"
)

const (
	writeWait   = 5 * time.Second
	pingPeriod  = 30 * time.Second
	queueLength = 256
)

// Handler upgrades to WebSocket and streams hub events as JSON text frames.
// The optional "types" query parameter narrows the stream, for example
// ?types=high_score_beaten. Inbound frames are read only to notice disconnects.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		types, err := realtime.ParseTypes(r.URL.Query().Get("types"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub := hub.Subscribe(queueLength, types...)
		defer hub.Unsubscribe(sub)

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				frame, err := realtime.Frame(ev)
				if err != nil {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.TextMessage, frame); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(gorillaws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-gone:
				return
			}
		}
	})
}
