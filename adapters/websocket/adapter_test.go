package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/core"
	"scoreboard/realtime"
)

func dial(t *testing.T, server *httptest.Server, query string) *gorillaws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitForSubscribers(hub *realtime.Hub, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlerStreamsEvents(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()
	waitForSubscribers(hub, 1)

	hub.Broadcast(context.Background(), core.NewScoreSubmitted("alice", 5, 5, 0))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received core.Event
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, core.UserID("alice"), received.UserID)
	assert.Equal(t, 5.0, received.Score)
}

func TestHandlerFiltersByType(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn := dial(t, server, "?types=high_score_beaten")
	defer conn.Close()
	waitForSubscribers(hub, 1)

	hub.Broadcast(context.Background(), core.NewScoreSubmitted("alice", 9, 9, 0))
	hub.Broadcast(context.Background(), core.NewHighScoreBeaten("alice", 9, 0))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received core.Event
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, core.EventHighScoreBeaten, received.Type)
}

func TestHandlerRejectsUnknownType(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?types=nope"
	_, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, hub.Len())
}

func TestHandlerUnsubscribesOnClose(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn := dial(t, server, "")
	waitForSubscribers(hub, 1)
	conn.Close()

	waitForSubscribers(hub, 0)
	assert.Equal(t, 0, hub.Len())
}
