package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsToJoinedClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := &Client{hub: hub, Send: make(chan []byte, 4), UserID: "admin-1"}
	require.True(t, hub.Join(c))

	hub.PublishEvent(models.Event{ID: "e1", Type: "upload.create", Message: "hello"})

	select {
	case raw := <-c.Send:
		var msg struct {
			Action  string       `json:"action"`
			Payload models.Event `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, ActionEvent, msg.Action)
		assert.Equal(t, "e1", msg.Payload.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}

	hub.Leave(c)
	_, open := <-c.Send
	assert.False(t, open, "send channel is closed on leave")
}

func TestHubStopReleasesCallers(t *testing.T) {
	hub := NewHub()
	exited := make(chan struct{})
	go func() {
		hub.Run()
		close(exited)
	}()
	hub.Stop()
	<-exited

	c := &Client{hub: hub, Send: make(chan []byte, 1)}
	assert.False(t, hub.Join(c))
	hub.Leave(c)
	hub.Broadcast(NewStatsMessage(models.Stats{}))
}
