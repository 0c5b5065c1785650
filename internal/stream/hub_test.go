package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for message")
	}
	return Message{}
}

func TestHub_TopicFiltering(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil)
	trips := hub.Register(TopicTrips)
	all := hub.Register()
	defer hub.Unregister(trips)
	defer hub.Unregister(all)

	require.NoError(t, hub.Publish(context.Background(), TopicLocation, map[string]float64{"latitude": 38.7}))
	require.NoError(t, hub.Publish(context.Background(), TopicTrips, map[string]int{"trip_number": 9}))

	msg := receive(t, trips)
	assert.Equal(t, TopicTrips, msg.Topic)
	assert.JSONEq(t, `{"trip_number":9}`, string(msg.Data))

	assert.Equal(t, TopicLocation, receive(t, all).Topic)
	assert.Equal(t, TopicTrips, receive(t, all).Topic)
}

func TestHub_UnregisterClosesOnce(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil, nil)
	client := hub.Register()
	hub.Unregister(client)
	hub.Unregister(client)

	_, ok := <-client.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Clients())
	hub.Close()
}

func TestHub_RedisFanOut(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	publisher := NewHub(rc, nil)
	subscriber := NewHub(rc, nil)
	defer publisher.Close()
	defer subscriber.Close()

	local := publisher.Register(TopicTrips)
	remote := subscriber.Register(TopicTrips)

	require.NoError(t, publisher.Publish(context.Background(), TopicTrips, map[string]int{"trip_number": 1}))

	assert.Equal(t, TopicTrips, receive(t, local).Topic)
	assert.Equal(t, TopicTrips, receive(t, remote).Topic)
}

func TestHandler_WebsocketDelivery(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil, nil)
	router := gin.New()
	router.GET("/v1/stream", NewHandler(hub).Serve)

	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream?topics=trips"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), TopicLocation, "ignored"))
	require.NoError(t, hub.Publish(context.Background(), TopicTrips, map[string]int{"trip_number": 3}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, TopicTrips, msg.Topic)
	assert.JSONEq(t, `{"trip_number":3}`, string(msg.Data))
}
