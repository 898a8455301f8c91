package roomclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePosition(t *testing.T) {
	now := time.UnixMilli(100_000)

	paused := Playback{IsPlaying: false, PositionSeconds: 30, LastUpdatedAt: 40_000}
	assert.Equal(t, 30.0, paused.EffectivePosition(now), "paused playback never extrapolates")

	playing := Playback{IsPlaying: true, PositionSeconds: 30, LastUpdatedAt: 40_000}
	assert.Equal(t, 90.0, playing.EffectivePosition(now), "60s of wall time passed since the last host command")

	skewed := Playback{IsPlaying: true, PositionSeconds: 30, LastUpdatedAt: 200_000}
	assert.Equal(t, 30.0, skewed.EffectivePosition(now), "clock skew must not rewind the position")

	fresh := Playback{IsPlaying: true, PositionSeconds: 30}
	assert.Equal(t, 30.0, fresh.EffectivePosition(now), "a zero timestamp means nothing to extrapolate from")
}

// echoServer upgrades, records the first inbound frame and replies with a
// canned sequence of server events. The upgraded conn is pushed to conns so
// tests can drop the server side of the session.
func echoServer(t *testing.T, replies []frame, inbound chan<- frame) (*httptest.Server, <-chan *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		conns <- conn

		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		inbound <- f

		for _, reply := range replies {
			require.NoError(t, conn.WriteJSON(reply))
		}

		// keep the connection open until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server, conns
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestCreateRoomRoundTrip(t *testing.T) {
	statePayload, err := json.Marshal(RoomStatePayload{
		MemberID: "m-1",
		Room: Room{
			Code:   "abc123",
			HostID: "m-1",
			Members: []Member{
				{ID: "m-1", Username: "alice", IsHost: true},
			},
		},
	})
	require.NoError(t, err)

	inbound := make(chan frame, 1)
	server, _ := echoServer(t, []frame{{Type: TypeRoomState, Payload: statePayload}}, inbound)

	states := make(chan RoomStatePayload, 1)
	client, err := Dial(context.Background(), wsURL(server), Handlers{
		OnRoomState: func(p RoomStatePayload) { states <- p },
	})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.CreateRoom("show", "show-42", "ep-1", "alice"))

	sent := <-inbound
	assert.Equal(t, TypeRoomCreate, sent.Type)
	var createPayload map[string]string
	require.NoError(t, json.Unmarshal(sent.Payload, &createPayload))
	assert.Equal(t, "show", createPayload["content_type"])
	assert.Equal(t, "show-42", createPayload["content_id"])
	assert.Equal(t, "ep-1", createPayload["episode_id"])
	assert.Equal(t, "alice", createPayload["username"])

	select {
	case state := <-states:
		assert.Equal(t, "abc123", state.Room.Code)
		assert.Equal(t, "m-1", state.MemberID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for room.state")
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	inbound := make(chan frame, 1)
	server, _ := echoServer(t, []frame{
		{Type: "future.event"},
		{Type: TypeChatMessage, Payload: json.RawMessage(`{"body":"still delivered"}`)},
	}, inbound)

	chat := make(chan ChatMessage, 1)
	client, err := Dial(context.Background(), wsURL(server), Handlers{
		OnChatMessage: func(m ChatMessage) { chat <- m },
	})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.JoinRoom("abc123", "bob"))
	<-inbound

	// the unknown frame before it must not break dispatch
	select {
	case msg := <-chat:
		assert.Equal(t, "still delivered", msg.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat message")
	}
}

func TestDisconnectCallback(t *testing.T) {
	inbound := make(chan frame, 1)
	server, conns := echoServer(t, nil, inbound)

	disconnected := make(chan error, 1)
	client, err := Dial(context.Background(), wsURL(server), Handlers{
		OnDisconnect: func(err error) { disconnected <- err },
	})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.JoinRoom("abc123", "bob"))
	<-inbound

	// close the server side of the session; the client's read loop must see it
	serverConn := <-conns
	require.NoError(t, serverConn.Close())

	select {
	case err := <-disconnected:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect callback")
	}
}
