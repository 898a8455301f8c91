package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/wire"
)

// dialPair connects one client through an httptest server and registers the
// server-side conn with the relay under memberID.
func dialPair(t *testing.T, r *Relay, memberID string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		require.NoError(t, err)
		r.Register(memberID, conn)
		close(registered)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	<-registered
	return client
}

func TestBroadcastPreservesOrder(t *testing.T) {
	r := New(slog.Default())
	client := dialPair(t, r, "m-1")

	const frames = 100
	for i := 0; i < frames; i++ {
		r.Broadcast("room1", []string{"m-1"}, wire.Frame{
			Type:    wire.TypeChatMessage,
			Payload: map[string]int{"seq": i},
		})
	}

	for i := 0; i < frames; i++ {
		var got struct {
			Type    string `json:"type"`
			Payload struct {
				Seq int `json:"seq"`
			} `json:"payload"`
		}
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, client.ReadJSON(&got))
		assert.Equal(t, i, got.Payload.Seq, "frames must arrive in publish order")
	}
}

func TestSendToTargetsOneMember(t *testing.T) {
	r := New(slog.Default())
	client1 := dialPair(t, r, "m-1")
	client2 := dialPair(t, r, "m-2")

	r.SendTo("room1", "m-2", wire.Frame{Type: wire.TypeMutedByHost})

	var got wire.RawFrame
	client2.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client2.ReadJSON(&got))
	assert.Equal(t, wire.TypeMutedByHost, got.Type)

	client1.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var other wire.RawFrame
	err := client1.ReadJSON(&other)
	assert.Error(t, err, "the other member must receive nothing")
}

func TestSendToUnknownMemberIsDropped(t *testing.T) {
	r := New(slog.Default())
	// nothing registered, must not panic or block
	r.SendTo("room1", "ghost", wire.Frame{Type: wire.TypeChatMessage})
	r.Broadcast("room1", []string{"ghost"}, wire.Frame{Type: wire.TypeChatMessage})
}

func TestDetachLeavesConnectionWritable(t *testing.T) {
	r := New(slog.Default())

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		require.NoError(t, err)
		r.Register("m-1", conn)
		serverConns <- conn
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	serverConn := <-serverConns

	r.Detach("m-1")

	// the pump is gone but the connection is still usable for a final frame
	require.NoError(t, serverConn.WriteJSON(wire.Frame{
		Type:    wire.TypeError,
		Payload: wire.ErrorPayload{Kind: wire.KindRoomNotFound, Message: "room not found"},
	}))

	var got wire.RawFrame
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, wire.TypeError, got.Type)

	// frames routed through the relay no longer reach the member
	r.SendTo("room1", "m-1", wire.Frame{Type: wire.TypeChatMessage})
	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var dropped wire.RawFrame
	assert.Error(t, client.ReadJSON(&dropped))
}

func TestUnregisterClosesConnection(t *testing.T) {
	r := New(slog.Default())
	client := dialPair(t, r, "m-1")

	r.Unregister("m-1")

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	assert.Error(t, err, "the connection must be closed on unregister")

	// unregistering twice is a no-op
	r.Unregister("m-1")
}

func TestSlowConsumerIsDisconnected(t *testing.T) {
	r := New(slog.Default())
	client := dialPair(t, r, "m-1")

	// never read, overflow the outbound queue; a filled queue drops the
	// member rather than a frame
	big := strings.Repeat("x", 1024)
	for i := 0; i < sendBufferSize*4; i++ {
		r.Broadcast("room1", []string{"m-1"}, wire.Frame{
			Type:    wire.TypeChatMessage,
			Payload: map[string]string{"body": fmt.Sprintf("%d-%s", i, big)},
		})
	}

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, _, err := client.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("connection was never closed")
		}
		return
	}
}
