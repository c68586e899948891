package transport

import (
	"strings"
	"testing"
	"time"

	"dmcore/controller"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srvURL, token, peer string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws?token=" + token
	if peer != "" {
		u += "&peer=" + peer
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame serverFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// readUntilLength consumes snapshot frames until one carries the expected
// message count, checking on the way that the observed history only grows.
func readUntilLength(t *testing.T, conn *websocket.Conn, want int) serverFrame {
	t.Helper()
	seen := -1
	for {
		frame := readFrame(t, conn)
		require.Equal(t, "snapshot", frame.Type)
		require.GreaterOrEqual(t, len(frame.Messages), seen)
		seen = len(frame.Messages)
		// A fanout may coalesce two appends into one snapshot, so the
		// expected count is a floor, not an exact match.
		if seen >= want {
			return frame
		}
	}
}

func TestWebSocket_Frame_Sequence_Follows_Snapshots(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t)
	alice := register(t, srv, "alice@example.com", "Alice")
	bob := register(t, srv, "bob@example.com", "Bob")

	conn := dialWS(t, srv.URL, alice.Token, "")

	// When selecting the peer, the initial snapshot arrives first
	req.NoError(conn.WriteJSON(clientFrame{Type: "select", Peer: bob.Participant}))
	first := readFrame(t, conn)
	req.Equal("snapshot", first.Type)
	req.Equal(controller.Live.String(), first.State)
	req.Empty(first.Messages)

	// Every append then shows up as a larger snapshot, in order
	req.NoError(conn.WriteJSON(clientFrame{Type: "send", Text: "hello"}))
	frame := readUntilLength(t, conn, 1)
	req.Equal("hello", frame.Messages[0].Text)
	req.Equal(alice.Participant, frame.Messages[0].Sender)

	req.NoError(conn.WriteJSON(clientFrame{Type: "send", Text: "again"}))
	frame = readUntilLength(t, conn, 2)
	req.Equal("hello", frame.Messages[0].Text)
	req.Equal("again", frame.Messages[1].Text)

	// Deselect acknowledges with an idle snapshot frame
	req.NoError(conn.WriteJSON(clientFrame{Type: "deselect"}))
	idle := readFrame(t, conn)
	req.Equal("snapshot", idle.Type)
	req.Equal(controller.Idle.String(), idle.State)
}

func TestWebSocket_Disconnect_Releases_Subscription(t *testing.T) {
	req := require.New(t)
	srv, recorder := newTestServer(t)
	alice := register(t, srv, "alice@example.com", "Alice")
	bob := register(t, srv, "bob@example.com", "Bob")

	// Selecting via the query parameter at upgrade time
	conn := dialWS(t, srv.URL, alice.Token, bob.Participant)
	first := readFrame(t, conn)
	req.Equal(controller.Live.String(), first.State)

	ctrl := recorder.last()
	req.NotNil(ctrl)
	req.Equal(controller.Live, ctrl.State())

	// When the socket drops, the connection's controller goes back to Idle
	req.NoError(conn.Close())
	req.Eventually(func() bool {
		return ctrl.State() == controller.Idle
	}, time.Second, 10*time.Millisecond)
}

func TestWebSocket_Error_Frames(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t)
	alice := register(t, srv, "alice@example.com", "Alice")

	conn := dialWS(t, srv.URL, alice.Token, "")

	// Self-selection is rejected on the error path, the socket stays usable
	req.NoError(conn.WriteJSON(clientFrame{Type: "select", Peer: alice.Participant}))
	frame := readFrame(t, conn)
	req.Equal("error", frame.Type)
	req.NotEmpty(frame.Error)

	// Sending without a live channel is rejected the same way
	req.NoError(conn.WriteJSON(clientFrame{Type: "send", Text: "hi"}))
	frame = readFrame(t, conn)
	req.Equal("error", frame.Type)

	req.NoError(conn.WriteJSON(clientFrame{Type: "shout"}))
	frame = readFrame(t, conn)
	req.Equal("error", frame.Type)
}

func TestWebSocket_Rejects_Missing_Token(t *testing.T) {
	req := require.New(t)
	srv, _ := newTestServer(t)

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	req.Nil(conn)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(401, resp.StatusCode)
	resp.Body.Close()
}
