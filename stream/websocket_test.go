// File: stream/websocket_test.go
// Author: rmstar
// License: Apache-2.0

package stream

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rmstar/grpc/api"
)

func closeDeadline() time.Time { return time.Now().Add(time.Second) }

func dialTestServer(t *testing.T, handler http.HandlerFunc) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return ws
}

func TestWebSocketPairRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ws := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Echo one message, then close from the server side.
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(mt, data); err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, closeDeadline())
	})

	pair := FromWebSocket(ws)
	sink, ch := eventChan()
	pair.SetEventSink(sink)

	_, err := pair.Writer().Write([]byte("echo me"))
	require.NoError(t, err)

	waitFor(t, ch, api.EventHasBytes)
	buf := make([]byte, 64)
	n, err := pair.Reader().Read(buf)
	require.NoError(t, err)
	require.Equal(t, "echo me", string(buf[:n]))

	// The server's close handshake ends our read side.
	waitFor(t, ch, api.EventEnd)
	_, err = pair.Reader().Read(buf)
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, pair.Writer().Close())
	_, err = pair.Reader().Read(buf)
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestWebSocketFramesFlattenToByteStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ws := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("first/"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("second"))
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, closeDeadline())
		conn.Close()
	})

	pair := FromWebSocket(ws)
	sink, ch := eventChan()
	pair.SetEventSink(sink)

	// Frame boundaries disappear: the reader sees one byte stream across
	// both messages regardless of the read granularity.
	var got []byte
	buf := make([]byte, 4)
	for string(got) != "first/second" {
		waitFor(t, ch, api.EventHasBytes|api.EventEnd)
		for {
			n, err := pair.Reader().Read(buf)
			got = append(got, buf[:n]...)
			if err == io.EOF || n == 0 {
				break
			}
			require.NoError(t, err)
		}
	}
	require.Equal(t, "first/second", string(got))
	_ = pair.Reader().Close()
}
