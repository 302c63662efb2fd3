// File: stream/websocket.go
//
// Author: rmstar
// License: Apache-2.0
//
// WebSocket backend: flattens the message framing of a gorilla connection
// into a plain byte stream and runs it through the pump adapter. Binary and
// text frames both contribute bytes; control frames stay inside the
// websocket layer.

package stream

import (
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmstar/grpc/api"
)

// FromWebSocket adapts an upgraded websocket connection. The pair assumes
// sole ownership of the connection's read and write sides.
func FromWebSocket(ws *websocket.Conn) api.EventPair {
	return newPump(&wsAdapter{ws: ws})
}

type wsAdapter struct {
	ws  *websocket.Conn
	cur io.Reader // reader for the in-progress message, nil between messages
}

func (a *wsAdapter) Read(p []byte) (int, error) {
	for {
		if a.cur == nil {
			mt, r, err := a.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
				continue
			}
			a.cur = r
		}
		n, err := a.cur.Read(p)
		if err == io.EOF {
			// Message exhausted; the next Read moves to the next frame.
			a.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (a *wsAdapter) Write(p []byte) (int, error) {
	if err := a.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (a *wsAdapter) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = a.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return a.ws.Close()
}
