// Package transport carries the turn boundary for web sessions over a
// websocket. SIP transports live outside this process and reach the core
// through the same contract.Transport interface.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	contractx "github.com/BrianMwas/vocare/agent/contract"
	speechx "github.com/BrianMwas/vocare/pkg/speech"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSession is one browser call. Text messages are caller utterances as-is;
// binary messages are audio segments transcribed through the speech pipe.
// Replies go out as text, plus synthesized audio when a pipe is attached.
type WebSession struct {
	conn   *websocket.Conn
	roomID string
	pipe   *speechx.Pipe
}

var _ contractx.Transport = (*WebSession)(nil)

func (w *WebSession) Metadata() contractx.TransportMetadata {
	return contractx.TransportMetadata{RoomID: w.roomID}
}

func (w *WebSession) NextUtterance(ctx context.Context) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetReadDeadline(deadline)
	}

	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", contractx.ErrCallClosed
			}
			return "", fmt.Errorf("%w: %v", contractx.ErrCallClosed, err)
		}

		switch kind {
		case websocket.TextMessage:
			if text := strings.TrimSpace(string(data)); text != "" {
				return text, nil
			}
		case websocket.BinaryMessage:
			if w.pipe == nil {
				continue
			}
			text, err := w.pipe.Transcribe(ctx, bytes.NewReader(data))
			if err != nil {
				return "", err
			}
			if text != "" {
				return text, nil
			}
		}
	}
}

func (w *WebSession) Say(ctx context.Context, text string) error {
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return err
	}
	if w.pipe == nil {
		return nil
	}

	var audio bytes.Buffer
	if err := w.pipe.Synthesize(ctx, text, &audio); err != nil {
		// Audio is an enhancement over the text channel; the turn already
		// succeeded.
		log.Warn().Err(err).Str("room", w.roomID).Msg("speech synthesis failed")
		return nil
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, audio.Bytes())
}

// Handler upgrades /call requests and hands each session to run. One
// goroutine per call; the handler returns when the call ends.
func Handler(pipe *speechx.Pipe, run func(ctx context.Context, t contractx.Transport)) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		session := &WebSession{
			conn:   conn,
			roomID: strings.TrimSpace(c.Query("room")),
			pipe:   pipe,
		}
		run(c.Request.Context(), session)
	}
}
