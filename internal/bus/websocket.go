package bus

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/retools/internal/can"
	"github.com/muurk/retools/internal/logging"
)

const (
	// Time allowed to complete the WebSocket handshake
	handshakeTimeout = 10 * time.Second

	// Maximum message size accepted from a gateway
	maxMessageSize = 64 * 1024
)

// WebSocketSource reads frames from a CAN gateway over WebSocket.
// Binary messages carry back-to-back SocketCAN frames; text messages carry
// one or more candump lines.
type WebSocketSource struct {
	URL string
	// Origin is used for binary frames and overrides the interface named in
	// candump lines when set.
	Origin string
}

// Name implements Source
func (s *WebSocketSource) Name() string {
	return "websocket:" + s.URL
}

// Run implements Source
func (s *WebSocketSource) Run(ctx context.Context, sink Sink) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to gateway %s: %w", s.URL, err)
	}
	conn.SetReadLimit(maxMessageSize)

	logging.LogSource(s.Name(), "connected")

	// ReadMessage has no context; closing the connection unblocks it
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogSource(s.Name(), "closed")
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.handleBinary(data, sink)
		case websocket.TextMessage:
			s.handleText(data, sink)
		}
	}
}

func (s *WebSocketSource) handleBinary(data []byte, sink Sink) {
	origin := s.Origin
	if origin == "" {
		origin = "ws"
	}
	frames, err := can.DecodeFrames(data, origin)
	if err != nil {
		logging.Warn("Malformed binary gateway message",
			zap.String("source", s.Name()),
			zap.Int("length", len(data)),
			zap.Error(err),
		)
		return
	}
	for _, f := range frames {
		sink.Publish(f)
	}
}

func (s *WebSocketSource) handleText(data []byte, sink Sink) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		f, err := can.ParseCandump(line)
		if err != nil {
			logging.Warn("Malformed candump line from gateway",
				zap.String("source", s.Name()),
				zap.String("line", line),
				zap.Error(err),
			)
			continue
		}
		if s.Origin != "" {
			f.Origin = s.Origin
		}
		sink.Publish(f)
	}
}
