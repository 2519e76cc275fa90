package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/muurk/retools/internal/can"
	"github.com/muurk/retools/internal/logging"
)

// NATSSource subscribes to a NATS subject carrying SocketCAN binary frames.
// A message may hold several back-to-back frames.
type NATSSource struct {
	URL     string
	Subject string
	// Origin overrides the frame origin. When empty the last token of the
	// message subject is used, so "can.can1" yields "can1".
	Origin string
}

// Name implements Source
func (s *NATSSource) Name() string {
	return "nats:" + s.Subject
}

// Run implements Source
func (s *NATSSource) Run(ctx context.Context, sink Sink) error {
	url := s.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, nats.Name("retools"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	defer nc.Close()

	logging.LogSource(s.Name(), "connected", zap.String("url", url))

	sub, err := nc.Subscribe(s.Subject, func(msg *nats.Msg) {
		s.handleMessage(msg.Subject, msg.Data, sink)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.Subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	logging.LogSource(s.Name(), "subscribed")

	<-ctx.Done()
	return nil
}

// handleMessage decodes one NATS message and publishes its frames
func (s *NATSSource) handleMessage(subject string, data []byte, sink Sink) {
	origin := s.Origin
	if origin == "" {
		origin = originFromSubject(subject)
	}

	frames, err := can.DecodeFrames(data, origin)
	if err != nil {
		logging.Warn("Malformed NATS frame message",
			zap.String("subject", subject),
			zap.Int("length", len(data)),
			zap.Error(err),
		)
		return
	}
	for _, f := range frames {
		sink.Publish(f)
	}
}

func originFromSubject(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
