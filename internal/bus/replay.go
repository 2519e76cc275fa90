package bus

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/retools/internal/can"
	"github.com/muurk/retools/internal/logging"
)

// ReplaySource publishes frames from a candump log file
type ReplaySource struct {
	Path string
	// Origin overrides the interface name recorded in the file
	Origin string
	// Rate limits replay to this many frames per second (0 = unlimited)
	Rate float64
}

// Name implements Source
func (s *ReplaySource) Name() string {
	return "replay:" + s.Path
}

// Run implements Source. It returns nil at end of file.
func (s *ReplaySource) Run(ctx context.Context, sink Sink) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("failed to open replay file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var limiter *rate.Limiter
	if s.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.Rate), 1)
	}

	scanner := bufio.NewScanner(f)
	lineNum, published, skipped := 0, 0, 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		frame, err := can.ParseCandump(line)
		if err != nil {
			skipped++
			logging.Warn("Skipping malformed replay line",
				zap.String("path", s.Path),
				zap.Int("line", lineNum),
				zap.Error(err),
			)
			continue
		}
		if s.Origin != "" {
			frame.Origin = s.Origin
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		} else if ctx.Err() != nil {
			return nil
		}

		sink.Publish(frame)
		published++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read replay file: %w", err)
	}

	logging.LogSource(s.Name(), "end_of_file",
		zap.Int("published", published),
		zap.Int("skipped", skipped),
	)
	return nil
}
