package bus

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/retools/internal/logging"
)

// Source produces frames until its context is cancelled or its input ends
type Source interface {
	// Name identifies the source in logs and errors
	Name() string
	// Run publishes frames into sink. It returns nil when ctx is cancelled
	// or the input ends cleanly.
	Run(ctx context.Context, sink Sink) error
}

// RunSources runs all sources concurrently. The first source to fail cancels
// the others and its error is returned.
func RunSources(ctx context.Context, sink Sink, sources ...Source) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			logging.LogSource(src.Name(), "starting")
			if err := src.Run(ctx, sink); err != nil {
				logging.Error("Frame source failed",
					zap.String("source", src.Name()),
					zap.Error(err),
				)
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			logging.LogSource(src.Name(), "finished")
			return nil
		})
	}
	return g.Wait()
}
