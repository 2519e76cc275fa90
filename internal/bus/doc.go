// Package bus delivers captured frames to retools.
//
// The package plays the part of the bus transport: sources (a NATS subject,
// a WebSocket CAN gateway, a candump replay file) publish frames into a Hub,
// and the Hub fans every frame out to the registered listener queues.
//
// # Queue Semantics
//
// A Queue is bounded. Publishing never blocks: when a listener's queue is
// full the frame is dropped for that listener and counted. The consumer side
// blocks in Receive until a frame arrives or its context is cancelled, so
// tearing down a consumer never depends on traffic.
//
// # Listener Registration
//
//	q := bus.NewQueue(20, nil)
//	hub.RegisterListener(q)
//	defer hub.DeregisterListener(q)
//
// Publish holds the Hub's read lock while pushing and DeregisterListener takes
// the write lock, so once DeregisterListener returns no publisher can touch
// the queue any more.
//
// # Sources
//
//	sources := []bus.Source{
//	    &bus.NATSSource{URL: nats.DefaultURL, Subject: "can.>"},
//	    &bus.ReplaySource{Path: "drive.log"},
//	}
//	err := bus.RunSources(ctx, hub, sources...)
package bus
