// Package retools implements the frame classification and statistics engine
// used to reverse engineer a CAN bus.
//
// Every frame observed on the bus is bucketed under a composite key and
// counted, so an operator can see which identifiers carry traffic, how often,
// and what they last said.
//
// # Keys
//
// A key is the frame origin, a slash and the identifier in fixed-width hex
// (3 digits for standard frames, 8 for extended ones):
//
//	can1/100
//	can1/18daf110
//
// An ID mask extends the key of one identifier with selected payload bytes.
// With bytes 1 and 3 selected for 0x100, frames split into one key per
// distinct value pair:
//
//	can1/100:01:7f
//	can1/100:02:7f
//
// Mask bit j selects payload byte j, whatever the frame's DLC says. Changing a
// mask never rewrites keys already in the table, so stale and new keys for the
// same identifier can be listed side by side.
//
// # Engine Lifecycle
//
// The Engine is Idle until Start registers a listener queue with the bus
// transport and spawns the ingestion goroutine. Stop deregisters the queue
// first, then cancels the ingestion goroutine, waits for it, and drops the
// table. Every other operation fails with ErrNotRunning while Idle.
//
//	eng := retools.NewEngine(hub, retools.Options{})
//	if err := eng.Start(); err != nil {
//	    return err
//	}
//	defer eng.Stop()
//
//	eng.SetKey(0x100, []int{1})
//	report, err := eng.List("100")
//
// # Thread Safety
//
// One mutex covers the statistics table and the mask table together. The
// ingestion goroutine is the only writer of statistics; List, Clear and the
// key operations may be called from any goroutine.
package retools
