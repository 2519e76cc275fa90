// Package can defines the bus frame observed by retools and the wire formats
// used to carry frames between a bus gateway and the statistics engine.
//
// # Frame Model
//
// A Frame is a value snapshot of one classical CAN message:
//   - Origin: name of the bus the frame arrived on (e.g. "can1")
//   - ID: 11-bit standard or 29-bit extended identifier
//   - Extended: identifier format flag
//   - DLC: declared payload length (0-8)
//   - Data: all 8 payload bytes, including any beyond DLC
//
// Bytes beyond DLC are kept exactly as the transport delivered them (normally
// zero). The engine may key on them, so codecs never scrub them.
//
// # Wire Formats
//
// SocketCAN binary (16 bytes, little-endian), as used by Linux can_frame:
//
//	0..3   can_id with EFF (0x80000000) and RTR (0x40000000) flags
//	4      can_dlc
//	5..7   padding
//	8..15  data
//
// candump log lines, as written by can-utils "candump -l":
//
//	(1436509052.249713) vcan0 044#2A366C2BBA
//	(1436509052.449847) vcan0 12345678#DEADBEEF
//	(1436509052.650004) vcan0 123#R
//
// Standard identifiers use 3 hex digits, extended identifiers use 8.
package can
