package can

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Identifier limits
const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF
	MaxDataLength = 8
)

var (
	ErrInvalidID     = errors.New("can: invalid identifier")
	ErrInvalidLength = errors.New("can: invalid data length")
)

// Frame represents one classical CAN frame as captured from a bus
type Frame struct {
	Origin    string    // Bus the frame arrived on (e.g. "can1")
	ID        uint32    // 11-bit (standard) or 29-bit (extended) identifier
	Extended  bool      // true for 29-bit identifier
	RTR       bool      // Remote transmission request
	DLC       uint8     // Declared payload length (0..8)
	Data      [8]byte   // Payload, bytes beyond DLC included verbatim
	Timestamp time.Time // Capture time reported by the transport (zero if unknown)
}

// NewFrame builds a frame from a payload slice. Identifiers above the 11-bit
// range are marked extended.
func NewFrame(origin string, id uint32, data []byte) (Frame, error) {
	if len(data) > MaxDataLength {
		return Frame{}, ErrInvalidLength
	}
	f := Frame{
		Origin:   origin,
		ID:       id,
		Extended: id > MaxStandardID,
		DLC:      uint8(len(data)),
	}
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate returns an error if the identifier or length is out of range
func (f Frame) Validate() error {
	if f.DLC > MaxDataLength {
		return ErrInvalidLength
	}
	if f.Extended {
		if f.ID > MaxExtendedID {
			return ErrInvalidID
		}
	} else if f.ID > MaxStandardID {
		return ErrInvalidID
	}
	return nil
}

// Payload returns the declared payload bytes (at most 8)
func (f Frame) Payload() []byte {
	n := int(f.DLC)
	if n > MaxDataLength {
		n = MaxDataLength
	}
	return f.Data[:n]
}

// IDString formats the identifier as lowercase hex with a fixed width:
// 3 digits for standard frames, 8 for extended frames.
func (f Frame) IDString() string {
	if f.Extended {
		return fmt.Sprintf("%08x", f.ID)
	}
	return fmt.Sprintf("%03x", f.ID)
}

// HexPayload renders the declared payload as space-separated hex bytes
func (f Frame) HexPayload() string {
	var b strings.Builder
	for i, v := range f.Payload() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", v)
	}
	return b.String()
}

// String returns a debug representation of the frame
func (f Frame) String() string {
	if f.RTR {
		return fmt.Sprintf("%s %s [%d] remote", f.Origin, f.IDString(), f.DLC)
	}
	return fmt.Sprintf("%s %s [%d] %s", f.Origin, f.IDString(), f.DLC, f.HexPayload())
}
