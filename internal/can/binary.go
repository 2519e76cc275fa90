package can

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BinaryFrameSize is the size of a SocketCAN can_frame
const BinaryFrameSize = 16

const (
	canEFFFlag = 0x80000000
	canRTRFlag = 0x40000000
	canEFFMask = 0x1FFFFFFF
	canSFFMask = 0x7FF
)

// MarshalBinary encodes the frame in the SocketCAN can_frame layout.
// The origin and timestamp are not part of the layout.
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= canEFFFlag
	}
	if f.RTR {
		id |= canRTRFlag
	}
	buf := make([]byte, BinaryFrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.DLC
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes a SocketCAN can_frame. Origin and Timestamp are
// left untouched so callers can stamp them before or after decoding.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < BinaryFrameSize {
		return fmt.Errorf("can: need %d bytes, got %d", BinaryFrameSize, len(data))
	}
	id := binary.LittleEndian.Uint32(data[0:4])
	f.Extended = id&canEFFFlag != 0
	f.RTR = id&canRTRFlag != 0
	if f.Extended {
		f.ID = id & canEFFMask
	} else {
		f.ID = id & canSFFMask
	}
	f.DLC = data[4]
	copy(f.Data[:], data[8:16])
	return f.Validate()
}

// ReadFrame reads one SocketCAN can_frame from the reader
func ReadFrame(r io.Reader, origin string) (Frame, error) {
	buf := make([]byte, BinaryFrameSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}
	f := Frame{Origin: origin}
	if err := f.UnmarshalBinary(buf); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// DecodeFrames splits a buffer holding back-to-back can_frames. A trailing
// partial frame is an error.
func DecodeFrames(data []byte, origin string) ([]Frame, error) {
	if len(data)%BinaryFrameSize != 0 {
		return nil, fmt.Errorf("can: buffer length %d is not a multiple of %d", len(data), BinaryFrameSize)
	}
	frames := make([]Frame, 0, len(data)/BinaryFrameSize)
	for off := 0; off < len(data); off += BinaryFrameSize {
		f := Frame{Origin: origin}
		if err := f.UnmarshalBinary(data[off : off+BinaryFrameSize]); err != nil {
			return nil, fmt.Errorf("frame %d: %w", off/BinaryFrameSize, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
