package retools

import (
	"fmt"
	"strings"

	"github.com/muurk/retools/internal/can"
)

// Key separators
const (
	originSeparator = "/"
	byteSeparator   = ":"
)

// DeriveKey returns the composite statistics key for a frame. The result
// depends only on the frame's origin, identifier, format flag and, when masks
// has an entry for the identifier, the selected payload bytes.
func DeriveKey(f can.Frame, masks MaskTable) string {
	var b strings.Builder
	b.Grow(len(f.Origin) + 1 + 8 + 8*3)

	b.WriteString(f.Origin)
	b.WriteString(originSeparator)
	b.WriteString(f.IDString())

	mask, ok := masks.Lookup(f.ID)
	if !ok {
		return b.String()
	}
	for j := 0; j < 8; j++ {
		if mask&(1<<j) != 0 {
			b.WriteString(byteSeparator)
			fmt.Fprintf(&b, "%02x", f.Data[j])
		}
	}
	return b.String()
}
