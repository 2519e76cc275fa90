package retools

import (
	"fmt"
	"sort"
	"strings"
)

// Byte positions accepted by a mask, 1-based
const (
	MinPosition = 1
	MaxPosition = 8
)

// MaskTable maps a bus identifier to the payload bytes that extend its key.
// Bit j set means payload byte j (0-based) is part of the key.
type MaskTable map[uint32]uint8

// BuildMask converts 1-based byte positions into a mask. Positions outside
// [1,8] are ignored.
func BuildMask(positions []int) uint8 {
	var mask uint8
	for _, p := range positions {
		if p >= MinPosition && p <= MaxPosition {
			mask |= 1 << (p - 1)
		}
	}
	return mask
}

// MaskPositions converts a mask back to sorted 1-based byte positions
func MaskPositions(mask uint8) []int {
	positions := make([]int, 0, 8)
	for j := 0; j < 8; j++ {
		if mask&(1<<j) != 0 {
			positions = append(positions, j+1)
		}
	}
	return positions
}

// Set installs or overwrites the mask for id and returns it
func (m MaskTable) Set(id uint32, positions []int) uint8 {
	mask := BuildMask(positions)
	m[id] = mask
	return mask
}

// Clear removes the mask for id. It returns false if there was none.
func (m MaskTable) Clear(id uint32) bool {
	if _, ok := m[id]; !ok {
		return false
	}
	delete(m, id)
	return true
}

// Lookup returns the mask for id
func (m MaskTable) Lookup(id uint32) (uint8, bool) {
	mask, ok := m[id]
	return mask, ok
}

// MaskEntry is a snapshot of one mask table entry
type MaskEntry struct {
	ID   uint32
	Mask uint8
}

// Positions returns the 1-based byte positions selected by the entry
func (e MaskEntry) Positions() []int {
	return MaskPositions(e.Mask)
}

// String formats the entry as "100 bytes 1,3 (0x05)"
func (e MaskEntry) String() string {
	parts := make([]string, 0, 8)
	for _, p := range e.Positions() {
		parts = append(parts, fmt.Sprint(p))
	}
	return fmt.Sprintf("%x bytes %s (0x%02x)", e.ID, strings.Join(parts, ","), e.Mask)
}

// entries returns the table sorted by identifier
func (m MaskTable) entries() []MaskEntry {
	out := make([]MaskEntry, 0, len(m))
	for id, mask := range m {
		out = append(out, MaskEntry{ID: id, Mask: mask})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
