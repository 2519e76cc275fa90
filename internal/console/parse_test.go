package console

import "testing"

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"100", 0x100},
		{"7FF", 0x7FF},
		{"0x7e8", 0x7E8},
		{"0X18DAF110", 0x18DAF110},
		{"  1a", 0x1A},
		{"12zz", 0x12},
		{"zz", 0},
		{"", 0},
		{"0x", 0},
		{"0xg", 0},
		{"+ff", 0xFF},
		{"-1", 0xFFFFFFFF},
		{"123456789", 0x23456789},
		{"123456789abc", 0x56789ABC},
		{"-100000001", 0xFFFFFFFF},
		{"ffffffffffffffffff", 0xFFFFFFFF},
		{"-ffffffffffffffffff", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseHex(tt.in); got != tt.want {
				t.Errorf("ParseHex(%q) = 0x%x, want 0x%x", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1", 1},
		{"8", 8},
		{" 3", 3},
		{"3x", 3},
		{"x3", 0},
		{"", 0},
		{"-2", -2},
		{"+4", 4},
		{"99999999999", 2147483647},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseInt(tt.in); got != tt.want {
				t.Errorf("ParseInt(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
