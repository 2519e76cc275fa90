package console

import "math"

// ParseHex reads a hexadecimal identifier the way (uint32_t)strtol(s, NULL, 16)
// does with a 64-bit long: leading whitespace and an optional sign and "0x"
// prefix are accepted, parsing stops at the first non-hex character and no
// digits yields 0. The value saturates at the 64-bit limits and then keeps
// its low 32 bits, so "123456789" yields 0x23456789.
func ParseHex(s string) uint32 {
	i, neg := skipPrefix(s)
	if len(s)-i >= 2 && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') && i+2 < len(s) && hexDigit(s[i+2]) >= 0 {
		i += 2
	}

	// limit is LONG_MAX, or the magnitude of LONG_MIN when negative
	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}
	var v uint64
	for ; i < len(s); i++ {
		d := hexDigit(s[i])
		if d < 0 {
			break
		}
		if v > (limit-uint64(d))>>4 {
			v = limit
			continue
		}
		v = v<<4 | uint64(d)
	}
	if neg {
		return uint32(-v)
	}
	return uint32(v)
}

// ParseInt reads a decimal integer the way atoi does. Values that do not fit
// are clamped.
func ParseInt(s string) int {
	i, neg := skipPrefix(s)

	var v int64
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if v <= math.MaxInt32 {
			v = v*10 + int64(s[i]-'0')
		}
	}
	if v > math.MaxInt32 {
		v = math.MaxInt32
	}
	if neg {
		v = -v
	}
	return int(v)
}

func skipPrefix(s string) (int, bool) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == '\v' || s[i] == '\f') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	return i, neg
}

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}
