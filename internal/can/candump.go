package can

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseCandump parses one line of candump log output:
//
//	(1436509052.249713) vcan0 044#2A366C2BBA
//
// The leading timestamp is optional. An identifier written with more than 3
// hex digits is extended.
func ParseCandump(line string) (Frame, error) {
	fields := strings.Fields(strings.TrimSpace(line))

	var f Frame
	switch len(fields) {
	case 3:
		ts, err := parseCandumpTime(fields[0])
		if err != nil {
			return Frame{}, err
		}
		f.Timestamp = ts
		fields = fields[1:]
	case 2:
	default:
		return Frame{}, fmt.Errorf("can: malformed candump line %q", line)
	}

	f.Origin = fields[0]

	idPart, dataPart, ok := strings.Cut(fields[1], "#")
	if !ok {
		return Frame{}, fmt.Errorf("can: missing '#' in %q", fields[1])
	}

	id, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("can: invalid identifier %q: %w", idPart, err)
	}
	f.ID = uint32(id)
	f.Extended = len(idPart) > 3

	if strings.HasPrefix(dataPart, "R") {
		f.RTR = true
		if n := dataPart[1:]; n != "" {
			dlc, err := strconv.ParseUint(n, 10, 8)
			if err != nil {
				return Frame{}, fmt.Errorf("can: invalid remote length %q: %w", n, err)
			}
			f.DLC = uint8(dlc)
		}
	} else {
		data, err := hex.DecodeString(strings.ReplaceAll(dataPart, ".", ""))
		if err != nil {
			return Frame{}, fmt.Errorf("can: invalid payload %q: %w", dataPart, err)
		}
		if len(data) > MaxDataLength {
			return Frame{}, ErrInvalidLength
		}
		f.DLC = uint8(len(data))
		copy(f.Data[:], data)
	}

	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// FormatCandump renders the frame as a candump log line
func FormatCandump(f Frame) string {
	var b strings.Builder
	if !f.Timestamp.IsZero() {
		fmt.Fprintf(&b, "(%d.%06d) ", f.Timestamp.Unix(), f.Timestamp.Nanosecond()/1000)
	}
	origin := f.Origin
	if origin == "" {
		origin = "can0"
	}
	b.WriteString(origin)
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(f.IDString()))
	b.WriteByte('#')
	if f.RTR {
		b.WriteByte('R')
	} else {
		b.WriteString(strings.ToUpper(hex.EncodeToString(f.Payload())))
	}
	return b.String()
}

func parseCandumpTime(field string) (time.Time, error) {
	if len(field) < 3 || field[0] != '(' || field[len(field)-1] != ')' {
		return time.Time{}, fmt.Errorf("can: malformed timestamp %q", field)
	}
	secPart, fracPart, _ := strings.Cut(field[1:len(field)-1], ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("can: malformed timestamp %q: %w", field, err)
	}
	var nsec int64
	if fracPart != "" {
		// right-pad to nanoseconds
		for len(fracPart) < 9 {
			fracPart += "0"
		}
		nsec, err = strconv.ParseInt(fracPart[:9], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("can: malformed timestamp %q: %w", field, err)
		}
	}
	return time.Unix(sec, nsec), nil
}
