package hba

import (
	"fmt"
	"strings"
)

// Reply writes a formatted message into buf, truncated to its length.
func Reply(buf []byte, format string, args ...interface{}) int {
	return copy(buf, fmt.Sprintf(format, args...))
}

// ReplyValue writes an 8-bit value as two hex digits and a newline.
func ReplyValue(buf []byte, v byte) int {
	return Reply(buf, "%02x\n", v)
}

// ReplyBadValue reports an invalid value for rsc.
func ReplyBadValue(buf []byte, rsc *Resource) int {
	return Reply(buf, "bad value for resource %s\n", rsc.Name)
}

// ReplyNoResponse reports that the FPGA did not answer for rsc.
func ReplyNoResponse(buf []byte, rsc *Resource) int {
	return Reply(buf, "no response from resource %s\n", rsc.Name)
}

// FormatBroadcast formats a value pushed to observers.
func FormatBroadcast(v byte) []byte {
	return []byte(fmt.Sprintf("%x\n", v))
}

// ParseValue parses a hex register value. Surrounding blanks and a 0x
// prefix are accepted, and parsing stops at the first non hex character.
// The value must be in [0, 0xff].
func ParseValue(text string) (byte, error) {
	text = strings.TrimSpace(text)
	if len(text) > 2 && (text[:2] == "0x" || text[:2] == "0X") {
		text = text[2:]
	}
	var v int
	if _, err := fmt.Sscanf(text, "%x", &v); err != nil {
		return 0, ErrBadValue
	}
	if v < 0 || v > 0xff {
		return 0, ErrBadValue
	}
	return byte(v), nil
}
