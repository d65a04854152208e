package utils

import "strings"

const hexd = "0123456789ABCDEF"

// Hex4 formats a uint16 as a 4-character hexadecimal string (e.g., "0499")
func Hex4(v uint16) string {
	return string([]byte{
		hexd[(v>>12)&0xF],
		hexd[(v>>8)&0xF],
		hexd[(v>>4)&0xF],
		hexd[v&0xF],
	})
}

// BytesToHex converts a byte slice to a hexadecimal string
func BytesToHex(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, x := range b {
		out = append(out, hexd[x>>4], hexd[x&0x0F])
	}
	return string(out)
}

// BytesToHexSep formats b as upper case hex pairs joined by sep,
// e.g. "03-29-1A" for sep "-".
func BytesToHexSep(b []byte, sep string) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = string([]byte{hexd[x>>4], hexd[x&0x0F]})
	}
	return strings.Join(parts, sep)
}

// NormalizeAddress upper-cases a BLE address and trims surrounding space.
func NormalizeAddress(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}
