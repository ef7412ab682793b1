package util

import (
	"strings"

	"github.com/klauspost/crc32"
)

// Checksum returns the 32-bit identity key of a normalized declaration string.
// Trailing whitespace is not significant.
func Checksum(decl string) uint32 {
	return crc32.ChecksumIEEE([]byte(strings.TrimRight(decl, " \t\n")))
}
