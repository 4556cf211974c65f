package util

import (
	"gvisor.dev/gvisor/pkg/tcpip/checksum"
)

// Sum returns the ones'-complement sum of data folded to 16 bits, continuing
// from initial. It is not complemented.
func Sum(data []byte, initial uint16) uint16 {
	return checksum.Checksum(data, initial)
}

// Checksum returns the Internet checksum of data with initial summed in.
func Checksum(data []byte, initial uint16) uint16 {
	return ^checksum.Checksum(data, initial)
}

// PseudoHeaderSum returns the partial sum of the TCP/UDP pseudo-header.
func PseudoHeaderSum(src, dst [4]byte, protocol uint8, length uint16) uint16 {
	xsum := checksum.Checksum(src[:], 0)
	xsum = checksum.Checksum(dst[:], xsum)
	xsum = checksum.Combine(xsum, uint16(protocol))
	return checksum.Combine(xsum, length)
}

// Validate reports whether data, which embeds its checksum field, sums to
// all ones.
func Validate(data []byte, initial uint16) bool {
	return checksum.Checksum(data, initial) == 0xffff
}
