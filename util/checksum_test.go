package util

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

func TestChecksum(t *testing.T) {
	hdr := []byte{
		0x45, 0x00, 0x00, 0x73, 0x00, 0x00, 0x40, 0x00,
		0x40, 0x11, 0x00, 0x00, 0xc0, 0xa8, 0x00, 0x01,
		0xc0, 0xa8, 0x00, 0xc7,
	}
	sum := Checksum(hdr, 0)
	if sum != 0xb861 {
		t.Fatalf("actual %x", sum)
	}
	binary.BigEndian.PutUint16(hdr[10:], sum)
	if !Validate(hdr, 0) {
		t.Fatalf("checksum is not valid")
	}
	hdr[15] ^= 0x01
	if Validate(hdr, 0) {
		t.Fatalf("flipped byte was not detected")
	}
}

func TestChecksumOddLength(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	assert.Equal(t, ^uint16(0x0102+0x0300), Checksum(data, 0))
}

func TestPseudoHeaderSum(t *testing.T) {
	src := [4]byte{10, 0, 0, 1}
	dst := [4]byte{10, 0, 0, 2}
	want := header.PseudoHeaderChecksum(header.TCPProtocolNumber, tcpip.AddrFrom4(src), tcpip.AddrFrom4(dst), 40)
	assert.Equal(t, want, PseudoHeaderSum(src, dst, 6, 40))
}
