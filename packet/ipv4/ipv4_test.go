package ipv4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringToIPAddress(t *testing.T) {
	addr, err := StringToIPAddress("192.168.10.254")
	require.NoError(t, err)
	assert.Equal(t, IPAddress{192, 168, 10, 254}, addr)
	assert.Equal(t, "192.168.10.254", addr.String())
	assert.Equal(t, uint32(0xc0a80afe), addr.Uint32())

	for _, in := range []string{"", "10.0.0", "10.0.0.256", "10.0.0.x", "1.2.3.4.5"} {
		_, err := StringToIPAddress(in)
		assert.Error(t, err, in)
	}
	_, err = Address([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestHeaderEncode(t *testing.T) {
	hdr := &Header{
		VHL:      VHLNoOptions,
		Length:   uint16(HeaderLength),
		Ident:    0x1c46,
		FlOffset: FlagDontFragment | 0x10,
		TTL:      64,
		Protocol: IPTCPProtocol,
		Src:      IPAddress{172, 16, 10, 99},
		Dst:      IPAddress{172, 16, 10, 12},
	}
	buf := make([]byte, HeaderLength)
	hdr.Encode(buf)
	v := View(buf)
	assert.False(t, v.IsChecksumValid())
	v.SetChecksum()
	assert.True(t, v.IsChecksumValid())

	assert.Equal(t, uint8(4), v.Version())
	assert.Equal(t, HeaderLength, v.HeaderLength())
	assert.Equal(t, uint16(0x1c46), v.Ident())
	assert.Equal(t, uint8(0x2), v.FlOffset().Flags())
	assert.Equal(t, uint16(0x10), v.FlOffset().FragmentOffset())
	assert.Equal(t, "tcp", v.Protocol().String())
	assert.Empty(t, v.Payload())

	got := v.Header()
	hdr.Checksum = v.Checksum()
	assert.Equal(t, *hdr, got)
}
