package ipv4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terassyi/tunstack/config"
	"github.com/terassyi/tunstack/packet"
	ipv4hdr "github.com/terassyi/tunstack/packet/ipv4"
	"github.com/terassyi/tunstack/packet/tcp"
	tcpproto "github.com/terassyi/tunstack/proto/tcp"
)

type collector struct {
	packets [][]byte
}

func (c *collector) SendPackets(packets [][]byte) {
	c.packets = append(c.packets, packets...)
}

func syn(t *testing.T) []byte {
	t.Helper()
	d := packet.Build(&packet.Segment{
		Src:             ipv4hdr.IPAddress{10, 0, 0, 2},
		Dst:             ipv4hdr.IPAddress{1, 1, 1, 1},
		TTL:             64,
		SourcePort:      51000,
		DestinationPort: 80,
		Sequence:        42,
		Flags:           tcp.SYN,
		Window:          65535,
		Options:         tcp.Options{tcp.MaxSegmentSize(1460)},
	})
	d.SetChecksum()
	return d.Bytes()
}

func newIpv4(t *testing.T) (*Ipv4, *collector) {
	t.Helper()
	c := &collector{}
	return New(tcpproto.New(config.Default(), c, nil, false), false), c
}

func TestHandlePacket(t *testing.T) {
	ip, c := newIpv4(t)
	require.NoError(t, ip.HandlePacket(syn(t), packet.V4))
	assert.Equal(t, 1, ip.Tcp.Len())
	require.Len(t, c.packets, 1)

	d, err := packet.Parse(c.packets[0])
	require.NoError(t, err)
	assert.Equal(t, tcp.SYN|tcp.ACK, d.Flags())
	assert.Equal(t, uint32(43), d.Ack())
	assert.Equal(t, ipv4hdr.IPAddress{10, 0, 0, 2}, d.Dst())
}

func TestHandlePacketVersionMismatch(t *testing.T) {
	ip, c := newIpv4(t)
	err := ip.HandlePacket(syn(t), packet.V6)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.Equal(t, 0, ip.Tcp.Len())
	assert.Empty(t, c.packets)
}

func TestHandlePacketMalformed(t *testing.T) {
	ip, c := newIpv4(t)

	buf := syn(t)
	buf[len(buf)-1] ^= 0xff
	assert.ErrorIs(t, ip.HandlePacket(buf, packet.V4), packet.ErrChecksum)

	v6 := make([]byte, 40)
	v6[0] = 0x60
	assert.ErrorIs(t, ip.HandlePacket(v6, packet.V6), packet.ErrUnsupportedVersion)

	assert.ErrorIs(t, ip.HandlePacket(nil, packet.V4), packet.ErrTooShort)
	assert.Equal(t, 0, ip.Tcp.Len())
	assert.Empty(t, c.packets)
}
