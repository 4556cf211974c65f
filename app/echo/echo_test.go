package echo

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terassyi/tunstack/config"
	"github.com/terassyi/tunstack/packet"
	"github.com/terassyi/tunstack/packet/ipv4"
	tcphdr "github.com/terassyi/tunstack/packet/tcp"
	"github.com/terassyi/tunstack/proto/tcp"
)

type collector struct {
	packets []*packet.Datagram
	t       *testing.T
}

func (c *collector) SendPackets(packets [][]byte) {
	for _, b := range packets {
		d, err := packet.Parse(b)
		require.NoError(c.t, err)
		c.packets = append(c.packets, d)
	}
}

func (c *collector) take() []*packet.Datagram {
	out := c.packets
	c.packets = nil
	return out
}

func send(t *testing.T, s *tcp.Tcp, flags tcphdr.ControlFlag, seq, ack uint32, payload []byte) {
	t.Helper()
	d := packet.Build(&packet.Segment{
		Src:             ipv4.IPAddress{172, 16, 0, 10},
		Dst:             ipv4.IPAddress{172, 16, 0, 1},
		TTL:             64,
		SourcePort:      33000,
		DestinationPort: 7,
		Sequence:        seq,
		Ack:             ack,
		Flags:           flags,
		Window:          65535,
		PayloadLength:   len(payload),
	})
	copy(d.Payload(), payload)
	d.SetChecksum()
	parsed, err := packet.Parse(d.Bytes())
	require.NoError(t, err)
	s.HandleDatagram(parsed)
}

func TestEcho(t *testing.T) {
	out := &collector{t: t}
	s := tcp.New(config.Default(), out, New(false), false)

	send(t, s, tcphdr.SYN, 10, 0, nil)
	synAck := out.take()
	require.Len(t, synAck, 1)
	iss := synAck[0].Sequence()

	send(t, s, tcphdr.ACK, 11, iss+1, nil)
	send(t, s, tcphdr.ACK|tcphdr.PSH, 11, iss+1, []byte("echo me"))
	got := out.take()
	require.Len(t, got, 1)
	assert.Equal(t, []byte("echo me"), got[0].Payload())
	assert.Equal(t, uint32(18), got[0].Ack())

	send(t, s, tcphdr.FIN|tcphdr.ACK, 18, iss+8, nil)
	got = out.take()
	require.Len(t, got, 1)
	assert.Equal(t, tcphdr.FIN|tcphdr.ACK, got[0].Flags())
	assert.Equal(t, uint32(19), got[0].Ack())
	assert.Equal(t, iss+8, got[0].Sequence())

	send(t, s, tcphdr.ACK, 19, iss+9, nil)
	assert.Equal(t, 0, s.Len())
}

type acceptedConns struct {
	*Service
	conns []*tcp.Conn
}

func (a *acceptedConns) Accepted(c *tcp.Conn) {
	a.Service.Accepted(c)
	a.conns = append(a.conns, c)
}

func TestPeerCloseAfterLocalClose(t *testing.T) {
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	out := &collector{t: t}
	svc := &acceptedConns{Service: New(false)}
	s := tcp.New(config.Default(), out, svc, false)

	send(t, s, tcphdr.SYN, 10, 0, nil)
	synAck := out.take()
	require.Len(t, synAck, 1)
	iss := synAck[0].Sequence()
	send(t, s, tcphdr.ACK, 11, iss+1, nil)
	require.Len(t, svc.conns, 1)

	require.NoError(t, svc.conns[0].Close())
	fin := out.take()
	require.Len(t, fin, 1)
	assert.Equal(t, tcphdr.FIN|tcphdr.ACK, fin[0].Flags())

	send(t, s, tcphdr.ACK, 11, iss+2, nil)
	send(t, s, tcphdr.FIN|tcphdr.ACK, 11, iss+2, nil)
	got := out.take()
	require.Len(t, got, 1)
	assert.Equal(t, tcphdr.ACK, got[0].Flags())
	assert.Equal(t, uint32(12), got[0].Ack())

	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level, e.Message)
	}
}
