package ipv4

import (
	"errors"
	"fmt"

	"github.com/terassyi/tunstack/logger"
	"github.com/terassyi/tunstack/packet"
	"github.com/terassyi/tunstack/proto/tcp"
)

var ErrVersionMismatch = errors.New("ip version does not match the hint")

// Ipv4 parses datagrams read from the device and hands them to Tcp.
type Ipv4 struct {
	Tcp    *tcp.Tcp
	logger *logger.Logger
}

func New(t *tcp.Tcp, debug bool) *Ipv4 {
	return &Ipv4{
		Tcp:    t,
		logger: logger.New(debug, "ipv4"),
	}
}

// HandlePacket handles one datagram. version is the IP version reported by
// the device alongside buf. A datagram that fails to parse or disagrees with
// the hint is dropped and the reason returned.
func (ip *Ipv4) HandlePacket(buf []byte, version packet.Version) error {
	d, err := packet.Parse(buf)
	if err != nil {
		return err
	}
	if d.Version() != version {
		return fmt.Errorf("%w: %s, hint %s", ErrVersionMismatch, d.Version(), version)
	}
	if d.OptionsTruncated {
		ip.logger.Warnf("malformed tcp options from %s:%d", d.Src(), d.SourcePort())
	}
	ip.logger.Debugf("recv %s", d)
	ip.Tcp.HandleDatagram(d)
	return nil
}
