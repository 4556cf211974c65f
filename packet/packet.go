package packet

import (
	"errors"
	"fmt"

	"github.com/terassyi/tunstack/packet/ipv4"
	"github.com/terassyi/tunstack/packet/tcp"
	"github.com/terassyi/tunstack/util"
)

// MaxDatagramLength is the largest length the IPv4 total length field holds.
const MaxDatagramLength int = 0xFFFF

var (
	ErrTooShort            = errors.New("datagram is too short")
	ErrLengthMismatch      = errors.New("total length does not match datagram length")
	ErrUnsupportedVersion  = errors.New("unsupported ip version")
	ErrChecksum            = errors.New("invalid checksum")
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	ErrBadOption           = errors.New("invalid tcp header length")
)

// Version is the IP version of a datagram. Only V4 is handled.
type Version uint8

const (
	V4 Version = 4
	V6 Version = 6
)

func (v Version) String() string {
	switch v {
	case V4:
		return "ipv4"
	case V6:
		return "ipv6"
	default:
		return fmt.Sprintf("ip(%d)", uint8(v))
	}
}

// Datagram is an IPv4 datagram carrying a TCP segment. IP and TCP are views
// into the same buffer; a parsed buffer must not be modified afterwards.
type Datagram struct {
	buf     []byte
	IP      ipv4.View
	TCP     tcp.View
	Options tcp.Options
	// OptionsTruncated is set when the option list was malformed and
	// parsing stopped early. Options holds what was read before that.
	OptionsTruncated bool
}

// Parse validates buf and returns views into it. Lengths and checksums are
// checked before any other field is trusted.
func Parse(buf []byte) (*Datagram, error) {
	if len(buf) == 0 {
		return nil, ErrTooShort
	}
	switch v := Version(buf[0] >> 4); v {
	case V4:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
	if len(buf) < ipv4.HeaderLength {
		return nil, fmt.Errorf("%w: ip header (%d)", ErrTooShort, len(buf))
	}
	ip := ipv4.View(buf)
	hl := ip.HeaderLength()
	if hl < ipv4.HeaderLength || hl > len(buf) {
		return nil, fmt.Errorf("%w: ip header length %d", ErrTooShort, hl)
	}
	if int(ip.TotalLength()) != len(buf) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, ip.TotalLength(), len(buf))
	}
	if !ip.IsChecksumValid() {
		return nil, fmt.Errorf("%w: ip header", ErrChecksum)
	}
	if ip.Protocol() != ipv4.IPTCPProtocol {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, ip.Protocol())
	}
	segment := buf[hl:]
	if len(segment) < tcp.HeaderLength {
		return nil, fmt.Errorf("%w: tcp header (%d)", ErrTooShort, len(segment))
	}
	t := tcp.View(segment)
	if off := t.DataOffset(); off < tcp.HeaderLength || off > len(segment) {
		return nil, fmt.Errorf("%w: data offset %d", ErrBadOption, off)
	}
	pseudo := util.PseudoHeaderSum(ip.Src(), ip.Dst(), uint8(ipv4.IPTCPProtocol), uint16(len(segment)))
	if !util.Validate(segment, pseudo) {
		return nil, fmt.Errorf("%w: tcp segment", ErrChecksum)
	}
	d := &Datagram{
		buf: buf,
		IP:  ip,
		TCP: t,
	}
	ops, err := tcp.ParseOptions(t.OptionBytes())
	d.Options = ops
	if err != nil {
		d.OptionsTruncated = true
	}
	return d, nil
}

func (d *Datagram) Bytes() []byte {
	return d.buf
}

func (d *Datagram) Version() Version {
	return Version(d.IP.Version())
}

func (d *Datagram) Src() ipv4.IPAddress {
	return d.IP.Src()
}

func (d *Datagram) Dst() ipv4.IPAddress {
	return d.IP.Dst()
}

func (d *Datagram) SourcePort() uint16 {
	return d.TCP.SourcePort()
}

func (d *Datagram) DestinationPort() uint16 {
	return d.TCP.DestinationPort()
}

func (d *Datagram) Sequence() uint32 {
	return d.TCP.Sequence()
}

func (d *Datagram) Ack() uint32 {
	return d.TCP.Ack()
}

func (d *Datagram) Flags() tcp.ControlFlag {
	return d.TCP.Flags()
}

func (d *Datagram) Window() uint16 {
	return d.TCP.WindowSize()
}

// Payload returns the TCP payload. On a built datagram it is the writable
// region reserved for data.
func (d *Datagram) Payload() []byte {
	return d.TCP.Payload()
}

// SequenceLength is the payload length plus one for each of SYN and FIN.
func (d *Datagram) SequenceLength() uint32 {
	n := uint32(len(d.Payload()))
	flags := d.Flags()
	if flags.Syn() {
		n++
	}
	if flags.Fin() {
		n++
	}
	return n
}

func (d *Datagram) EndSequence() uint32 {
	return d.Sequence() + d.SequenceLength()
}

func (d *Datagram) String() string {
	return fmt.Sprintf("%s:%d > %s:%d [%s] seq=%d ack=%d win=%d len=%d",
		d.Src(), d.SourcePort(), d.Dst(), d.DestinationPort(),
		d.Flags(), d.Sequence(), d.Ack(), d.Window(), len(d.Payload()))
}

// Segment describes an outbound TCP segment.
type Segment struct {
	Src             ipv4.IPAddress
	Dst             ipv4.IPAddress
	Ident           uint16
	TTL             uint8
	SourcePort      uint16
	DestinationPort uint16
	Sequence        uint32
	Ack             uint32
	Flags           tcp.ControlFlag
	Window          uint16
	Options         tcp.Options
	PayloadLength   int
}

// Length returns the size of the datagram Build allocates for s.
func (s *Segment) Length() int {
	return ipv4.HeaderLength + tcp.HeaderLength + s.Options.Length() + s.PayloadLength
}

// Build allocates a datagram for s and writes every header field with both
// checksums zeroed. The caller fills Payload and then calls SetChecksum.
// Build panics if the length of s cannot be represented.
func Build(s *Segment) *Datagram {
	if s.PayloadLength < 0 {
		panic(fmt.Sprintf("packet: negative payload length %d", s.PayloadLength))
	}
	length := s.Length()
	if length > MaxDatagramLength {
		panic(fmt.Sprintf("packet: datagram length %d exceeds %d", length, MaxDatagramLength))
	}
	buf := make([]byte, length)
	iphdr := &ipv4.Header{
		VHL:      ipv4.VHLNoOptions,
		Length:   uint16(length),
		Ident:    s.Ident,
		FlOffset: ipv4.FlagDontFragment,
		TTL:      s.TTL,
		Protocol: ipv4.IPTCPProtocol,
		Src:      s.Src,
		Dst:      s.Dst,
	}
	iphdr.Encode(buf)
	offset := tcp.HeaderLength + s.Options.Length()
	tcphdr := &tcp.Header{
		SourcePort:        s.SourcePort,
		DestinationPort:   s.DestinationPort,
		Sequence:          s.Sequence,
		Ack:               s.Ack,
		OffsetControlFlag: tcp.NewOffsetControlFlag(offset, s.Flags),
		WindowSize:        s.Window,
	}
	segment := buf[ipv4.HeaderLength:]
	tcphdr.Encode(segment)
	copy(segment[tcp.HeaderLength:], s.Options.Byte())
	return &Datagram{
		buf:     buf,
		IP:      ipv4.View(buf),
		TCP:     tcp.View(segment),
		Options: s.Options,
	}
}

// SetChecksum finalizes a built datagram: the TCP checksum over the
// pseudo-header, segment and payload, then the IP header checksum. It must be
// the last write to the datagram.
func (d *Datagram) SetChecksum() {
	segment := d.TCP
	segment.SetChecksum(0)
	pseudo := util.PseudoHeaderSum(d.Src(), d.Dst(), uint8(ipv4.IPTCPProtocol), uint16(len(segment)))
	segment.SetChecksum(util.Checksum(segment, pseudo))
	d.IP.SetChecksum()
}
