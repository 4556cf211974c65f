package ipv4

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/terassyi/tunstack/util"
)

/*
0                   1                   2                   3
    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |Version|  IHL  | Type of Service|          Total Length         |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |         Identification        |Flags|      Fragment Offset    |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |  Time to Live |    Protocol   |         Header Checksum       |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |                       Source Address                          |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |                    Destination Address                        |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
   |                    Options                    |    Padding    |
   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/

const HeaderLength int = 20

const (
	verIHL      = 0
	tos         = 1
	totalLength = 2
	ident       = 4
	flOffset    = 6
	ttl         = 8
	protocol    = 9
	checksum    = 10
	srcAddr     = 12
	dstAddr     = 16
)

// Header is the builder side of an IPv4 header. Length is filled in from the
// datagram being encoded.
type Header struct {
	VHL      VerIHL              // 8bits
	TOS      uint8               // 8bits
	Length   uint16              // 16bits
	Ident    uint16              // 16bits
	FlOffset FlagsFragmentOffset // 16bits
	TTL      uint8               // 8bits
	Protocol IPProtocol          // 8bits
	Checksum uint16              // 16bits
	Src      IPAddress           // 32bits
	Dst      IPAddress           // 32bits
}

type VerIHL uint8

func (vi VerIHL) Version() uint8 {
	return uint8(vi) >> 4
}

func (vi VerIHL) IHL() uint8 {
	return uint8(vi) & 0x0F
}

type FlagsFragmentOffset uint16

func (fo FlagsFragmentOffset) Flags() uint8 {
	return uint8(fo >> 13)
}

func (fo FlagsFragmentOffset) FragmentOffset() uint16 {
	return uint16(fo) & 0x1FFF
}

type IPAddress [4]byte

func (ipaddr IPAddress) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ipaddr[0], ipaddr[1], ipaddr[2], ipaddr[3])
}

func (ipaddr IPAddress) Bytes() []byte {
	return ipaddr[:]
}

// Uint32 returns the address in host order.
func (ipaddr IPAddress) Uint32() uint32 {
	return binary.BigEndian.Uint32(ipaddr[:])
}

func Address(addr []byte) (IPAddress, error) {
	if len(addr) != 4 {
		return IPAddress{}, fmt.Errorf("invalid address %v", addr)
	}
	return IPAddress{addr[0], addr[1], addr[2], addr[3]}, nil
}

func StringToIPAddress(addr string) (IPAddress, error) {
	s := strings.Split(addr, ".")
	if len(s) != 4 {
		return IPAddress{}, fmt.Errorf("invalid address %q", addr)
	}
	var address []byte
	for _, v := range s {
		n, err := strconv.Atoi(v)
		if err != nil {
			return IPAddress{}, err
		}
		if n < 0 || n > 255 {
			return IPAddress{}, fmt.Errorf("invalid address %q", addr)
		}
		address = append(address, byte(n))
	}
	return Address(address)
}

type IPProtocol uint8

func (ipp IPProtocol) String() string {
	switch ipp {
	case IPICMPv4Protocol:
		return "icmp"
	case IPTCPProtocol:
		return "tcp"
	case IPUDPProtocol:
		return "udp"
	default:
		return "(UNKNOWN)"
	}
}

// Encode writes the header into b at fixed offsets with a zero checksum.
// b must hold at least HeaderLength bytes.
func (iphdr *Header) Encode(b []byte) {
	b[verIHL] = byte(iphdr.VHL)
	b[tos] = iphdr.TOS
	binary.BigEndian.PutUint16(b[totalLength:], iphdr.Length)
	binary.BigEndian.PutUint16(b[ident:], iphdr.Ident)
	binary.BigEndian.PutUint16(b[flOffset:], uint16(iphdr.FlOffset))
	b[ttl] = iphdr.TTL
	b[protocol] = byte(iphdr.Protocol)
	binary.BigEndian.PutUint16(b[checksum:], 0)
	copy(b[srcAddr:], iphdr.Src[:])
	copy(b[dstAddr:], iphdr.Dst[:])
}

func (iphdr *Header) Show() {
	fmt.Println("----------ip header----------")
	fmt.Println("version = ", iphdr.VHL.Version())
	fmt.Println("ihl = ", iphdr.VHL.IHL())
	fmt.Printf("tos = %02x\n", iphdr.TOS)
	fmt.Printf("length = %d\n", iphdr.Length)
	fmt.Printf("identifier = %04x\n", iphdr.Ident)
	fmt.Printf("flags = %x\n", iphdr.FlOffset.Flags())
	fmt.Printf("fragment offset = %d\n", iphdr.FlOffset.FragmentOffset())
	fmt.Printf("ttl = %d\n", iphdr.TTL)
	fmt.Printf("protocol = %s\n", iphdr.Protocol.String())
	fmt.Printf("checksum = %04x\n", iphdr.Checksum)
	fmt.Printf("src = %s\n", iphdr.Src.String())
	fmt.Printf("dst = %s\n", iphdr.Dst.String())
}

// View reads header fields in place from a datagram buffer. Callers check
// the length before constructing a View.
type View []byte

func (v View) VHL() VerIHL {
	return VerIHL(v[verIHL])
}

func (v View) Version() uint8 {
	return v.VHL().Version()
}

func (v View) HeaderLength() int {
	return int(v.VHL().IHL()) * 4
}

func (v View) TOS() uint8 {
	return v[tos]
}

func (v View) TotalLength() uint16 {
	return binary.BigEndian.Uint16(v[totalLength:])
}

func (v View) Ident() uint16 {
	return binary.BigEndian.Uint16(v[ident:])
}

func (v View) FlOffset() FlagsFragmentOffset {
	return FlagsFragmentOffset(binary.BigEndian.Uint16(v[flOffset:]))
}

func (v View) TTL() uint8 {
	return v[ttl]
}

func (v View) Protocol() IPProtocol {
	return IPProtocol(v[protocol])
}

func (v View) Checksum() uint16 {
	return binary.BigEndian.Uint16(v[checksum:])
}

func (v View) Src() IPAddress {
	return IPAddress{v[srcAddr], v[srcAddr+1], v[srcAddr+2], v[srcAddr+3]}
}

func (v View) Dst() IPAddress {
	return IPAddress{v[dstAddr], v[dstAddr+1], v[dstAddr+2], v[dstAddr+3]}
}

// Payload returns the bytes following the header up to the total length.
func (v View) Payload() []byte {
	return v[v.HeaderLength():v.TotalLength()]
}

func (v View) IsChecksumValid() bool {
	return util.Validate(v[:v.HeaderLength()], 0)
}

// SetChecksum computes the header checksum over a zeroed checksum field.
func (v View) SetChecksum() {
	binary.BigEndian.PutUint16(v[checksum:], 0)
	binary.BigEndian.PutUint16(v[checksum:], util.Checksum(v[:v.HeaderLength()], 0))
}

func (v View) Header() Header {
	return Header{
		VHL:      v.VHL(),
		TOS:      v.TOS(),
		Length:   v.TotalLength(),
		Ident:    v.Ident(),
		FlOffset: v.FlOffset(),
		TTL:      v.TTL(),
		Protocol: v.Protocol(),
		Checksum: v.Checksum(),
		Src:      v.Src(),
		Dst:      v.Dst(),
	}
}
