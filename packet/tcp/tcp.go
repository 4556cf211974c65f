package tcp

import (
	"encoding/binary"
	"fmt"
)

// document http://www5d.biglobe.ne.jp/stssk/rfc/rfc793j.html

const HeaderLength int = 20

const (
	srcPort    = 0
	dstPort    = 2
	seqNum     = 4
	ackNum     = 8
	offsetFlag = 12
	window     = 14
	checksum   = 16
	urgent     = 18
)

// Header is the builder side of a TCP header.
type Header struct {
	SourcePort        uint16            // 16bits
	DestinationPort   uint16            // 16bits
	Sequence          uint32            // 32bits
	Ack               uint32            // 32bits
	OffsetControlFlag OffsetControlFlag // 16bits
	WindowSize        uint16
	Checksum          uint16
	Urgent            uint16
}

type OffsetControlFlag uint16

func NewOffsetControlFlag(offset int, flag ControlFlag) OffsetControlFlag {
	return OffsetControlFlag(uint16(offset/4)<<12 | uint16(flag))
}

// Offset returns the header length in bytes.
func (of OffsetControlFlag) Offset() int {
	of8 := uint8(of >> 8)
	return 4 * int(of8>>4)
}

func (of OffsetControlFlag) ControlFlag() ControlFlag {
	return ControlFlag(uint8(of))
}

// Encode writes the header into b at fixed offsets with a zero checksum.
func (tcphdr *Header) Encode(b []byte) {
	binary.BigEndian.PutUint16(b[srcPort:], tcphdr.SourcePort)
	binary.BigEndian.PutUint16(b[dstPort:], tcphdr.DestinationPort)
	binary.BigEndian.PutUint32(b[seqNum:], tcphdr.Sequence)
	binary.BigEndian.PutUint32(b[ackNum:], tcphdr.Ack)
	binary.BigEndian.PutUint16(b[offsetFlag:], uint16(tcphdr.OffsetControlFlag))
	binary.BigEndian.PutUint16(b[window:], tcphdr.WindowSize)
	binary.BigEndian.PutUint16(b[checksum:], 0)
	binary.BigEndian.PutUint16(b[urgent:], tcphdr.Urgent)
}

func (tcphdr *Header) Show() {
	fmt.Println("-------tcp header-------")
	fmt.Printf("source port = %v\n", tcphdr.SourcePort)
	fmt.Printf("destination port = %v\n", tcphdr.DestinationPort)
	fmt.Printf("sequence number = %v\n", tcphdr.Sequence)
	fmt.Printf("ack = %v\n", tcphdr.Ack)
	fmt.Printf("offset = %v\n", tcphdr.OffsetControlFlag.Offset())
	fmt.Printf("control flag = %s\n", tcphdr.OffsetControlFlag.ControlFlag().String())
	fmt.Printf("window size = %v\n", tcphdr.WindowSize)
	fmt.Printf("checksum = %x\n", tcphdr.Checksum)
	fmt.Println("------------------------")
}

// View reads a TCP segment in place. Callers check the length and data
// offset before constructing a View.
type View []byte

func (v View) SourcePort() uint16 {
	return binary.BigEndian.Uint16(v[srcPort:])
}

func (v View) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(v[dstPort:])
}

func (v View) Sequence() uint32 {
	return binary.BigEndian.Uint32(v[seqNum:])
}

func (v View) Ack() uint32 {
	return binary.BigEndian.Uint32(v[ackNum:])
}

func (v View) OffsetControlFlag() OffsetControlFlag {
	return OffsetControlFlag(binary.BigEndian.Uint16(v[offsetFlag:]))
}

func (v View) DataOffset() int {
	return v.OffsetControlFlag().Offset()
}

func (v View) Flags() ControlFlag {
	return v.OffsetControlFlag().ControlFlag()
}

func (v View) WindowSize() uint16 {
	return binary.BigEndian.Uint16(v[window:])
}

func (v View) Checksum() uint16 {
	return binary.BigEndian.Uint16(v[checksum:])
}

func (v View) SetChecksum(sum uint16) {
	binary.BigEndian.PutUint16(v[checksum:], sum)
}

func (v View) Urgent() uint16 {
	return binary.BigEndian.Uint16(v[urgent:])
}

func (v View) OptionBytes() []byte {
	return v[HeaderLength:v.DataOffset()]
}

func (v View) Payload() []byte {
	return v[v.DataOffset():]
}

func (v View) Header() Header {
	return Header{
		SourcePort:        v.SourcePort(),
		DestinationPort:   v.DestinationPort(),
		Sequence:          v.Sequence(),
		Ack:               v.Ack(),
		OffsetControlFlag: v.OffsetControlFlag(),
		WindowSize:        v.WindowSize(),
		Checksum:          v.Checksum(),
		Urgent:            v.Urgent(),
	}
}
