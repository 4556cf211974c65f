package tcp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrMalformedOption = errors.New("malformed tcp option")

type OptionKind uint8

type Option interface {
	Kind() OptionKind
	Length() int
	Data() []byte
	Byte() []byte
}

type Options []Option

// ParseOptions reads the option list. Only MSS and window scale are kept;
// other options are skipped by their declared length. On a malformed length
// parsing stops and the options read so far are returned with
// ErrMalformedOption.
func ParseOptions(data []byte) (Options, error) {
	var ops Options
	for i := 0; i < len(data); {
		kind := OptionKind(data[i])
		switch kind {
		case End:
			return ops, nil
		case Nop:
			i++
			continue
		}
		if i+1 >= len(data) {
			return ops, fmt.Errorf("%w: kind %d has no length at %d", ErrMalformedOption, kind, i)
		}
		length := int(data[i+1])
		if length < 2 || i+length > len(data) {
			return ops, fmt.Errorf("%w: kind %d length %d at %d", ErrMalformedOption, kind, length, i)
		}
		switch kind {
		case MSS:
			if length != 4 {
				return ops, fmt.Errorf("%w: mss length %d", ErrMalformedOption, length)
			}
			ops = append(ops, MaxSegmentSize(binary.BigEndian.Uint16(data[i+2:])))
		case WS:
			if length != 3 {
				return ops, fmt.Errorf("%w: window scale length %d", ErrMalformedOption, length)
			}
			ws := data[i+2]
			if ws > MaxWindowScale {
				ws = MaxWindowScale
			}
			ops = append(ops, WindowScale(ws))
		}
		i += length
	}
	return ops, nil
}

// Length returns the encoded length padded to a multiple of four.
func (op Options) Length() int {
	total := 0
	for _, o := range op {
		total += o.Length()
	}
	return (total + 3) &^ 3
}

// Byte encodes the options padded with NOPs.
func (op Options) Byte() []byte {
	var data []byte
	for _, o := range op {
		data = append(data, o.Byte()...)
	}
	for len(data)%4 != 0 {
		data = append(data, NoOperation{}.Byte()...)
	}
	return data
}

func (op Options) MSS() (uint16, bool) {
	for _, o := range op {
		if mss, ok := o.(MaxSegmentSize); ok {
			return uint16(mss), true
		}
	}
	return 0, false
}

func (op Options) WindowScale() (uint8, bool) {
	for _, o := range op {
		if ws, ok := o.(WindowScale); ok {
			return uint8(ws), true
		}
	}
	return 0, false
}

type EndOfOptionList struct{}

func (EndOfOptionList) Kind() OptionKind {
	return End
}

func (EndOfOptionList) Length() int {
	return 1
}

func (EndOfOptionList) Data() []byte {
	return nil
}

func (EndOfOptionList) Byte() []byte {
	return []byte{byte(End)}
}

type NoOperation struct{}

func (NoOperation) Kind() OptionKind {
	return Nop
}

func (NoOperation) Length() int {
	return 1
}

func (NoOperation) Data() []byte {
	return nil
}

func (NoOperation) Byte() []byte {
	return []byte{byte(Nop)}
}

type MaxSegmentSize uint16

func (MaxSegmentSize) Kind() OptionKind {
	return MSS
}

func (MaxSegmentSize) Length() int {
	return 4
}

func (mss MaxSegmentSize) Data() []byte {
	return []byte{byte(mss >> 8), byte(mss & 0xff)}
}

func (mss MaxSegmentSize) Byte() []byte {
	d := []byte{byte(MSS), byte(4)}
	return append(d, mss.Data()...)
}

type WindowScale uint8

func (WindowScale) Kind() OptionKind {
	return WS
}

func (WindowScale) Length() int {
	return 3
}

func (ws WindowScale) Data() []byte {
	return []byte{byte(ws)}
}

func (ws WindowScale) Byte() []byte {
	return []byte{byte(WS), byte(3), byte(ws)}
}
