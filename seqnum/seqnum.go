package seqnum

import (
	"gvisor.dev/gvisor/pkg/tcpip/seqnum"
)

// Sequence numbers are compared under modular ordering. Plain integer
// comparison of sequence numbers is never correct because they wrap.

func LessThan(a, b uint32) bool {
	return seqnum.Value(a).LessThan(seqnum.Value(b))
}

func LessThanEq(a, b uint32) bool {
	return seqnum.Value(a).LessThanEq(seqnum.Value(b))
}

func GreaterThan(a, b uint32) bool {
	return seqnum.Value(b).LessThan(seqnum.Value(a))
}

func GreaterThanEq(a, b uint32) bool {
	return seqnum.Value(b).LessThanEq(seqnum.Value(a))
}

// Between reports whether first <= v <= last.
func Between(v, first, last uint32) bool {
	return LessThanEq(first, v) && LessThanEq(v, last)
}

// InRange reports whether first <= v < end.
func InRange(v, first, end uint32) bool {
	return seqnum.Value(v).InRange(seqnum.Value(first), seqnum.Value(end))
}

// InWindow reports whether v lies in [first, first+size).
func InWindow(v, first, size uint32) bool {
	return seqnum.Value(v).InWindow(seqnum.Value(first), seqnum.Size(size))
}

func Max(a, b uint32) uint32 {
	if LessThan(a, b) {
		return b
	}
	return a
}

func Min(a, b uint32) uint32 {
	if LessThan(a, b) {
		return a
	}
	return b
}
