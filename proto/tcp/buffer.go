package tcp

import (
	"github.com/terassyi/tunstack/packet/tcp"
	"github.com/terassyi/tunstack/seqnum"
)

// sendBuffer holds application bytes that have not been sent yet.
type sendBuffer struct {
	data []byte
}

// write copies p so the caller may reuse it.
func (b *sendBuffer) write(p []byte) {
	b.data = append(b.data, p...)
}

func (b *sendBuffer) Len() int {
	return len(b.data)
}

// fillTo moves up to len(dst) bytes from the head of the buffer into dst.
func (b *sendBuffer) fillTo(dst []byte) int {
	n := copy(dst, b.data)
	b.data = b.data[n:]
	if len(b.data) == 0 {
		b.data = nil
	}
	return n
}

// unacked is a sent segment waiting for acknowledgment.
type unacked struct {
	start uint32
	end   uint32
	flags tcp.ControlFlag
	data  []byte
}

// unackedList keeps sent segments ordered by start sequence. Only the
// bookkeeping exists; nothing is retransmitted from it.
type unackedList struct {
	segments []unacked
}

func (l *unackedList) insert(u unacked) {
	i := len(l.segments)
	for i > 0 && seqnum.LessThan(u.start, l.segments[i-1].start) {
		i--
	}
	l.segments = append(l.segments, unacked{})
	copy(l.segments[i+1:], l.segments[i:])
	l.segments[i] = u
}

// removeBefore drops every segment whose end is acknowledged by ack.
func (l *unackedList) removeBefore(ack uint32) int {
	n := 0
	for _, u := range l.segments {
		if !seqnum.LessThanEq(u.end, ack) {
			break
		}
		n++
	}
	l.segments = l.segments[n:]
	if len(l.segments) == 0 {
		l.segments = nil
	}
	return n
}

func (l *unackedList) Len() int {
	return len(l.segments)
}

// bytes is the number of sequence numbers still unacknowledged.
func (l *unackedList) bytes() uint32 {
	if len(l.segments) == 0 {
		return 0
	}
	return l.segments[len(l.segments)-1].end - l.segments[0].start
}
