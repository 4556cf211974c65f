package tcp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"

	"github.com/terassyi/tunstack/logger"
	"github.com/terassyi/tunstack/packet/tcp"
	"github.com/terassyi/tunstack/proto/port"
	"github.com/terassyi/tunstack/seqnum"
)

// controlBlock is the transmission control block of one connection. Names
// follow RFC 793.
type controlBlock struct {
	peer  port.Peer
	state state
	snd   SendSequence
	rcv   ReceiveSequence
	mss   int

	// flags and options for the next segment
	nextFlag   tcp.ControlFlag
	nextOption tcp.Options
	ackNow     bool

	finPending bool
	finSent    bool
	finSeq     uint32
	finRecvd   bool

	logger *logger.Logger
}

type state int

type SendSequence struct {
	UNA   uint32 // send unacknowladged
	NXT   uint32 // send next
	MAX   uint32 // highest sequence sent plus one
	WND   uint32 // send window, scaled
	Scale uint8  // shift applied to the peer's window field
	WL1   uint32 // segment sequence number used for last window update
	WL2   uint32 // segment acknowledgement number used for last window update
	ISS   uint32 // initial send sequence number
}

type ReceiveSequence struct {
	NXT   uint32 // receive next
	WND   uint32 // receive window
	Scale uint8  // shift applied to our window field
	IRS   uint32 // initial receive sequence number
	ACKED uint32 // last acknowledged receive next
}

func (s state) String() string {
	switch s {
	case CLOSED:
		return "CLOSED"
	case SYN_RECVD:
		return "SYN_RECVD"
	case ESTABLISHED:
		return "ESTABLISHED"
	case FIN_WAIT1:
		return "FIN_WAIT1"
	case FIN_WAIT2:
		return "FIN_WAIT2"
	case CLOSING:
		return "CLOSING"
	case TIME_WAIT:
		return "TIME_WAIT"
	case CLOSE_WAIT:
		return "CLOSE_WAIT"
	case LAST_ACK:
		return "LAST_ACK"
	default:
		return "UNKNOWN"
	}
}

func newControlBlock(peer port.Peer, l *logger.Logger) *controlBlock {
	return &controlBlock{
		peer:   peer,
		state:  CLOSED,
		logger: l,
	}
}

func (cb *controlBlock) transition(s state) {
	cb.logger.Debugf("state %s -> %s", cb.state, s)
	cb.state = s
}

func (cb *controlBlock) CLOSED() {
	cb.transition(CLOSED)
}

func (cb *controlBlock) SYN_RECVD() {
	cb.transition(SYN_RECVD)
}

func (cb *controlBlock) ESTABLISHED() {
	cb.transition(ESTABLISHED)
}

func (cb *controlBlock) FIN_WAIT1() {
	cb.transition(FIN_WAIT1)
}

func (cb *controlBlock) FIN_WAIT2() {
	cb.transition(FIN_WAIT2)
}

func (cb *controlBlock) CLOSING() {
	cb.transition(CLOSING)
}

func (cb *controlBlock) TIME_WAIT() {
	cb.transition(TIME_WAIT)
}

func (cb *controlBlock) CLOSE_WAIT() {
	cb.transition(CLOSE_WAIT)
}

func (cb *controlBlock) LAST_ACK() {
	cb.transition(LAST_ACK)
}

// IsReadyRecv reports whether segment text is processed in this state.
func (cb *controlBlock) IsReadyRecv() bool {
	switch cb.state {
	case ESTABLISHED, FIN_WAIT1, FIN_WAIT2:
		return true
	default:
		return false
	}
}

// IsReadySend reports whether queued data may be transmitted in this state.
func (cb *controlBlock) IsReadySend() bool {
	switch cb.state {
	case ESTABLISHED, CLOSE_WAIT, FIN_WAIT1, LAST_ACK:
		return true
	default:
		return false
	}
}

func (cb *controlBlock) finAcked() bool {
	return cb.finSent && seqnum.GreaterThan(cb.snd.UNA, cb.finSeq)
}

// sendWindowAvailable is the part of the peer's window not in flight.
func (cb *controlBlock) sendWindowAvailable() int {
	inflight := cb.snd.NXT - cb.snd.UNA
	if cb.snd.WND <= inflight {
		return 0
	}
	return int(cb.snd.WND - inflight)
}

// announcedWindow is the value of the window field of an outbound segment.
// Windows in SYN segments are never scaled.
func (cb *controlBlock) announcedWindow(syn bool) uint16 {
	wnd := cb.rcv.WND
	if !syn {
		wnd >>= cb.rcv.Scale
	}
	if wnd > maxWindow {
		wnd = maxWindow
	}
	return uint16(wnd)
}

// updateWindow applies the peer's advertised window when the segment is not
// older than the one that last updated it: a newer sequence number, the same
// sequence number with a newer acknowledgment, or both unchanged with a
// larger window.
func (cb *controlBlock) updateWindow(seq, ack uint32, window uint16) bool {
	wnd := uint32(window) << cb.snd.Scale
	switch {
	case seqnum.LessThan(cb.snd.WL1, seq):
	case cb.snd.WL1 == seq && seqnum.LessThan(cb.snd.WL2, ack):
	case cb.snd.WL1 == seq && cb.snd.WL2 == ack && wnd > cb.snd.WND:
	default:
		return false
	}
	cb.snd.WND = wnd
	cb.snd.WL1 = seq
	cb.snd.WL2 = ack
	return true
}

// acceptable reports whether a segment occupying [seq, seq+length) overlaps
// the receive window.
func (cb *controlBlock) acceptable(seq, length uint32) bool {
	if seqnum.InWindow(seq, cb.rcv.NXT, cb.rcv.WND) {
		return true
	}
	end := seq + length
	return seqnum.LessThan(seq, cb.rcv.NXT) && seqnum.GreaterThan(end, cb.rcv.NXT)
}

func (cb *controlBlock) String() string {
	return fmt.Sprintf("%s snd.una=%d snd.nxt=%d snd.wnd=%d rcv.nxt=%d rcv.wnd=%d",
		cb.state, cb.snd.UNA, cb.snd.NXT, cb.snd.WND, cb.rcv.NXT, cb.rcv.WND)
}

// Random returns an initial sequence number.
func Random() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return mrand.Uint32()
	}
	return binary.BigEndian.Uint32(b[:])
}
