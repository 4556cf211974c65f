package tcp

import (
	"errors"
	"fmt"

	"github.com/terassyi/tunstack/packet"
	"github.com/terassyi/tunstack/packet/tcp"
	"github.com/terassyi/tunstack/proto/port"
	"github.com/terassyi/tunstack/seqnum"
)

var (
	ErrConnClosed   = errors.New("connection is closed")
	ErrInvalidState = errors.New("invalid state")
)

// Handler receives the events of a connection. Established fires once,
// DataReceived delivers the stream in order, and Closed fires at most once
// and is the last event.
type Handler interface {
	Established(c *Conn)
	DataReceived(c *Conn, data []byte)
	RemoteClosed(c *Conn)
	Reset(c *Conn)
	Closed(c *Conn)
}

type nopHandler struct{}

func (nopHandler) Established(*Conn)          {}
func (nopHandler) DataReceived(*Conn, []byte) {}
func (nopHandler) RemoteClosed(*Conn)         {}
func (nopHandler) Reset(*Conn)                {}
func (nopHandler) Closed(*Conn)               {}

// Conn is one TCP connection opened by a peer. All methods must be called
// from the processing context of the stack owning it.
type Conn struct {
	*controlBlock
	Peer port.Peer

	inner       *Tcp
	handler     Handler
	reassembler *reassembler
	sndBuf      sendBuffer
	unacked     unackedList
	synOptions  tcp.Options

	processing bool
	released   bool
}

func newConn(t *Tcp, peer port.Peer) *Conn {
	return &Conn{
		controlBlock: newControlBlock(peer, t.logger.With("peer", peer.String())),
		Peer:         peer,
		inner:        t,
		handler:      nopHandler{},
		reassembler:  newReassembler(),
	}
}

func (c *Conn) SetHandler(h Handler) {
	if h == nil {
		h = nopHandler{}
	}
	c.handler = h
}

func (c *Conn) State() string {
	return c.state.String()
}

// Write queues p for sending. Data is transmitted once the connection is
// established and the peer's window allows.
func (c *Conn) Write(p []byte) (int, error) {
	if c.released || c.finPending {
		return 0, ErrConnClosed
	}
	c.sndBuf.write(p)
	if !c.processing {
		c.output()
	}
	return len(p), nil
}

// Close sends FIN after the queued data.
func (c *Conn) Close() error {
	if c.released || c.finPending {
		return ErrConnClosed
	}
	switch c.state {
	case SYN_RECVD:
		// FIN_WAIT1 is entered when the handshake completes
	case ESTABLISHED:
		c.FIN_WAIT1()
	case CLOSE_WAIT:
		c.LAST_ACK()
	default:
		return fmt.Errorf("%w: %s", ErrInvalidState, c.state)
	}
	c.finPending = true
	if !c.processing {
		c.output()
	}
	return nil
}

func (c *Conn) handle(d *packet.Datagram) {
	c.processing = true
	c.process(d)
	c.processing = false
	if !c.released {
		c.output()
	}
}

func (c *Conn) process(d *packet.Datagram) {
	flags := d.Flags()
	if flags.Rst() {
		c.processReset(d)
		return
	}
	if c.state == CLOSED {
		c.open(d)
		return
	}
	if flags.Syn() {
		if c.state == SYN_RECVD && !flags.Ack() && d.Sequence() == c.rcv.IRS {
			c.logger.Debug("retransmit syn|ack")
			c.snd.NXT = c.snd.ISS
			c.nextFlag = tcp.SYN | tcp.ACK
			c.nextOption = c.synOptions
			return
		}
		if c.state == SYN_RECVD {
			c.logger.Debugf("syn seq %d does not match irs %d, dropped", d.Sequence(), c.rcv.IRS)
			return
		}
		c.logger.Debugf("unexpected syn in %s", c.state)
		c.ackNow = true
		return
	}
	if !flags.Ack() {
		c.logger.Debugf("segment without ack in %s is dropped", c.state)
		return
	}
	if c.state == SYN_RECVD {
		if !c.establish(d) {
			return
		}
	} else {
		c.processAck(d)
	}

	switch c.state {
	case FIN_WAIT1:
		if c.finAcked() {
			c.FIN_WAIT2()
		}
	case CLOSING:
		if c.finAcked() {
			c.TIME_WAIT()
		}
	case LAST_ACK:
		if c.finAcked() {
			c.release()
			return
		}
	}
	if c.IsReadyRecv() {
		c.processData(d)
		return
	}
	if d.SequenceLength() > 0 {
		// retransmission after the peer's FIN
		c.ackNow = true
	}
}

// open handles the SYN that created the connection and queues SYN|ACK.
func (c *Conn) open(d *packet.Datagram) {
	cfg := c.inner.config
	seq := d.Sequence()
	c.rcv.IRS = seq
	c.rcv.NXT = seq + 1
	c.rcv.ACKED = seq

	c.mss = defaultIPv4MSS
	if mss, ok := d.Options.MSS(); ok && mss > 0 {
		c.mss = min(int(mss), cfg.MaxMSS())
	}
	c.synOptions = tcp.Options{tcp.MaxSegmentSize(cfg.MSS)}
	if ws, ok := d.Options.WindowScale(); ok {
		c.snd.Scale = ws
		c.rcv.Scale = cfg.WindowScale
		c.synOptions = append(c.synOptions, tcp.NoOperation{}, tcp.WindowScale(cfg.WindowScale))
	}
	c.rcv.WND = min(cfg.ReceiveWindow, maxWindow<<c.rcv.Scale)

	iss := c.inner.iss()
	c.snd.ISS = iss
	c.snd.UNA = iss
	c.snd.NXT = iss
	c.snd.MAX = iss
	c.snd.WND = uint32(d.Window())
	c.snd.WL1 = seq
	c.snd.WL2 = iss

	c.nextFlag = tcp.SYN | tcp.ACK
	c.nextOption = c.synOptions
	c.SYN_RECVD()
}

// establish completes the handshake on an ACK of our SYN.
func (c *Conn) establish(d *packet.Datagram) bool {
	ack := d.Ack()
	if !seqnum.Between(ack, c.snd.ISS+1, c.snd.NXT) {
		c.logger.Debugf("ack %d does not acknowledge syn (iss=%d)", ack, c.snd.ISS)
		return false
	}
	c.snd.UNA = ack
	c.unacked.removeBefore(ack)
	c.updateWindow(d.Sequence(), ack, d.Window())
	c.ESTABLISHED()
	c.handler.Established(c)
	if c.finPending && c.state == ESTABLISHED {
		c.FIN_WAIT1()
	}
	return true
}

// processAck advances snd.UNA. An ack of data never sent only forces an ACK.
func (c *Conn) processAck(d *packet.Datagram) {
	ack := d.Ack()
	switch {
	case seqnum.LessThan(ack, c.snd.UNA):
		// old duplicate
	case seqnum.LessThanEq(ack, c.snd.MAX):
		if seqnum.GreaterThan(ack, c.snd.UNA) {
			c.snd.UNA = ack
			c.unacked.removeBefore(ack)
		}
		c.updateWindow(d.Sequence(), ack, d.Window())
	default:
		c.logger.Warnf("out of sequence ack %d (una=%d max=%d)", ack, c.snd.UNA, c.snd.MAX)
		c.ackNow = true
	}
}

func (c *Conn) processData(d *packet.Datagram) {
	data := d.Payload()
	fin := d.Flags().Fin()
	length := uint32(len(data))
	if fin {
		length++
	}
	if length == 0 {
		return
	}
	if !c.acceptable(d.Sequence(), length) {
		c.logger.Debugf("segment seq=%d len=%d out of window (rcv.nxt=%d)", d.Sequence(), length, c.rcv.NXT)
		c.ackNow = true
		return
	}
	c.reassembler.addSegment(segment{seq: d.Sequence(), data: data, fin: fin})
	received, finReceived, ok := c.reassembler.getData(c.rcv.NXT)
	if !ok {
		// a gap; a duplicate ack tells the peer what is missing
		c.ackNow = true
		return
	}
	c.rcv.NXT += uint32(len(received))
	if len(received) > 0 {
		c.handler.DataReceived(c, received)
	}
	if !finReceived {
		return
	}
	c.rcv.NXT++
	c.finRecvd = true
	c.ackNow = true
	switch c.state {
	case ESTABLISHED:
		c.CLOSE_WAIT()
	case FIN_WAIT1:
		if c.finAcked() {
			c.TIME_WAIT()
		} else {
			c.CLOSING()
		}
	case FIN_WAIT2:
		c.TIME_WAIT()
	}
	c.handler.RemoteClosed(c)
}

func (c *Conn) processReset(d *packet.Datagram) {
	if c.state == TIME_WAIT {
		return
	}
	if !seqnum.InWindow(d.Sequence(), c.rcv.NXT, c.rcv.WND) {
		c.logger.Debugf("unacceptable rst seq=%d (rcv.nxt=%d)", d.Sequence(), c.rcv.NXT)
		return
	}
	c.logger.Info("connection reset by peer")
	c.handler.Reset(c)
	c.release()
}

func (c *Conn) fastTick() {
	if c.released {
		return
	}
	if c.state == TIME_WAIT {
		c.release()
		return
	}
	if c.rcv.ACKED != c.rcv.NXT {
		c.ackNow = true
		c.output()
	}
}

// slowTick is where a retransmission timer would run.
func (c *Conn) slowTick() {
	if c.unacked.Len() > 0 {
		c.logger.Debugf("%d segments (%d bytes) unacknowledged", c.unacked.Len(), c.unacked.bytes())
	}
	if n := c.reassembler.pending(); n > 0 {
		c.logger.Debugf("%d bytes out of order", n)
	}
}

// release tears the connection down immediately.
func (c *Conn) release() {
	if c.released {
		return
	}
	c.released = true
	c.CLOSED()
	c.handler.Closed(c)
	c.inner.remove(c)
}

// output builds every segment that can be sent now and hands them to the
// sender as one batch.
func (c *Conn) output() {
	var out [][]byte
	for {
		n := 0
		if c.IsReadySend() {
			n = min(c.mss, c.sendWindowAvailable(), c.sndBuf.Len())
		}
		fin := c.IsReadySend() && c.finPending && !c.finSent && n == c.sndBuf.Len()
		if c.nextFlag == 0 && !c.ackNow && n == 0 && !fin {
			break
		}
		out = append(out, c.emit(n, fin))
		if n == 0 {
			break
		}
	}
	if len(out) > 0 {
		c.inner.send(out)
	}
}

func (c *Conn) emit(n int, fin bool) []byte {
	flags := c.nextFlag | tcp.ACK
	if n > 0 && n == c.sndBuf.Len() {
		flags |= tcp.PSH
	}
	if fin {
		flags |= tcp.FIN
	}
	seq := c.snd.NXT
	d := packet.Build(&packet.Segment{
		Src:             c.peer.Addr,
		Dst:             c.peer.PeerAddr,
		Ident:           c.inner.nextIdent(),
		TTL:             c.inner.config.TTL,
		SourcePort:      c.peer.Port,
		DestinationPort: c.peer.PeerPort,
		Sequence:        seq,
		Ack:             c.rcv.NXT,
		Flags:           flags,
		Window:          c.announcedWindow(flags.Syn()),
		Options:         c.nextOption,
		PayloadLength:   n,
	})
	c.sndBuf.fillTo(d.Payload())
	d.SetChecksum()

	length := uint32(n)
	if flags.Syn() {
		length++
	}
	if fin {
		length++
		c.finSent = true
		c.finSeq = seq + uint32(n)
	}
	if length > 0 {
		c.unacked.insert(unacked{start: seq, end: seq + length, flags: flags, data: d.Payload()})
	}
	c.snd.NXT += length
	c.snd.MAX = seqnum.Max(c.snd.MAX, c.snd.NXT)
	c.rcv.ACKED = c.rcv.NXT
	c.nextFlag = 0
	c.nextOption = nil
	c.ackNow = false
	c.logger.Debugf("send %s", d)
	return d.Bytes()
}
