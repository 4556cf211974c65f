package tcp

import (
	"github.com/terassyi/tunstack/config"
	"github.com/terassyi/tunstack/logger"
	"github.com/terassyi/tunstack/packet"
	"github.com/terassyi/tunstack/packet/tcp"
	"github.com/terassyi/tunstack/proto/port"
)

// Sender receives the datagrams produced by one processing cycle.
type Sender interface {
	SendPackets(packets [][]byte)
}

// Delegate is told about every connection opened by a peer before the SYN is
// processed, so a Handler can be attached first.
type Delegate interface {
	Accepted(c *Conn)
}

// Tcp routes segments to connections by 4-tuple.
type Tcp struct {
	table    *port.Table[*Conn]
	sender   Sender
	delegate Delegate
	config   *config.Config
	ident    uint16
	iss      func() uint32
	logger   *logger.Logger
}

func New(cfg *config.Config, sender Sender, delegate Delegate, debug bool) *Tcp {
	return &Tcp{
		table:    port.New[*Conn](),
		sender:   sender,
		delegate: delegate,
		config:   cfg,
		iss:      Random,
		logger:   logger.New(debug, "tcp"),
	}
}

func (t *Tcp) HandleDatagram(d *packet.Datagram) {
	peer := port.NewPeer(d.Dst(), d.DestinationPort(), d.Src(), d.SourcePort())
	if c, ok := t.table.Search(peer); ok {
		c.handle(d)
		return
	}
	flags := d.Flags()
	if flags.Syn() && !flags.Ack() && !flags.Rst() {
		c := newConn(t, peer)
		if err := t.table.Add(peer, c); err != nil {
			t.logger.Error(err)
			return
		}
		t.logger.Infof("accept %s", peer)
		if t.delegate != nil {
			t.delegate.Accepted(c)
		}
		c.handle(d)
		return
	}
	if flags.Rst() {
		return
	}
	t.logger.Debugf("no connection for %s", d)
	if t.config.ResetUnmatched {
		t.reset(d)
	}
}

// reset answers a segment that belongs to no connection.
func (t *Tcp) reset(d *packet.Datagram) {
	seg := &packet.Segment{
		Src:             d.Dst(),
		Dst:             d.Src(),
		Ident:           t.nextIdent(),
		TTL:             t.config.TTL,
		SourcePort:      d.DestinationPort(),
		DestinationPort: d.SourcePort(),
	}
	if d.Flags().Ack() {
		// <SEQ=SEG.ACK><CTL=RST>
		seg.Sequence = d.Ack()
		seg.Flags = tcp.RST
	} else {
		// <SEQ=0><ACK=SEG.SEQ+SEG.LEN><CTL=RST,ACK>
		seg.Ack = d.EndSequence()
		seg.Flags = tcp.RST | tcp.ACK
	}
	out := packet.Build(seg)
	out.SetChecksum()
	t.send([][]byte{out.Bytes()})
}

// FastTick flushes delayed acknowledgments and finishes TIME_WAIT.
func (t *Tcp) FastTick() {
	for _, c := range t.table.Entries() {
		c.fastTick()
	}
}

func (t *Tcp) SlowTick() {
	for _, c := range t.table.Entries() {
		c.slowTick()
	}
}

func (t *Tcp) Connections() []*Conn {
	return t.table.Entries()
}

func (t *Tcp) Len() int {
	return t.table.Len()
}

func (t *Tcp) remove(c *Conn) {
	if err := t.table.Delete(c.Peer); err != nil {
		t.logger.Error(err)
		return
	}
	t.logger.Infof("release %s", c.Peer)
}

func (t *Tcp) send(packets [][]byte) {
	if t.sender == nil {
		return
	}
	t.sender.SendPackets(packets)
}

func (t *Tcp) nextIdent() uint16 {
	t.ident++
	return t.ident
}
