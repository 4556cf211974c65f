package stack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terassyi/tunstack/config"
	"github.com/terassyi/tunstack/logger"
	"github.com/terassyi/tunstack/packet"
	"github.com/terassyi/tunstack/proto"
	"github.com/terassyi/tunstack/proto/ipv4"
	"github.com/terassyi/tunstack/proto/tcp"
)

var ErrBatchMismatch = errors.New("packets and versions differ in length")

// Stack owns the protocol state of one device. Everything touching a
// connection runs on the goroutine calling Run.
type Stack struct {
	*proto.ProtocolBuffer
	Ipv4   *ipv4.Ipv4
	Tcp    *tcp.Tcp
	config *config.Config
	logger *logger.Logger
}

func New(cfg *config.Config, sender tcp.Sender, delegate tcp.Delegate, debug bool) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := tcp.New(cfg, sender, delegate, debug)
	return &Stack{
		ProtocolBuffer: proto.NewProtocolBuffer(),
		Ipv4:           ipv4.New(t, debug),
		Tcp:            t,
		config:         cfg,
		logger:         logger.New(debug, "stack"),
	}, nil
}

// ReceivePackets hands datagrams read from the device to the processing
// goroutine. versions[i] is the IP version the device reported for
// packets[i]. The buffers must not be reused by the caller.
func (s *Stack) ReceivePackets(ctx context.Context, packets [][]byte, versions []packet.Version) error {
	if len(packets) != len(versions) {
		return fmt.Errorf("%w: %d packets, %d versions", ErrBatchMismatch, len(packets), len(versions))
	}
	return s.Post(ctx, func() {
		for i, buf := range packets {
			if err := s.Ipv4.HandlePacket(buf, versions[i]); err != nil {
				s.logger.Debugf("drop datagram: %v", err)
			}
		}
	})
}

// Perform runs f on the processing goroutine.
func (s *Stack) Perform(ctx context.Context, f func(t *tcp.Tcp)) error {
	return s.Post(ctx, func() {
		f(s.Tcp)
	})
}

// Run processes queued work and timer ticks until ctx is done.
func (s *Stack) Run(ctx context.Context) error {
	fast := time.NewTicker(s.config.FastTimerInterval)
	defer fast.Stop()
	slow := time.NewTicker(s.config.SlowTimerInterval)
	defer slow.Stop()

	s.logger.Info("stack is running")
	lastFast, lastSlow := time.Now(), time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-s.Buffer:
			f()
		case now := <-fast.C:
			s.checkLate("fast", now.Sub(lastFast), s.config.FastTimerInterval)
			lastFast = now
			s.Tcp.FastTick()
		case now := <-slow.C:
			s.checkLate("slow", now.Sub(lastSlow), s.config.SlowTimerInterval)
			lastSlow = now
			s.Tcp.SlowTick()
		}
	}
}

func (s *Stack) checkLate(name string, elapsed, interval time.Duration) {
	if elapsed > interval+s.config.TimerLeeway {
		s.logger.Warnf("%s timer is late: %s (interval %s)", name, elapsed, interval)
	}
}
