package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"github.com/terassyi/tunstack/app/echo"
	"github.com/terassyi/tunstack/config"
	"github.com/terassyi/tunstack/interfaces"
	"github.com/terassyi/tunstack/packet"
	"github.com/terassyi/tunstack/stack"
	"golang.org/x/sync/errgroup"
)

type RunCommand struct {
	Iface  string
	Config string
	Debug  bool
}

func (*RunCommand) Name() string {
	return "run"
}

func (*RunCommand) Synopsis() string {
	return "terminate tcp connections arriving on a tun device"
}

func (*RunCommand) Usage() string {
	return `tunstack run -i <interface name> [-config <file>] [-debug]
	accept every tcp connection routed to the tun device and echo its data back
`
}

func (r *RunCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.Iface, "i", "tun0", "tun interface")
	f.StringVar(&r.Config, "config", "", "yaml config file")
	f.BoolVar(&r.Debug, "debug", false, "output debug message")
}

func (r *RunCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := logrus.WithFields(logrus.Fields{
		"command": "run",
	})
	if r.Debug {
		logrus.SetLevel(logrus.DebugLevel)
		log.Debug("debug flag is set")
	}
	cfg := config.Default()
	if r.Config != "" {
		var err error
		cfg, err = config.Load(r.Config)
		if err != nil {
			log.Error(err)
			return subcommands.ExitFailure
		}
	}
	iface, err := interfaces.New(r.Iface, cfg.MTU)
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	s, err := stack.New(cfg, &device{iface: iface, log: log}, echo.New(r.Debug), r.Debug)
	if err != nil {
		iface.Close()
		log.Error(err)
		return subcommands.ExitFailure
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Run(ctx)
	})
	g.Go(func() error {
		return receive(ctx, iface, s, cfg.MTU)
	})
	g.Go(func() error {
		<-ctx.Done()
		return iface.Close()
	})
	log.Infof("running on %s", iface.Name())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(err)
		return subcommands.ExitFailure
	}
	log.Info("stopped")
	return subcommands.ExitSuccess
}

// receive reads datagrams until the device is closed. Every datagram gets a
// fresh buffer since the stack keeps references to it.
func receive(ctx context.Context, iface interfaces.Iface, s *stack.Stack, mtu int) error {
	for {
		buf := make([]byte, mtu)
		n, err := iface.Recv(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read from %s: %w", iface.Name(), err)
		}
		if n == 0 {
			continue
		}
		version := packet.Version(buf[0] >> 4)
		if err := s.ReceivePackets(ctx, [][]byte{buf[:n]}, []packet.Version{version}); err != nil {
			return err
		}
	}
}

type device struct {
	iface interfaces.Iface
	log   *logrus.Entry
}

func (d *device) SendPackets(packets [][]byte) {
	for _, p := range packets {
		if _, err := d.iface.Send(p); err != nil {
			d.log.Warnf("failed to send %d bytes: %v", len(p), err)
		}
	}
}
