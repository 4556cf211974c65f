package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"github.com/terassyi/tunstack/interfaces"
	"github.com/terassyi/tunstack/packet"
	"github.com/terassyi/tunstack/packet/ipv4"
)

type DumpCommand struct {
	Iface   string
	MTU     int
	Count   int
	Host    string
	Verbose bool
}

func (*DumpCommand) Name() string {
	return "dump"
}

func (*DumpCommand) Synopsis() string {
	return "dump datagrams received by a tun device"
}

func (*DumpCommand) Usage() string {
	return `tunstack dump -i <interface name> [-count <n>] [-verbose]
	print every datagram routed to the tun device
`
}

func (d *DumpCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.Iface, "i", "tun0", "tun interface")
	f.IntVar(&d.MTU, "mtu", 1500, "interface mtu")
	f.IntVar(&d.Count, "count", 0, "stop after n datagrams (0 means no limit)")
	f.StringVar(&d.Host, "host", "", "only datagrams from or to this ipv4 address")
	f.BoolVar(&d.Verbose, "verbose", false, "print every layer")
}

func (d *DumpCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := logrus.WithFields(logrus.Fields{
		"command": "dump",
	})
	var host *ipv4.IPAddress
	if d.Host != "" {
		addr, err := ipv4.StringToIPAddress(d.Host)
		if err != nil {
			log.Error(err)
			return subcommands.ExitFailure
		}
		host = &addr
	}
	iface, err := interfaces.New(d.Iface, d.MTU)
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		iface.Close()
	}()

	for shown := 0; d.Count == 0 || shown < d.Count; {
		buf := make([]byte, d.MTU)
		n, err := iface.Recv(buf)
		if err != nil {
			if ctx.Err() != nil {
				return subcommands.ExitSuccess
			}
			log.Error(err)
			return subcommands.ExitFailure
		}
		if n == 0 || !match(buf[:n], host) {
			continue
		}
		shown++
		fmt.Println(d.show(buf[:n]))
		if d.Verbose {
			showHeaders(buf[:n])
		}
	}
	return subcommands.ExitSuccess
}

// show formats one datagram. Datagrams the stack rejects are decoded with
// gopacket so the reason is visible.
func (d *DumpCommand) show(buf []byte) string {
	dg, err := packet.Parse(buf)
	var s string
	if err != nil {
		s = fmt.Sprintf("dropped: %v", err)
	} else {
		s = dg.String()
	}
	if err == nil && !d.Verbose {
		return s
	}
	first := layers.LayerTypeIPv4
	if packet.Version(buf[0]>>4) == packet.V6 {
		first = layers.LayerTypeIPv6
	}
	p := gopacket.NewPacket(buf, first, gopacket.Default)
	return s + "\n" + p.Dump()
}

// match reports whether an IPv4 datagram is from or to host. Anything
// matches a nil host.
func match(buf []byte, host *ipv4.IPAddress) bool {
	if host == nil {
		return true
	}
	if len(buf) < ipv4.HeaderLength || packet.Version(buf[0]>>4) != packet.V4 {
		return false
	}
	v := ipv4.View(buf)
	return v.Src() == *host || v.Dst() == *host
}

func showHeaders(buf []byte) {
	dg, err := packet.Parse(buf)
	if err != nil {
		return
	}
	iphdr, tcphdr := dg.IP.Header(), dg.TCP.Header()
	iphdr.Show()
	tcphdr.Show()
}
