//go:build linux

package interfaces

import (
	"fmt"
	"os"

	"github.com/terassyi/tunstack/ioctl"
	"golang.org/x/sys/unix"
)

const tuntap = "/dev/net/tun"

type tunDevice struct {
	file *os.File
	name string
}

func newTunDevice(name string, mtu int) (Iface, error) {
	if len(name) >= unix.IFNAMSIZ {
		return nil, fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	fd, err := unix.Open(tuntap, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", tuntap, err)
	}
	assigned, err := ioctl.Tunsetiff(fd, name, unix.IFF_TUN|unix.IFF_NO_PI)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to attach %s: %w", name, err)
	}
	name = assigned
	if err := up(name, mtu); err != nil {
		unix.Close(fd)
		return nil, err
	}
	// non-blocking so that Close interrupts a pending Recv
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &tunDevice{
		file: os.NewFile(uintptr(fd), tuntap),
		name: name,
	}, nil
}

func up(name string, mtu int) error {
	if err := ioctl.Siocsifmtu(name, mtu); err != nil {
		return fmt.Errorf("failed to set mtu of %s: %w", name, err)
	}
	flags, err := ioctl.Siocgifflags(name)
	if err != nil {
		return fmt.Errorf("failed to get flags of %s: %w", name, err)
	}
	flags |= unix.IFF_UP | unix.IFF_RUNNING
	if err := ioctl.Siocsifflags(name, flags); err != nil {
		return fmt.Errorf("failed to set flags of %s: %w", name, err)
	}
	return nil
}

func (tun *tunDevice) Name() string {
	return tun.name
}

func (tun *tunDevice) Recv(buf []byte) (int, error) {
	return tun.file.Read(buf)
}

func (tun *tunDevice) Send(buf []byte) (int, error) {
	return tun.file.Write(buf)
}

func (tun *tunDevice) Close() error {
	return tun.file.Close()
}
