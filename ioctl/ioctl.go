//go:build linux

package ioctl

import (
	"golang.org/x/sys/unix"
)

// Tunsetiff attaches fd, an open /dev/net/tun, to the interface name and
// returns the name the kernel assigned.
func Tunsetiff(fd int, name string, flags uint16) (string, error) {
	ifreq, err := unix.NewIfreq(name)
	if err != nil {
		return "", err
	}
	ifreq.SetUint16(flags)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifreq); err != nil {
		return "", err
	}
	return ifreq.Name(), nil
}

func Siocgifflags(name string) (uint16, error) {
	soc, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(soc)
	ifreq, err := unix.NewIfreq(name)
	if err != nil {
		return 0, err
	}
	if err := unix.IoctlIfreq(soc, unix.SIOCGIFFLAGS, ifreq); err != nil {
		return 0, err
	}
	return ifreq.Uint16(), nil
}

func Siocsifflags(name string, flags uint16) error {
	soc, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(soc)
	ifreq, err := unix.NewIfreq(name)
	if err != nil {
		return err
	}
	ifreq.SetUint16(flags)
	return unix.IoctlIfreq(soc, unix.SIOCSIFFLAGS, ifreq)
}

func Siocsifmtu(name string, mtu int) error {
	soc, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(soc)
	ifreq, err := unix.NewIfreq(name)
	if err != nil {
		return err
	}
	ifreq.SetUint32(uint32(mtu))
	return unix.IoctlIfreq(soc, unix.SIOCSIFMTU, ifreq)
}
