package interfaces

import "errors"

var (
	ErrNameTooLong = errors.New("interface name is too long")
	ErrUnsupported = errors.New("tun devices are not supported on this platform")
)

// Iface carries raw IP datagrams to and from the kernel.
type Iface interface {
	Name() string
	Recv([]byte) (int, error)
	Send([]byte) (int, error)
	Close() error
}

// New opens the tun device name, creating it if needed, and brings it up
// with the given MTU.
func New(name string, mtu int) (Iface, error) {
	return newTunDevice(name, mtu)
}
