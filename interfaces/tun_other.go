//go:build !linux

package interfaces

func newTunDevice(string, int) (Iface, error) {
	return nil, ErrUnsupported
}
