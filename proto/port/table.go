package port

import (
	"errors"
	"fmt"
	"sync"

	"github.com/terassyi/tunstack/packet/ipv4"
)

var (
	ErrExists   = errors.New("peer is already registered")
	ErrNotFound = errors.New("no such peer")
)

// Peer is the 4-tuple of a TCP connection seen from this endpoint: Addr and
// Port are ours, PeerAddr and PeerPort the remote side's.
type Peer struct {
	Addr     ipv4.IPAddress
	Port     uint16
	PeerAddr ipv4.IPAddress
	PeerPort uint16
}

func NewPeer(addr ipv4.IPAddress, port uint16, peerAddr ipv4.IPAddress, peerPort uint16) Peer {
	return Peer{
		Addr:     addr,
		Port:     port,
		PeerAddr: peerAddr,
		PeerPort: peerPort,
	}
}

func (p Peer) String() string {
	return fmt.Sprintf("%s:%d-%s:%d", p.Addr, p.Port, p.PeerAddr, p.PeerPort)
}

// Table maps peers to entries. An entry is added and deleted exactly once.
type Table[T any] struct {
	entry map[Peer]T
	mutex *sync.RWMutex
}

func New[T any]() *Table[T] {
	return &Table[T]{
		entry: make(map[Peer]T),
		mutex: &sync.RWMutex{},
	}
}

func (t *Table[T]) Add(peer Peer, v T) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, ok := t.entry[peer]; ok {
		return fmt.Errorf("%w: %s", ErrExists, peer)
	}
	t.entry[peer] = v
	return nil
}

func (t *Table[T]) Delete(peer Peer) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, ok := t.entry[peer]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, peer)
	}
	delete(t.entry, peer)
	return nil
}

func (t *Table[T]) Search(peer Peer) (T, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	v, ok := t.entry[peer]
	return v, ok
}

// Entries returns a snapshot of the entries, safe to iterate while the
// table changes.
func (t *Table[T]) Entries() []T {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	entries := make([]T, 0, len(t.entry))
	for _, v := range t.entry {
		entries = append(entries, v)
	}
	return entries
}

func (t *Table[T]) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.entry)
}
