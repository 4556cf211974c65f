package proto

import "context"

// ProtocolBuffer is a mailbox drained by the single goroutine that owns the
// protocol state.
type ProtocolBuffer struct {
	Buffer chan func()
}

func NewProtocolBuffer() *ProtocolBuffer {
	return &ProtocolBuffer{Buffer: make(chan func(), 128)}
}

// Post queues f. It blocks while the mailbox is full.
func (pb *ProtocolBuffer) Post(ctx context.Context, f func()) error {
	select {
	case pb.Buffer <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
