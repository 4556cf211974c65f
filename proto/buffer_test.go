package proto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolBufferPost(t *testing.T) {
	pb := NewProtocolBuffer()
	var got []int
	for i := 0; i < 3; i++ {
		require.NoError(t, pb.Post(context.Background(), func() { got = append(got, i) }))
	}
	for i := 0; i < 3; i++ {
		(<-pb.Buffer)()
	}
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestProtocolBufferPostCanceled(t *testing.T) {
	pb := &ProtocolBuffer{Buffer: make(chan func())}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pb.Post(ctx, func() {}), context.Canceled)
}
