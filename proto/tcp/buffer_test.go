package tcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendBuffer(t *testing.T) {
	var b sendBuffer
	p := []byte("abcdef")
	b.write(p)
	p[0] = 'z'
	assert.Equal(t, 6, b.Len())

	dst := make([]byte, 4)
	n := b.fillTo(dst)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("abcd"), dst)

	n = b.fillTo(dst)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("ef"), dst[:n])
	assert.Equal(t, 0, b.Len())
}

func TestUnackedList(t *testing.T) {
	var l unackedList
	l.insert(unacked{start: 0xFFFFFFF0, end: 0xFFFFFFFA})
	l.insert(unacked{start: 4, end: 10})
	l.insert(unacked{start: 0xFFFFFFFA, end: 4})
	if l.Len() != 3 {
		t.Fatalf("actual %d", l.Len())
	}
	assert.Equal(t, uint32(0xFFFFFFFA), l.segments[1].start)
	assert.Equal(t, uint32(26), l.bytes())

	assert.Equal(t, 0, l.removeBefore(0xFFFFFFF5))
	assert.Equal(t, 2, l.removeBefore(4))
	assert.Equal(t, uint32(4), l.segments[0].start)
	assert.Equal(t, 1, l.removeBefore(10))
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, uint32(0), l.bytes())
}
