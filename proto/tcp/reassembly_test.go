package tcp

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return data
}

func TestReassemblerInOrder(t *testing.T) {
	r := newReassembler()
	r.addSegment(segment{seq: 100, data: []byte("hello")})
	data, fin, ok := r.getData(100)
	require.True(t, ok)
	assert.False(t, fin)
	assert.Equal(t, []byte("hello"), data)

	_, _, ok = r.getData(105)
	assert.False(t, ok)
}

func TestReassemblerGap(t *testing.T) {
	r := newReassembler()
	r.addSegment(segment{seq: 110, data: []byte("world")})
	if _, _, ok := r.getData(100); ok {
		t.Fatalf("returned data over a gap")
	}
	r.addSegment(segment{seq: 100, data: []byte("0123456789")})
	data, _, ok := r.getData(100)
	require.True(t, ok)
	assert.Equal(t, []byte("0123456789world"), data)
	assert.Len(t, r.blocks, 0)
}

func TestReassemblerIdempotent(t *testing.T) {
	segs := []segment{
		{seq: 1000, data: payload(100, 0)},
		{seq: 1100, data: payload(200, 100)},
		{seq: 1300, data: payload(50, 44)},
	}
	once := newReassembler()
	twice := newReassembler()
	for _, s := range segs {
		once.addSegment(s)
		twice.addSegment(s)
		twice.addSegment(s)
	}
	a, _, ok := once.getData(1000)
	require.True(t, ok)
	b, _, ok := twice.getData(1000)
	require.True(t, ok)
	assert.Equal(t, a, b)
	assert.Len(t, a, 350)
}

func TestReassemblerOutOfOrderTransfer(t *testing.T) {
	first, second, third := payload(100, 1), payload(200, 2), payload(50, 3)
	want := append(append(append([]byte(nil), first...), second...), third...)

	r := newReassembler()
	r.addSegment(segment{seq: 5100, data: second})
	r.addSegment(segment{seq: 5000, data: first})
	r.addSegment(segment{seq: 5300, data: third})

	data, _, ok := r.getData(5000)
	require.True(t, ok)
	assert.Equal(t, want, data)
}

func TestReassemblerPermutations(t *testing.T) {
	const start = uint32(0xFFFFFF00)
	rnd := rand.New(rand.NewSource(7))
	var segs []segment
	var want []byte
	seq := start
	for i := 0; i < 12; i++ {
		n := 1 + rnd.Intn(60)
		data := payload(n, byte(i*17))
		segs = append(segs, segment{seq: seq, data: data})
		want = append(want, data...)
		seq += uint32(n)
	}
	for round := 0; round < 50; round++ {
		r := newReassembler()
		for _, i := range rnd.Perm(len(segs)) {
			r.addSegment(segs[i])
		}
		data, fin, ok := r.getData(start)
		require.True(t, ok)
		assert.False(t, fin)
		if !bytes.Equal(want, data) {
			t.Fatalf("round %d: actual %d bytes", round, len(data))
		}
	}
}

func TestReassemblerOverlap(t *testing.T) {
	data := payload(100, 0)
	r := newReassembler()
	r.addSegment(segment{seq: 100, data: data})
	r.addSegment(segment{seq: 120, data: data[20:40]})
	require.Len(t, r.blocks, 1)
	assert.Equal(t, uint32(100), r.blocks[0].start)
	assert.Equal(t, uint32(200), r.blocks[0].end())
	assert.False(t, r.blocks[0].fin)

	// partly new bytes
	more := payload(150, 0)
	r.addSegment(segment{seq: 150, data: more[50:150]})
	require.Len(t, r.blocks, 1)
	assert.Equal(t, uint32(250), r.blocks[0].end())

	got, _, ok := r.getData(100)
	require.True(t, ok)
	assert.Equal(t, more, got)
}

func TestReassemblerBridgesBlocks(t *testing.T) {
	all := payload(30, 0)
	r := newReassembler()
	r.addSegment(segment{seq: 0, data: all[0:10]})
	r.addSegment(segment{seq: 20, data: all[20:30]})
	require.Len(t, r.blocks, 2)
	r.addSegment(segment{seq: 5, data: all[5:25]})
	require.Len(t, r.blocks, 1)

	got, _, ok := r.getData(0)
	require.True(t, ok)
	assert.Equal(t, all, got)
}

func TestReassemblerSkipConsumed(t *testing.T) {
	all := payload(20, 0)
	r := newReassembler()
	r.addSegment(segment{seq: 10, data: all})
	got, _, ok := r.getData(15)
	require.True(t, ok)
	assert.Equal(t, all[5:], got)

	// fully consumed blocks are discarded
	r.addSegment(segment{seq: 10, data: all[:5]})
	_, _, ok = r.getData(30)
	assert.False(t, ok)
	assert.Len(t, r.blocks, 0)
}

func TestReassemblerFin(t *testing.T) {
	r := newReassembler()
	r.addSegment(segment{seq: 10, fin: true})
	r.addSegment(segment{seq: 0, data: payload(10, 0)})
	data, fin, ok := r.getData(0)
	require.True(t, ok)
	assert.True(t, fin)
	assert.Len(t, data, 10)

	r = newReassembler()
	r.addSegment(segment{seq: 0, data: payload(10, 0), fin: true})
	r.addSegment(segment{seq: 0, data: payload(5, 0)})
	require.Len(t, r.blocks, 1)
	assert.True(t, r.blocks[0].fin)

	// a lone FIN is delivered too
	r = newReassembler()
	r.addSegment(segment{seq: 42, fin: true})
	data, fin, ok = r.getData(42)
	require.True(t, ok)
	assert.True(t, fin)
	assert.Empty(t, data)
}

func TestReassemblerKeepsFinOfAbsorbedBlock(t *testing.T) {
	r := newReassembler()
	r.addSegment(segment{seq: 10, data: payload(10, 10), fin: true})
	r.addSegment(segment{seq: 5, data: payload(16, 5)})
	require.Len(t, r.blocks, 1)

	data, fin, ok := r.getData(5)
	require.True(t, ok)
	assert.True(t, fin)
	assert.Len(t, data, 16)
}

func TestReassemblerIgnoresEmpty(t *testing.T) {
	r := newReassembler()
	r.addSegment(segment{seq: 1})
	assert.Len(t, r.blocks, 0)
	assert.Equal(t, 0, r.pending())
}
