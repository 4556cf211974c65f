package tcp

import (
	"github.com/terassyi/tunstack/seqnum"
)

// segment is the part of an inbound datagram the reassembler needs. data
// aliases the inbound buffer.
type segment struct {
	seq  uint32
	data []byte
	fin  bool
}

// block is a contiguous run [start, start+length) of received bytes held as
// references into inbound buffers. A FIN at the end of the run occupies one
// more sequence number.
type block struct {
	start  uint32
	length int
	ranges [][]byte
	fin    bool
}

func newBlock(s segment) *block {
	b := &block{
		start: s.seq,
		fin:   s.fin,
	}
	if len(s.data) > 0 {
		b.ranges = [][]byte{s.data}
		b.length = len(s.data)
	}
	return b
}

func (b *block) dataEnd() uint32 {
	return b.start + uint32(b.length)
}

// end is the sequence number following the block, FIN included.
func (b *block) end() uint32 {
	if b.fin {
		return b.dataEnd() + 1
	}
	return b.dataEnd()
}

// extend takes in a run starting at seq that begins inside the block or
// right after it. It reports false when the run starts elsewhere. A run
// contained in the block adds nothing but a FIN that ends where the block
// ends; bytes past the end of the block are appended and the FIN flag is
// taken from the run.
func (b *block) extend(seq uint32, ranges [][]byte, length int, fin bool) bool {
	if !seqnum.Between(seq, b.start, b.dataEnd()) {
		return false
	}
	runEnd := seq + uint32(length)
	if fin {
		runEnd++
	}
	if seqnum.LessThanEq(runEnd, b.end()) {
		if fin && runEnd == b.end() {
			b.fin = true
		}
		return true
	}
	if b.fin {
		// nothing follows a FIN
		return true
	}
	skip := int(b.dataEnd() - seq)
	for _, r := range ranges {
		if skip >= len(r) {
			skip -= len(r)
			continue
		}
		r = r[skip:]
		skip = 0
		b.ranges = append(b.ranges, r)
		b.length += len(r)
	}
	b.fin = fin
	return true
}

func (b *block) takeIn(s segment) bool {
	var ranges [][]byte
	if len(s.data) > 0 {
		ranges = [][]byte{s.data}
	}
	return b.extend(s.seq, ranges, len(s.data), s.fin)
}

func (b *block) absorb(next *block) bool {
	return b.extend(next.start, next.ranges, next.length, next.fin)
}

// copyFrom returns the bytes of the block from offset on in a new slice.
func (b *block) copyFrom(offset int) []byte {
	if offset >= b.length {
		return nil
	}
	data := make([]byte, 0, b.length-offset)
	for _, r := range b.ranges {
		if offset >= len(r) {
			offset -= len(r)
			continue
		}
		data = append(data, r[offset:]...)
		offset = 0
	}
	return data
}

// reassembler holds out-of-order data as blocks ordered by start sequence.
// Blocks never overlap and are separated by at least one missing byte.
type reassembler struct {
	blocks []*block
}

func newReassembler() *reassembler {
	return &reassembler{}
}

func (r *reassembler) addSegment(s segment) {
	if len(s.data) == 0 && !s.fin {
		return
	}
	for i, b := range r.blocks {
		if b.takeIn(s) {
			r.merge(i)
			return
		}
		if seqnum.LessThan(s.seq, b.start) {
			r.insert(i, newBlock(s))
			r.merge(i)
			return
		}
	}
	r.blocks = append(r.blocks, newBlock(s))
	r.merge(len(r.blocks) - 1)
}

func (r *reassembler) insert(i int, b *block) {
	r.blocks = append(r.blocks, nil)
	copy(r.blocks[i+1:], r.blocks[i:])
	r.blocks[i] = b
}

func (r *reassembler) remove(i int) {
	copy(r.blocks[i:], r.blocks[i+1:])
	r.blocks[len(r.blocks)-1] = nil
	r.blocks = r.blocks[:len(r.blocks)-1]
}

// merge folds the successors of block i into it while they touch or overlap.
func (r *reassembler) merge(i int) {
	b := r.blocks[i]
	for i+1 < len(r.blocks) {
		next := r.blocks[i+1]
		if seqnum.GreaterThan(next.start, b.dataEnd()) {
			return
		}
		b.absorb(next)
		r.remove(i + 1)
	}
}

// getData returns the data of the head block when it holds expected, with
// bytes before expected trimmed, and whether a FIN follows it. The block is
// drained, so every byte is returned once. ok is false when the next byte
// has not arrived.
func (r *reassembler) getData(expected uint32) (data []byte, fin bool, ok bool) {
	for len(r.blocks) > 0 && seqnum.LessThanEq(r.blocks[0].end(), expected) {
		r.remove(0)
	}
	if len(r.blocks) == 0 {
		return nil, false, false
	}
	b := r.blocks[0]
	if seqnum.GreaterThan(b.start, expected) {
		return nil, false, false
	}
	data = b.copyFrom(int(expected - b.start))
	fin = b.fin
	r.remove(0)
	return data, fin, true
}

// pending is the number of buffered bytes.
func (r *reassembler) pending() int {
	n := 0
	for _, b := range r.blocks {
		n += b.length
	}
	return n
}
