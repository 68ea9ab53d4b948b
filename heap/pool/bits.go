package pool

import (
	"math/bits"

	"github.com/joshuapare/relheap/heap/relptr"
)

// The occupancy bitmap has one bit per tag unit, least significant bit first.
// A set bit marks the first unit of a free block.

func (p *Pool) bitIndex(tag int) int {
	return (tag - p.tags) / tagUnit
}

func (p *Pool) bitTest(tag int) bool {
	i := p.bitIndex(tag)
	return p.mem[p.bits+i/8]&(1<<(i%8)) != 0
}

func (p *Pool) bitSet(tag int) {
	i := p.bitIndex(tag)
	off := p.bits + i/8
	p.mem[off] |= 1 << (i % 8)
	p.mark(off, 1)
}

func (p *Pool) bitClear(tag int) {
	i := p.bitIndex(tag)
	off := p.bits + i/8
	p.mem[off] &^= 1 << (i % 8)
	p.mark(off, 1)
}

// leftFree returns the nearest free block start strictly below tag, scanning
// the bitmap a byte at a time, or relptr.Nil if there is none.
func (p *Pool) leftFree(tag int) int {
	i := p.bitIndex(tag) - 1
	for i >= 0 {
		b := p.mem[p.bits+i/8] & (0xff >> (7 - i%8))
		if b != 0 {
			return p.tags + (i/8*8+bits.Len8(b)-1)*tagUnit
		}
		i = i/8*8 - 1
	}
	return relptr.Nil
}
