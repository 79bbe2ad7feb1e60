// SPDX-License-Identifier: MIT
//
// DNS message building.
//

package dnsmsg

import (
	"encoding/binary"
)

// Builder appends sections to a caller-supplied buffer.  The first error
// sticks: later appends are no-ops and Finish() reports it.
type Builder struct {
	buf    []byte
	n      int
	header Header
	first  Name // first question echoed, target of answer name pointers
	qoff   int  // offset of the first question name, 0 if none
	err    error
}

// NewBuilder starts a message in buf.  The record counts of h are reset
// and maintained by the builder.
func NewBuilder(buf []byte, h Header) Builder {
	h.QDCount, h.ANCount, h.NSCount, h.ARCount = 0, 0, 0, 0
	b := Builder{buf: buf, n: HeaderSize, header: h}
	if len(buf) < HeaderSize {
		b.err = ErrNoSpace
	}
	return b
}

// Header gives access to the header to be written by Finish().
func (b *Builder) Header() *Header {
	return &b.header
}

func (b *Builder) Len() int {
	return b.n
}

// Buffer returns the whole caller-supplied buffer.
func (b *Builder) Buffer() []byte {
	return b.buf
}

func (b *Builder) extend(p []byte) {
	if b.err != nil {
		return
	}
	if b.n+len(p) > len(b.buf) {
		b.err = ErrNoSpace
		return
	}
	b.n += copy(b.buf[b.n:], p)
}

func (b *Builder) put8(v uint8) {
	var p [1]byte
	p[0] = v
	b.extend(p[:])
}

func (b *Builder) put16(v uint16) {
	var p [2]byte
	binary.BigEndian.PutUint16(p[:], v)
	b.extend(p[:])
}

func (b *Builder) put32(v uint32) {
	var p [4]byte
	binary.BigEndian.PutUint32(p[:], v)
	b.extend(p[:])
}

// writeName writes n uncompressed.
func (b *Builder) writeName(n Name) {
	it := n.labels()
	for label, ok := it.next(); ok; label, ok = it.next() {
		b.put8(uint8(len(label)))
		b.extend(label)
	}
	b.put8(0)
}

// AddQuestion echoes q.  The name is written uncompressed since its
// pointers refer to the source message.
func (b *Builder) AddQuestion(q Question) error {
	if b.err != nil {
		return b.err
	}
	start := b.n
	b.writeName(q.Name)
	b.put16(uint16(q.Type))
	b.put16(uint16(q.Class))
	if b.err != nil {
		b.n = start
		return b.err
	}
	if b.qoff == 0 {
		b.qoff = start
		b.first = q.Name
	}
	b.header.QDCount++
	return nil
}

// AddAnswer appends a resource record.  A name equal to the first question
// is compressed into a pointer to it.
func (b *Builder) AddAnswer(a Answer) error {
	if b.err != nil {
		return b.err
	}
	start := b.n
	if b.qoff > 0 && a.Name.EqualName(b.first) {
		b.put16(uint16(labelTypePtr)<<8 | uint16(b.qoff))
	} else {
		b.writeName(a.Name)
	}
	b.put16(uint16(a.Type))
	b.put16(uint16(a.Class))
	b.put32(a.TTL)
	b.put16(uint16(len(a.Data)))
	b.extend(a.Data)
	if b.err != nil {
		b.n = start
		return b.err
	}
	b.header.ANCount++
	return nil
}

// Finish writes the header and returns the message.
func (b *Builder) Finish() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.header.Pack(b.buf)
	return b.buf[:b.n], nil
}
