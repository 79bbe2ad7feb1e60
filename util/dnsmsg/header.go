// SPDX-License-Identifier: MIT
//
// DNS message - header.
//

package dnsmsg

import (
	"encoding/binary"
	"fmt"
)

const HeaderSize = 12 // bytes

// Flag bits of the second header word.
//
//	 0  1  2  3  4  5  6  7  8  9 10 11 12 13 14 15
//	|QR|   Opcode  |AA|TC|RD|RA|   Z    |   RCODE   |
const (
	flagResponse           = 0x8000
	flagAuthoritative      = 0x0400
	flagTruncated          = 0x0200
	flagRecursionDesired   = 0x0100
	flagRecursionAvailable = 0x0080

	opcodeShift = 11
	opcodeMask  = 0x0F
	rcodeMask   = 0x000F
)

type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16 // questions
	ANCount uint16 // answers
	NSCount uint16 // authority records
	ARCount uint16 // additional records
}

func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	return Header{
		ID:      binary.BigEndian.Uint16(b[0:]),
		Flags:   binary.BigEndian.Uint16(b[2:]),
		QDCount: binary.BigEndian.Uint16(b[4:]),
		ANCount: binary.BigEndian.Uint16(b[6:]),
		NSCount: binary.BigEndian.Uint16(b[8:]),
		ARCount: binary.BigEndian.Uint16(b[10:]),
	}, nil
}

// Pack writes the header into the first HeaderSize bytes of b.
func (h *Header) Pack(b []byte) {
	_ = b[HeaderSize-1]
	binary.BigEndian.PutUint16(b[0:], h.ID)
	binary.BigEndian.PutUint16(b[2:], h.Flags)
	binary.BigEndian.PutUint16(b[4:], h.QDCount)
	binary.BigEndian.PutUint16(b[6:], h.ANCount)
	binary.BigEndian.PutUint16(b[8:], h.NSCount)
	binary.BigEndian.PutUint16(b[10:], h.ARCount)
}

func (h *Header) setFlag(flag uint16, on bool) {
	if on {
		h.Flags |= flag
	} else {
		h.Flags &^= flag
	}
}

func (h *Header) Kind() Kind {
	if h.Flags&flagResponse != 0 {
		return KindResponse
	}
	return KindQuery
}

func (h *Header) SetKind(k Kind) {
	h.setFlag(flagResponse, k == KindResponse)
}

func (h *Header) Opcode() Opcode {
	return Opcode((h.Flags >> opcodeShift) & opcodeMask)
}

func (h *Header) SetOpcode(o Opcode) {
	h.Flags = h.Flags&^(opcodeMask<<opcodeShift) |
		(uint16(o)&opcodeMask)<<opcodeShift
}

func (h *Header) Authoritative() bool {
	return h.Flags&flagAuthoritative != 0
}

func (h *Header) SetAuthoritative(on bool) {
	h.setFlag(flagAuthoritative, on)
}

func (h *Header) Truncated() bool {
	return h.Flags&flagTruncated != 0
}

func (h *Header) SetTruncated(on bool) {
	h.setFlag(flagTruncated, on)
}

func (h *Header) RecursionDesired() bool {
	return h.Flags&flagRecursionDesired != 0
}

func (h *Header) SetRecursionDesired(on bool) {
	h.setFlag(flagRecursionDesired, on)
}

func (h *Header) RecursionAvailable() bool {
	return h.Flags&flagRecursionAvailable != 0
}

func (h *Header) SetRecursionAvailable(on bool) {
	h.setFlag(flagRecursionAvailable, on)
}

func (h *Header) RCode() RCode {
	return RCode(h.Flags & rcodeMask)
}

// SetRCode stores the low 4 bits of r.
func (h *Header) SetRCode(r RCode) {
	h.Flags = h.Flags&^rcodeMask | uint16(r)&rcodeMask
}

func (h Header) String() string {
	return fmt.Sprintf("id=%d kind=%s opcode=%s aa=%t tc=%t rd=%t ra=%t "+
		"rcode=%s qd=%d an=%d ns=%d ar=%d",
		h.ID, h.Kind(), h.Opcode(), h.Authoritative(), h.Truncated(),
		h.RecursionDesired(), h.RecursionAvailable(), h.RCode(),
		h.QDCount, h.ANCount, h.NSCount, h.ARCount)
}

// ResponseHeader derives the header of a reply to req: same ID and opcode,
// response bit set, RD copied and mirrored into RA, and NotImplemented as
// the response code until the caller decides otherwise.  The record counts
// are left at zero for the Builder to maintain.
func ResponseHeader(req Header) Header {
	h := Header{ID: req.ID}
	h.SetKind(KindResponse)
	h.SetOpcode(req.Opcode())
	h.SetRecursionDesired(req.RecursionDesired())
	h.SetRecursionAvailable(req.RecursionDesired())
	h.SetRCode(RCodeNotImplemented)
	return h
}
