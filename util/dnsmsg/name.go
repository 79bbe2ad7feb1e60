// SPDX-License-Identifier: MIT
//
// DNS message - domain names.
//
// A name occurrence is either a sequence of length-prefixed labels ending
// with the zero-length root label, or such a sequence cut short by a 2-byte
// compression pointer to an earlier occurrence (RFC 1035 section 4.1.4).
//
// Decoding must terminate on adversarial input (CVE-2000-0333, VU#23495):
//   - a pointer must point strictly before itself and never at the start
//     of the name being decoded;
//   - a pointer must not point at another pointer;
//   - at most maxPointers pointers are followed per name;
//   - the wire length of the decoded name is bounded by MaxNameLength.
//

package dnsmsg

import (
	"strings"
)

const (
	MaxNameLength  = 255 // bytes, in wire format
	MaxLabelLength = 63

	maxPointers = 2 // the name's own pointer plus one more

	labelTypeMask  = 0xC0
	labelTypeLen   = 0x00
	labelTypePtr   = 0xC0
	pointerHighBit = 0x3F
)

// Name is a view of a name occurrence inside a message buffer.  It is only
// valid as long as the buffer is not reused.
type Name struct {
	msg []byte
	off int // start of the occurrence
	n   int // bytes occupied by the occurrence at off
}

// readName decodes the name occurrence at off and returns it together with
// the offset right after the occurrence.
func readName(msg []byte, off int) (Name, int, error) {
	start := off
	end := -1 // offset after the occurrence, fixed by the first pointer
	total := 0
	pointers := 0

	for {
		if off >= len(msg) {
			return Name{}, 0, ErrTruncated
		}
		c := msg[off]

		switch c & labelTypeMask {
		case labelTypeLen:
			if c == 0 {
				total++
				if total > MaxNameLength {
					return Name{}, 0, ErrNameTooLong
				}
				if end < 0 {
					end = off + 1
				}
				return Name{msg: msg, off: start, n: end - start}, end, nil
			}
			l := int(c)
			if off+1+l > len(msg) {
				return Name{}, 0, ErrTruncated
			}
			total += 1 + l
			if total > MaxNameLength {
				return Name{}, 0, ErrNameTooLong
			}
			off += 1 + l

		case labelTypePtr:
			if off+1 >= len(msg) {
				return Name{}, 0, ErrTruncated
			}
			if end < 0 {
				end = off + 2
			}
			pointers++
			if pointers > maxPointers {
				return Name{}, 0, ErrPointer
			}
			ptr := int(c&pointerHighBit)<<8 | int(msg[off+1])
			if ptr >= off || ptr == start {
				return Name{}, 0, ErrPointer
			}
			if msg[ptr]&labelTypeMask == labelTypePtr {
				return Name{}, 0, ErrPointer
			}
			off = ptr

		default:
			// 0x40 and 0x80 are extended/reserved label types.
			return Name{}, 0, ErrLabel
		}
	}
}

// labelIter walks the labels of an already validated occurrence.
type labelIter struct {
	msg []byte
	off int
}

func (it *labelIter) next() ([]byte, bool) {
	for it.off < len(it.msg) {
		c := it.msg[it.off]
		if c&labelTypeMask == labelTypePtr {
			if it.off+1 >= len(it.msg) {
				return nil, false
			}
			it.off = int(c&pointerHighBit)<<8 | int(it.msg[it.off+1])
			continue
		}
		if c == 0 {
			return nil, false
		}
		l := int(c)
		if it.off+1+l > len(it.msg) {
			return nil, false
		}
		label := it.msg[it.off+1 : it.off+1+l]
		it.off += 1 + l
		return label, true
	}
	return nil, false
}

func (n Name) labels() labelIter {
	if n.msg == nil {
		return labelIter{}
	}
	return labelIter{msg: n.msg, off: n.off}
}

// Bytes returns the raw bytes of the occurrence, pointer included.
func (n Name) Bytes() []byte {
	return n.msg[n.off : n.off+n.n]
}

// WireLen is the length of the name once decompressed into wire format.
func (n Name) WireLen() int {
	l := 1
	it := n.labels()
	for label, ok := it.next(); ok; label, ok = it.next() {
		l += 1 + len(label)
	}
	return l
}

// IsRoot reports whether n has no labels.
func (n Name) IsRoot() bool {
	it := n.labels()
	_, ok := it.next()
	return !ok
}

// String returns the dotted form without the trailing dot, or "." for the
// root.  Label bytes are not escaped.
func (n Name) String() string {
	var sb strings.Builder
	it := n.labels()
	for label, ok := it.next(); ok; label, ok = it.next() {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.Write(label)
	}
	if sb.Len() == 0 {
		return "."
	}
	return sb.String()
}

// AppendLower appends the lower-cased dotted form (no trailing dot) to dst.
func (n Name) AppendLower(dst []byte) []byte {
	first := true
	it := n.labels()
	for label, ok := it.next(); ok; label, ok = it.next() {
		if !first {
			dst = append(dst, '.')
		}
		first = false
		for _, c := range label {
			dst = append(dst, toLower(c))
		}
	}
	return dst
}

// Equal compares n with a dotted host name, label by label and ignoring
// ASCII case.  A single trailing dot on host is accepted.
func (n Name) Equal(host string) bool {
	host = strings.TrimSuffix(host, ".")
	i := 0
	it := n.labels()
	for label, ok := it.next(); ok; label, ok = it.next() {
		if i > 0 {
			if i >= len(host) || host[i] != '.' {
				return false
			}
			i++
		}
		if i+len(label) > len(host) {
			return false
		}
		for j, c := range label {
			if toLower(c) != toLower(host[i+j]) {
				return false
			}
		}
		i += len(label)
	}
	return i == len(host)
}

// EqualName compares two name views ignoring ASCII case.
func (n Name) EqualName(o Name) bool {
	a, b := n.labels(), o.labels()
	for {
		la, oka := a.next()
		lb, okb := b.next()
		if oka != okb {
			return false
		}
		if !oka {
			return true
		}
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if toLower(la[i]) != toLower(lb[i]) {
				return false
			}
		}
	}
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
