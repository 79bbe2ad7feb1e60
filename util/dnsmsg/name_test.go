// SPDX-License-Identifier: MIT
//
// DNS message - name tests
//

package dnsmsg

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func label(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func encodeName(name string) []byte {
	var b []byte
	for _, l := range strings.Split(name, ".") {
		b = append(b, label(l)...)
	}
	return append(b, 0)
}

func TestReadName1(t *testing.T) {
	items := []struct {
		msg  []byte
		off  int
		name string
		next int
	}{
		{msg: []byte{0}, off: 0, name: ".", next: 1},
		{msg: encodeName("www.example.com"), off: 0, name: "www.example.com", next: 17},
		{
			// "example.com" at 0, "www" + pointer to 0 at 13
			msg:  append(encodeName("example.com"), 0x03, 'w', 'w', 'w', 0xC0, 0x00),
			off:  13,
			name: "www.example.com",
			next: 19,
		},
		{
			// pointer right at the start of the name
			msg:  append(encodeName("example.com"), 0xC0, 0x00),
			off:  13,
			name: "example.com",
			next: 15,
		},
	}
	for _, item := range items {
		n, next, err := readName(item.msg, item.off)
		if err != nil {
			t.Errorf(`readName(%q, %d) failed: %v`, item.msg, item.off, err)
			continue
		}
		if s := n.String(); s != item.name || next != item.next {
			t.Errorf(`readName(%q, %d) = (%q, %d); want (%q, %d)`,
				item.msg, item.off, s, next, item.name, item.next)
		}
		if l := len(n.Bytes()); l != next-item.off {
			t.Errorf(`Name.Bytes() length = %d; want %d`, l, next-item.off)
		}
	}
}

func TestReadNamePointer1(t *testing.T) {
	header := make([]byte, HeaderSize)

	// a chain of names each pointing to the previous one
	chain := []byte{}
	chain = append(chain, 0x01, 'a', 0x00)                 // 0: a
	chain = append(chain, 0x01, 'b', 0xC0, 0x00)           // 3: b -> 0
	chain = append(chain, 0x01, 'c', 0xC0, 0x03)           // 7: c -> 3
	chain = append(chain, 0x01, 'd', 0xC0, 0x07)           // 11: d -> 7
	chain = append(chain, 0x03, 'c', 'o', 'm', 0x00)       // 15: com
	chain = append(chain, 0xC0, 0x0F)                      // 20: -> 15
	chain = append(chain, 0xC0, 0x14)                      // 22: -> 20 (a pointer)
	chain = append(chain, 0x03, 'w', 'w', 'w', 0xC0, 0x18) // 24: www -> 24 (itself)

	items := []struct {
		desc string
		msg  []byte
		off  int
		name string
		err  error
	}{
		{
			desc: "self pointer after the header",
			msg:  append(append([]byte{}, header...), 0xC0, 0x0C),
			off:  12,
			err:  ErrPointer,
		},
		{
			desc: "self pointer at offset 0",
			msg:  []byte{0xC0, 0x00},
			off:  0,
			err:  ErrPointer,
		},
		{
			desc: "forward pointer",
			msg:  []byte{0xC0, 0x02, 0x00},
			off:  0,
			err:  ErrPointer,
		},
		{desc: "one pointer", msg: chain, off: 3, name: "b.a"},
		{desc: "two pointers", msg: chain, off: 7, name: "c.b.a"},
		{desc: "three pointers", msg: chain, off: 11, err: ErrPointer},
		{desc: "pointer only", msg: chain, off: 20, name: "com"},
		{desc: "pointer to pointer", msg: chain, off: 22, err: ErrPointer},
		{desc: "pointer to name start", msg: chain, off: 24, err: ErrPointer},
	}
	for _, item := range items {
		n, _, err := readName(item.msg, item.off)
		if item.err != nil {
			if !errors.Is(err, item.err) {
				t.Errorf(`[%s] readName() error = %v; want %v`,
					item.desc, err, item.err)
			}
			continue
		}
		if err != nil {
			t.Errorf(`[%s] readName() failed: %v`, item.desc, err)
		} else if s := n.String(); s != item.name {
			t.Errorf(`[%s] readName() = %q; want %q`, item.desc, s, item.name)
		}
	}
}

func TestReadNameInvalid1(t *testing.T) {
	items := []struct {
		desc string
		msg  []byte
		err  error
	}{
		{desc: "empty", msg: []byte{}, err: ErrTruncated},
		{desc: "short label", msg: []byte{0x05, 'a', 'b', 'c'}, err: ErrTruncated},
		{desc: "missing root", msg: []byte{0x03, 'c', 'o', 'm'}, err: ErrTruncated},
		{desc: "half pointer", msg: []byte{0xC0}, err: ErrTruncated},
		{desc: "extended label", msg: []byte{0x41, 0x00}, err: ErrLabel},
		{desc: "reserved label", msg: []byte{0x80, 0x00}, err: ErrLabel},
	}
	for _, item := range items {
		if _, _, err := readName(item.msg, 0); !errors.Is(err, item.err) {
			t.Errorf(`[%s] readName(%q) error = %v; want %v`,
				item.desc, item.msg, err, item.err)
		}
	}
}

func TestReadNameLength1(t *testing.T) {
	l63 := strings.Repeat("a", 63)
	l61 := strings.Repeat("b", 61)

	// 3*(1+63) + (1+61) + 1 = 255
	ok := encodeName(strings.Join([]string{l63, l63, l63, l61}, "."))
	if n, _, err := readName(ok, 0); err != nil {
		t.Errorf(`readName(255 bytes) failed: %v`, err)
	} else if n.WireLen() != MaxNameLength {
		t.Errorf(`readName(255 bytes).WireLen() = %d; want %d`,
			n.WireLen(), MaxNameLength)
	}

	// 3*(1+63) + (1+62) + 1 = 256, with only 251 bytes of label text
	l62 := strings.Repeat("c", 62)
	over := encodeName(strings.Join([]string{l63, l63, l63, l62}, "."))
	if _, _, err := readName(over, 0); !errors.Is(err, ErrNameTooLong) {
		t.Errorf(`readName(256 bytes) error = %v; want %v`, err, ErrNameTooLong)
	}

	// 4*(1+63) + 1 = 257
	long := encodeName(strings.Join([]string{l63, l63, l63, l63}, "."))
	if _, _, err := readName(long, 0); !errors.Is(err, ErrNameTooLong) {
		t.Errorf(`readName(257 bytes) error = %v; want %v`, err, ErrNameTooLong)
	}

	// Labels concatenated beyond 255 bytes through a pointer.
	msg := encodeName(strings.Join([]string{l63, l63, l63}, "."))
	tail := append(label(l63), label(l63)...)
	tail = append(tail, 0xC0, 0x00)
	off := len(msg)
	msg = append(msg, tail...)
	if _, _, err := readName(msg, off); !errors.Is(err, ErrNameTooLong) {
		t.Errorf(`readName(compressed > 255 bytes) error = %v; want %v`,
			err, ErrNameTooLong)
	}
}

func TestNameEqual1(t *testing.T) {
	msg := encodeName("Captive.Apple.COM")
	n, _, err := readName(msg, 0)
	if err != nil {
		t.Fatalf(`readName() failed: %v`, err)
	}

	items := []struct {
		host  string
		equal bool
	}{
		{host: "captive.apple.com", equal: true},
		{host: "CAPTIVE.APPLE.COM.", equal: true},
		{host: "captive.apple.co", equal: false},
		{host: "captive.apple.comx", equal: false},
		{host: "apple.com", equal: false},
		{host: "www.captive.apple.com", equal: false},
		{host: "captive-apple.com", equal: false},
		{host: "", equal: false},
		{host: "example.com", equal: false},
	}
	for _, item := range items {
		if eq := n.Equal(item.host); eq != item.equal {
			t.Errorf(`Name(%q).Equal(%q) = %t; want %t`,
				n, item.host, eq, item.equal)
		}
	}

	root, _, _ := readName([]byte{0}, 0)
	if !root.Equal("") || !root.Equal(".") || !root.IsRoot() {
		t.Errorf(`root name must equal "" and "."`)
	}

	if b := n.AppendLower(nil); !bytes.Equal(b, []byte("captive.apple.com")) {
		t.Errorf(`AppendLower() = %q; want "captive.apple.com"`, b)
	}
	if l := n.WireLen(); l != len(msg) {
		t.Errorf(`WireLen() = %d; want %d`, l, len(msg))
	}
}

func TestNameEqualName1(t *testing.T) {
	// "example.com" at 0; "www" + pointer at 13; "WWW.EXAMPLE.COM" at 19
	msg := append(encodeName("example.com"), 0x03, 'w', 'w', 'w', 0xC0, 0x00)
	msg = append(msg, encodeName("WWW.EXAMPLE.COM")...)

	a, _, err := readName(msg, 13)
	if err != nil {
		t.Fatalf(`readName(13) failed: %v`, err)
	}
	b, _, err := readName(msg, 19)
	if err != nil {
		t.Fatalf(`readName(19) failed: %v`, err)
	}
	c, _, _ := readName(msg, 0)

	if !a.EqualName(b) || !b.EqualName(a) {
		t.Errorf(`%q.EqualName(%q) = false; want true`, a, b)
	}
	if a.EqualName(c) {
		t.Errorf(`%q.EqualName(%q) = true; want false`, a, c)
	}
}
