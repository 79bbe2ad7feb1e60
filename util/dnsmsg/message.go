// SPDX-License-Identifier: MIT
//
// DNS message parsing.
//
// A Message is a view of a caller-owned buffer; parsing does not allocate
// and nothing is copied out of the buffer.
//

package dnsmsg

const (
	// Traditional UDP message limit without EDNS(0).
	MaxMessageSize = 512 // bytes
)

type Message struct {
	Header Header

	buf  []byte
	qend int // offset after the question section
}

// Parse validates the header and the whole question section of b.
func Parse(b []byte) (Message, error) {
	if len(b) > MaxMessageSize {
		return Message{}, ErrTooLarge
	}
	h, err := ParseHeader(b)
	if err != nil {
		return Message{}, err
	}

	m := Message{Header: h, buf: b}
	it := m.Questions()
	for {
		if _, ok := it.Next(); !ok {
			break
		}
	}
	if err := it.Err(); err != nil {
		return Message{}, err
	}
	m.qend = it.off
	return m, nil
}

// Bytes returns the underlying message bytes.
func (m *Message) Bytes() []byte {
	return m.buf
}

// Questions returns a new iterator on each call.
func (m *Message) Questions() Questions {
	return Questions{
		msg:   m.buf,
		count: int(m.Header.QDCount),
		off:   HeaderSize,
	}
}

// Answers returns a new iterator over the answer section.
func (m *Message) Answers() Answers {
	return Answers{
		msg:   m.buf,
		count: int(m.Header.ANCount),
		off:   m.qend,
	}
}
