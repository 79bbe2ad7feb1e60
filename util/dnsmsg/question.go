// SPDX-License-Identifier: MIT
//
// DNS message - question and answer sections.
//

package dnsmsg

import (
	"encoding/binary"
	"fmt"
)

type Question struct {
	Name  Name
	Type  Type
	Class Class
}

func (q Question) String() string {
	return fmt.Sprintf("%s %s %s", q.Name, q.Class, q.Type)
}

func readQuestion(msg []byte, off int) (Question, int, error) {
	name, off, err := readName(msg, off)
	if err != nil {
		return Question{}, 0, err
	}
	if off+4 > len(msg) {
		return Question{}, 0, ErrTruncated
	}
	q := Question{
		Name:  name,
		Type:  Type(binary.BigEndian.Uint16(msg[off:])),
		Class: Class(binary.BigEndian.Uint16(msg[off+2:])),
	}
	return q, off + 4, nil
}

// Questions iterates over the question section.  The iteration stops at
// the first parse error, which is then reported by Err().
type Questions struct {
	msg   []byte
	count int
	index int
	off   int
	err   error
}

func (it *Questions) Next() (Question, bool) {
	if it.err != nil || it.index >= it.count {
		return Question{}, false
	}
	q, off, err := readQuestion(it.msg, it.off)
	if err != nil {
		it.err = err
		return Question{}, false
	}
	it.index++
	it.off = off
	return q, true
}

func (it *Questions) Err() error {
	return it.err
}

// Answer is a resource record of the answer section.
type Answer struct {
	Name  Name
	Type  Type
	Class Class
	TTL   uint32
	Data  []byte
}

func readAnswer(msg []byte, off int) (Answer, int, error) {
	name, off, err := readName(msg, off)
	if err != nil {
		return Answer{}, 0, err
	}
	if off+10 > len(msg) {
		return Answer{}, 0, ErrTruncated
	}
	a := Answer{
		Name:  name,
		Type:  Type(binary.BigEndian.Uint16(msg[off:])),
		Class: Class(binary.BigEndian.Uint16(msg[off+2:])),
		TTL:   binary.BigEndian.Uint32(msg[off+4:]),
	}
	length := int(binary.BigEndian.Uint16(msg[off+8:]))
	off += 10
	if off+length > len(msg) {
		return Answer{}, 0, ErrTruncated
	}
	a.Data = msg[off : off+length]
	return a, off + length, nil
}

// Answers iterates over the answer section, same as Questions.
type Answers struct {
	msg   []byte
	count int
	index int
	off   int
	err   error
}

func (it *Answers) Next() (Answer, bool) {
	if it.err != nil || it.index >= it.count {
		return Answer{}, false
	}
	a, off, err := readAnswer(it.msg, it.off)
	if err != nil {
		it.err = err
		return Answer{}, false
	}
	it.index++
	it.off = off
	return a, true
}

func (it *Answers) Err() error {
	return it.err
}
