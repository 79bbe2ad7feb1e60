// SPDX-License-Identifier: MIT
//
// DNS message - errors.
//

package dnsmsg

import (
	"errors"
)

// Error is a wire-format error together with the response code that
// should be sent back for it.
type Error struct {
	RCode RCode
	msg   string
}

func (e *Error) Error() string {
	return "dnsmsg: " + e.msg
}

// The errors are allocated once so that parsing stays allocation free.
var (
	ErrShortHeader = &Error{RCode: RCodeFormatError, msg: "message shorter than header"}
	ErrTooLarge    = &Error{RCode: RCodeFormatError, msg: "message exceeds maximum size"}
	ErrTruncated   = &Error{RCode: RCodeFormatError, msg: "message truncated"}
	ErrLabel       = &Error{RCode: RCodeFormatError, msg: "invalid label type"}
	ErrPointer     = &Error{RCode: RCodeFormatError, msg: "invalid compression pointer"}
	ErrNameTooLong = &Error{RCode: RCodeFormatError, msg: "name exceeds 255 bytes"}
	ErrNoSpace     = &Error{RCode: RCodeServerFailure, msg: "message buffer full"}
)

// RCodeOf maps an error to the response code to reply with.
func RCodeOf(err error) RCode {
	if err == nil {
		return RCodeNoError
	}
	var e *Error
	if errors.As(err, &e) {
		return e.RCode
	}
	return RCodeServerFailure
}
