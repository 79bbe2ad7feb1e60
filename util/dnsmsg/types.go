// SPDX-License-Identifier: MIT
//
// DNS message - header field types.
//
// See RFC 1035 section 4.1.
//

package dnsmsg

import (
	"strconv"
)

// Kind tells a query from a response (the QR bit).
type Kind uint8

const (
	KindQuery Kind = iota
	KindResponse
)

func (k Kind) String() string {
	if k == KindResponse {
		return "Response"
	}
	return "Query"
}

type Opcode uint8

const (
	OpcodeQuery        Opcode = 0
	OpcodeInverseQuery Opcode = 1
	OpcodeStatus       Opcode = 2
	OpcodeNotify       Opcode = 4
	OpcodeUpdate       Opcode = 5
)

func (o Opcode) String() string {
	switch o {
	case OpcodeQuery:
		return "Query"
	case OpcodeInverseQuery:
		return "InverseQuery"
	case OpcodeStatus:
		return "Status"
	case OpcodeNotify:
		return "Notify"
	case OpcodeUpdate:
		return "Update"
	default:
		return "Reserved(" + strconv.Itoa(int(o)) + ")"
	}
}

// RCode is a response code.  Only the low 4 bits fit into the header;
// the extended values need EDNS and are listed for completeness.
type RCode uint16

const (
	RCodeNoError           RCode = 0
	RCodeFormatError       RCode = 1
	RCodeServerFailure     RCode = 2
	RCodeNonExistentDomain RCode = 3
	RCodeNotImplemented    RCode = 4
	RCodeRefused           RCode = 5
	RCodeExistentDomain    RCode = 6
	RCodeExistentRRSet     RCode = 7
	RCodeNonExistentRRSet  RCode = 8
	RCodeNotAuthoritative  RCode = 9
	RCodeNotZone           RCode = 10
	RCodeBadVersion        RCode = 16
	RCodeBadKey            RCode = 17
	RCodeBadTime           RCode = 18
	RCodeBadMode           RCode = 19
	RCodeBadName           RCode = 20
	RCodeBadAlg            RCode = 21
)

var rcodeNames = map[RCode]string{
	RCodeNoError:           "NoError",
	RCodeFormatError:       "FormatError",
	RCodeServerFailure:     "ServerFailure",
	RCodeNonExistentDomain: "NonExistentDomain",
	RCodeNotImplemented:    "NotImplemented",
	RCodeRefused:           "Refused",
	RCodeExistentDomain:    "ExistentDomain",
	RCodeExistentRRSet:     "ExistentRRSet",
	RCodeNonExistentRRSet:  "NonExistentRRSet",
	RCodeNotAuthoritative:  "NotAuthoritative",
	RCodeNotZone:           "NotZone",
	RCodeBadVersion:        "BadVersion",
	RCodeBadKey:            "BadKey",
	RCodeBadTime:           "BadTime",
	RCodeBadMode:           "BadMode",
	RCodeBadName:           "BadName",
	RCodeBadAlg:            "BadAlg",
}

func (r RCode) String() string {
	if s, ok := rcodeNames[r]; ok {
		return s
	}
	return "Reserved(" + strconv.Itoa(int(r)) + ")"
}

// Type is the query/record type.
type Type uint16

const (
	TypeA     Type = 1
	TypeNS    Type = 2
	TypeMD    Type = 3
	TypeMF    Type = 4
	TypeCNAME Type = 5
	TypeSOA   Type = 6
	TypeMB    Type = 7
	TypeMG    Type = 8
	TypeMR    Type = 9
	TypeNULL  Type = 10
	TypeWKS   Type = 11
	TypePTR   Type = 12
	TypeHINFO Type = 13
	TypeMINFO Type = 14
	TypeMX    Type = 15
	TypeTXT   Type = 16
	TypeAAAA  Type = 28
	TypeAXFR  Type = 252
	TypeMAILA Type = 253
	TypeMAILB Type = 254
	TypeALL   Type = 255
)

var typeNames = map[Type]string{
	TypeA:     "A",
	TypeNS:    "NS",
	TypeMD:    "MD",
	TypeMF:    "MF",
	TypeCNAME: "CNAME",
	TypeSOA:   "SOA",
	TypeMB:    "MB",
	TypeMG:    "MG",
	TypeMR:    "MR",
	TypeNULL:  "NULL",
	TypeWKS:   "WKS",
	TypePTR:   "PTR",
	TypeHINFO: "HINFO",
	TypeMINFO: "MINFO",
	TypeMX:    "MX",
	TypeTXT:   "TXT",
	TypeAAAA:  "AAAA",
	TypeAXFR:  "AXFR",
	TypeMAILA: "MAILA",
	TypeMAILB: "MAILB",
	TypeALL:   "ALL",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "TYPE" + strconv.Itoa(int(t))
}

type Class uint16

const (
	ClassIN Class = 1
	ClassCS Class = 2
	ClassCH Class = 3
	ClassHS Class = 4
)

func (c Class) String() string {
	switch c {
	case ClassIN:
		return "IN"
	case ClassCS:
		return "CS"
	case ClassCH:
		return "CH"
	case ClassHS:
		return "HS"
	default:
		return "CLASS" + strconv.Itoa(int(c))
	}
}
