// Package callmeta parses call metadata embedded in recording filenames.
//
// Grammar: type-p1-customer_number-YYYYMMDD-HHMMSS-callid.ext
package callmeta

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type CallType string

const (
	CallTypeInbound  CallType = "in"
	CallTypeExternal CallType = "external"
)

const (
	dateLayout    = "20060102"
	timeLayout    = "150405"
	isoDateLayout = "2006-01-02"
	isoTimeLayout = "15:04:05"
	fieldCount    = 6
)

var ErrInvalidFilename = errors.New("invalid filename")

// Metadata is the parsed form of a recording filename.
// Exactly one of TollFreeDID and AgentExtension is set, depending on CallType.
type Metadata struct {
	Filename       string   `json:"filename"`
	CallType       CallType `json:"call_type"`
	TollFreeDID    *string  `json:"toll_free_did"`
	AgentExtension *string  `json:"agent_extension"`
	CustomerNumber string   `json:"customer_number"`
	CallDate       string   `json:"call_date"`
	CallStartTime  string   `json:"call_start_time"`
	CallID         string   `json:"call_id"`
}

// Parse extracts Metadata from filename. It has no side effects and returns no
// partial result on failure.
func Parse(filename string) (Metadata, error) {
	base, _, _ := strings.Cut(filename, ".")
	parts := strings.Split(base, "-")
	if len(parts) != fieldCount {
		return Metadata{}, fmt.Errorf("%w: %q has %d fields, want %d", ErrInvalidFilename, filename, len(parts), fieldCount)
	}

	callDate, err := strictParse(dateLayout, parts[3])
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: bad call date %q", ErrInvalidFilename, parts[3])
	}
	callTime, err := strictParse(timeLayout, parts[4])
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: bad call time %q", ErrInvalidFilename, parts[4])
	}

	md := Metadata{
		Filename:       filename,
		CallType:       CallType(parts[0]),
		CustomerNumber: parts[2],
		CallDate:       callDate.Format(isoDateLayout),
		CallStartTime:  callTime.Format(isoTimeLayout),
		CallID:         parts[5],
	}

	p1 := parts[1]
	switch md.CallType {
	case CallTypeInbound:
		md.TollFreeDID = &p1
	case CallTypeExternal:
		md.AgentExtension = &p1
	default:
		return Metadata{}, fmt.Errorf("%w: unknown call type %q", ErrInvalidFilename, parts[0])
	}
	return md, nil
}

// strictParse rejects values time.Parse would otherwise accept with fewer digits.
func strictParse(layout, v string) (time.Time, error) {
	if len(v) != len(layout) {
		return time.Time{}, errors.New("length mismatch")
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return time.Time{}, errors.New("non-digit")
		}
	}
	return time.Parse(layout, v)
}
