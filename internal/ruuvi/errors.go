package ruuvi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is matched by *UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported data format")
	// ErrTruncatedPayload is matched by *TruncatedPayloadError.
	ErrTruncatedPayload = errors.New("truncated payload")
	// ErrUnknownManufacturer is returned for manufacturer data not sent by a RuuviTag.
	ErrUnknownManufacturer = errors.New("unknown manufacturer")
)

// UnsupportedFormatError carries the data format tag that could not be decoded.
type UnsupportedFormatError struct {
	Format int
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("data format '%d' is not supported", e.Format)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// TruncatedPayloadError reports a payload shorter than its data format requires.
// Format is -1 when the payload is empty.
type TruncatedPayloadError struct {
	Format int
	Want   int
	Got    int
}

func (e *TruncatedPayloadError) Error() string {
	if e.Format < 0 {
		return "truncated payload: empty"
	}
	return fmt.Sprintf("truncated payload: format %d needs %d bytes, got %d", e.Format, e.Want, e.Got)
}

func (e *TruncatedPayloadError) Is(target error) bool {
	return target == ErrTruncatedPayload
}
