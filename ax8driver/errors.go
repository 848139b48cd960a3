package ax8driver

import (
	"errors"
	"fmt"
	"math"
)

// ErrClosed is returned for any use of a transport or camera after Close.
var ErrClosed = errors.New("ax8driver: connection closed")

// ConnectionError indicates that the camera could not be reached or did not
// answer the internal temperature probe.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("unable to establish modbus tcp session with %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError wraps a failed register read or write.
type TransportError struct {
	Op       string
	UnitID   byte
	Address  uint16
	Quantity int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unit 0x%02X register %d (x%d): %v", e.Op, e.UnitID, e.Address, e.Quantity, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CodecError indicates a value that cannot be encoded into registers or a
// register block too short to decode.
type CodecError struct {
	Message string
}

func (e *CodecError) Error() string {
	return "register codec: " + e.Message
}

// RangeError indicates an argument outside its documented range.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	if math.IsInf(e.Max, 1) {
		return fmt.Sprintf("%s %g is out of range: minimum is %g", e.Field, e.Value, e.Min)
	}
	return fmt.Sprintf("%s %g is out of range: valid range is %g-%g", e.Field, e.Value, e.Min, e.Max)
}
