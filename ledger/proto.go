// Copyright (C) 2022, 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/skythen/apdu"
)

type constError string

func (err constError) Error() string {
	return string(err)
}

const (
	ErrResponseTooShort = constError("response shorter than status word")
	ErrDataTooLong      = constError("command data longer than 255 bytes")
	ErrNoDevice         = constError("no Ledger device found")
	ErrManyDevices      = constError("more than one Ledger device found")
)

// Status words returned in the last two bytes of every response.
const (
	StatusU2FUnknown              uint16 = 1
	StatusU2FBadRequest           uint16 = 2
	StatusU2FConfigUnsupported    uint16 = 3
	StatusU2FDeviceIneligible     uint16 = 4
	StatusU2FTimeout              uint16 = 5
	StatusTimeout                 uint16 = 14
	StatusOK                      uint16 = 0x9000
	StatusDeviceBusy              uint16 = 0x9001
	StatusErrorDerivingKeys       uint16 = 0x6802
	StatusExecutionError          uint16 = 0x6400
	StatusWrongLength             uint16 = 0x6700
	StatusEmptyBuffer             uint16 = 0x6982
	StatusOutputBufferTooSmall    uint16 = 0x6983
	StatusDataInvalid             uint16 = 0x6984
	StatusConditionsNotSatisfied  uint16 = 0x6985
	StatusTransactionRejected     uint16 = 0x6986
	StatusBadKeyHandle            uint16 = 0x6a80
	StatusInvalidP1P2             uint16 = 0x6b00
	StatusInstructionNotSupported uint16 = 0x6d00
	StatusAppNotOpen              uint16 = 0x6e01
	StatusUnknownError            uint16 = 0x6f00
	StatusSignVerifyError         uint16 = 0x6f01

	// StatusTransportFailure is not sent by any device. It tags errors
	// raised while talking to it.
	StatusTransportFailure uint16 = 0xffff
)

var statusText = map[uint16]string{
	StatusU2FUnknown:              "U2F: Unknown",
	StatusU2FBadRequest:           "U2F: Bad request",
	StatusU2FConfigUnsupported:    "U2F: Configuration unsupported",
	StatusU2FDeviceIneligible:     "U2F: Device Ineligible",
	StatusU2FTimeout:              "U2F: Timeout",
	StatusTimeout:                 "Timeout",
	StatusOK:                      "No errors",
	StatusDeviceBusy:              "Device is busy",
	StatusErrorDerivingKeys:       "Error deriving keys",
	StatusExecutionError:          "Execution Error",
	StatusWrongLength:             "Wrong Length",
	StatusEmptyBuffer:             "Empty Buffer",
	StatusOutputBufferTooSmall:    "Output buffer too small",
	StatusDataInvalid:             "Data is invalid",
	StatusConditionsNotSatisfied:  "Conditions not satisfied",
	StatusTransactionRejected:     "Transaction rejected",
	StatusBadKeyHandle:            "Bad key handle",
	StatusInvalidP1P2:             "Invalid P1/P2",
	StatusInstructionNotSupported: "Instruction not supported",
	StatusAppNotOpen:              "App does not seem to be open",
	StatusUnknownError:            "Unknown error",
	StatusSignVerifyError:         "Sign/verify error",
}

// StatusText returns a human readable description of a status word.
func StatusText(code uint16) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Status Code: %d", code)
}

// ResponseError is returned when a command did not complete with
// StatusOK, either because the device said so or because the
// exchange itself failed (ReturnCode is then StatusTransportFailure
// and Err holds the cause).
type ResponseError struct {
	ReturnCode uint16
	Message    string
	Err        error
}

// NewResponseError returns a ResponseError with the message taken
// from the status word table.
func NewResponseError(code uint16) *ResponseError {
	return &ResponseError{ReturnCode: code, Message: StatusText(code)}
}

// TransportError wraps err, which happened while exchanging data
// with the device.
func TransportError(err error) *ResponseError {
	var rerr *ResponseError
	if errors.As(err, &rerr) {
		return rerr
	}
	return &ResponseError{
		ReturnCode: StatusTransportFailure,
		Message:    err.Error(),
		Err:        err,
	}
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s (0x%04x)", e.Message, e.ReturnCode)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ResponseError with the same return
// code, so callers can match with errors.Is(err,
// ledger.NewResponseError(ledger.StatusTransactionRejected)).
func (e *ResponseError) Is(target error) bool {
	t, ok := target.(*ResponseError)
	if !ok {
		return false
	}
	return t.ReturnCode == e.ReturnCode
}

// SplitResponse separates a raw response into its payload and the
// big-endian status word in the final two bytes.
func SplitResponse(raw []byte) ([]byte, uint16, error) {
	if len(raw) < 2 {
		return nil, 0, ErrResponseTooShort
	}
	rapdu, err := apdu.ParseRapdu(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("ParseRapdu: %w", err)
	}
	return rapdu.Data, uint16(rapdu.SW1)<<8 | uint16(rapdu.SW2), nil
}

// Dump hexdumps data in d with an explaining string s first.
func Dump(s string, d []byte) {
	if len(d) == 0 {
		le.Printf("%s: no data\n", s)
		return
	}
	le.Printf("%s (%d bytes):\n", s, len(d))
	le.Printf("%s", hex.Dump(d))
}
