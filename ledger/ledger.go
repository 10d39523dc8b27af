// Copyright (C) 2022, 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

// Package ledger provides a connection to an app running on a Ledger
// hardware wallet. To create a new connection:
//
//	path, err := ledger.DetectDevice()
//	dev, err := ledger.OpenHID(path)
//	l := ledger.New(dev)
//
// Then you can send commands to the app that is open on the device:
//
//	rsp, err := l.Send(cla, ins, p1, p2, data)
//
// The response holds the command specific payload followed by a
// two byte status word, see SplitResponse(). App specific protocols,
// such as the one in github.com/tillitis/substrate-ledger/substrate,
// are built on top of Send().
package ledger

import (
	"fmt"
	"io"
	"log"
	"os"
)

var le = log.New(os.Stderr, "", 0)

func SilenceLogging() {
	le.SetOutput(io.Discard)
}

// Device exchanges whole command APDUs with a device and returns
// whole response APDUs, status word included.
type Device interface {
	Exchange(apdu []byte) ([]byte, error)
	Close() error
}

// Ledger is a connection to an app on a Ledger device.
type Ledger struct {
	dev Device
}

// New wraps an open device. Use OpenHID() to get one for a device
// connected over USB.
func New(dev Device) *Ledger {
	return &Ledger{dev: dev}
}

// Close the connection to the device.
func (l *Ledger) Close() error {
	if err := l.dev.Close(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return nil
}

// Send sends one command APDU and waits for the response. The
// returned response has at least the two status word bytes; the
// status word itself is not interpreted here.
func (l *Ledger) Send(cla, ins, p1, p2 byte, data []byte) ([]byte, error) {
	if len(data) > 0xff {
		return nil, ErrDataTooLong
	}

	// Lc is always sent, also for empty data.
	tx := make([]byte, 5, 5+len(data))
	tx[0] = cla
	tx[1] = ins
	tx[2] = p1
	tx[3] = p2
	tx[4] = byte(len(data))
	tx = append(tx, data...)

	Dump("Send tx", tx)
	rx, err := l.dev.Exchange(tx)
	if err != nil {
		return nil, fmt.Errorf("Exchange: %w", err)
	}
	Dump("Send rx", rx)

	if len(rx) < 2 {
		return nil, ErrResponseTooShort
	}

	return rx, nil
}
