// Copyright (C) 2022, 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package ledger

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/karalabe/hid"
)

// Ledger HID transport framing. Every report is 64 bytes:
//
//	[0..1] channel, big-endian
//	[2]    tag, 0x05 for APDU data
//	[3..4] packet sequence number, big-endian, starting at 0
//	[5..]  data; the first packet starts with the big-endian length of
//	       the whole APDU
//
// Unused space in the last packet is zero padded.
const (
	hidPacketSize = 64
	hidChannel    = 0x0101
	hidTagAPDU    = 0x05
)

const ErrInvalidReplyHeader = constError("invalid HID reply header")

// HIDDevice is a Ledger connected over USB HID.
type HIDDevice struct {
	mu   sync.Mutex // one exchange at a time
	conn io.ReadWriteCloser
}

// OpenHID opens the Ledger HID device at path, as returned by
// ListDevices() or DetectDevice().
func OpenHID(path string) (*HIDDevice, error) {
	infos, err := hid.Enumerate(LedgerVendorID, 0)
	if err != nil {
		return nil, fmt.Errorf("Enumerate: %w", err)
	}
	for _, info := range infos {
		if info.Path != path {
			continue
		}
		dev, err := info.Open()
		if err != nil {
			return nil, fmt.Errorf("Open %s: %w", path, err)
		}
		return newHIDDevice(dev), nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNoDevice)
}

func newHIDDevice(conn io.ReadWriteCloser) *HIDDevice {
	return &HIDDevice{conn: conn}
}

// Exchange writes the framed command APDU and reads back the whole
// response APDU.
func (h *HIDDevice) Exchange(apdu []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, packet := range wrapCommand(hidChannel, apdu) {
		if _, err := h.conn.Write(packet); err != nil {
			return nil, fmt.Errorf("Write: %w", err)
		}
	}

	rsp, err := readResponse(h.conn, hidChannel)
	if err != nil {
		return nil, err
	}

	return rsp, nil
}

// Close the HID device.
func (h *HIDDevice) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.conn.Close(); err != nil {
		return fmt.Errorf("conn.Close: %w", err)
	}
	return nil
}

// wrapCommand turns the command into a sequence of HID packets.
func wrapCommand(channel uint16, apdu []byte) [][]byte {
	msg := make([]byte, 2, 2+len(apdu))
	binary.BigEndian.PutUint16(msg, uint16(len(apdu)))
	msg = append(msg, apdu...)

	var packets [][]byte
	for seq := 0; len(msg) > 0; seq++ {
		packet := make([]byte, hidPacketSize)
		binary.BigEndian.PutUint16(packet[0:2], channel)
		packet[2] = hidTagAPDU
		binary.BigEndian.PutUint16(packet[3:5], uint16(seq))

		n := copy(packet[5:], msg)
		msg = msg[n:]
		packets = append(packets, packet)
	}

	return packets
}

// readResponse reads HID packets from r until a whole response APDU
// has been received.
func readResponse(r io.Reader, channel uint16) ([]byte, error) {
	packet := make([]byte, hidPacketSize)

	var reply []byte
	var total int
	for seq := 0; ; seq++ {
		if _, err := io.ReadFull(r, packet); err != nil {
			return nil, fmt.Errorf("ReadFull: %w", err)
		}

		if binary.BigEndian.Uint16(packet[0:2]) != channel || packet[2] != hidTagAPDU {
			return nil, ErrInvalidReplyHeader
		}
		if got := binary.BigEndian.Uint16(packet[3:5]); got != uint16(seq) {
			return nil, fmt.Errorf("Expected packet sequence %d, got %d", uint16(seq), got)
		}

		payload := packet[5:]
		if seq == 0 {
			total = int(binary.BigEndian.Uint16(packet[5:7]))
			reply = make([]byte, 0, total)
			payload = packet[7:]
		}

		left := total - len(reply)
		if left <= len(payload) {
			reply = append(reply, payload[:left]...)
			return reply, nil
		}
		reply = append(reply, payload...)
	}
}
