// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"encoding/binary"
)

func init() {
	SilenceLogging()
}

type sentCommand struct {
	cla, ins, p1, p2 byte
	data             []byte
}

// fakeTransport records the commands sent and answers with the
// queued responses, then with StatusOK.
type fakeTransport struct {
	sent      []sentCommand
	responses [][]byte

	failAt int // fail the failAt:th command, counting from 1
	err    error
}

func (f *fakeTransport) Send(cla, ins, p1, p2 byte, data []byte) ([]byte, error) {
	f.sent = append(f.sent, sentCommand{cla, ins, p1, p2, append([]byte(nil), data...)})

	if f.err != nil && len(f.sent) == f.failAt {
		return nil, f.err
	}

	if len(f.responses) == 0 {
		return reply(0x9000), nil
	}
	rsp := f.responses[0]
	f.responses = f.responses[1:]

	return rsp, nil
}

func (f *fakeTransport) p1s() []byte {
	var p1s []byte
	for _, c := range f.sent {
		p1s = append(p1s, c.p1)
	}
	return p1s
}

// reply builds a response with payload and status word sw.
func reply(sw uint16, payload ...byte) []byte {
	rsp := make([]byte, 0, len(payload)+2)
	rsp = append(rsp, payload...)
	return binary.BigEndian.AppendUint16(rsp, sw)
}

func seq(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}
