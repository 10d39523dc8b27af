// Copyright (C) 2022, 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"slices"

	"github.com/tillitis/substrate-ledger/ledger"
)

// chunkedCommand is a command too big for one APDU. The header goes in
// the INIT chunk, the body is split over the following chunks.
type chunkedCommand struct {
	cla    byte
	ins    byte
	p2     byte
	header []byte
	body   []byte

	// Status words where the response payload is a message from the
	// app, to be used instead of the generic status text.
	messageCodes []uint16
}

// foldState is threaded through the chunks of a command.
type foldState struct {
	payload []byte
	sw      uint16
	aborted bool
}

// step sends one chunk. Any status word but StatusOK aborts the
// command.
func (c chunkedCommand) step(t Transport, p1 PayloadType, chunk []byte) (foldState, error) {
	rsp, err := t.Send(c.cla, c.ins, byte(p1), c.p2, chunk)
	if err != nil {
		return foldState{}, ledger.TransportError(err)
	}

	payload, sw, err := ledger.SplitResponse(rsp)
	if err != nil {
		return foldState{}, ledger.TransportError(err)
	}

	return foldState{
		payload: payload,
		sw:      sw,
		aborted: sw != ledger.StatusOK,
	}, nil
}

// run sends all chunks in order, one at a time, and returns the
// payload of the last response. Nothing sent is retried.
func (c chunkedCommand) run(t Transport) ([]byte, error) {
	chunks := append([][]byte{c.header}, Split(c.body, ChunkSize)...)

	var st foldState
	var err error
	for i, chunk := range chunks {
		st, err = c.step(t, payloadType(i+1, len(chunks)), chunk)
		if err != nil {
			return nil, err
		}
		if st.aborted {
			le.Printf("Chunk %d/%d: %s\n", i+1, len(chunks), ledger.StatusText(st.sw))
			break
		}
	}

	if st.sw != ledger.StatusOK {
		return nil, c.deviceError(st)
	}

	return st.payload, nil
}

func (c chunkedCommand) deviceError(st foldState) *ledger.ResponseError {
	rerr := ledger.NewResponseError(st.sw)
	if len(st.payload) > 0 && slices.Contains(c.messageCodes, st.sw) {
		rerr.Message = string(st.payload)
	}

	return rerr
}
