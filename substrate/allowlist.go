// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"encoding/binary"
	"fmt"

	"github.com/tillitis/substrate-ledger/ledger"
)

// The allowlist commands only exist in some of the legacy apps. An
// allowlist restricts which destinations the app signs transfers to.

// GetAllowlistPubKey gets the public key the allowlist must be signed
// with.
func (l *LegacyApp) GetAllowlistPubKey() ([]byte, error) {
	return l.get32(insAllowlistGetPubKey)
}

// SetAllowlistPubKey sets the public key the allowlist must be signed
// with.
func (l *LegacyApp) SetAllowlistPubKey(pubkey []byte) error {
	if len(pubkey) != 32 {
		return fmt.Errorf("public key of %d bytes: %w", len(pubkey), ErrInvalidArgument)
	}

	rsp, err := l.t.Send(l.cla, insAllowlistSetPubKey, 0, 0, pubkey)
	if err != nil {
		return ledger.TransportError(err)
	}

	_, sw, err := ledger.SplitResponse(rsp)
	if err != nil {
		return ledger.TransportError(err)
	}
	if sw != ledger.StatusOK {
		return ledger.NewResponseError(sw)
	}

	return nil
}

// GetAllowlistHash gets the hash of the uploaded allowlist.
func (l *LegacyApp) GetAllowlistHash() ([]byte, error) {
	return l.get32(insAllowlistGetHash)
}

// UploadAllowlist uploads a signed allowlist.
func (l *LegacyApp) UploadAllowlist(allowlist []byte) error {
	cmd := chunkedCommand{
		cla:    l.cla,
		ins:    insAllowlistUpload,
		header: []byte{0x00},
		body:   allowlist,
	}

	_, err := cmd.run(l.t)
	return err
}

// get32 runs a command answering with exactly 32 bytes.
func (l *LegacyApp) get32(ins byte) ([]byte, error) {
	rsp, err := l.t.Send(l.cla, ins, 0, 0, nil)
	if err != nil {
		return nil, ledger.TransportError(err)
	}

	if len(rsp) != 32+2 {
		return nil, ledger.NewResponseError(ledger.StatusDataInvalid)
	}
	if sw := binary.BigEndian.Uint16(rsp[32:]); sw != ledger.StatusOK {
		return nil, ledger.NewResponseError(sw)
	}

	return rsp[:32], nil
}
