// Copyright (C) 2022, 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tillitis/substrate-ledger/ledger"
)

// generic app status words where the payload is a message from the
// app.
var genericMessageCodes = []uint16{ledger.StatusDataInvalid}

// GetVersion gets the version of the app.
func (a *App) GetVersion() (*Version, error) {
	return getVersion(a.t, a.cla)
}

// AppInfo gets the name and version of the open app from the Ledger
// OS.
func (a *App) AppInfo() (*AppInfo, error) {
	return appInfo(a.t)
}

// GetAddress gets the ED25519 public key and the SS58 address with
// prefix ss58Prefix of path. If show is set the address is also shown
// on the device and has to be approved.
func (a *App) GetAddress(path Path, ss58Prefix uint16, show bool) (*Address, error) {
	data, err := path.Serialize()
	if err != nil {
		return nil, err
	}
	data = binary.LittleEndian.AppendUint16(data, ss58Prefix)

	rsp, err := a.t.Send(a.cla, insGetAddr, showP1(show), byte(ED25519), data)
	if err != nil {
		return nil, ledger.TransportError(err)
	}

	return parseAddress(rsp, ED25519)
}

// GetAddressECDSA gets the compressed secp256k1 public key and the
// hex encoded address of path.
func (a *App) GetAddressECDSA(path Path, show bool) (*Address, error) {
	data, err := path.Serialize()
	if err != nil {
		return nil, err
	}

	rsp, err := a.t.Send(a.cla, insGetAddr, showP1(show), byte(ECDSA), data)
	if err != nil {
		return nil, ledger.TransportError(err)
	}

	return parseAddress(rsp, ECDSA)
}

// Sign gets the metadata of blob from the metadata service and signs
// blob with the key of path.
func (a *App) Sign(ctx context.Context, path Path, blob []byte) (Ed25519Signature, error) {
	if a.metadata == nil {
		return nil, ErrNoMetadataService
	}
	if a.chainID == "" {
		return nil, fmt.Errorf("no chain id: %w", ErrInvalidArgument)
	}
	if _, err := path.Serialize(); err != nil {
		return nil, err
	}
	if len(blob) > 0xffff {
		return nil, ErrBlobTooLong
	}

	metadata, err := a.metadata.FetchMetadata(ctx, a.chainID, blob)
	if err != nil {
		return nil, fmt.Errorf("FetchMetadata: %w", err)
	}

	return a.SignWithMetadata(path, blob, metadata)
}

// SignWithMetadata signs blob with the key of path, using the
// caller's metadata.
func (a *App) SignWithMetadata(path Path, blob, metadata []byte) (Ed25519Signature, error) {
	sig, err := a.sign(insSign, ED25519, path, blob, metadata)
	if err != nil {
		return nil, err
	}

	return Ed25519Signature(sig), nil
}

// SignRaw signs arbitrary bytes. The app shows them instead of a
// decoded transaction.
func (a *App) SignRaw(path Path, blob []byte) (Ed25519Signature, error) {
	sig, err := a.sign(insSignRaw, ED25519, path, blob, nil)
	if err != nil {
		return nil, err
	}

	return Ed25519Signature(sig), nil
}

// SignECDSA is SignWithMetadata for an ECDSA key.
func (a *App) SignECDSA(path Path, blob, metadata []byte) (*EcdsaSignature, error) {
	sig, err := a.sign(insSign, ECDSA, path, blob, metadata)
	if err != nil {
		return nil, err
	}

	return ParseEcdsaSignature(sig)
}

// SignRawECDSA is SignRaw for an ECDSA key.
func (a *App) SignRawECDSA(path Path, blob []byte) (*EcdsaSignature, error) {
	sig, err := a.sign(insSignRaw, ECDSA, path, blob, nil)
	if err != nil {
		return nil, err
	}

	return ParseEcdsaSignature(sig)
}

// sign runs the signing command. The INIT chunk holds the path and
// the length of blob, which tells the app where the metadata starts.
func (a *App) sign(ins byte, scheme Scheme, path Path, blob, metadata []byte) ([]byte, error) {
	header, err := path.Serialize()
	if err != nil {
		return nil, err
	}
	if len(blob) > 0xffff {
		return nil, ErrBlobTooLong
	}
	header = binary.LittleEndian.AppendUint16(header, uint16(len(blob)))

	body := make([]byte, 0, len(blob)+len(metadata))
	body = append(body, blob...)
	body = append(body, metadata...)

	cmd := chunkedCommand{
		cla:          a.cla,
		ins:          ins,
		p2:           byte(scheme),
		header:       header,
		body:         body,
		messageCodes: genericMessageCodes,
	}

	return cmd.run(a.t)
}

func getVersion(t Transport, cla byte) (*Version, error) {
	rsp, err := t.Send(cla, insGetVersion, 0, 0, nil)
	if err != nil {
		return nil, ledger.TransportError(err)
	}

	return parseVersion(rsp)
}

func appInfo(t Transport) (*AppInfo, error) {
	rsp, err := t.Send(claAppInfo, insAppInfo, 0, 0, nil)
	if err != nil {
		return nil, ledger.TransportError(err)
	}

	return parseAppInfo(rsp)
}

func showP1(show bool) byte {
	if show {
		return p1Show
	}
	return p1Retrieve
}
