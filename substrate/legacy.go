// Copyright (C) 2022, 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"context"

	"github.com/tillitis/substrate-ledger/ledger"
)

// legacy app status words where the payload is a message from the
// app.
var legacyMessageCodes = []uint16{ledger.StatusDataInvalid, ledger.StatusBadKeyHandle}

// LegacyApp is a connection to one of the per-chain apps that came
// before the generic Polkadot app. Paths are always
// m/44'/<coin type>/account/change/index and the scheme goes in P2.
type LegacyApp struct {
	t        Transport
	cla      byte
	slip0044 uint32
}

func NewLegacyApp(t Transport, cla byte, slip0044 uint32) *LegacyApp {
	return &LegacyApp{
		t:        t,
		cla:      cla,
		slip0044: slip0044,
	}
}

// NewLegacyAppByName returns a LegacyApp for the chain name in Chains.
func NewLegacyAppByName(t Transport, name string) (*LegacyApp, error) {
	chain, err := LookupChain(name)
	if err != nil {
		return nil, err
	}

	return NewLegacyApp(t, chain.CLA, chain.Slip0044), nil
}

func (l *LegacyApp) GetVersion() (*Version, error) {
	return getVersion(l.t, l.cla)
}

func (l *LegacyApp) AppInfo() (*AppInfo, error) {
	return appInfo(l.t)
}

// GetAddress gets the public key and address of
// m/44'/<coin type>/account/change/addressIndex.
func (l *LegacyApp) GetAddress(account, change, addressIndex int64, show bool, scheme Scheme) (*Address, error) {
	path, err := NewLegacyPath(l.slip0044, account, change, addressIndex)
	if err != nil {
		return nil, err
	}
	data, err := path.Serialize()
	if err != nil {
		return nil, err
	}

	rsp, err := l.t.Send(l.cla, insGetAddr, showP1(show), byte(scheme), data)
	if err != nil {
		return nil, ledger.TransportError(err)
	}

	return parseAddress(rsp, scheme)
}

// Sign signs message. The signature is an *EcdsaSignature for ECDSA,
// otherwise an Ed25519Signature holding whatever the app returned.
func (l *LegacyApp) Sign(account, change, addressIndex int64, message []byte, scheme Scheme) (Signature, error) {
	path, err := NewLegacyPath(l.slip0044, account, change, addressIndex)
	if err != nil {
		return nil, err
	}
	header, err := path.Serialize()
	if err != nil {
		return nil, err
	}

	cmd := chunkedCommand{
		cla:          l.cla,
		ins:          insSign,
		p2:           byte(scheme),
		header:       header,
		body:         message,
		messageCodes: legacyMessageCodes,
	}

	sig, err := cmd.run(l.t)
	if err != nil {
		return nil, err
	}

	if scheme == ECDSA {
		return ParseEcdsaSignature(sig)
	}

	return Ed25519Signature(sig), nil
}

// LegacyAdapter gives the account/change/index interface of LegacyApp
// on top of the generic app, for callers not yet using paths. Only
// ED25519 is supported.
type LegacyAdapter struct {
	app        *App
	ss58Prefix uint16
}

func NewLegacyAdapter(app *App, ss58Prefix uint16) *LegacyAdapter {
	return &LegacyAdapter{
		app:        app,
		ss58Prefix: ss58Prefix,
	}
}

func (l *LegacyAdapter) GetVersion() (*Version, error) {
	return l.app.GetVersion()
}

func (l *LegacyAdapter) AppInfo() (*AppInfo, error) {
	return l.app.AppInfo()
}

func (l *LegacyAdapter) GetAddress(account, change, addressIndex int64, show bool, scheme Scheme) (*Address, error) {
	if scheme != ED25519 {
		return nil, ErrUnsupportedScheme
	}

	path, err := l.app.NewPath(account, change, addressIndex)
	if err != nil {
		return nil, err
	}

	return l.app.GetAddress(path, l.ss58Prefix, show)
}

func (l *LegacyAdapter) Sign(ctx context.Context, account, change, addressIndex int64, blob []byte, scheme Scheme) (Ed25519Signature, error) {
	if scheme != ED25519 {
		return nil, ErrUnsupportedScheme
	}

	path, err := l.app.NewPath(account, change, addressIndex)
	if err != nil {
		return nil, err
	}

	return l.app.Sign(ctx, path, blob)
}

func (l *LegacyAdapter) SignRaw(account, change, addressIndex int64, blob []byte, scheme Scheme) (Ed25519Signature, error) {
	if scheme != ED25519 {
		return nil, ErrUnsupportedScheme
	}

	path, err := l.app.NewPath(account, change, addressIndex)
	if err != nil {
		return nil, err
	}

	return l.app.SignRaw(path, blob)
}
