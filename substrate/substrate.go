// Copyright (C) 2022, 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

// Package substrate speaks the protocol of the Substrate apps running
// on a Ledger. You're expected to pass an existing connection to it,
// so use it like this:
//
//	dev, err := ledger.OpenHID(path)
//	l := ledger.New(dev)
//	app := substrate.New(l, substrate.WithChainID("dot"),
//		substrate.WithMetadataService(substrate.NewMetadataClient(url)))
//
// Then use it like this to get the address of an account:
//
//	path, err := substrate.ParsePath("m/44'/354'/0'/0'/0'")
//	addr, err := app.GetAddress(path, 0, false)
//
// And like this to sign a transaction:
//
//	signature, err := app.Sign(ctx, path, blob)
//
// The per-chain apps that came before the generic Polkadot app are
// handled by LegacyApp.
package substrate

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tillitis/substrate-ledger/ledger"
)

var le = log.New(os.Stderr, "", 0)

// SilenceLogging silences this package and the ledger package.
func SilenceLogging() {
	le.SetOutput(io.Discard)
	ledger.SilenceLogging()
}

type constError string

func (err constError) Error() string {
	return string(err)
}

const (
	ErrInvalidArgument    = constError("invalid argument")
	ErrUnsupportedScheme  = constError("scheme not supported")
	ErrNoMetadataService  = constError("no metadata service configured")
	ErrBlobTooLong        = constError("transaction blob longer than 65535 bytes")
	ErrInvalidEcdsaLength = constError("Invalid ECDSA signature length")
)

// ChunkSize is the largest payload sent in one signing command.
const ChunkSize = 250

const (
	insGetVersion byte = 0x00
	insGetAddr    byte = 0x01
	insSign       byte = 0x02
	insSignRaw    byte = 0x03

	insAllowlistGetPubKey byte = 0x90
	insAllowlistSetPubKey byte = 0x91
	insAllowlistGetHash   byte = 0x92
	insAllowlistUpload    byte = 0x93
)

// App info is answered by the Ledger OS, whatever app is open.
const (
	claAppInfo byte = 0xb0
	insAppInfo byte = 0x01
)

const (
	p1Retrieve byte = 0x00
	p1Show     byte = 0x01
)

const (
	PolkadotCLA      byte   = 0x90
	PolkadotSlip0044 uint32 = 0x80000162
)

// PayloadType tells the app where in a chunked command a chunk
// belongs. It is sent as P1.
type PayloadType byte

const (
	PayloadInit PayloadType = 0x00
	PayloadAdd  PayloadType = 0x01
	PayloadLast PayloadType = 0x02
)

// Scheme is the signature algorithm. It is sent as P2.
type Scheme byte

const (
	ED25519 Scheme = 0x00
	SR25519 Scheme = 0x01 // Deprecated: no longer supported by the apps.
	ECDSA   Scheme = 0x02
)

func (s Scheme) String() string {
	switch s {
	case ED25519:
		return "ed25519"
	case SR25519:
		return "sr25519"
	case ECDSA:
		return "ecdsa"
	default:
		return fmt.Sprintf("scheme(%d)", byte(s))
	}
}

// pubKeyLen is the length of the public key the app returns in front
// of the address.
func (s Scheme) pubKeyLen() int {
	if s == ECDSA {
		return 33
	}
	return 32
}

// Transport sends one command and returns the whole response, status
// word included. *ledger.Ledger is a Transport.
type Transport interface {
	Send(cla, ins, p1, p2 byte, data []byte) ([]byte, error)
}

var _ Transport = (*ledger.Ledger)(nil)

// App is a connection to the generic Polkadot app, or to one of the
// migration apps speaking the same protocol.
type App struct {
	t        Transport
	cla      byte
	slip0044 uint32
	chainID  string
	metadata MetadataFetcher
}

// New allocates a struct for talking to the generic Polkadot app.
// Pass options like WithChainID() and WithMetadataService() to be
// able to use Sign().
func New(t Transport, options ...func(*App)) *App {
	app := &App{
		t:        t,
		cla:      PolkadotCLA,
		slip0044: PolkadotSlip0044,
	}

	for _, opt := range options {
		opt(app)
	}

	return app
}

// NewMigrationApp is like New() but talks to an app with its own CLA
// and SLIP-0044 coin type.
func NewMigrationApp(t Transport, cla byte, slip0044 uint32, options ...func(*App)) *App {
	opts := make([]func(*App), 0, len(options)+2)
	opts = append(opts, options...)
	opts = append(opts, WithCLA(cla), WithSlip0044(slip0044))

	return New(t, opts...)
}

// WithCLA sets the CLA byte of the app.
func WithCLA(cla byte) func(*App) {
	return func(a *App) {
		a.cla = cla
	}
}

// WithSlip0044 sets the coin type used by NewPath().
func WithSlip0044(slip0044 uint32) func(*App) {
	return func(a *App) {
		a.slip0044 = slip0044
	}
}

// WithChainID sets the chain id sent to the metadata service.
func WithChainID(id string) func(*App) {
	return func(a *App) {
		a.chainID = id
	}
}

// WithMetadataService sets where Sign() gets the transaction metadata
// from.
func WithMetadataService(m MetadataFetcher) func(*App) {
	return func(a *App) {
		a.metadata = m
	}
}

// Slip0044 returns the coin type used as second path component.
func (a *App) Slip0044() uint32 {
	return a.slip0044
}

// NewPath returns the path m/44'/<coin type>/account/change/index for
// this app.
func (a *App) NewPath(account, change, addressIndex int64) (Path, error) {
	return NewLegacyPath(a.slip0044, account, change, addressIndex)
}
