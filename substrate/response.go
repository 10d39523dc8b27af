// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tillitis/substrate-ledger/ledger"
)

// StatusAppInfoFormat is the return code used when the app info
// response has a format we don't know.
const StatusAppInfoFormat = ledger.StatusDeviceBusy

type Version struct {
	TestMode bool
	Major    uint32
	Minor    uint32
	Patch    uint32
	Locked   bool
	TargetID uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// parseVersion decodes a GET_VERSION response. Apps answer with
// either 16 or 32 bit version fields:
//
//	test mode | major | minor | patch | locked | target id | status
//	    1     |  2/4  |  2/4  |  2/4  |   1    |     4     |   2
func parseVersion(rsp []byte) (*Version, error) {
	var width int
	switch len(rsp) {
	case 14:
		width = 2
	case 20:
		width = 4
	default:
		return nil, ledger.NewResponseError(ledger.StatusDataInvalid)
	}

	if sw := binary.BigEndian.Uint16(rsp[len(rsp)-2:]); sw != ledger.StatusOK {
		return nil, ledger.NewResponseError(sw)
	}

	field := func(offset int) uint32 {
		if width == 2 {
			return uint32(binary.BigEndian.Uint16(rsp[offset:]))
		}
		return binary.BigEndian.Uint32(rsp[offset:])
	}

	locked := 1 + 3*width

	return &Version{
		TestMode: rsp[0] != 0,
		Major:    field(1),
		Minor:    field(1 + width),
		Patch:    field(1 + 2*width),
		Locked:   rsp[locked] == 1,
		TargetID: binary.BigEndian.Uint32(rsp[locked+1:]),
	}, nil
}

type Address struct {
	Scheme Scheme
	PubKey []byte

	// Address is the SS58 address for ED25519, the hex encoded
	// address for ECDSA.
	Address string
}

// parseAddress decodes a GET_ADDR response: the public key followed
// by the address.
func parseAddress(rsp []byte, scheme Scheme) (*Address, error) {
	payload, sw, err := ledger.SplitResponse(rsp)
	if err != nil {
		return nil, ledger.TransportError(err)
	}
	if sw != ledger.StatusOK {
		return nil, ledger.NewResponseError(sw)
	}

	n := scheme.pubKeyLen()
	if len(payload) < n {
		return nil, ledger.NewResponseError(ledger.StatusDataInvalid)
	}

	addr := &Address{
		Scheme: scheme,
		PubKey: payload[:n],
	}

	if scheme == ECDSA {
		addr.Address = hex.EncodeToString(payload[n:])
	} else {
		addr.Address = string(payload[n:])
	}

	return addr, nil
}

// ECDSAPublicKey parses the compressed secp256k1 public key of an
// ECDSA address.
func (a *Address) ECDSAPublicKey() (*btcec.PublicKey, error) {
	if a.Scheme != ECDSA {
		return nil, ErrUnsupportedScheme
	}

	pub, err := btcec.ParsePubKey(a.PubKey)
	if err != nil {
		return nil, fmt.Errorf("ParsePubKey: %w", err)
	}

	return pub, nil
}

type AppInfo struct {
	Name    string
	Version string
	FlagLen byte
	Flags   byte

	Recovery        bool
	SignedMCUCode   bool
	Onboarded       bool
	IssuerTrusted   bool
	CustomCATrusted bool
	HSMInitialized  bool
	FactoryFilled   bool
	PINValidated    bool
}

// parseAppInfo decodes the app info response of the Ledger OS:
//
//	format (1) | name len | name | version len | version | flags len | flags
//
// A name or version that doesn't fit in the response is reported as
// "err", as are the fields after it.
func parseAppInfo(rsp []byte) (*AppInfo, error) {
	payload, sw, err := ledger.SplitResponse(rsp)
	if err != nil {
		return nil, ledger.TransportError(err)
	}
	if sw != ledger.StatusOK {
		return nil, ledger.NewResponseError(sw)
	}

	if len(payload) == 0 || payload[0] != 1 {
		return nil, &ledger.ResponseError{
			ReturnCode: StatusAppInfoFormat,
			Message:    "response format ID not recognized",
		}
	}

	info := &AppInfo{}

	idx := 1
	field := func() (string, bool) {
		if idx >= len(payload) {
			return "", false
		}
		n := int(payload[idx])
		if idx+1+n > len(payload) {
			return "", false
		}
		s := string(payload[idx+1 : idx+1+n])
		idx += 1 + n
		return s, true
	}

	var ok bool
	if info.Name, ok = field(); !ok {
		info.Name = "err"
		info.Version = "err"
		return info, nil
	}
	if info.Version, ok = field(); !ok {
		info.Version = "err"
		return info, nil
	}

	if idx+1 < len(payload) {
		info.FlagLen = payload[idx]
		info.Flags = payload[idx+1]
	}

	f := info.Flags
	info.Recovery = f&0x01 != 0
	info.SignedMCUCode = f&0x02 != 0
	info.Onboarded = f&0x04 != 0
	info.IssuerTrusted = f&0x08 != 0
	info.CustomCATrusted = f&0x10 != 0
	info.HSMInitialized = f&0x20 != 0
	info.FactoryFilled = f&0x40 != 0
	info.PINValidated = f&0x80 != 0

	return info, nil
}
