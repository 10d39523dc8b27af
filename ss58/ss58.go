// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

// Package ss58 encodes and decodes the SS58 addresses used by
// Substrate based networks:
//
//	base58(prefix || public key || checksum)
//
// where the checksum is the first two bytes of
// BLAKE2b-512("SS58PRE" || prefix || public key). Prefixes below 64
// take one byte, prefixes up to 16383 two.
package ss58

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

type constError string

func (err constError) Error() string {
	return string(err)
}

const (
	ErrInvalidPublicKey = constError("public key is not 32 bytes")
	ErrInvalidPrefix    = constError("SS58 prefix out of range")
	ErrInvalidAddress   = constError("invalid SS58 address")
	ErrInvalidChecksum  = constError("SS58 checksum mismatch")
)

const (
	MaxPrefix      = 16383
	checksumLen    = 2
	simplePrefixes = 64
)

var checksumPrefix = []byte("SS58PRE")

// Encode returns the address of pubkey on the network with prefix.
func Encode(prefix uint16, pubkey []byte) (string, error) {
	if len(pubkey) != ed25519.PublicKeySize {
		return "", ErrInvalidPublicKey
	}

	ident, err := encodePrefix(prefix)
	if err != nil {
		return "", err
	}

	data := make([]byte, 0, len(ident)+len(pubkey)+checksumLen)
	data = append(data, ident...)
	data = append(data, pubkey...)
	data = append(data, checksum(data)...)

	return base58.Encode(data), nil
}

// Decode returns the network prefix and the public key of addr,
// after verifying the checksum.
func Decode(addr string) (uint16, []byte, error) {
	data := base58.Decode(addr)
	if len(data) == 0 {
		return 0, nil, ErrInvalidAddress
	}

	prefix, n, err := decodePrefix(data)
	if err != nil {
		return 0, nil, err
	}

	if len(data) != n+ed25519.PublicKeySize+checksumLen {
		return 0, nil, fmt.Errorf("%d bytes: %w", len(data), ErrInvalidAddress)
	}

	body := data[:len(data)-checksumLen]
	if !bytes.Equal(checksum(body), data[len(body):]) {
		return 0, nil, ErrInvalidChecksum
	}

	pubkey := make([]byte, ed25519.PublicKeySize)
	copy(pubkey, body[n:])

	return prefix, pubkey, nil
}

func checksum(data []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPrefix)
	h.Write(data)
	return h.Sum(nil)[:checksumLen]
}

// encodePrefix packs prefixes 64 and up into two bytes: the six
// middle bits in the first byte, marked with 0b01 on top, then the
// two low bits and the six high bits in the second.
func encodePrefix(prefix uint16) ([]byte, error) {
	switch {
	case prefix < simplePrefixes:
		return []byte{byte(prefix)}, nil
	case prefix <= MaxPrefix:
		return []byte{
			byte((prefix&0xfc)>>2) | 0x40,
			byte(prefix>>8) | byte(prefix&0x03)<<6,
		}, nil
	default:
		return nil, fmt.Errorf("%d: %w", prefix, ErrInvalidPrefix)
	}
}

func decodePrefix(data []byte) (uint16, int, error) {
	switch {
	case data[0] < simplePrefixes:
		return uint16(data[0]), 1, nil
	case data[0] < 0x80:
		if len(data) < 2 {
			return 0, 0, ErrInvalidAddress
		}
		lower := data[0]<<2 | data[1]>>6
		upper := data[1] & 0x3f
		return uint16(lower) | uint16(upper)<<8, 2, nil
	default:
		return 0, 0, fmt.Errorf("prefix byte 0x%02x: %w", data[0], ErrInvalidPrefix)
	}
}
