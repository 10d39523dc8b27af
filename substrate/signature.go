// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"crypto/ed25519"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/blake2b"
)

// Signature is what a signing command returns: Ed25519Signature or
// *EcdsaSignature.
type Signature interface {
	Scheme() Scheme
	Bytes() []byte
}

// Payloads longer than this are signed as their BLAKE2b-256 hash.
const maxUnhashedPayload = 256

// Ed25519Signature is the signature as returned by the app: a scheme
// tag byte followed by the 64 byte signature. Legacy apps use the same
// layout for SR25519.
type Ed25519Signature []byte

// Scheme returns the scheme of the tag byte.
func (s Ed25519Signature) Scheme() Scheme {
	if len(s) == 0 {
		return ED25519
	}
	return Scheme(s[0])
}

func (s Ed25519Signature) Bytes() []byte {
	return s
}

// Verify checks the signature over payload, the signed transaction
// blob.
func (s Ed25519Signature) Verify(pub ed25519.PublicKey, payload []byte) bool {
	if len(s) != 1+ed25519.SignatureSize || Scheme(s[0]) != ED25519 {
		return false
	}
	if len(pub) != ed25519.PublicKeySize {
		return false
	}

	if len(payload) > maxUnhashedPayload {
		h := blake2b.Sum256(payload)
		payload = h[:]
	}

	return ed25519.Verify(pub, payload, s[1:])
}

// EcdsaSignature is a secp256k1 signature with the recovery id.
type EcdsaSignature struct {
	R [32]byte
	S [32]byte
	V byte
}

// ParseEcdsaSignature splits the 65 byte r || s || v signature.
func ParseEcdsaSignature(buf []byte) (*EcdsaSignature, error) {
	if len(buf) != 65 {
		return nil, ErrInvalidEcdsaLength
	}

	var sig EcdsaSignature
	copy(sig.R[:], buf[0:32])
	copy(sig.S[:], buf[32:64])
	sig.V = buf[64]

	return &sig, nil
}

func (s *EcdsaSignature) Scheme() Scheme {
	return ECDSA
}

func (s *EcdsaSignature) Bytes() []byte {
	buf := make([]byte, 0, 65)
	buf = append(buf, s.R[:]...)
	buf = append(buf, s.S[:]...)
	return append(buf, s.V)
}

// Verify checks that the signature over payload was made by pub.
// Payloads are shortened as for Ed25519Signature.Verify(), then the
// BLAKE2b-256 hash is signed.
func (s *EcdsaSignature) Verify(pub *btcec.PublicKey, payload []byte) bool {
	if pub == nil {
		return false
	}
	if len(payload) > maxUnhashedPayload {
		h := blake2b.Sum256(payload)
		payload = h[:]
	}
	hash := blake2b.Sum256(payload)
	got, err := s.RecoverPublicKey(hash[:])
	if err != nil {
		return false
	}
	return got.IsEqual(pub)
}

// RecoverPublicKey returns the public key that made the signature
// over hash.
func (s *EcdsaSignature) RecoverPublicKey(hash []byte) (*btcec.PublicKey, error) {
	recID := s.V
	if recID >= 27 {
		recID -= 27
	}
	if recID > 3 {
		return nil, fmt.Errorf("recovery id %d: %w", s.V, ErrInvalidArgument)
	}

	// btcec wants the recovery code first, flagged for a compressed
	// key.
	compact := make([]byte, 0, 65)
	compact = append(compact, 27+4+recID)
	compact = append(compact, s.R[:]...)
	compact = append(compact, s.S[:]...)

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, fmt.Errorf("RecoverCompact: %w", err)
	}

	return pub, nil
}
