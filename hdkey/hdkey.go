// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

// Package hdkey derives the Ed25519 keys of a Ledger Substrate app
// from the BIP39 mnemonic of the device, without the device. Use it
// like this:
//
//	key, err := hdkey.Derive(mnemonic, "", []uint32{
//		0x8000002c, 0x80000162, 0x80000000, 0x80000000, 0x80000000,
//	})
//	addr, err := key.Address(0)
//
// The root key is made from the seed as in SLIP-0010, the children
// are derived as in BIP32-Ed25519 (Khovratovich and Law).
package hdkey

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/holiman/uint256"
	"github.com/tillitis/substrate-ledger/ss58"
	"github.com/tyler-smith/go-bip39"
)

type constError string

func (err constError) Error() string {
	return string(err)
}

const (
	ErrInvalidMnemonic    = constError("invalid mnemonic")
	ErrInvalidPath        = constError("derivation path must have 5 components")
	ErrRootKeyUnavailable = constError("no usable root key for seed")
)

const (
	Hardened   uint32 = 0x80000000
	PathLength        = 5

	// The root key is rehashed while bit 5 of the last byte of kL is
	// set. Each try succeeds with probability 1/2.
	maxRootAttempts = 1000
)

var seedKey = []byte("ed25519 seed")

// Key is a derived key pair. Private is the kL half of the extended
// private key. It is also the seed of the Ed25519 key the device
// signs with.
type Key struct {
	Private [32]byte
	Public  ed25519.PublicKey
}

// Address returns the SS58 address of the key on the network with
// prefix.
func (k *Key) Address(prefix uint16) (string, error) {
	addr, err := ss58.Encode(prefix, k.Public)
	if err != nil {
		return "", fmt.Errorf("Encode: %w", err)
	}
	return addr, nil
}

// SigningKey returns the Ed25519 private key.
func (k *Key) SigningKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.Private[:])
}

// Derive derives the key of path from mnemonic and passphrase. path
// is the full BIP44 path, purpose included.
func Derive(mnemonic, passphrase string, path []uint32) (*Key, error) {
	if len(path) != PathLength {
		return nil, ErrInvalidPath
	}

	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, passphrase)

	node, err := NewRootNode(seed)
	if err != nil {
		return nil, err
	}

	for _, index := range path {
		node, err = node.Child(index)
		if err != nil {
			return nil, fmt.Errorf("Child %#x: %w", index, err)
		}
	}

	return node.Key(), nil
}

// Node is an extended private key with its chain code.
type Node struct {
	kL        [32]byte
	kR        [32]byte
	chainCode [32]byte
}

// NewRootNode makes the root node of seed.
func NewRootNode(seed []byte) (*Node, error) {
	var n Node

	c := hmacSHA256(seedKey, []byte{0x01}, seed)
	copy(n.chainCode[:], c)

	i := hmacSHA512(seedKey, seed)
	for attempts := 1; i[31]&0x20 != 0; attempts++ {
		if attempts == maxRootAttempts {
			return nil, ErrRootKeyUnavailable
		}
		i = hmacSHA512(seedKey, i)
	}

	copy(n.kL[:], i[:32])
	copy(n.kR[:], i[32:])

	n.kL[0] &= 248
	n.kL[31] &= 127
	n.kL[31] |= 64

	return &n, nil
}

// Child derives the child node with index. Indexes with the Hardened
// bit set use the private key, others the public key.
func (n *Node) Child(index uint32) (*Node, error) {
	data := make([]byte, 0, 1+64+4)
	if index&Hardened != 0 {
		data = append(data, 0x00)
		data = append(data, n.kL[:]...)
		data = append(data, n.kR[:]...)
	} else {
		a, err := scalarBaseMult(n.kL)
		if err != nil {
			return nil, err
		}
		data = append(data, 0x02)
		data = append(data, a...)
	}
	data = binary.LittleEndian.AppendUint32(data, index)

	z := hmacSHA512(n.chainCode[:], data)
	data[0]++
	cc := hmacSHA512(n.chainCode[:], data)

	var child Node

	// kL + 8 * first 28 bytes of zL, kR + zR
	zl := leUint256(z[:28])
	zl.Lsh(zl, 3)
	child.kL = leBytes32(zl.Add(zl, leUint256(n.kL[:])))

	zr := leUint256(z[32:])
	child.kR = leBytes32(zr.Add(zr, leUint256(n.kR[:])))

	copy(child.chainCode[:], cc[32:])

	return &child, nil
}

// Key returns the key pair of the node.
func (n *Node) Key() *Key {
	k := &Key{Private: n.kL}
	k.Public = k.SigningKey().Public().(ed25519.PublicKey)
	return k
}

// scalarBaseMult returns kL * B, kL taken modulo the group order.
func scalarBaseMult(kL [32]byte) ([]byte, error) {
	var wide [64]byte
	copy(wide[:], kL[:])

	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return nil, fmt.Errorf("SetUniformBytes: %w", err)
	}

	return new(edwards25519.Point).ScalarBaseMult(s).Bytes(), nil
}

// leUint256 reads a little-endian number of up to 32 bytes.
func leUint256(le []byte) *uint256.Int {
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	return new(uint256.Int).SetBytes(be)
}

// leBytes32 writes x as 32 bytes little-endian.
func leBytes32(x *uint256.Int) [32]byte {
	be := x.Bytes32()

	var le [32]byte
	for i, b := range be {
		le[31-i] = b
	}
	return le
}

func hmacSHA256(key []byte, data ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, d := range data {
		mac.Write(d)
	}
	return mac.Sum(nil)
}

func hmacSHA512(key []byte, data ...[]byte) []byte {
	mac := hmac.New(sha512.New, key)
	for _, d := range data {
		mac.Write(d)
	}
	return mac.Sum(nil)
}
