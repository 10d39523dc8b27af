// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const ErrInvalidPath = constError("invalid derivation path")

const (
	Hardened   uint32 = 0x80000000
	PathLength        = 5
	Purpose    uint32 = Hardened | 44
)

// Path is a BIP44 style derivation path:
//
//	purpose / coin type / account / change / address index
//
// Hardened components have the top bit set.
type Path []uint32

// NewLegacyPath returns the path m/44'/slip0044/account/change/index.
// slip0044 is used as is, so it should normally have the hardened bit
// set. The other components must fit in 32 bits, hardened bit
// included.
func NewLegacyPath(slip0044 uint32, account, change, addressIndex int64) (Path, error) {
	for _, v := range []int64{account, change, addressIndex} {
		if v < 0 || v > math.MaxUint32 {
			return nil, fmt.Errorf("path component %d: %w", v, ErrInvalidArgument)
		}
	}

	return Path{Purpose, slip0044, uint32(account), uint32(change), uint32(addressIndex)}, nil
}

// ParsePath parses a path in BIP32 notation, like
// m/44'/354'/0'/0'/0'. Hardened components are marked with ', h or H.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != PathLength+1 || parts[0] != "m" {
		return nil, fmt.Errorf("%q: %w", s, ErrInvalidPath)
	}

	path := make(Path, 0, PathLength)
	for _, part := range parts[1:] {
		var hardened bool
		if trimmed := strings.TrimRight(part, "'hH"); trimmed != part {
			if len(part)-len(trimmed) != 1 {
				return nil, fmt.Errorf("%q: %w", s, ErrInvalidPath)
			}
			hardened = true
			part = trimmed
		}

		v, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrInvalidPath)
		}

		c := uint32(v)
		if hardened {
			c |= Hardened
		}
		path = append(path, c)
	}

	return path, nil
}

// Serialize encodes the path as the app wants it, 4 bytes
// little-endian per component.
func (p Path) Serialize() ([]byte, error) {
	if len(p) != PathLength {
		return nil, fmt.Errorf("%d components: %w", len(p), ErrInvalidPath)
	}

	buf := make([]byte, 4*PathLength)
	for i, c := range p {
		binary.LittleEndian.PutUint32(buf[4*i:], c)
	}

	return buf, nil
}

// DecodePath is the inverse of Serialize.
func DecodePath(buf []byte) (Path, error) {
	if len(buf) != 4*PathLength {
		return nil, fmt.Errorf("%d bytes: %w", len(buf), ErrInvalidPath)
	}

	path := make(Path, PathLength)
	for i := range path {
		path[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}

	return path, nil
}

func (p Path) String() string {
	var sb strings.Builder

	sb.WriteString("m")
	for _, c := range p {
		sb.WriteString("/")
		sb.WriteString(strconv.FormatUint(uint64(c&^Hardened), 10))
		if c&Hardened != 0 {
			sb.WriteString("'")
		}
	}

	return sb.String()
}
