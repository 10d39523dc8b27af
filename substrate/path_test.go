// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLegacyPath(t *testing.T) {
	path, err := NewLegacyPath(PolkadotSlip0044, 0x80000000, 0x80000001, 5)
	require.NoError(t, err)
	assert.Equal(t, Path{0x8000002c, 0x80000162, 0x80000000, 0x80000001, 5}, path)

	buf, err := path.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x2c, 0x00, 0x00, 0x80,
		0x62, 0x01, 0x00, 0x80,
		0x00, 0x00, 0x00, 0x80,
		0x01, 0x00, 0x00, 0x80,
		0x05, 0x00, 0x00, 0x00,
	}, buf)

	decoded, err := DecodePath(buf)
	require.NoError(t, err)
	assert.Equal(t, path, decoded)
}

func TestNewLegacyPathInvalid(t *testing.T) {
	for _, v := range []int64{-1, math.MaxUint32 + 1} {
		_, err := NewLegacyPath(PolkadotSlip0044, v, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = NewLegacyPath(PolkadotSlip0044, 0, v, 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = NewLegacyPath(PolkadotSlip0044, 0, 0, v)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}

	_, err := NewLegacyPath(PolkadotSlip0044, math.MaxUint32, 0, 0)
	assert.NoError(t, err)
}

func TestPathRoundTrip(t *testing.T) {
	paths := []Path{
		{0, 0, 0, 0, 0},
		{Purpose, 0x800001b2, 0x80000000, 0x80000000, 0x80000000},
		{math.MaxUint32, 1, 2, 3, math.MaxUint32},
	}
	for _, p := range paths {
		buf, err := p.Serialize()
		require.NoError(t, err)
		require.Len(t, buf, 20)

		got, err := DecodePath(buf)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestSerializeWrongLength(t *testing.T) {
	_, err := Path{Purpose, PolkadotSlip0044}.Serialize()
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = DecodePath(make([]byte, 19))
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestParsePath(t *testing.T) {
	path, err := ParsePath("m/44'/354'/0'/0h/7")
	require.NoError(t, err)
	assert.Equal(t, Path{Purpose, PolkadotSlip0044, Hardened, Hardened, 7}, path)
	assert.Equal(t, "m/44'/354'/0'/0'/7", path.String())

	path, err = ParsePath("m/44H/434'/2147483647'/0/0")
	require.NoError(t, err)
	assert.Equal(t, Path{Purpose, 0x800001b2, math.MaxUint32, 0, 0}, path)
}

func TestParsePathInvalid(t *testing.T) {
	for _, s := range []string{
		"",
		"m",
		"44'/354'/0'/0'/0'",
		"m/44'/354'/0'/0'",
		"m/44'/354'/0'/0'/0'/0'",
		"m/44'/354'/x/0'/0'",
		"m/44'/354'/0''/0'/0'",
		"m/44'/354'/-1/0'/0'",
		"m/44'/354'/2147483648/0'/0'",
		"m/44'//0'/0'/0'",
	} {
		_, err := ParsePath(s)
		assert.ErrorIs(t, err, ErrInvalidPath, "%q", s)
	}
}
