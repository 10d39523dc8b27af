// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillitis/substrate-ledger/ledger"
)

func TestGetVersion16(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000, 0x01, 0x00, 0x64, 0x00, 0x0a, 0x00, 0x03, 0x01, 0x33, 0x10, 0x00, 0x04),
	}}
	app := New(ft)

	v, err := app.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, &Version{
		TestMode: true,
		Major:    100,
		Minor:    10,
		Patch:    3,
		Locked:   true,
		TargetID: 0x33100004,
	}, v)
	assert.Equal(t, "100.10.3", v.String())

	assert.Equal(t, PolkadotCLA, ft.sent[0].cla)
	assert.Equal(t, insGetVersion, ft.sent[0].ins)
}

func TestGetVersion32(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000,
			0x00,
			0x00, 0x01, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x02,
			0x00, 0x00, 0x01, 0x00,
			0x00,
			0x31, 0x10, 0x00, 0x04),
	}}
	app := New(ft)

	v, err := app.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, &Version{
		Major:    0x10000,
		Minor:    2,
		Patch:    0x100,
		TargetID: 0x31100004,
	}, v)
}

func TestGetVersionWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 11, 13, 17, 19, 30} {
		ft := &fakeTransport{responses: [][]byte{reply(0x9000, seq(n)...)}}
		app := New(ft)

		v, err := app.GetVersion()
		assert.Nil(t, v)

		var rerr *ledger.ResponseError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, ledger.StatusDataInvalid, rerr.ReturnCode)
		assert.Equal(t, "Data is invalid", rerr.Message)
	}
}

func TestGetVersionDeviceError(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{reply(0x6d00, seq(12)...)}}
	app := New(ft)

	_, err := app.GetVersion()
	assert.ErrorIs(t, err, ledger.NewResponseError(ledger.StatusInstructionNotSupported))
}

func TestGetVersionTransportFailure(t *testing.T) {
	ft := &fakeTransport{failAt: 1, err: errors.New("timeout")}
	app := New(ft)

	_, err := app.GetVersion()
	assert.ErrorIs(t, err, ledger.NewResponseError(ledger.StatusTransportFailure))
}

func appInfoResponse(name, version string, flagLen, flags byte) []byte {
	payload := []byte{0x01, byte(len(name))}
	payload = append(payload, name...)
	payload = append(payload, byte(len(version)))
	payload = append(payload, version...)
	payload = append(payload, flagLen, flags)
	return reply(0x9000, payload...)
}

func TestAppInfo(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		appInfoResponse("Polkadot", "100.0.5", 1, 0x8d),
	}}
	app := New(ft)

	info, err := app.AppInfo()
	require.NoError(t, err)
	assert.Equal(t, &AppInfo{
		Name:          "Polkadot",
		Version:       "100.0.5",
		FlagLen:       1,
		Flags:         0x8d,
		Recovery:      true,
		Onboarded:     true,
		IssuerTrusted: true,
		PINValidated:  true,
	}, info)

	assert.Equal(t, claAppInfo, ft.sent[0].cla)
	assert.Equal(t, insAppInfo, ft.sent[0].ins)
}

func TestAppInfoAllFlags(t *testing.T) {
	info, err := parseAppInfo(appInfoResponse("App", "1", 1, 0xff))
	require.NoError(t, err)
	assert.True(t, info.Recovery)
	assert.True(t, info.SignedMCUCode)
	assert.True(t, info.Onboarded)
	assert.True(t, info.IssuerTrusted)
	assert.True(t, info.CustomCATrusted)
	assert.True(t, info.HSMInitialized)
	assert.True(t, info.FactoryFilled)
	assert.True(t, info.PINValidated)
}

func TestAppInfoBadFormat(t *testing.T) {
	_, err := parseAppInfo(reply(0x9000, 0x02, 0x00))

	var rerr *ledger.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, StatusAppInfoFormat, rerr.ReturnCode)
	assert.Equal(t, "response format ID not recognized", rerr.Message)

	_, err = parseAppInfo(reply(0x9000))
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, StatusAppInfoFormat, rerr.ReturnCode)
}

func TestAppInfoOverlong(t *testing.T) {
	info, err := parseAppInfo(reply(0x9000, 0x01, 0x20, 'a', 'b'))
	require.NoError(t, err)
	assert.Equal(t, "err", info.Name)
	assert.Equal(t, "err", info.Version)

	info, err = parseAppInfo(reply(0x9000, 0x01, 0x02, 'a', 'b', 0x09, '1'))
	require.NoError(t, err)
	assert.Equal(t, "ab", info.Name)
	assert.Equal(t, "err", info.Version)
	assert.Zero(t, info.Flags)
}

func TestAppInfoDeviceError(t *testing.T) {
	_, err := parseAppInfo(reply(0x6e01))
	assert.ErrorIs(t, err, ledger.NewResponseError(ledger.StatusAppNotOpen))
}

func TestAddressECDSAPublicKey(t *testing.T) {
	_, pub := btcec.PrivKeyFromBytes(seq(32)[1:])
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000, append(pub.SerializeCompressed(), seq(20)...)...),
		reply(0x9000, append(seq(32), []byte("5C4hrfjw9DjXZTzV3MwzrrAr9P1MJhSrvWGWqi1eSuyUpnhM")...)...),
	}}
	app := New(ft)

	addr, err := app.GetAddressECDSA(testPath, false)
	require.NoError(t, err)
	got, err := addr.ECDSAPublicKey()
	require.NoError(t, err)
	assert.True(t, pub.IsEqual(got))

	addr.PubKey = append([]byte{0x05}, addr.PubKey[1:]...)
	_, err = addr.ECDSAPublicKey()
	assert.Error(t, err)

	ed, err := app.GetAddress(testPath, 42, false)
	require.NoError(t, err)
	_, err = ed.ECDSAPublicKey()
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
