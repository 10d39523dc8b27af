// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillitis/substrate-ledger/ledger"
)

var testPath = Path{Purpose, PolkadotSlip0044, Hardened, Hardened, Hardened}

type fakeMetadata struct {
	chainID  string
	blob     []byte
	metadata []byte
	err      error
}

func (f *fakeMetadata) FetchMetadata(_ context.Context, chainID string, blob []byte) ([]byte, error) {
	f.chainID = chainID
	f.blob = blob
	return f.metadata, f.err
}

func TestSignChunks(t *testing.T) {
	blob := seq(300)
	metadata := seq(100)
	sig := append([]byte{0x00}, seq(64)...)

	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000),
		reply(0x9000),
		reply(0x9000, sig...),
	}}
	app := New(ft)

	got, err := app.SignWithMetadata(testPath, blob, metadata)
	require.NoError(t, err)
	assert.Equal(t, Ed25519Signature(sig), got)

	require.Len(t, ft.sent, 3)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, ft.p1s())
	for _, c := range ft.sent {
		assert.Equal(t, PolkadotCLA, c.cla)
		assert.Equal(t, insSign, c.ins)
		assert.Equal(t, byte(ED25519), c.p2)
	}

	header, err := testPath.Serialize()
	require.NoError(t, err)
	header = append(header, 0x2c, 0x01) // 300, little-endian
	assert.Equal(t, header, ft.sent[0].data)

	body := append(append([]byte{}, blob...), metadata...)
	assert.Equal(t, body[:250], ft.sent[1].data)
	assert.Equal(t, body[250:], ft.sent[2].data)
}

func TestSignRaw(t *testing.T) {
	ft := &fakeTransport{}
	app := New(ft)

	_, err := app.SignRaw(testPath, seq(10))
	require.NoError(t, err)

	require.Len(t, ft.sent, 2)
	assert.Equal(t, insSignRaw, ft.sent[0].ins)
	assert.Equal(t, []byte{0x00, 0x02}, ft.p1s())
	assert.Equal(t, []byte{0x0a, 0x00}, ft.sent[0].data[20:])
	assert.Equal(t, seq(10), ft.sent[1].data)
}

func TestSignEmptyBlobIsSingleChunk(t *testing.T) {
	ft := &fakeTransport{}
	app := New(ft)

	_, err := app.SignRaw(testPath, nil)
	require.NoError(t, err)

	require.Len(t, ft.sent, 1)
	assert.Equal(t, byte(PayloadLast), ft.sent[0].p1)
}

func TestSignAbortsOnError(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000),
		reply(0x6984, []byte("Unexpected field")...),
		reply(0x9000),
	}}
	app := New(ft)

	_, err := app.SignWithMetadata(testPath, seq(600), nil)

	var rerr *ledger.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ledger.StatusDataInvalid, rerr.ReturnCode)
	assert.Equal(t, "Unexpected field", rerr.Message)
	assert.Len(t, ft.sent, 2)
}

func TestSignAbortsOnInitError(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		reply(0x6e01),
	}}
	app := New(ft)

	_, err := app.SignWithMetadata(testPath, seq(600), nil)
	assert.ErrorIs(t, err, ledger.NewResponseError(ledger.StatusAppNotOpen))
	assert.Len(t, ft.sent, 1)
}

func TestSignRejected(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000),
		reply(0x6986),
	}}
	app := New(ft)

	_, err := app.SignRaw(testPath, seq(10))

	var rerr *ledger.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ledger.StatusTransactionRejected, rerr.ReturnCode)
	assert.Equal(t, "Transaction rejected", rerr.Message)
}

func TestSignBadKeyHandleIsNotAMessageInGenericApp(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000),
		reply(0x6a80, []byte("whatever")...),
	}}
	app := New(ft)

	_, err := app.SignRaw(testPath, seq(10))

	var rerr *ledger.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Bad key handle", rerr.Message)
}

func TestSignTransportFailure(t *testing.T) {
	cause := errors.New("device unplugged")
	ft := &fakeTransport{failAt: 2, err: cause}
	app := New(ft)

	_, err := app.SignWithMetadata(testPath, seq(600), nil)

	var rerr *ledger.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ledger.StatusTransportFailure, rerr.ReturnCode)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, ft.sent, 2)
}

func TestSignShortResponse(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{{0x90}}}
	app := New(ft)

	_, err := app.SignRaw(testPath, seq(10))
	assert.ErrorIs(t, err, ledger.ErrResponseTooShort)
	assert.ErrorIs(t, err, ledger.NewResponseError(ledger.StatusTransportFailure))
}

func TestSignValidation(t *testing.T) {
	ft := &fakeTransport{}
	app := New(ft)

	_, err := app.Sign(context.Background(), testPath, seq(10))
	assert.ErrorIs(t, err, ErrNoMetadataService)

	app = New(ft, WithMetadataService(&fakeMetadata{}))
	_, err = app.Sign(context.Background(), testPath, seq(10))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	app = New(ft, WithChainID("dot"), WithMetadataService(&fakeMetadata{}))
	_, err = app.Sign(context.Background(), testPath[:4], seq(10))
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = app.Sign(context.Background(), testPath, make([]byte, 0x10000))
	assert.ErrorIs(t, err, ErrBlobTooLong)

	_, err = app.SignRaw(testPath, make([]byte, 0x10000))
	assert.ErrorIs(t, err, ErrBlobTooLong)

	assert.Empty(t, ft.sent)
}

func TestSignFetchesMetadata(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	blob := seq(40)
	sig := append([]byte{byte(ED25519)}, ed25519.Sign(priv, blob)...)

	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000),
		reply(0x9000, sig...),
	}}
	md := &fakeMetadata{metadata: []byte{0xaa, 0xbb}}
	app := New(ft, WithChainID("dot"), WithMetadataService(md))

	got, err := app.Sign(context.Background(), testPath, blob)
	require.NoError(t, err)
	assert.True(t, got.Verify(pub, blob))

	assert.Equal(t, "dot", md.chainID)
	assert.Equal(t, blob, md.blob)
	assert.Equal(t, append(append([]byte{}, blob...), 0xaa, 0xbb), ft.sent[1].data)
}

func TestSignMetadataError(t *testing.T) {
	ft := &fakeTransport{}
	cause := errors.New("service down")
	app := New(ft, WithChainID("dot"), WithMetadataService(&fakeMetadata{err: cause}))

	_, err := app.Sign(context.Background(), testPath, seq(10))
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, ft.sent)
}

func TestSignECDSA(t *testing.T) {
	sig := seq(65)
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000),
		reply(0x9000, sig...),
	}}
	app := New(ft)

	got, err := app.SignECDSA(testPath, seq(10), seq(5))
	require.NoError(t, err)
	assert.Equal(t, sig, got.Bytes())
	assert.Equal(t, byte(ECDSA), ft.sent[0].p2)
	assert.Equal(t, insSign, ft.sent[0].ins)

	ft = &fakeTransport{responses: [][]byte{
		reply(0x9000),
		reply(0x9000, seq(64)...),
	}}
	app = New(ft)

	_, err = app.SignRawECDSA(testPath, seq(10))
	assert.ErrorIs(t, err, ErrInvalidEcdsaLength)
	assert.Equal(t, insSignRaw, ft.sent[0].ins)
}

func TestGetAddress(t *testing.T) {
	pubkey := seq(32)
	addr := "166wVhuQsKFeb7bd1faydHgVvX1bZU2rUuY7FJmWApNz2fQY"
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000, append(pubkey, addr...)...),
	}}
	app := New(ft)

	got, err := app.GetAddress(testPath, 0x1234, true)
	require.NoError(t, err)
	assert.Equal(t, pubkey, got.PubKey)
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, ED25519, got.Scheme)

	require.Len(t, ft.sent, 1)
	c := ft.sent[0]
	assert.Equal(t, insGetAddr, c.ins)
	assert.Equal(t, p1Show, c.p1)
	assert.Equal(t, byte(0), c.p2)
	assert.Len(t, c.data, 22)
	assert.Equal(t, []byte{0x34, 0x12}, c.data[20:])
}

func TestGetAddressECDSA(t *testing.T) {
	pubkey := append([]byte{0x02}, seq(32)...)
	raw := seq(20)
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000, append(pubkey, raw...)...),
	}}
	app := New(ft)

	got, err := app.GetAddressECDSA(testPath, false)
	require.NoError(t, err)
	assert.Equal(t, pubkey, got.PubKey)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f10111213", got.Address)

	c := ft.sent[0]
	assert.Equal(t, p1Retrieve, c.p1)
	assert.Equal(t, byte(ECDSA), c.p2)
	assert.Len(t, c.data, 20)
}

func TestGetAddressErrors(t *testing.T) {
	ft := &fakeTransport{responses: [][]byte{
		reply(0x9000, seq(31)...),
		reply(0x6e01),
	}}
	app := New(ft)

	_, err := app.GetAddress(testPath, 0, false)
	assert.ErrorIs(t, err, ledger.NewResponseError(ledger.StatusDataInvalid))

	_, err = app.GetAddress(testPath, 0, false)
	assert.ErrorIs(t, err, ledger.NewResponseError(ledger.StatusAppNotOpen))

	_, err = app.GetAddress(Path{Purpose}, 0, false)
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Len(t, ft.sent, 2)
}

func TestMigrationApp(t *testing.T) {
	ft := &fakeTransport{}
	app := NewMigrationApp(ft, 0x99, 0x800001b2)

	path, err := app.NewPath(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x800001b2), path[1])
	assert.Equal(t, uint32(0x800001b2), app.Slip0044())

	_, err = app.SignRaw(path, seq(1))
	require.NoError(t, err)
	assert.Equal(t, byte(0x99), ft.sent[0].cla)
}

func TestMigrationAppOverridesOptions(t *testing.T) {
	ft := &fakeTransport{}
	app := NewMigrationApp(ft, 0x99, 0x800001b2, WithCLA(0x90), WithSlip0044(PolkadotSlip0044))
	assert.Equal(t, uint32(0x800001b2), app.Slip0044())

	app = New(ft, WithCLA(0x9a), WithSlip0044(0x80000253))
	assert.Equal(t, uint32(0x80000253), app.Slip0044())

	_, err := app.GetVersion()
	require.Error(t, err)
	assert.Equal(t, byte(0x9a), ft.sent[0].cla)
}
