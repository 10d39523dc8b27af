// SPDX-FileCopyrightText: 2022 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tillitis/substrate-ledger/ledger"
	"github.com/tillitis/substrate-ledger/substrate"
	"github.com/tillitis/tkeyutil"
)

// Use when printing err/diag msgs
var le = log.New(os.Stderr, "", 0)

const progname = "substrate-ledger"

var version string

type DeviceConfig struct {
	Path    string
	Chain   string
	Verbose bool
}

type KeyConfig struct {
	Path       string
	Account    int64
	Change     int64
	Index      int64
	SS58Prefix uint16
	ECDSA      bool
	Show       bool
}

type MetadataConfig struct {
	File    string
	URL     string
	ChainID string
}

func main() {
	exit := func(code int) {
		os.Exit(code)
	}

	if version == "" {
		version = readBuildInfo()
	}

	var dev DeviceConfig
	var key KeyConfig
	var meta MetadataConfig
	var signFile string
	var raw bool
	var listOnly, addressOnly, appVersionOnly, appInfoOnly, versionOnly, helpOnly bool

	pflag.CommandLine.SetOutput(os.Stderr)
	pflag.CommandLine.SortFlags = false
	pflag.BoolVarP(&listOnly, "list-devices", "L", false,
		"List Ledger devices to use with --device.")
	pflag.StringVar(&dev.Path, "device", "",
		"Set HID device `PATH`. If this is not passed, auto-detection will be attempted.")
	pflag.StringVar(&dev.Chain, "chain", "",
		"Talk to the legacy app of `NAME` (e.g. Kusama) instead of the generic Polkadot app.")
	pflag.BoolVarP(&addressOnly, "address", "a", false,
		"Output the public key and address of the key.")
	pflag.BoolVar(&key.Show, "show", false,
		"Show the address on the device and wait for the user to confirm it.")
	pflag.StringVar(&key.Path, "path", "",
		"Use the derivation `PATH`, e.g. m/44'/354'/0'/0'/0'. Overrides --account, --change and --index. Not for legacy apps.")
	pflag.Int64Var(&key.Account, "account", 0, "Account `N` of the path.")
	pflag.Int64Var(&key.Change, "change", 0, "Change `N` of the path.")
	pflag.Int64Var(&key.Index, "index", 0, "Address index `N` of the path.")
	pflag.Uint16Var(&key.SS58Prefix, "ss58-prefix", 0,
		"SS58 `PREFIX` of the network the address is for. The default is Polkadot's. Legacy apps use their own.")
	pflag.BoolVar(&key.ECDSA, "ecdsa", false,
		"Use the ECDSA key instead of the ED25519 key.")
	pflag.BoolVar(&appVersionOnly, "app-version", false,
		"Output the version of the app on the device.")
	pflag.BoolVar(&appInfoOnly, "app-info", false,
		"Output the name and version of the app running on the device.")
	pflag.StringVar(&signFile, "sign", "",
		"Sign the transaction blob in `FILE`. Use '-' (dash) to read from stdin.")
	pflag.BoolVar(&raw, "raw", false,
		"Sign the contents of --sign as raw bytes instead of as a transaction. Not for legacy apps.")
	pflag.StringVar(&meta.File, "metadata", "",
		"Read the metadata proof of the transaction from `FILE` instead of fetching it.")
	pflag.StringVar(&meta.URL, "metadata-url", os.Getenv("SUBSTRATE_METADATA_URL"),
		"Fetch the metadata proof from the service at `URL`. Defaults to $SUBSTRATE_METADATA_URL.")
	pflag.StringVar(&meta.ChainID, "chain-id", "dot",
		"Chain `ID` to ask the metadata service about.")
	pflag.BoolVar(&dev.Verbose, "verbose", false, "Enable verbose output.")
	pflag.BoolVar(&versionOnly, "version", false, "Output version information.")
	pflag.BoolVar(&helpOnly, "help", false, "Output this help.")
	pflag.Usage = func() {
		desc := fmt.Sprintf(`Usage: %[1]s -L|-a|--sign FILE|--app-version|--app-info [flags...]

%[1]s talks to the Polkadot app, or one of the legacy Substrate apps, on a
Ledger device connected over USB. It gets addresses and signs transactions.

Signing with the generic Polkadot app needs a metadata proof of the
transaction, read from --metadata or fetched from --metadata-url. Legacy
apps, selected with --chain, sign without one.`, progname)
		le.Printf("%s\n\n%s", desc,
			pflag.CommandLine.FlagUsagesWrapped(86))
	}
	pflag.Parse()

	if pflag.NArg() > 0 {
		le.Printf("Unexpected argument: %s\n\n", strings.Join(pflag.Args(), " "))
		pflag.Usage()
		exit(2)
	}

	if helpOnly {
		pflag.Usage()
		exit(0)
	}

	if versionOnly {
		fmt.Printf("%s %s\n", progname, version)
		exit(0)
	}

	exclusive := 0
	for _, b := range []bool{listOnly, addressOnly, appVersionOnly, appInfoOnly, signFile != ""} {
		if b {
			exclusive++
		}
	}
	if exclusive != 1 {
		le.Printf("Pass exactly one of -L, -a, --sign, --app-version or --app-info.\n\n")
		pflag.Usage()
		exit(2)
	}

	if !dev.Verbose {
		substrate.SilenceLogging()
	}

	if listOnly {
		n, err := printDevices()
		if err != nil {
			le.Printf("%v\n", err)
			exit(1)
		} else if n == 0 {
			exit(1)
		}
		exit(0)
	}

	var chain *substrate.Chain
	if dev.Chain != "" {
		c, err := substrate.LookupChain(dev.Chain)
		if err != nil {
			le.Printf("%s: %v\n", dev.Chain, err)
			exit(2)
		}
		chain = &c
		key.SS58Prefix = c.SS58Prefix

		if name := legacyConflict(pflag.CommandLine); name != "" {
			le.Printf("Legacy apps can't be used with --%s.\n\n", name)
			pflag.Usage()
			exit(2)
		}
	}

	if raw && meta.File != "" {
		le.Printf("Pass only one of --raw or --metadata.\n\n")
		pflag.Usage()
		exit(2)
	}

	if dev.Path == "" {
		var err error
		dev.Path, err = ledger.DetectDevice()
		if err != nil {
			le.Printf("DetectDevice: %v\n", err)
			exit(1)
		}
	}

	hidDev, err := ledger.OpenHID(dev.Path)
	if err != nil {
		le.Printf("Could not open %s: %v\n", dev.Path, err)
		exit(1)
	}
	lg := ledger.New(hidDev)

	prevExitFunc := exit
	exit = func(code int) {
		_ = lg.Close()
		prevExitFunc(code)
	}

	var app *substrate.App
	var legacy *substrate.LegacyApp
	if chain != nil {
		legacy = substrate.NewLegacyApp(lg, chain.CLA, chain.Slip0044)
	} else {
		opts := []func(*substrate.App){substrate.WithChainID(meta.ChainID)}
		if meta.URL != "" {
			opts = append(opts, substrate.WithMetadataService(substrate.NewMetadataClient(meta.URL)))
		}
		app = substrate.New(lg, opts...)
	}

	switch {
	case appVersionOnly:
		var v *substrate.Version
		if legacy != nil {
			v, err = legacy.GetVersion()
		} else {
			v, err = app.GetVersion()
		}
		if err != nil {
			le.Printf("GetVersion: %v\n", err)
			exit(1)
		}
		fmt.Printf("%s\n", v)
		if v.TestMode {
			fmt.Printf("App is in test mode\n")
		}
		if v.Locked {
			fmt.Printf("Device is locked\n")
		}

	case appInfoOnly:
		var info *substrate.AppInfo
		if legacy != nil {
			info, err = legacy.AppInfo()
		} else {
			info, err = app.AppInfo()
		}
		if err != nil {
			le.Printf("AppInfo: %v\n", err)
			exit(1)
		}
		fmt.Printf("%s %s\n", info.Name, info.Version)

	case addressOnly:
		if key.Show {
			tkeyutil.Notify(progname, "Confirm the address on your Ledger.")
		}
		addr, err := getAddress(app, legacy, key)
		if err != nil {
			le.Printf("GetAddress: %v\n", err)
			exit(1)
		}
		fmt.Printf("%s\n%s\n", hex.EncodeToString(addr.PubKey), addr.Address)

	default:
		blob, err := readInput(signFile)
		if err != nil {
			le.Printf("Could not read %s: %v\n", signFile, err)
			exit(1)
		}
		var metadata []byte
		if meta.File != "" {
			if metadata, err = readInput(meta.File); err != nil {
				le.Printf("Could not read %s: %v\n", meta.File, err)
				exit(1)
			}
		}

		tkeyutil.Notify(progname, "Review and approve the transaction on your Ledger.")
		sig, err := sign(app, legacy, key, blob, metadata, raw)
		if err != nil {
			le.Printf("Sign: %v\n", err)
			exit(1)
		}
		fmt.Printf("%s\n", hex.EncodeToString(sig.Bytes()))
	}

	exit(0)
}

// legacyConflict returns the name of a flag set in fs that the legacy
// apps have no use for, or "" if there is none.
func legacyConflict(fs *pflag.FlagSet) string {
	for _, name := range []string{"path", "raw", "metadata", "metadata-url", "chain-id", "ss58-prefix"} {
		if fs.Changed(name) {
			return name
		}
	}
	return ""
}

// readInput reads all of file, or stdin if file is "-".
func readInput(file string) ([]byte, error) {
	buf, err := tkeyutil.ReadUSS(file)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func scheme(key KeyConfig) substrate.Scheme {
	if key.ECDSA {
		return substrate.ECDSA
	}
	return substrate.ED25519
}

func keyPath(app *substrate.App, key KeyConfig) (substrate.Path, error) {
	if key.Path != "" {
		return substrate.ParsePath(key.Path)
	}
	return app.NewPath(key.Account, key.Change, key.Index)
}

func getAddress(app *substrate.App, legacy *substrate.LegacyApp, key KeyConfig) (*substrate.Address, error) {
	if legacy != nil {
		return legacy.GetAddress(key.Account, key.Change, key.Index, key.Show, scheme(key))
	}

	path, err := keyPath(app, key)
	if err != nil {
		return nil, err
	}
	if key.ECDSA {
		return app.GetAddressECDSA(path, key.Show)
	}
	return app.GetAddress(path, key.SS58Prefix, key.Show)
}

func sign(app *substrate.App, legacy *substrate.LegacyApp, key KeyConfig, blob, metadata []byte, raw bool) (substrate.Signature, error) {
	if legacy != nil {
		return legacy.Sign(key.Account, key.Change, key.Index, blob, scheme(key))
	}

	path, err := keyPath(app, key)
	if err != nil {
		return nil, err
	}

	switch {
	case key.ECDSA && raw:
		return verifiedECDSA(app, path, blob)(app.SignRawECDSA(path, blob))
	case key.ECDSA:
		return verifiedECDSA(app, path, blob)(app.SignECDSA(path, blob, metadata))
	case raw:
		return verified(app, path, key, blob)(app.SignRaw(path, blob))
	case metadata != nil:
		return verified(app, path, key, blob)(app.SignWithMetadata(path, blob, metadata))
	default:
		return verified(app, path, key, blob)(app.Sign(context.Background(), path, blob))
	}
}

// verified checks an Ed25519 signature against the public key of path
// before handing it out.
func verified(app *substrate.App, path substrate.Path, key KeyConfig, payload []byte) func(substrate.Ed25519Signature, error) (substrate.Signature, error) {
	return func(sig substrate.Ed25519Signature, err error) (substrate.Signature, error) {
		if err != nil {
			return nil, err
		}
		addr, err := app.GetAddress(path, key.SS58Prefix, false)
		if err != nil {
			return nil, fmt.Errorf("GetAddress: %w", err)
		}
		if !sig.Verify(addr.PubKey, payload) {
			return nil, fmt.Errorf("signature from device does not verify")
		}
		return sig, nil
	}
}

// verifiedECDSA checks an ECDSA signature against the public key of
// path before handing it out.
func verifiedECDSA(app *substrate.App, path substrate.Path, payload []byte) func(*substrate.EcdsaSignature, error) (substrate.Signature, error) {
	return func(sig *substrate.EcdsaSignature, err error) (substrate.Signature, error) {
		if err != nil {
			return nil, err
		}
		addr, err := app.GetAddressECDSA(path, false)
		if err != nil {
			return nil, fmt.Errorf("GetAddressECDSA: %w", err)
		}
		pub, err := addr.ECDSAPublicKey()
		if err != nil {
			return nil, fmt.Errorf("ECDSAPublicKey: %w", err)
		}
		if !sig.Verify(pub, payload) {
			return nil, fmt.Errorf("signature from device does not verify")
		}
		return sig, nil
	}
}

func readBuildInfo() string {
	version := "devel without BuildInfo"
	if info, ok := debug.ReadBuildInfo(); ok {
		sb := strings.Builder{}
		sb.WriteString("devel")
		for _, setting := range info.Settings {
			if strings.HasPrefix(setting.Key, "vcs") {
				sb.WriteString(fmt.Sprintf(" %s=%s", setting.Key, setting.Value))
			}
		}
		version = sb.String()
	}
	return version
}

func printDevices() (int, error) {
	devices, err := ledger.ListDevices()
	if err != nil {
		return 0, fmt.Errorf("Failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		le.Printf("No Ledger devices found.\n")
	} else {
		le.Printf("Ledger devices (on stdout):\n")
		for _, d := range devices {
			fmt.Fprintf(os.Stdout, "%s product:%s serialNumber:%s\n", d.Path, d.Product, d.SerialNumber)
		}
	}
	return len(devices), nil
}
