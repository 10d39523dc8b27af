// SPDX-FileCopyrightText: 2022 Tillitis AB <tillitis.se>
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tillitis/substrate-ledger/hdkey"
	"github.com/tillitis/substrate-ledger/internal/util"
	"github.com/tillitis/substrate-ledger/ledger"
	"github.com/tillitis/substrate-ledger/substrate"
)

// Use when printing err/diag msgs
var le = log.New(os.Stderr, "", 0)

const progname = "substrate-derive"

var version string

type MnemonicConfig struct {
	Path             string
	PinentryPath     string
	UsePinentry      bool
	PassphrasePrompt bool
}

func main() {
	exit := func(code int) {
		os.Exit(code)
	}

	if version == "" {
		version = readBuildInfo()
	}

	var mconf MnemonicConfig
	var chainName, pathStr, devicePath string
	var account, change, index uint32
	var ss58Prefix uint16
	var showSecret, verifyDevice, versionOnly, helpOnly bool

	pflag.CommandLine.SetOutput(os.Stderr)
	pflag.CommandLine.SortFlags = false
	pflag.StringVar(&mconf.Path, "mnemonic-file", "",
		"Read the mnemonic from `FILE`. Use '-' (dash) to read from stdin. If this is not passed, the mnemonic is typed in.")
	pflag.BoolVar(&mconf.UsePinentry, "pinentry", false,
		"Ask for the mnemonic using a pinentry program instead of the terminal.")
	pflag.StringVar(&mconf.PinentryPath, "pinentry-program", "",
		"Pinentry `PROGRAM` for use by --pinentry. The default is found by looking in your gpg-agent.conf for pinentry-program, or 'pinentry' if not found there.")
	pflag.BoolVar(&mconf.PassphrasePrompt, "passphrase-prompt", false,
		"Ask for a BIP39 passphrase to use with the mnemonic.")
	pflag.StringVar(&chainName, "chain", "Polkadot",
		"Derive the key of the app of chain `NAME`, which sets the coin type and SS58 prefix.")
	pflag.StringVar(&pathStr, "path", "",
		"Derive the key of `PATH`, e.g. m/44'/354'/0'/0'/0'. Overrides --account, --change and --index.")
	pflag.Uint32Var(&account, "account", 0, "Hardened account `N` of the path.")
	pflag.Uint32Var(&change, "change", 0, "Hardened change `N` of the path.")
	pflag.Uint32Var(&index, "index", 0, "Hardened address index `N` of the path.")
	pflag.Uint16Var(&ss58Prefix, "ss58-prefix", 0,
		"SS58 `PREFIX` of the address. The default is that of --chain.")
	pflag.BoolVar(&showSecret, "show-secret", false,
		"Also output the private key.")
	pflag.BoolVar(&verifyDevice, "verify-device", false,
		"Compare the derived public key with the one of the app of --chain on a connected Ledger.")
	pflag.StringVar(&devicePath, "device", "",
		"Set HID device `PATH` for --verify-device. If this is not passed, auto-detection will be attempted.")
	pflag.BoolVar(&versionOnly, "version", false, "Output version information.")
	pflag.BoolVar(&helpOnly, "help", false, "Output this help.")
	pflag.Usage = func() {
		desc := fmt.Sprintf(`Usage: %[1]s [flags...]

%[1]s derives the ed25519 key and SS58 address a Ledger Substrate app
would use, from the BIP39 mnemonic of the device, without the device.

Keep the mnemonic secret. Anyone with it has all keys of the device.`, progname)
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

	if mconf.UsePinentry && mconf.Path != "" {
		le.Printf("Pass only one of --pinentry or --mnemonic-file.\n\n")
		pflag.Usage()
		exit(2)
	}

	chain, err := substrate.LookupChain(chainName)
	if err != nil {
		le.Printf("%s: %v\n", chainName, err)
		exit(2)
	}
	if !pflag.CommandLine.Changed("ss58-prefix") {
		ss58Prefix = chain.SS58Prefix
	}

	var path substrate.Path
	if pathStr != "" {
		if path, err = substrate.ParsePath(pathStr); err != nil {
			le.Printf("%v\n", err)
			exit(2)
		}
	} else {
		path = substrate.Path{
			substrate.Purpose,
			chain.Slip0044,
			account | substrate.Hardened,
			change | substrate.Hardened,
			index | substrate.Hardened,
		}
	}

	mnemonic, err := readMnemonic(mconf)
	if err != nil {
		le.Printf("%v\n", err)
		exit(1)
	}

	var passphrase []byte
	if mconf.PassphrasePrompt {
		if passphrase, err = util.InputPassphrase(); err != nil {
			le.Printf("%v\n", err)
			exit(1)
		}
	}

	key, err := hdkey.Derive(mnemonic, string(passphrase), path)
	if err != nil {
		le.Printf("Derive: %v\n", err)
		exit(1)
	}

	addr, err := key.Address(ss58Prefix)
	if err != nil {
		le.Printf("Address: %v\n", err)
		exit(1)
	}

	fmt.Printf("path: %s\n", path)
	fmt.Printf("public key: %s\n", hex.EncodeToString(key.Public))
	fmt.Printf("address: %s\n", addr)
	if showSecret {
		fmt.Printf("private key: %s\n", hex.EncodeToString(key.Private[:]))
	}

	if verifyDevice {
		if err := compareWithDevice(devicePath, chain, path, ss58Prefix, key.Public); err != nil {
			le.Printf("%v\n", err)
			exit(1)
		}
		le.Printf("The Ledger has the same key.\n")
	}

	exit(0)
}

func readMnemonic(conf MnemonicConfig) (string, error) {
	switch {
	case conf.Path != "":
		return util.ReadMnemonic(conf.Path)
	case conf.UsePinentry:
		secret, err := util.PinentrySecret(progname,
			"Enter the mnemonic of your Ledger, words separated by spaces.",
			"Mnemonic", conf.PinentryPath)
		if err != nil {
			return "", err
		}
		return util.NormalizeMnemonic(secret), nil
	default:
		if !util.IsTerminal(os.Stdin) {
			return util.ReadMnemonic("-")
		}
		secret, err := util.ReadSecret("Enter mnemonic")
		if err != nil {
			return "", err
		}
		return util.NormalizeMnemonic(secret), nil
	}
}

func compareWithDevice(devicePath string, chain substrate.Chain, path substrate.Path, ss58Prefix uint16, pub []byte) error {
	ledger.SilenceLogging()

	if devicePath == "" {
		var err error
		if devicePath, err = ledger.DetectDevice(); err != nil {
			return fmt.Errorf("DetectDevice: %w", err)
		}
	}

	dev, err := ledger.OpenHID(devicePath)
	if err != nil {
		return fmt.Errorf("Could not open %s: %w", devicePath, err)
	}
	lg := ledger.New(dev)
	defer lg.Close()

	addr, err := deviceAddress(lg, chain, path, ss58Prefix)
	if err != nil {
		return err
	}
	if !bytes.Equal(addr.PubKey, pub) {
		return fmt.Errorf("the Ledger has public key %x for %s", addr.PubKey, path)
	}

	return nil
}

// deviceAddress gets the address of path from the generic app for
// Polkadot, and from the legacy app of chain otherwise.
func deviceAddress(t substrate.Transport, chain substrate.Chain, path substrate.Path, ss58Prefix uint16) (*substrate.Address, error) {
	if chain.CLA == substrate.PolkadotCLA {
		addr, err := substrate.New(t).GetAddress(path, ss58Prefix, false)
		if err != nil {
			return nil, fmt.Errorf("GetAddress: %w", err)
		}
		return addr, nil
	}

	if len(path) != substrate.PathLength || path[0] != substrate.Purpose || path[1] != chain.Slip0044 {
		return nil, fmt.Errorf("the %s app only has keys under m/44'/%d': %w",
			chain.Name, chain.Slip0044&^substrate.Hardened, substrate.ErrInvalidPath)
	}

	app := substrate.NewLegacyApp(t, chain.CLA, chain.Slip0044)
	addr, err := app.GetAddress(int64(path[2]), int64(path[3]), int64(path[4]), false, substrate.ED25519)
	if err != nil {
		return nil, fmt.Errorf("GetAddress: %w", err)
	}
	return addr, nil
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
