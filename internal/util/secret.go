// Copyright (C) 2022, 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tillitis/tkeyutil"
	"golang.org/x/term"
)

// ReadSecret asks for a secret on the terminal, without echo.
func ReadSecret(prompt string) ([]byte, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintf(os.Stderr, "\n")
	if err != nil {
		return nil, fmt.Errorf("ReadPassword: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("nothing entered")
	}

	return secret, nil
}

// InputPassphrase asks for a passphrase twice.
func InputPassphrase() ([]byte, error) {
	secret, err := ReadSecret("Enter passphrase")
	if err != nil {
		return nil, err
	}
	again, err := ReadSecret("Repeat the passphrase")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(secret, again) {
		return nil, fmt.Errorf("passphrases did not match")
	}

	return secret, nil
}

// ReadMnemonic reads a mnemonic from file, or from stdin if file is
// "-".
func ReadMnemonic(file string) (string, error) {
	secret, err := tkeyutil.ReadUSS(file)
	if err != nil {
		return "", fmt.Errorf("ReadUSS: %w", err)
	}

	return NormalizeMnemonic(secret), nil
}

// NormalizeMnemonic lowercases the words and separates them with
// single spaces.
func NormalizeMnemonic(secret []byte) string {
	return strings.ToLower(strings.Join(strings.Fields(string(secret)), " "))
}

// IsTerminal tells if r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
