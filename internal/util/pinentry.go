// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package util

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/twpayne/go-pinentry"
)

var le = log.New(os.Stderr, "", 0)

// PinentrySecret asks for a secret using a pinentry program. If
// pinentryProgram is empty, the one in gpg-agent.conf is used, or on
// Windows the one installed with Gpg4win.
func PinentrySecret(title, desc, prompt, pinentryProgram string) ([]byte, error) {
	opts := []pinentry.ClientOption{
		pinentry.WithBinaryNameFromGnuPGAgentConf(),
		pinentry.WithGPGTTY(),
		pinentry.WithDesc(desc),
		// pinentry-gnome3 uses Prompt as a title, so no trailing ":".
		pinentry.WithPrompt(prompt),
		pinentry.WithTitle(title),
	}

	if pinentryProgram != "" {
		opts = append(opts, pinentry.WithBinaryName(pinentryProgram))
	} else if runtime.GOOS == "windows" {
		if found := findWindowsPinentry(); found != "" {
			le.Printf("Found gpgconf and got pinentry program: %s\n", found)
			opts = append(opts, pinentry.WithBinaryName(found))
		}
	}

	client, err := pinentry.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("pinentry.NewClient: %w", err)
	}
	defer client.Close()

	pin, _, err := client.GetPIN()
	if err != nil {
		return nil, fmt.Errorf("pinentry GetPin: %w", err)
	}

	return []byte(pin), nil
}

// findWindowsPinentry looks for the pinentry of Gpg4win next to
// gpgconf.exe, then in PATH.
func findWindowsPinentry() string {
	knownProg, err := exec.LookPath("gpgconf.exe")
	if err != nil {
		le.Printf("LookPath: %s\n", err)
		return ""
	}

	gpgDir := filepath.Dir(knownProg)
	if filepath.Base(gpgDir) == "bin" {
		gpgDir = filepath.Dir(gpgDir)
	}

	for _, relExe := range []string{`..\Gpg4win\bin\pinentry.exe`, `..\Gpg4win\pinentry.exe`} {
		candidate := filepath.Join(gpgDir, relExe)
		if _, err := os.Stat(candidate); err != nil {
			le.Printf("Tried %s got: %s\n", candidate, err)
			continue
		}
		return candidate
	}

	for _, exe := range []string{`pinentry.exe`, `pinentry-basic.exe`} {
		candidate, err := exec.LookPath(exe)
		if err != nil {
			le.Printf("LookPath: %s\n", err)
			continue
		}
		return candidate
	}

	return ""
}
