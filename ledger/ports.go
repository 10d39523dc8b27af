// Copyright (C) 2022 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package ledger

import (
	"fmt"

	"github.com/karalabe/hid"
)

const LedgerVendorID uint16 = 0x2c97

const (
	// Windows and macOS expose the APDU interface by usage page,
	// Linux by interface number.
	ledgerUsagePage = 0xffa0
	ledgerInterface = 0
)

type DeviceInfo struct {
	Path         string
	Product      string
	ProductID    uint16
	SerialNumber string
}

// ListDevices lists the Ledger devices plugged in.
func ListDevices() ([]DeviceInfo, error) {
	if !hid.Supported() {
		return nil, fmt.Errorf("USB HID is not supported on this platform")
	}

	infos, err := hid.Enumerate(LedgerVendorID, 0)
	if err != nil {
		return nil, fmt.Errorf("Enumerate: %w", err)
	}

	var devices []DeviceInfo
	for _, info := range infos {
		if info.UsagePage == ledgerUsagePage || info.Interface == ledgerInterface {
			devices = append(devices, DeviceInfo{
				Path:         info.Path,
				Product:      info.Product,
				ProductID:    info.ProductID,
				SerialNumber: info.Serial,
			})
		}
	}

	return devices, nil
}

// DetectDevice returns the path of the single Ledger device plugged
// in. ErrNoDevice or ErrManyDevices is returned if there is not
// exactly one.
func DetectDevice() (string, error) {
	devices, err := ListDevices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", ErrNoDevice
	}
	if len(devices) > 1 {
		le.Printf("Detected %d Ledger devices:\n", len(devices))
		for _, d := range devices {
			le.Printf("%s (%s)\n", d.Path, d.Product)
		}
		return "", ErrManyDevices
	}

	return devices[0].Path, nil
}
