// Package hardware discovers and connects the peripherals of a point-of-sale
// terminal: HID barcode scanners and serial receipt printers, cash drawers
// and customer displays. The Registry tracks what is attached, owns the open
// device handles, and publishes every state change on the event bus.
package hardware

import (
	"errors"
	"fmt"
)

// Sentinel errors for connection requests.
var (
	ErrDeviceNotFound        = errors.New("device not found")
	ErrUnsupportedDeviceType = errors.New("unsupported device type")
	ErrCapabilityUnavailable = errors.New("capability unavailable on this host")
)

// Kind classifies a peripheral by its role at the till.
type Kind string

const (
	KindScanner    Kind = "scanner"
	KindPrinter    Kind = "printer"
	KindCashDrawer Kind = "cash-drawer"
	KindDisplay    Kind = "display"
)

// Device is one tracked peripheral. A detection pass creates these; Connect
// and DisconnectAll flip the Connected flag. The ID is stable across
// detection passes: hid:<vid>:<pid>[:<serial>] for HID devices,
// serial:<port> for serial ones.
type Device struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Connected    bool   `json:"connected"`

	// HID identity, set for scanners
	VendorID  uint16 `json:"vendorId,omitempty"`
	ProductID uint16 `json:"productId,omitempty"`
	Serial    string `json:"serial,omitempty"`

	// OS handle path, needed to reopen the device but not part of the API
	Path string `json:"-"`

	// serial port name, set for printers, drawers and displays
	Port string `json:"port,omitempty"`
}

// DeviceError is the payload for scanner-error and printer-error events.
type DeviceError struct {
	DeviceID string `json:"deviceId"`
	Error    string `json:"error"`
}

func hidDeviceID(vendorID, productID uint16, serial string) string {
	id := fmt.Sprintf("hid:%04x:%04x", vendorID, productID)
	if serial != "" {
		id += ":" + serial
	}
	return id
}

func serialDeviceID(port string) string {
	return "serial:" + port
}
