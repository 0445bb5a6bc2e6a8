package hardware

import (
	"fmt"

	"github.com/karalabe/hid"
	"go.bug.st/serial/enumerator"

	"github.com/Shehab101tf/tareeqa0-sub002/serialio"
)

// HIDInfo describes one enumerated HID device.
type HIDInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string
}

// ScannerHandle is an open HID connection delivering input reports.
type ScannerHandle interface {
	Read(b []byte) (int, error)
	Close() error
}

// HIDCapability enumerates and opens HID devices. The registry selects the
// real implementation or the unavailable one once, at construction.
type HIDCapability interface {
	Available() bool
	Enumerate() []HIDInfo
	Open(info HIDInfo) (ScannerHandle, error)
}

// PortInfo describes one enumerated serial port.
type PortInfo struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Serial  string
	Product string
}

// SerialCapability enumerates serial ports and opens channels on them.
type SerialCapability interface {
	Available() bool
	Enumerate() ([]PortInfo, error)
	Open(port string, cfg serialio.Config) (*serialio.Channel, error)
}

// usbHID backs the HID capability with the host's USB HID stack.
type usbHID struct{}

func (usbHID) Available() bool { return hid.Supported() }

func (usbHID) Enumerate() []HIDInfo {
	infos := hid.Enumerate(0, 0)
	out := make([]HIDInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, HIDInfo{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Serial:       info.Serial,
			Manufacturer: info.Manufacturer,
			Product:      info.Product,
		})
	}
	return out
}

func (usbHID) Open(info HIDInfo) (ScannerHandle, error) {
	// the HID library opens through its own enumeration records, so find
	// the device again by path
	for _, cand := range hid.Enumerate(info.VendorID, info.ProductID) {
		if cand.Path == info.Path {
			dev, err := cand.Open()
			if err != nil {
				return nil, err
			}
			return dev, nil
		}
	}
	return nil, fmt.Errorf("hid device %s no longer present", info.Path)
}

// noHID is the degraded HID capability for hosts without HID support.
type noHID struct{}

func (noHID) Available() bool                     { return false }
func (noHID) Enumerate() []HIDInfo                { return nil }
func (noHID) Open(HIDInfo) (ScannerHandle, error) { return nil, ErrCapabilityUnavailable }

// systemSerial backs the serial capability with the OS port list.
type systemSerial struct{}

func (systemSerial) Available() bool { return true }

func (systemSerial) Enumerate() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	out := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		out = append(out, PortInfo{
			Name:    p.Name,
			IsUSB:   p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Serial:  p.SerialNumber,
			Product: p.Product,
		})
	}
	return out, nil
}

func (systemSerial) Open(port string, cfg serialio.Config) (*serialio.Channel, error) {
	return serialio.Open(port, cfg)
}

// noSerial is the degraded serial capability.
type noSerial struct{}

func (noSerial) Available() bool                { return false }
func (noSerial) Enumerate() ([]PortInfo, error) { return nil, nil }
func (noSerial) Open(string, serialio.Config) (*serialio.Channel, error) {
	return nil, ErrCapabilityUnavailable
}
