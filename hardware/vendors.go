package hardware

import "strings"

// KnownScannerVendors maps USB vendor IDs of barcode scanner makers. A HID
// device is tracked as a scanner only when its vendor ID appears here;
// keyboards, mice and other HID traffic never enter the registry.
var KnownScannerVendors = map[uint16]string{
	0x0C2E: "Honeywell",
	0x05E0: "Zebra",
	0x05F9: "Datalogic",
	0x0536: "Hand Held Products",
	0x1EAB: "Newland",
	0x065A: "Opticon",
}

// ScannerVendorName returns a friendly name for known scanner vendor IDs.
func ScannerVendorName(vendorID uint16) string {
	if name, ok := KnownScannerVendors[vendorID]; ok {
		return name
	}
	return "Unknown"
}

// serialBrands maps product string fragments to receipt printer makers.
// Matching is case-insensitive and first match wins.
var serialBrands = []struct {
	fragment string
	name     string
}{
	{"epson", "Epson"},
	{"star", "Star Micronics"},
	{"citizen", "Citizen"},
	{"bixolon", "Bixolon"},
	{"xprinter", "Xprinter"},
	{"rongta", "Rongta"},
	{"sewoo", "Sewoo"},
}

// printerVendorIDs maps USB vendor IDs, as the port enumerator reports them,
// to receipt printer makers. Consulted when the product string names no
// brand, which is common for adapters that only expose the bridge chip name.
var printerVendorIDs = map[string]string{
	"04B8": "Epson",
	"0519": "Star Micronics",
	"1504": "Bixolon",
	"1D90": "Citizen",
}

func printerVendorName(vid string) string {
	return printerVendorIDs[strings.ToUpper(vid)]
}

// classifySerialDevice builds the device record for one enumerated serial
// port. Product strings decide the kind: drawers and displays announce
// themselves by name, everything else is treated as a printer because a
// receipt printer is what a till's serial port almost always carries.
func classifySerialDevice(p PortInfo) Device {
	dev := Device{
		ID:     serialDeviceID(p.Name),
		Port:   p.Name,
		Serial: p.Serial,
	}

	product := strings.ToLower(p.Product)
	switch {
	case strings.Contains(product, "drawer"):
		dev.Kind = KindCashDrawer
		dev.Name = p.Product
	case strings.Contains(product, "display") || strings.Contains(product, "vfd"):
		dev.Kind = KindDisplay
		dev.Name = p.Product
	default:
		dev.Kind = KindPrinter
		dev.Name = p.Product
		if dev.Name == "" {
			dev.Name = "Unknown Serial Device"
		}
		for _, brand := range serialBrands {
			if strings.Contains(product, brand.fragment) {
				dev.Manufacturer = brand.name
				break
			}
		}
		if dev.Manufacturer == "" && p.IsUSB {
			dev.Manufacturer = printerVendorName(p.VID)
		}
	}
	return dev
}
