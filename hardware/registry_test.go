package hardware

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Shehab101tf/tareeqa0-sub002/escpos"
	"github.com/Shehab101tf/tareeqa0-sub002/events"
	"github.com/Shehab101tf/tareeqa0-sub002/serialio"
	"github.com/Shehab101tf/tareeqa0-sub002/spooler"
)

// fakeHandle is a scriptable HID connection. Tests feed reports or errors;
// the session's read loop consumes them.
type fakeHandle struct {
	reports   chan []byte
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		reports: make(chan []byte, 16),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (h *fakeHandle) Read(b []byte) (int, error) {
	select {
	case rep := <-h.reports:
		return copy(b, rep), nil
	case err := <-h.errs:
		return 0, err
	case <-h.done:
		return 0, errors.New("handle closed")
	}
}

func (h *fakeHandle) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

func (h *fakeHandle) feed(data []byte) { h.reports <- data }
func (h *fakeHandle) fail(err error)   { h.errs <- err }

type fakeHID struct {
	mu      sync.Mutex
	devices []HIDInfo
	openErr error
	handles map[string]*fakeHandle
}

func newFakeHID(devices ...HIDInfo) *fakeHID {
	return &fakeHID{devices: devices, handles: make(map[string]*fakeHandle)}
}

func (f *fakeHID) Available() bool      { return true }
func (f *fakeHID) Enumerate() []HIDInfo { return f.devices }

func (f *fakeHID) Open(info HIDInfo) (ScannerHandle, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	h := newFakeHandle()
	f.mu.Lock()
	f.handles[info.Path] = h
	f.mu.Unlock()
	return h, nil
}

func (f *fakeHID) handle(path string) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[path]
}

// fakePort records everything written through the serial channel.
type fakePort struct {
	mu      sync.Mutex
	written bytes.Buffer
	closed  int
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) { return 0, errors.New("no input") }

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePort) bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func (p *fakePort) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeSerial struct {
	mu      sync.Mutex
	ports   []PortInfo
	enumErr error
	openErr error
	opened  map[string]*fakePort
}

func newFakeSerial(ports ...PortInfo) *fakeSerial {
	return &fakeSerial{ports: ports, opened: make(map[string]*fakePort)}
}

func (f *fakeSerial) Available() bool                { return true }
func (f *fakeSerial) Enumerate() ([]PortInfo, error) { return f.ports, f.enumErr }

func (f *fakeSerial) Open(port string, cfg serialio.Config) (*serialio.Channel, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	p := &fakePort{}
	f.mu.Lock()
	f.opened[port] = p
	f.mu.Unlock()
	return serialio.Wrap(port, p), nil
}

func (f *fakeSerial) port(name string) *fakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened[name]
}

func testRegistry(t *testing.T, hid HIDCapability, serial SerialCapability) (*Registry, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	t.Cleanup(bus.Stop)
	cfg := Config{
		Printer:       escpos.Config{PaperWidth: 80, Encoding: escpos.EncodingUTF8},
		InterJobDelay: time.Millisecond,
	}
	reg := NewWith(cfg, bus, hid, serial)
	t.Cleanup(reg.DisconnectAll)
	return reg, bus
}

// waitEvent receives events until one of the wanted type arrives.
func waitEvent(t *testing.T, ch <-chan events.Event, eventType string) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", eventType)
			}
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event within 2s", eventType)
		}
	}
}

func honeywellScanner() HIDInfo {
	return HIDInfo{
		Path:      "usb-0001",
		VendorID:  0x0C2E,
		ProductID: 0x0200,
		Serial:    "SN1",
		Product:   "Voyager 1250g",
	}
}

func deviceByID(t *testing.T, devs []Device, id string) Device {
	t.Helper()
	for _, d := range devs {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("device %s not in %v", id, devs)
	return Device{}
}

func TestDetectClassifiesSerialPorts(t *testing.T) {
	serial := newFakeSerial(
		PortInfo{Name: "COM3", Product: "EPSON TM-T20III"},
		PortInfo{Name: "COM4", Product: "USB Cash Drawer"},
		PortInfo{Name: "COM5", Product: "Customer VFD"},
		PortInfo{Name: "COM6"},
		PortInfo{Name: "COM7", IsUSB: true, VID: "04b8", PID: "0202", Product: "TM-T20III"},
	)
	reg, _ := testRegistry(t, nil, serial)

	devs := reg.Detect()
	if len(devs) != 5 {
		t.Fatalf("got %d devices, want 5", len(devs))
	}

	printer := deviceByID(t, devs, "serial:COM3")
	if printer.Kind != KindPrinter || printer.Manufacturer != "Epson" {
		t.Errorf("COM3 classified as %s/%s, want printer/Epson", printer.Kind, printer.Manufacturer)
	}
	if drawer := deviceByID(t, devs, "serial:COM4"); drawer.Kind != KindCashDrawer {
		t.Errorf("COM4 classified as %s, want cash-drawer", drawer.Kind)
	}
	if display := deviceByID(t, devs, "serial:COM5"); display.Kind != KindDisplay {
		t.Errorf("COM5 classified as %s, want display", display.Kind)
	}
	bare := deviceByID(t, devs, "serial:COM6")
	if bare.Kind != KindPrinter || bare.Name != "Unknown Serial Device" {
		t.Errorf("COM6 classified as %s %q", bare.Kind, bare.Name)
	}
	// no brand in the product string, so the USB vendor ID decides
	usb := deviceByID(t, devs, "serial:COM7")
	if usb.Manufacturer != "Epson" {
		t.Errorf("COM7 manufacturer = %q, want Epson from vendor ID", usb.Manufacturer)
	}
}

func TestDetectFiltersUnknownHIDVendors(t *testing.T) {
	hid := newFakeHID(
		honeywellScanner(),
		HIDInfo{Path: "usb-0002", VendorID: 0x046D, ProductID: 0xC077, Product: "Gaming Mouse"},
	)
	reg, _ := testRegistry(t, hid, nil)

	devs := reg.Detect()
	if len(devs) != 1 {
		t.Fatalf("got %d devices, want only the scanner", len(devs))
	}
	dev := devs[0]
	if dev.ID != "hid:0c2e:0200:SN1" {
		t.Errorf("device ID = %q", dev.ID)
	}
	if dev.Kind != KindScanner || dev.Manufacturer != "Honeywell" {
		t.Errorf("classified as %s/%s", dev.Kind, dev.Manufacturer)
	}
}

func TestDetectPublishesDeviceList(t *testing.T) {
	reg, bus := testRegistry(t, newFakeHID(honeywellScanner()), nil)
	sub := bus.Subscribe("test", 8)
	defer bus.Unsubscribe("test")

	reg.Detect()

	ev := waitEvent(t, sub, events.EventDevicesDetected)
	list, ok := ev.Data.([]Device)
	if !ok {
		t.Fatalf("event data is %T, want []Device", ev.Data)
	}
	if len(list) != 1 || list[0].Kind != KindScanner {
		t.Errorf("published list = %v", list)
	}
}

func TestDetectKeepsConnectedFlag(t *testing.T) {
	serial := newFakeSerial(PortInfo{Name: "COM3", Product: "EPSON TM-T20III"})
	reg, _ := testRegistry(t, nil, serial)

	reg.Detect()
	if err := reg.Connect("serial:COM3"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	devs := reg.Detect()
	if dev := deviceByID(t, devs, "serial:COM3"); !dev.Connected {
		t.Error("redetection dropped the Connected flag")
	}

	// reconnecting an already live session must not open a second port
	if err := reg.Connect("serial:COM3"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if got := len(reg.ConnectedDevices()); got != 1 {
		t.Errorf("connected devices = %d, want 1", got)
	}
}

func TestConnectUnknownDevice(t *testing.T) {
	reg, _ := testRegistry(t, nil, nil)
	if err := reg.Connect("serial:COM9"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("got %v, want ErrDeviceNotFound", err)
	}
}

func TestConnectDisplayUnsupported(t *testing.T) {
	serial := newFakeSerial(PortInfo{Name: "COM5", Product: "Customer VFD"})
	reg, _ := testRegistry(t, nil, serial)
	reg.Detect()

	if err := reg.Connect("serial:COM5"); !errors.Is(err, ErrUnsupportedDeviceType) {
		t.Errorf("got %v, want ErrUnsupportedDeviceType", err)
	}
}

func TestConnectPrinterOpenFailure(t *testing.T) {
	serial := newFakeSerial(PortInfo{Name: "COM3", Product: "EPSON TM-T20III"})
	serial.openErr = errors.New("port busy")
	reg, bus := testRegistry(t, nil, serial)
	sub := bus.Subscribe("test", 8)
	defer bus.Unsubscribe("test")
	reg.Detect()

	err := reg.Connect("serial:COM3")
	if err == nil {
		t.Fatal("Connect succeeded with a failing port")
	}

	ev := waitEvent(t, sub, events.EventPrinterError)
	devErr, ok := ev.Data.(DeviceError)
	if !ok || devErr.DeviceID != "serial:COM3" {
		t.Errorf("printer-error payload = %#v", ev.Data)
	}
	if len(reg.ConnectedDevices()) != 0 {
		t.Error("device marked connected after failed open")
	}
}

func TestPrinterPrintFlow(t *testing.T) {
	serial := newFakeSerial(PortInfo{Name: "COM3", Product: "EPSON TM-T20III"})
	reg, bus := testRegistry(t, nil, serial)
	sub := bus.Subscribe("test", 8)
	defer bus.Unsubscribe("test")

	reg.Detect()
	if err := reg.Connect("serial:COM3"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitEvent(t, sub, events.EventPrinterConnected)

	receipt := escpos.Receipt{
		StoreName: "TAREEQA MARKET",
		Items:     []escpos.LineItem{{Name: "Mint Tea", Qty: 1, Price: 8, Total: 8}},
		Subtotal:  8,
		Total:     8,
	}
	if _, err := reg.Enqueue("", spooler.KindReceipt, receipt, spooler.PriorityNormal); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitEvent(t, sub, events.EventJobCompleted)

	raw := serial.port("COM3").bytes()
	if !bytes.HasPrefix(raw, []byte{0x1B, 0x40}) {
		t.Errorf("output does not start with initialize: % X", raw[:min(4, len(raw))])
	}
	if !bytes.HasSuffix(raw, []byte{0x1D, 0x56, 0x00}) {
		t.Errorf("output does not end with full cut")
	}
}

func TestPrinterQueueEmptyIDSkipsDrawers(t *testing.T) {
	serial := newFakeSerial(
		PortInfo{Name: "COM1", Product: "USB Cash Drawer"},
		PortInfo{Name: "COM2", Product: "Star TSP100"},
	)
	reg, _ := testRegistry(t, nil, serial)
	reg.Detect()
	if err := reg.Connect("serial:COM1"); err != nil {
		t.Fatalf("connect drawer: %v", err)
	}
	if err := reg.Connect("serial:COM2"); err != nil {
		t.Fatalf("connect printer: %v", err)
	}

	// the drawer sorts first by ID but must not win the default slot
	if _, err := reg.Enqueue("", spooler.KindDrawer, nil, spooler.PriorityNormal); err != nil {
		t.Fatalf("enqueue on default queue: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(serial.port("COM2").bytes()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("default queue did not route to the printer")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := serial.port("COM1").bytes(); len(got) != 0 {
		t.Errorf("drawer port received % X", got)
	}
}

func TestPrinterQueueNoPrinter(t *testing.T) {
	reg, _ := testRegistry(t, nil, nil)
	if _, err := reg.PrinterQueue(""); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("got %v, want ErrDeviceNotFound", err)
	}
	if _, err := reg.Enqueue("", spooler.KindTest, nil, spooler.PriorityNormal); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Enqueue without printer: %v", err)
	}
}

func TestDisconnectAllIdempotent(t *testing.T) {
	hid := newFakeHID(honeywellScanner())
	serial := newFakeSerial(PortInfo{Name: "COM3", Product: "EPSON TM-T20III"})
	reg, _ := testRegistry(t, hid, serial)
	reg.Detect()
	if err := reg.Connect("hid:0c2e:0200:SN1"); err != nil {
		t.Fatalf("connect scanner: %v", err)
	}
	if err := reg.Connect("serial:COM3"); err != nil {
		t.Fatalf("connect printer: %v", err)
	}

	reg.DisconnectAll()
	reg.DisconnectAll()

	if got := len(reg.ConnectedDevices()); got != 0 {
		t.Errorf("connected devices after disconnect = %d", got)
	}
	if n := serial.port("COM3").closeCount(); n != 1 {
		t.Errorf("port closed %d times, want 1", n)
	}
	for _, dev := range reg.Devices() {
		if dev.Connected {
			t.Errorf("device %s still flagged connected", dev.ID)
		}
	}
}

func TestDegradedHostDetectsNothing(t *testing.T) {
	reg, _ := testRegistry(t, nil, nil)

	if devs := reg.Detect(); len(devs) != 0 {
		t.Errorf("degraded host detected %v", devs)
	}
	hidOK, serialOK := reg.Capabilities()
	if hidOK || serialOK {
		t.Errorf("capabilities = %v/%v, want both unavailable", hidOK, serialOK)
	}

	if _, err := (noHID{}).Open(HIDInfo{}); !errors.Is(err, ErrCapabilityUnavailable) {
		t.Errorf("noHID open: %v", err)
	}
	if _, err := (noSerial{}).Open("COM1", serialio.Config{}); !errors.Is(err, ErrCapabilityUnavailable) {
		t.Errorf("noSerial open: %v", err)
	}
}
