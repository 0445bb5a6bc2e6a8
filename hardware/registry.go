package hardware

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Shehab101tf/tareeqa0-sub002/escpos"
	"github.com/Shehab101tf/tareeqa0-sub002/events"
	"github.com/Shehab101tf/tareeqa0-sub002/serialio"
	"github.com/Shehab101tf/tareeqa0-sub002/spooler"
)

// Config carries the settings the registry applies to every device it opens.
type Config struct {
	// Serial is applied to every printer and drawer port
	Serial serialio.Config
	// Printer is the encoder profile handed to each print queue
	Printer escpos.Config
	// InterJobDelay paces the print dispatcher; zero means the default
	InterJobDelay time.Duration
}

// Registry tracks attached peripherals and owns their open handles. Detection
// replaces the tracked set; Connect and DisconnectAll manage sessions. All
// state changes surface on the event bus.
type Registry struct {
	cfg    Config
	bus    *events.Bus
	hid    HIDCapability
	serial SerialCapability

	mu       sync.RWMutex
	devices  map[string]Device
	scanners map[string]*scannerSession
	printers map[string]*printerSession
}

// New builds a registry on the host's real HID and serial stacks. Either
// capability degrades to a no-op when the host cannot provide it, decided
// once here rather than on every call.
func New(cfg Config, bus *events.Bus) *Registry {
	var hidCap HIDCapability = noHID{}
	if (usbHID{}).Available() {
		hidCap = usbHID{}
	}

	var serialCap SerialCapability = systemSerial{}
	if _, err := serialCap.Enumerate(); err != nil {
		log.Warn("Serial enumeration unavailable, serial devices disabled", "error", err)
		serialCap = noSerial{}
	}

	return NewWith(cfg, bus, hidCap, serialCap)
}

// NewWith builds a registry on explicit capabilities. Tests and embedders
// inject fakes here; nil means the capability is unavailable.
func NewWith(cfg Config, bus *events.Bus, hidCap HIDCapability, serialCap SerialCapability) *Registry {
	if hidCap == nil {
		hidCap = noHID{}
	}
	if serialCap == nil {
		serialCap = noSerial{}
	}
	return &Registry{
		cfg:      cfg,
		bus:      bus,
		hid:      hidCap,
		serial:   serialCap,
		devices:  make(map[string]Device),
		scanners: make(map[string]*scannerSession),
		printers: make(map[string]*printerSession),
	}
}

// Capabilities reports which device classes this host can serve.
func (r *Registry) Capabilities() (hidOK, serialOK bool) {
	return r.hid.Available(), r.serial.Available()
}

// Detect enumerates both transports and replaces the tracked device set.
// Devices that survive redetection keep their Connected flag; open sessions
// are never touched here. The new list is published as devices-detected and
// returned sorted by ID.
func (r *Registry) Detect() []Device {
	found := make(map[string]Device)

	for _, info := range r.hid.Enumerate() {
		vendor, known := KnownScannerVendors[info.VendorID]
		if !known {
			continue
		}
		dev := Device{
			ID:           hidDeviceID(info.VendorID, info.ProductID, info.Serial),
			Kind:         KindScanner,
			Name:         info.Product,
			Manufacturer: info.Manufacturer,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Serial:       info.Serial,
			Path:         info.Path,
		}
		if dev.Name == "" {
			dev.Name = vendor + " Scanner"
		}
		if dev.Manufacturer == "" {
			dev.Manufacturer = vendor
		}
		found[dev.ID] = dev
	}

	ports, err := r.serial.Enumerate()
	if err != nil {
		log.Warn("Serial port enumeration failed", "error", err)
	}
	for _, p := range ports {
		dev := classifySerialDevice(p)
		if p.IsUSB {
			log.Debug("Serial port classified", "port", p.Name, "vid", p.VID, "pid", p.PID, "kind", string(dev.Kind))
		}
		found[dev.ID] = dev
	}

	r.mu.Lock()
	for id, dev := range found {
		if _, live := r.scanners[id]; live {
			dev.Connected = true
		} else if _, live := r.printers[id]; live {
			dev.Connected = true
		}
		found[id] = dev
	}
	r.devices = found
	list := r.snapshotLocked()
	r.mu.Unlock()

	log.Info("Device detection finished", "devices", len(list))
	r.publish(events.EventDevicesDetected, list)
	return list
}

// Connect opens a session for a tracked device. Connecting an already
// connected device is a no-op. Scanners get a HID read loop feeding the
// decoder; printers and drawers get a serial channel with a fresh print
// queue. Displays are tracked but have no session path.
func (r *Registry) Connect(deviceID string) error {
	r.mu.Lock()

	dev, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}

	switch dev.Kind {
	case KindScanner:
		if _, live := r.scanners[deviceID]; live {
			r.mu.Unlock()
			return nil
		}
		handle, err := r.hid.Open(HIDInfo{
			Path:      dev.Path,
			VendorID:  dev.VendorID,
			ProductID: dev.ProductID,
		})
		if err != nil {
			r.mu.Unlock()
			log.Warn("Scanner open failed", "device_id", deviceID, "error", err)
			r.publish(events.EventScannerError, DeviceError{DeviceID: deviceID, Error: err.Error()})
			return fmt.Errorf("open scanner %s: %w", deviceID, err)
		}
		session := newScannerSession(dev, handle, r.bus)
		r.scanners[deviceID] = session
		dev.Connected = true
		r.devices[deviceID] = dev
		r.mu.Unlock()

		go session.run()
		log.Info("Scanner connected", "device_id", deviceID, "name", dev.Name)
		r.publish(events.EventScannerConnected, dev)
		return nil

	case KindPrinter, KindCashDrawer:
		if _, live := r.printers[deviceID]; live {
			r.mu.Unlock()
			return nil
		}
		ch, err := r.serial.Open(dev.Port, r.cfg.Serial)
		if err != nil {
			r.mu.Unlock()
			log.Warn("Printer port open failed", "device_id", deviceID, "port", dev.Port, "error", err)
			r.publish(events.EventPrinterError, DeviceError{DeviceID: deviceID, Error: err.Error()})
			return fmt.Errorf("open printer %s: %w", deviceID, err)
		}
		queue := spooler.New(dev.ID, ch, spooler.Config{
			Printer:       r.cfg.Printer,
			InterJobDelay: r.cfg.InterJobDelay,
		}, r.bus)
		r.printers[deviceID] = newPrinterSession(dev, ch, queue)
		dev.Connected = true
		r.devices[deviceID] = dev
		r.mu.Unlock()

		log.Info("Printer connected", "device_id", deviceID, "port", dev.Port)
		r.publish(events.EventPrinterConnected, dev)
		return nil

	default:
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnsupportedDeviceType, dev.Kind)
	}
}

// DisconnectAll closes every open session and clears all Connected flags.
// It is the only closer of device handles and may be called at any time,
// repeatedly; a session mid-print finishes its in-flight write first.
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	scanners := r.scanners
	printers := r.printers
	r.scanners = make(map[string]*scannerSession)
	r.printers = make(map[string]*printerSession)
	for id, dev := range r.devices {
		if dev.Connected {
			dev.Connected = false
			r.devices[id] = dev
		}
	}
	r.mu.Unlock()

	for _, s := range scanners {
		s.close()
	}
	for _, p := range printers {
		p.close()
	}
	if n := len(scanners) + len(printers); n > 0 {
		log.Info("Disconnected all devices", "sessions", n)
	}
}

// Devices returns the full tracked set sorted by ID.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// ConnectedDevices returns only the devices with open sessions.
func (r *Registry) ConnectedDevices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0)
	for _, dev := range r.devices {
		if dev.Connected {
			out = append(out, dev)
		}
	}
	sortDevices(out)
	return out
}

// PrinterQueue returns the print queue behind a connected printer or drawer
// session. An empty deviceID selects the first connected printer, which is
// the common till setup of exactly one receipt printer.
func (r *Registry) PrinterQueue(deviceID string) (*spooler.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if deviceID == "" {
		ids := make([]string, 0, len(r.printers))
		for id := range r.printers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if r.printers[id].device.Kind == KindPrinter {
				return r.printers[id].queue, nil
			}
		}
		return nil, ErrDeviceNotFound
	}

	session, ok := r.printers[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return session.queue, nil
}

// Enqueue places a job on a connected printer's queue. See PrinterQueue for
// how an empty deviceID is resolved.
func (r *Registry) Enqueue(deviceID string, kind spooler.Kind, payload interface{}, priority spooler.Priority) (string, error) {
	queue, err := r.PrinterQueue(deviceID)
	if err != nil {
		return "", err
	}
	return queue.Enqueue(kind, payload, priority)
}

// ClearQueue drops the pending jobs of a connected printer's queue and
// reports how many were removed.
func (r *Registry) ClearQueue(deviceID string) (int, error) {
	queue, err := r.PrinterQueue(deviceID)
	if err != nil {
		return 0, err
	}
	return queue.Clear(), nil
}

// QueueJobs snapshots a connected printer's queue, in-flight job first.
func (r *Registry) QueueJobs(deviceID string) ([]spooler.Job, error) {
	queue, err := r.PrinterQueue(deviceID)
	if err != nil {
		return nil, err
	}
	return queue.Jobs(), nil
}

func (r *Registry) snapshotLocked() []Device {
	out := make([]Device, 0, len(r.devices))
	for _, dev := range r.devices {
		out = append(out, dev)
	}
	sortDevices(out)
	return out
}

func (r *Registry) publish(eventType string, data interface{}) {
	if r.bus != nil {
		r.bus.Publish(eventType, data)
	}
}

func sortDevices(devs []Device) {
	sort.Slice(devs, func(i, j int) bool { return devs[i].ID < devs[j].ID })
}
