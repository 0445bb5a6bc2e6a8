package hardware

import (
	"sync"

	"github.com/Shehab101tf/tareeqa0-sub002/barcode"
	"github.com/Shehab101tf/tareeqa0-sub002/events"
)

// Scan is the barcode-scanned event payload: the decoded result plus the
// device that produced it.
type Scan struct {
	DeviceID string `json:"deviceId"`
	barcode.ScanResult
}

// maxFrame caps the scan buffer so a scanner that never sends a terminator
// still produces frames instead of growing without bound.
const maxFrame = 256

// scannerSession owns one open HID handle and pumps its reports into the
// event bus until the device fails or the session is closed.
type scannerSession struct {
	device    Device
	handle    ScannerHandle
	bus       *events.Bus
	done      chan struct{}
	closeOnce sync.Once
}

func newScannerSession(dev Device, handle ScannerHandle, bus *events.Bus) *scannerSession {
	return &scannerSession{
		device: dev,
		handle: handle,
		bus:    bus,
		done:   make(chan struct{}),
	}
}

// run reads HID reports and assembles them into scan frames. Scanners in
// serial or POS mode terminate each scan with CR, LF or ETX; a frame is also
// flushed when it reaches maxFrame bytes.
func (s *scannerSession) run() {
	buf := make([]byte, 64)
	frame := make([]byte, 0, maxFrame)

	for {
		n, err := s.handle.Read(buf)
		if err != nil {
			select {
			case <-s.done:
				// session was closed, the read error is expected
			default:
				log.Warn("Scanner read failed", "device_id", s.device.ID, "error", err)
				s.bus.Publish(events.EventScannerError, DeviceError{
					DeviceID: s.device.ID,
					Error:    err.Error(),
				})
			}
			return
		}

		for _, c := range buf[:n] {
			switch c {
			case 0x00:
				// HID report padding
			case '\r', '\n', 0x03:
				frame = s.flush(frame)
			default:
				frame = append(frame, c)
				if len(frame) >= maxFrame {
					frame = s.flush(frame)
				}
			}
		}
	}
}

// flush decodes and publishes one frame, returning the reset buffer. Frames
// too short to be a barcode are dropped without an event.
func (s *scannerSession) flush(frame []byte) []byte {
	if len(frame) == 0 {
		return frame
	}
	result, ok := barcode.Decode(frame)
	if ok {
		log.Debug("Barcode scanned", "device_id", s.device.ID, "barcode", result.Barcode, "format", string(result.Format))
		s.bus.Publish(events.EventBarcodeScanned, Scan{
			DeviceID:   s.device.ID,
			ScanResult: result,
		})
	}
	return frame[:0]
}

// close stops the read loop by closing the underlying handle. Safe to call
// more than once.
func (s *scannerSession) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.handle.Close()
	})
}
