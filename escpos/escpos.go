// Package escpos encodes structured print payloads into ESC/POS byte
// sequences for thermal receipt printers. Encoding is a pure transform: the
// same payload and config always produce the same bytes, and nothing here
// touches a port.
package escpos

import (
	"bytes"
	"fmt"
	"strings"
)

// Config selects paper geometry and text encoding for a printer.
type Config struct {
	PaperWidth int      // millimeters, 58 or 80
	Encoding   Encoding // cp864, cp1256 or utf8
}

// Columns returns the text width for the configured paper: 32 columns on
// 58 mm stock, 48 on 80 mm.
func (c Config) Columns() int {
	if c.PaperWidth == 58 {
		return 32
	}
	return 48
}

// Alignment selects horizontal alignment via ESC a
type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

// truncation marker for overflowing fields; one column wide
const ellipsis = '…'

var (
	cmdInit       = []byte{0x1B, 0x40}
	cmdCutFull    = []byte{0x1D, 0x56, 0x00}
	cmdDrawerKick = []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}

	qrModel = []byte{0x1D, 0x28, 0x6B, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00}
	qrPrint = []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30}
)

// qrMaxPayload is the QR model 2 binary capacity; the store command's
// two-byte length prefix allows more but no symbol would fit it.
const qrMaxPayload = 2953

// Builder accumulates an ESC/POS byte sequence. Text written through it is
// transcoded to the configured encoding; command bytes pass through verbatim.
type Builder struct {
	cfg Config
	buf bytes.Buffer
}

// NewBuilder returns a Builder for the given printer config.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// Init resets all printer formatting. Every job starts with this.
func (b *Builder) Init() {
	b.buf.Write(cmdInit)
}

// SelectCharset switches the printer to the code page matching the configured
// encoding. utf8 leaves the printer's default page untouched.
func (b *Builder) SelectCharset() {
	if page, ok := b.cfg.Encoding.codePage(); ok {
		b.buf.Write([]byte{0x1B, 0x74, page})
	}
}

// Align sets horizontal alignment for subsequent lines.
func (b *Builder) Align(a Alignment) {
	b.buf.Write([]byte{0x1B, 0x61, byte(a)})
}

// Bold toggles emphasized printing.
func (b *Builder) Bold(on bool) {
	v := byte(0x00)
	if on {
		v = 0x01
	}
	b.buf.Write([]byte{0x1B, 0x45, v})
}

// DoubleSize toggles double width and height. GS ! is used rather than the
// ESC ! master select so the bold state set via ESC E survives the toggle.
func (b *Builder) DoubleSize(on bool) {
	v := byte(0x00)
	if on {
		v = 0x11
	}
	b.buf.Write([]byte{0x1D, 0x21, v})
}

// Underline toggles single underline.
func (b *Builder) Underline(on bool) {
	v := byte(0x00)
	if on {
		v = 0x01
	}
	b.buf.Write([]byte{0x1B, 0x2D, v})
}

// Text writes a text field in the configured encoding, no line ending.
func (b *Builder) Text(s string) {
	b.buf.Write(encodeText(b.cfg.Encoding, s))
}

// Line writes a text field followed by a line feed.
func (b *Builder) Line(s string) {
	b.Text(s)
	b.buf.WriteByte('\n')
}

// Row lays out fields in fixed columns and writes the result as one line.
func (b *Builder) Row(fields []string, widths []int) error {
	row, err := FormatRow(fields, widths, b.cfg.Columns())
	if err != nil {
		return err
	}
	b.Line(row)
	return nil
}

// Rule writes a horizontal rule of the given character spanning all columns.
func (b *Builder) Rule(ch rune) {
	b.Line(strings.Repeat(string(ch), b.cfg.Columns()))
}

// Feed advances the paper n lines.
func (b *Builder) Feed(n int) {
	if n <= 0 {
		return
	}
	if n > 255 {
		n = 255
	}
	b.buf.Write([]byte{0x1B, 0x64, byte(n)})
}

// Cut performs a full paper cut. Always the final bytes of a printed job.
func (b *Builder) Cut() {
	b.buf.Write(cmdCutFull)
}

// DrawerPulse fires the cash drawer solenoid on drawer pin 2.
func (b *Builder) DrawerPulse() {
	b.buf.Write(cmdDrawerKick)
}

// QR emits a QR code block: model, module size, error correction, data and
// print, in that order, each with its own length prefix. The payload is
// embedded as raw UTF-8 so phone scanners decode it independent of the
// printer code page. An empty payload emits nothing.
func (b *Builder) QR(data string) error {
	if data == "" {
		return nil
	}
	payload := []byte(data)
	if len(payload) > qrMaxPayload {
		return fmt.Errorf("qr payload too long: %d bytes (max %d)", len(payload), qrMaxPayload)
	}

	b.buf.Write(qrModel)
	b.buf.Write([]byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x06}) // module size 6
	b.buf.Write([]byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x31}) // level M

	n := len(payload) + 3
	b.buf.Write([]byte{0x1D, 0x28, 0x6B, byte(n & 0xFF), byte(n >> 8), 0x31, 0x50, 0x30})
	b.buf.Write(payload)

	b.buf.Write(qrPrint)
	return nil
}

// Bytes returns the accumulated sequence.
func (b *Builder) Bytes() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

// FormatRow lays out fields at fixed widths. Widths must match fields
// one-to-one and sum to at most columns. A field longer than its width is
// truncated with a trailing ellipsis; shorter fields are right-padded, so
// the row never exceeds columns. Widths count runes, not bytes.
func FormatRow(fields []string, widths []int, columns int) (string, error) {
	if len(fields) != len(widths) {
		return "", fmt.Errorf("row has %d fields but %d widths", len(fields), len(widths))
	}

	total := 0
	for _, w := range widths {
		if w < 1 {
			return "", fmt.Errorf("row width %d is not positive", w)
		}
		total += w
	}
	if total > columns {
		return "", fmt.Errorf("row widths sum to %d, exceeding %d columns", total, columns)
	}

	var row strings.Builder
	row.Grow(total)
	for i, field := range fields {
		row.WriteString(padField(field, widths[i]))
	}
	return row.String(), nil
}

// padField truncates or right-pads a field to exactly width runes.
func padField(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-1]) + string(ellipsis)
	}
	return s + strings.Repeat(" ", width-len(runes))
}
