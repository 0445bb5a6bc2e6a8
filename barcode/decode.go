package barcode

import (
	"regexp"
	"strings"
	"time"
)

// Format identifies a barcode symbology
type Format string

const (
	FormatEAN13   Format = "EAN-13"
	FormatUPCA    Format = "UPC-A"
	FormatCode128 Format = "Code-128"
	FormatUnknown Format = "Unknown"
)

// ScanResult is one decoded scan. Invalid barcodes are still surfaced with
// Valid=false; accepting or rejecting them is the till's decision, not ours.
type ScanResult struct {
	Barcode   string    `json:"barcode"`
	Format    Format    `json:"format"`
	Valid     bool      `json:"isValid"`
	Timestamp time.Time `json:"timestamp"`
}

// Scanners deliver framed ASCII; anything outside the printable range is
// framing or line noise. Classification is strictly by shape: EAN-13 and
// UPC-A are length rules, the Code-39/128 character set covers the rest.
const minLength = 8

var code128Pattern = regexp.MustCompile(`(?i)^[A-Z0-9\-\.\$/\+\%\s]+$`)

// Decode converts a raw scanner buffer into a ScanResult. The second return
// is false when the payload is too short to be a barcode after stripping
// framing bytes; no result should be emitted in that case.
func Decode(raw []byte) (ScanResult, bool) {
	payload := sanitize(raw)
	if len(payload) < minLength {
		return ScanResult{}, false
	}

	format := classify(payload)

	valid := true
	if format == FormatEAN13 {
		valid = ValidateEAN13(payload)
	}

	return ScanResult{
		Barcode:   payload,
		Format:    format,
		Valid:     valid,
		Timestamp: time.Now(),
	}, true
}

// sanitize drops control bytes (0x00-0x1F, 0x7F) and anything non-ASCII,
// then trims surrounding whitespace. STX/ETX framing and CR/LF terminators
// from the scanner disappear here.
func sanitize(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c < 0x20 || c >= 0x7F {
			continue
		}
		b.WriteByte(c)
	}
	return strings.TrimSpace(b.String())
}

func classify(payload string) Format {
	switch {
	case len(payload) == 13 && allDigits(payload):
		return FormatEAN13
	case len(payload) == 12 && allDigits(payload):
		return FormatUPCA
	case code128Pattern.MatchString(payload):
		return FormatCode128
	default:
		return FormatUnknown
	}
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ValidateEAN13 checks the trailing check digit of a 13-digit code. Digits
// d0..d11 are weighted 1 at even indexes and 3 at odd; the check digit is
// (10 - sum mod 10) mod 10 and must equal d12.
func ValidateEAN13(code string) bool {
	if len(code) != 13 || !allDigits(code) {
		return false
	}

	sum := 0
	for i := 0; i < 12; i++ {
		digit := int(code[i] - '0')
		if i%2 == 0 {
			sum += digit
		} else {
			sum += digit * 3
		}
	}

	check := (10 - sum%10) % 10
	return check == int(code[12]-'0')
}
