package escpos

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names the character encoding used for text fields. The printer is
// switched to the matching code page; glyph shaping and right-to-left layout
// of Arabic text happen in printer firmware, not here.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf8"
	EncodingCP864  Encoding = "cp864"
	EncodingCP1256 Encoding = "cp1256"
)

// Epson code page numbers for ESC t
const (
	codePagePC864   = 37
	codePageWPC1256 = 50
)

// ParseEncoding validates an encoding name from configuration.
func ParseEncoding(name string) (Encoding, error) {
	switch Encoding(name) {
	case EncodingUTF8, EncodingCP864, EncodingCP1256:
		return Encoding(name), nil
	case "":
		return EncodingUTF8, nil
	default:
		return "", fmt.Errorf("unknown character encoding %q", name)
	}
}

// codePage returns the ESC t page number for the encoding. utf8 has no code
// page: bytes pass through and the printer keeps its default page.
func (e Encoding) codePage() (byte, bool) {
	switch e {
	case EncodingCP864:
		return codePagePC864, true
	case EncodingCP1256:
		return codePageWPC1256, true
	default:
		return 0, false
	}
}

// encodeText converts a text field into the byte sequence for the selected
// encoding. Runes the code page cannot represent become '?'.
func encodeText(enc Encoding, s string) []byte {
	switch enc {
	case EncodingCP1256:
		out := make([]byte, 0, len(s))
		for _, r := range s {
			b, ok := charmap.Windows1256.EncodeRune(r)
			if !ok {
				b = '?'
			}
			out = append(out, b)
		}
		return out
	case EncodingCP864:
		out := make([]byte, 0, len(s))
		for _, r := range s {
			out = append(out, encodeCP864Rune(r))
		}
		return out
	default:
		return []byte(s)
	}
}
