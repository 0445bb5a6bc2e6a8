package escpos

import (
	"bytes"
	"testing"
)

func TestParseEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected Encoding
		wantErr  bool
	}{
		{"utf8", EncodingUTF8, false},
		{"cp864", EncodingCP864, false},
		{"cp1256", EncodingCP1256, false},
		{"", EncodingUTF8, false},
		{"latin1", "", true},
		{"CP864", "", true},
	}

	for _, tt := range tests {
		enc, err := ParseEncoding(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseEncoding(%q) expected error, got %q", tt.input, enc)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEncoding(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if enc != tt.expected {
			t.Errorf("ParseEncoding(%q) = %q, expected %q", tt.input, enc, tt.expected)
		}
	}
}

func TestEncodeTextUTF8Passthrough(t *testing.T) {
	t.Parallel()

	in := "مرحبا hello"
	out := encodeText(EncodingUTF8, in)
	if !bytes.Equal(out, []byte(in)) {
		t.Errorf("utf8 must pass bytes through unchanged, got % X", out)
	}
}

func TestEncodeTextCP1256(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected []byte
	}{
		{"مرحبا", []byte{0xE3, 0xD1, 0xCD, 0xC8, 0xC7}},
		{"شكرا", []byte{0xD4, 0xDF, 0xD1, 0xC7}},
		{"ABC 123", []byte("ABC 123")},
		{"€", []byte{0x80}},
		{"…", []byte{0x85}},
		{"日本", []byte{'?', '?'}}, // unmappable
	}

	for _, tt := range tests {
		out := encodeText(EncodingCP1256, tt.input)
		if !bytes.Equal(out, tt.expected) {
			t.Errorf("encodeText(cp1256, %q) = % X, expected % X", tt.input, out, tt.expected)
		}
	}
}

func TestEncodeTextCP864(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected []byte
	}{
		// base letters fall back to their isolated presentation forms
		{"شكرا", []byte{0xBD, 0xFC, 0xD1, 0xC7}},
		{"ABC 123", []byte("ABC 123")},
		{"٠١٢", []byte{0xB0, 0xB1, 0xB2}},
		{"؟", []byte{0xBF}},
		{"…", []byte{'.'}},        // no CP864 point, degrades
		{"日本", []byte{'?', '?'}}, // unmappable
	}

	for _, tt := range tests {
		out := encodeText(EncodingCP864, tt.input)
		if !bytes.Equal(out, tt.expected) {
			t.Errorf("encodeText(cp864, %q) = % X, expected % X", tt.input, out, tt.expected)
		}
	}
}

func TestCodePageNumbers(t *testing.T) {
	t.Parallel()

	if page, ok := EncodingCP864.codePage(); !ok || page != 37 {
		t.Errorf("cp864 should select Epson page 37, got %d ok=%v", page, ok)
	}
	if page, ok := EncodingCP1256.codePage(); !ok || page != 50 {
		t.Errorf("cp1256 should select Epson page 50, got %d ok=%v", page, ok)
	}
	if _, ok := EncodingUTF8.codePage(); ok {
		t.Error("utf8 must not select a code page")
	}
}

func TestCP864RoundTripHighHalf(t *testing.T) {
	t.Parallel()

	// every defined high-half rune must encode back to its byte
	for i, r := range cp864HighHalf {
		if r == 0 {
			continue
		}
		got := encodeCP864Rune(r)
		if got != byte(0x80+i) {
			t.Errorf("rune %U should encode to 0x%02X, got 0x%02X", r, 0x80+i, got)
		}
	}
}
