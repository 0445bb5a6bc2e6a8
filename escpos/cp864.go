package escpos

// IBM code page 864 (Arabic). x/text ships no CP864 charmap, so the high-half
// table lives here, taken from the standard CP864 definition. The page keys
// Arabic letters by presentation form; receipt text normally carries base
// letters, so a best-fit layer maps each base letter to the isolated form the
// page does have. Contextual shaping of those forms is firmware's job.
var cp864HighHalf = [128]rune{
	0x00: '°', // °
	0x01: '·', // ·
	0x02: '∙', // ∙
	0x03: '√', // √
	0x04: '▒', // ▒
	0x05: '─', // ─
	0x06: '│', // │
	0x07: '┼', // ┼
	0x08: '┤', // ┤
	0x09: '┬', // ┬
	0x0A: '├', // ├
	0x0B: '┴', // ┴
	0x0C: '┐', // ┐
	0x0D: '┌', // ┌
	0x0E: '└', // └
	0x0F: '┘', // ┘
	0x10: 'β', // β
	0x11: '∞', // ∞
	0x12: 'φ', // φ
	0x13: '±', // ±
	0x14: '½', // ½
	0x15: '¼', // ¼
	0x16: '≈', // ≈
	0x17: '«', // «
	0x18: '»', // »
	0x19: 'ﻷ', // lam-alef hamza above, isolated
	0x1A: 'ﻸ', // lam-alef hamza above, final
	0x1D: 'ﻻ', // lam-alef, isolated
	0x1E: 'ﻼ', // lam-alef, final
	0x20: ' ', // nbsp
	0x21: '­', // soft hyphen
	0x22: 'ﺂ', // alef madda, final
	0x23: '£', // £
	0x24: '¤', // ¤
	0x25: 'ﺄ', // alef hamza above, final
	0x28: 'ﺎ', // alef, final
	0x29: 'ﺏ', // beh, isolated
	0x2A: 'ﺕ', // teh, isolated
	0x2B: 'ﺙ', // theh, isolated
	0x2C: '،', // arabic comma
	0x2D: 'ﺝ', // jeem, isolated
	0x2E: 'ﺡ', // hah, isolated
	0x2F: 'ﺥ', // khah, isolated
	0x30: '٠', // ٠
	0x31: '١', // ١
	0x32: '٢', // ٢
	0x33: '٣', // ٣
	0x34: '٤', // ٤
	0x35: '٥', // ٥
	0x36: '٦', // ٦
	0x37: '٧', // ٧
	0x38: '٨', // ٨
	0x39: '٩', // ٩
	0x3A: 'ﻑ', // feh, isolated
	0x3B: '؛', // arabic semicolon
	0x3C: 'ﺱ', // seen, isolated
	0x3D: 'ﺵ', // sheen, isolated
	0x3E: 'ﺹ', // sad, isolated
	0x3F: '؟', // arabic question mark
	0x40: '¢', // ¢
	0x41: 'ﺀ', // hamza
	0x42: 'ﺁ', // alef madda, isolated
	0x43: 'ﺃ', // alef hamza above, isolated
	0x44: 'ﺅ', // waw hamza, isolated
	0x45: 'ﻊ', // ain, final
	0x46: 'ﺋ', // yeh hamza, initial
	0x47: 'ﺍ', // alef, isolated
	0x48: 'ﺑ', // beh, initial
	0x49: 'ﺓ', // teh marbuta, isolated
	0x4A: 'ﺗ', // teh, initial
	0x4B: 'ﺛ', // theh, initial
	0x4C: 'ﺟ', // jeem, initial
	0x4D: 'ﺣ', // hah, initial
	0x4E: 'ﺧ', // khah, initial
	0x4F: 'ﺩ', // dal, isolated
	0x50: 'ﺫ', // thal, isolated
	0x51: 'ﺭ', // reh, isolated
	0x52: 'ﺯ', // zain, isolated
	0x53: 'ﺳ', // seen, initial
	0x54: 'ﺷ', // sheen, initial
	0x55: 'ﺻ', // sad, initial
	0x56: 'ﺿ', // dad, initial
	0x57: 'ﻁ', // tah, isolated
	0x58: 'ﻅ', // zah, isolated
	0x59: 'ﻋ', // ain, initial
	0x5A: 'ﻏ', // ghain, initial
	0x5B: '¦', // ¦
	0x5C: '¬', // ¬
	0x5D: '÷', // ÷
	0x5E: '×', // ×
	0x5F: 'ﻉ', // ain, isolated
	0x60: 'ـ', // tatweel
	0x61: 'ﻓ', // feh, initial
	0x62: 'ﻗ', // qaf, initial
	0x63: 'ﻛ', // kaf, initial
	0x64: 'ﻟ', // lam, initial
	0x65: 'ﻣ', // meem, initial
	0x66: 'ﻧ', // noon, initial
	0x67: 'ﻫ', // heh, initial
	0x68: 'ﻭ', // waw, isolated
	0x69: 'ﻯ', // alef maksura, isolated
	0x6A: 'ﻳ', // yeh, initial
	0x6B: 'ﺽ', // dad, isolated
	0x6C: 'ﻌ', // ain, medial
	0x6D: 'ﻎ', // ghain, final
	0x6E: 'ﻍ', // ghain, isolated
	0x6F: 'ﻡ', // meem, isolated
	0x70: 'ﹽ', // shadda, medial
	0x71: 'ّ', // shadda
	0x72: 'ﻥ', // noon, isolated
	0x73: 'ﻩ', // heh, isolated
	0x74: 'ﻬ', // heh, medial
	0x75: 'ﻰ', // alef maksura, final
	0x76: 'ﻲ', // yeh, final
	0x77: 'ﻐ', // ghain, medial
	0x78: 'ﻕ', // qaf, isolated
	0x79: 'ﻵ', // lam-alef madda, isolated
	0x7A: 'ﻶ', // lam-alef madda, final
	0x7B: 'ﻝ', // lam, isolated
	0x7C: 'ﻙ', // kaf, isolated
	0x7D: 'ﻱ', // yeh, isolated
	0x7E: '■', // ■
}

// Base Arabic letters (U+0621..U+064A) to the CP864 byte of their isolated
// form. U+0625 (alef hamza below) has no CP864 form at all and degrades to
// plain alef.
var cp864BaseLetters = map[rune]byte{
	'ء': 0xC1, // ء
	'آ': 0xC2, // آ
	'أ': 0xC3, // أ
	'ؤ': 0xC4, // ؤ
	'إ': 0xC7, // إ best-fit
	'ئ': 0xC6, // ئ
	'ا': 0xC7, // ا
	'ب': 0xA9, // ب
	'ة': 0xC9, // ة
	'ت': 0xAA, // ت
	'ث': 0xAB, // ث
	'ج': 0xAD, // ج
	'ح': 0xAE, // ح
	'خ': 0xAF, // خ
	'د': 0xCF, // د
	'ذ': 0xD0, // ذ
	'ر': 0xD1, // ر
	'ز': 0xD2, // ز
	'س': 0xBC, // س
	'ش': 0xBD, // ش
	'ص': 0xBE, // ص
	'ض': 0xEB, // ض
	'ط': 0xD7, // ط
	'ظ': 0xD8, // ظ
	'ع': 0xDF, // ع
	'غ': 0xEE, // غ
	'ف': 0xBA, // ف
	'ق': 0xF8, // ق
	'ك': 0xFC, // ك
	'ل': 0xFB, // ل
	'م': 0xEF, // م
	'ن': 0xF2, // ن
	'ه': 0xF3, // ه
	'و': 0xE8, // و
	'ى': 0xE9, // ى
	'ي': 0xFD, // ي
}

var cp864FromRune map[rune]byte

func init() {
	cp864FromRune = make(map[rune]byte, 192)
	for i, r := range cp864HighHalf {
		if r != 0 {
			cp864FromRune[r] = byte(0x80 + i)
		}
	}
	for r, b := range cp864BaseLetters {
		cp864FromRune[r] = b
	}
	// the truncation ellipsis has no CP864 point; degrade to a period
	cp864FromRune[ellipsis] = '.'
}

func encodeCP864Rune(r rune) byte {
	if r < 0x80 {
		return byte(r)
	}
	if b, ok := cp864FromRune[r]; ok {
		return b
	}
	return '?'
}
