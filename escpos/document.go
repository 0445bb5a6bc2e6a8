package escpos

import (
	"strconv"
	"time"
)

// Receipt is the payload for a sale receipt job. Content is assembled by the
// till; this package only lays it out and encodes it.
type Receipt struct {
	StoreName  string     `json:"storeName"`
	Header     []string   `json:"header,omitempty"`
	Items      []LineItem `json:"items"`
	Subtotal   float64    `json:"subtotal"`
	Tax        float64    `json:"tax"`
	Total      float64    `json:"total"`
	Payments   []Payment  `json:"payments,omitempty"`
	Footer     []string   `json:"footer,omitempty"`
	QRData     string     `json:"qrData,omitempty"`
	OpenDrawer bool       `json:"openDrawer,omitempty"`
}

// LineItem is one sold item line.
type LineItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
	Total float64 `json:"total"`
}

// Payment is one tender line on a receipt.
type Payment struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

// Report is the payload for an end-of-day or summary report job.
type Report struct {
	Title       string      `json:"title"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Rows        []ReportRow `json:"rows"`
}

// ReportRow is one label/value line of a report. A Divider row prints a rule
// instead of text.
type ReportRow struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Divider bool   `json:"divider,omitempty"`
}

// itemWidths splits the line columns into name/qty/price/total fields.
func itemWidths(columns int) []int {
	return []int{columns - 20, 4, 8, 8}
}

// totalWidths splits the line columns into a label and an amount field.
func totalWidths(columns int) []int {
	return []int{columns - 10, 10}
}

func fmtAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// EncodeReceipt renders a receipt payload into a complete ESC/POS job. The
// drawer pulse, when requested, fires immediately after initialization so the
// drawer opens while the paper is still printing; the cut stays the job's
// final bytes.
func EncodeReceipt(r Receipt, cfg Config) ([]byte, error) {
	b := NewBuilder(cfg)
	b.Init()
	b.SelectCharset()

	if r.OpenDrawer {
		b.DrawerPulse()
	}

	b.Align(AlignCenter)
	if r.StoreName != "" {
		b.DoubleSize(true)
		b.Bold(true)
		b.Line(r.StoreName)
		b.Bold(false)
		b.DoubleSize(false)
	}
	for _, line := range r.Header {
		b.Line(line)
	}

	b.Align(AlignLeft)
	b.Rule('=')

	widths := itemWidths(cfg.Columns())
	if err := b.Row([]string{"ITEM", "QTY", "PRICE", "TOTAL"}, widths); err != nil {
		return nil, err
	}
	b.Rule('-')
	for _, item := range r.Items {
		fields := []string{item.Name, strconv.Itoa(item.Qty), fmtAmount(item.Price), fmtAmount(item.Total)}
		if err := b.Row(fields, widths); err != nil {
			return nil, err
		}
	}
	b.Rule('-')

	tw := totalWidths(cfg.Columns())
	if err := b.Row([]string{"SUBTOTAL", fmtAmount(r.Subtotal)}, tw); err != nil {
		return nil, err
	}
	if r.Tax != 0 {
		if err := b.Row([]string{"TAX", fmtAmount(r.Tax)}, tw); err != nil {
			return nil, err
		}
	}
	b.Bold(true)
	if err := b.Row([]string{"TOTAL", fmtAmount(r.Total)}, tw); err != nil {
		return nil, err
	}
	b.Bold(false)
	for _, p := range r.Payments {
		if err := b.Row([]string{p.Method, fmtAmount(p.Amount)}, tw); err != nil {
			return nil, err
		}
	}
	b.Rule('=')

	b.Align(AlignCenter)
	for _, line := range r.Footer {
		b.Line(line)
	}
	if err := b.QR(r.QRData); err != nil {
		return nil, err
	}
	b.Align(AlignLeft)

	b.Feed(4)
	b.Cut()
	return b.Bytes(), nil
}

// EncodeReport renders a label/value report into a complete ESC/POS job.
func EncodeReport(rep Report, cfg Config) ([]byte, error) {
	b := NewBuilder(cfg)
	b.Init()
	b.SelectCharset()

	b.Align(AlignCenter)
	b.Bold(true)
	b.Line(rep.Title)
	b.Bold(false)
	if !rep.GeneratedAt.IsZero() {
		b.Line(rep.GeneratedAt.Format("2006-01-02 15:04"))
	}

	b.Align(AlignLeft)
	b.Rule('=')

	tw := totalWidths(cfg.Columns())
	for _, row := range rep.Rows {
		if row.Divider {
			b.Rule('-')
			continue
		}
		if err := b.Row([]string{row.Label, row.Value}, tw); err != nil {
			return nil, err
		}
	}

	b.Rule('=')
	b.Feed(4)
	b.Cut()
	return b.Bytes(), nil
}

// EncodeTestPage renders a fixed capability page: alignment, emphasis,
// column layout and a QR block, so a technician can verify a printer without
// the till. Takes no payload.
func EncodeTestPage(cfg Config) ([]byte, error) {
	width := 80
	if cfg.PaperWidth == 58 {
		width = 58
	}

	b := NewBuilder(cfg)
	b.Init()
	b.SelectCharset()

	b.Align(AlignCenter)
	b.DoubleSize(true)
	b.Line("PRINTER TEST")
	b.DoubleSize(false)
	b.Line(strconv.Itoa(width) + "mm / " + strconv.Itoa(cfg.Columns()) + " columns / " + string(normalizeEncoding(cfg.Encoding)))
	b.Rule('=')

	b.Align(AlignLeft)
	b.Line("left aligned")
	b.Align(AlignCenter)
	b.Line("center aligned")
	b.Align(AlignRight)
	b.Line("right aligned")
	b.Align(AlignLeft)

	b.Bold(true)
	b.Line("bold text")
	b.Bold(false)
	b.DoubleSize(true)
	b.Line("double size")
	b.DoubleSize(false)
	b.Underline(true)
	b.Line("underlined")
	b.Underline(false)

	b.Rule('-')
	if err := b.Row([]string{"COL A", "COL B", "COL C"}, []int{10, 10, 10}); err != nil {
		return nil, err
	}
	b.Rule('-')

	b.Align(AlignCenter)
	if err := b.QR("TAREEQA PRINTER TEST"); err != nil {
		return nil, err
	}
	b.Align(AlignLeft)

	b.Feed(4)
	b.Cut()
	return b.Bytes(), nil
}

// EncodeDrawerKick renders a drawer-open job: initialization and the kick
// pulse, nothing printed and no cut.
func EncodeDrawerKick(cfg Config) []byte {
	b := NewBuilder(cfg)
	b.Init()
	b.DrawerPulse()
	return b.Bytes()
}

func normalizeEncoding(e Encoding) Encoding {
	if e == "" {
		return EncodingUTF8
	}
	return e
}
