package valueobject

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount as "Rp 160.000", rounded to whole rupiah
// with "." as the thousands separator.
func FormatRupiah(amount decimal.Decimal) string {
	return "Rp " + FormatThousands(amount)
}

// FormatThousands renders an amount as "160.000"
func FormatThousands(amount decimal.Decimal) string {
	return idPrinter.Sprintf("%d", amount.Round(0).IntPart())
}
