package model

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var gbPrinter = message.NewPrinter(language.BritishEnglish)

// FormatGBP renders a monetary amount with en-GB digit grouping and two
// decimal places, e.g. £1,000,000,000,000.00. Template amounts stay well
// inside float64's exact integer range, so the conversion is lossless.
func FormatGBP(d decimal.Decimal) string {
	return gbPrinter.Sprintf("£%v", number.Decimal(d.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
