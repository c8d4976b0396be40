// Package render maps an analysis result to display values.
package render

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	DefaultLocale = "en-IN"
	DefaultSymbol = "₹"
)

// Formatter formats currency amounts with two fraction digits and the
// grouping rules of a locale.
type Formatter struct {
	printer *message.Printer
	symbol  string
	locale  language.Tag
}

// NewFormatter builds a formatter for a BCP 47 locale such as "en-IN".
func NewFormatter(locale, symbol string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Formatter{
		printer: message.NewPrinter(tag),
		symbol:  symbol,
		locale:  tag,
	}, nil
}

// Currency renders v as symbol + grouped amount, e.g. "₹1,20,000.00". The sign
// of a negative amount goes before the symbol: "-₹5.00".
func (f *Formatter) Currency(v float64) string {
	sign := ""
	if math.Round(v*100) < 0 {
		sign = "-"
		v = -v
	}
	return sign + f.symbol + f.printer.Sprint(number.Decimal(v, number.Scale(2)))
}

func (f *Formatter) Locale() string {
	return f.locale.String()
}
