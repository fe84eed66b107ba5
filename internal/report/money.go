package report

import (
	"github.com/aerocheck/aerocheck/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatMoney renders whole dollars with grouping, e.g. $10,000
func FormatMoney(dollars int64) string {
	return message.NewPrinter(language.AmericanEnglish).Sprintf("$%d", dollars)
}

// FormatRange renders a cost range, e.g. $10,000–$100,000
func FormatRange(c models.CostRange) string {
	if c.Min == c.Max {
		return FormatMoney(c.Min)
	}
	return FormatMoney(c.Min) + "–" + FormatMoney(c.Max)
}
