package tools

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// money renders a whole-dollar amount with thousands separators: "$270,000".
func money(amount float64) string {
	return printer.Sprintf("$%.0f", amount)
}

func riskLevel(score int) string {
	switch {
	case score >= 75:
		return "Low"
	case score >= 50:
		return "Medium"
	}
	return "High"
}

func dealSize(amount float64) string {
	switch {
	case amount > 200000:
		return "Large"
	case amount > 100000:
		return "Medium"
	}
	return "Small"
}
