package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders cents as "$1,038.14".
func FormatUSD(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	s := decimal.New(cents, -2).StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + formatThousand(whole) + "." + frac
}

func formatThousand(digits string) string {
	var out strings.Builder
	for i, c := range digits {
		if i != 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String()
}
