package units

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// AddCommas formats n with commas as thousands separators.
func AddCommas(n int64) string {
	return humanize.Comma(n)
}

// AddCommasFloat formats f with commas as thousands separators.
func AddCommasFloat(f float64) string {
	return humanize.Commaf(f)
}

// Power is a number shown as lead*10^exp.
type Power struct {
	Text  string
	Lead  int
	Exp   int
	Short bool // Text is the plain number, Lead and Exp are unset
}

// TenthPower shows n as "d*10^e", keeping only its first digit, unless it has
// at most maxDigits digits.
func TenthPower(n int64, maxDigits int) Power {
	text := strconv.FormatInt(n, 10)
	digits := strings.TrimPrefix(text, "-")
	if len(digits) <= maxDigits {
		return Power{Text: text, Short: true}
	}

	lead := int(digits[0] - '0')
	exp := len(digits) - 1
	sign := ""
	if n < 0 {
		sign = "-"
	}

	return Power{
		Text: sign + strconv.Itoa(lead) + "*10^" + strconv.Itoa(exp),
		Lead: lead,
		Exp:  exp,
	}
}
