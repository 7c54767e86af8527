package utils

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	crore = 10_000_000
	lakh  = 100_000
)

// FormatPrice renders a rupee amount in the Indian lakh/crore convention.
//
//	12500000 -> "₹ 1.25 Cr"
//	750000   -> "₹ 7.5 L"
//	45000    -> "₹ 45,000"
func FormatPrice(price int64) string {
	switch {
	case price >= crore:
		return "₹ " + trimRound(float64(price)/crore) + " Cr"
	case price >= lakh:
		return "₹ " + trimRound(float64(price)/lakh) + " L"
	}
	return "₹ " + GroupThousands(price)
}

// trimRound rounds to two decimals and drops trailing zeros.
func trimRound(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// GroupThousands inserts a comma every three digits.
func GroupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

// Ordinal returns n with its English ordinal suffix. 11, 12 and 13 always take "th".
func Ordinal(n int) string {
	suffixes := [10]string{"th", "st", "nd", "rd", "th", "th", "th", "th", "th", "th"}
	abs := n
	if abs < 0 {
		abs = -abs
	}
	if rem := abs % 100; rem >= 11 && rem <= 13 {
		return strconv.Itoa(n) + "th"
	}
	return strconv.Itoa(n) + suffixes[abs%10]
}

// FloorLabel renders a floor number as "3rd Floor".
func FloorLabel(n int) string {
	return Ordinal(n) + " Floor"
}

// AreaLabel renders a carpet area as "1200 sqft".
func AreaLabel(sqft int) string {
	return strconv.Itoa(sqft) + " sqft"
}

// UpperFirst upper-cases the first rune only.
func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
