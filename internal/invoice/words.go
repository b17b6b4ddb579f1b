package invoice

import (
	"math"
	"strings"
)

var (
	ones = []string{
		"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// Words spells n in Indian-English grouping (crore, lakh, thousand).
// Negative values are spelled by magnitude.
func Words(n int64) string {
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return "Zero"
	}

	var parts []string
	if n >= 1_00_00_000 {
		// Amounts beyond 99 crore recurse on the crore count.
		parts = append(parts, upTo99Crore(n/1_00_00_000)+" Crore")
		n %= 1_00_00_000
	}
	if n >= 1_00_000 {
		parts = append(parts, twoDigits(n/1_00_000)+" Lakh")
		n %= 1_00_000
	}
	if n >= 1_000 {
		parts = append(parts, twoDigits(n/1_000)+" Thousand")
		n %= 1_000
	}
	if n > 0 {
		parts = append(parts, threeDigits(n))
	}
	return strings.Join(parts, " ")
}

// AmountWords spells a rupee amount rounded to the nearest rupee.
func AmountWords(amount float64) string {
	return Words(int64(math.Round(amount)))
}

func upTo99Crore(n int64) string {
	if n < 100 {
		return twoDigits(n)
	}
	return Words(n)
}

func twoDigits(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}

func threeDigits(n int64) string {
	if n < 100 {
		return twoDigits(n)
	}
	s := ones[n/100] + " Hundred"
	if n%100 != 0 {
		s += " and " + twoDigits(n%100)
	}
	return s
}
