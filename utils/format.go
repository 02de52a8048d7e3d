package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// MaskIBAN keeps the first and last four characters and redacts the middle.
func MaskIBAN(iban string) string {
	cleaned := strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if len(cleaned) <= 8 {
		return cleaned
	}
	return cleaned[:4] + strings.Repeat("*", len(cleaned)-8) + cleaned[len(cleaned)-4:]
}

// NormalizeEmail is the fallback trainer key when no customer id is known.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AmountToCents parses a decimal price string ("29.90") into minor units
// without going through floating point.
func AmountToCents(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, fmt.Errorf("empty amount")
	}

	// The sign is handled before splitting so that "-0.50" keeps it; parsing
	// the whole part alone would lose the sign on a zero.
	negative := strings.HasPrefix(amount, "-")
	if negative {
		amount = amount[1:]
	}

	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid amount %q", amount)
	}
	fracCents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	cents := units*100 + fracCents
	if negative {
		cents = -cents
	}
	return cents, nil
}
