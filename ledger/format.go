package ledger

import (
	"strings"
	"time"
)

// AmountLabel renders cents as a locale-formatted amount, e.g. "1 250,00 EUR"
// under a French locale.
func (s *Service) AmountLabel(amountCents int64, currency string) string {
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	return s.printer.Sprintf("%.2f %s", float64(amountCents)/100, currency)
}

func (s *Service) dateLabel(t time.Time) string {
	if strings.HasPrefix(s.cfg.Locale, "fr") {
		return t.Format("02/01/2006 15:04")
	}
	return t.Format("Jan 2, 2006 15:04")
}
