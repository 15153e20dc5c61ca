package render

import (
	"fmt"
	"strings"
	"time"
)

// FormatCurrency renders integer cents in the Brazilian format,
// e.g. 123456 -> "R$ 1.234,56".
func FormatCurrency(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(d)
	}

	out := fmt.Sprintf("R$ %s,%02d", sb.String(), frac)
	if negative {
		return "-" + out
	}
	return out
}

// FormatDate renders the calendar date in the business timezone,
// dd/mm/yyyy.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02/01/2006")
}

// NormalizePhone formats Brazilian phone numbers as (XX) XXXXX-XXXX /
// (XX) XXXX-XXXX. Numbers it cannot make sense of pass through
// unchanged.
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	// Strip the country code if present.
	if (len(d) == 12 || len(d) == 13) && strings.HasPrefix(d, "55") {
		d = d[2:]
	}

	switch len(d) {
	case 11:
		return fmt.Sprintf("(%s) %s-%s", d[0:2], d[2:7], d[7:])
	case 10:
		return fmt.Sprintf("(%s) %s-%s", d[0:2], d[2:6], d[6:])
	default:
		return raw
	}
}

// DaysUntil returns the whole calendar days from now until t, both
// truncated to midnight in the business timezone. Calendar-day
// comparison avoids off-by-one errors around midnight.
func DaysUntil(now, t time.Time, loc *time.Location) int {
	a := midnight(now, loc)
	b := midnight(t, loc)
	return int(b.Sub(a).Hours() / 24)
}

func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SameCalendarDay reports whether a and b fall on the same calendar day
// in the business timezone.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	return midnight(a, loc).Equal(midnight(b, loc))
}
