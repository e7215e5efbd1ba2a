package presenter

import (
	"math"
	"strings"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/shopspring/decimal"
)

// Placeholder is shown for any missing or non-numeric value.
const Placeholder = "--"

const (
	currencyPlaces = 2
	pricePlaces    = 4
	sharesPlaces   = 2
	winratePlaces  = 1
	betFracPlaces  = 0

	idHead = 6
	idTail = 4
)

func fixed(n domain.Num, places int32) string {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return Placeholder
	}
	return decimal.NewFromFloat(n.Value).StringFixed(places)
}

// Currency formats n with two decimals.
func Currency(n domain.Num) string {
	return fixed(n, currencyPlaces)
}

// Price formats a quote or fill price with four decimals.
func Price(n domain.Num) string {
	return fixed(n, pricePlaces)
}

// Shares formats a share quantity with two decimals.
func Shares(n domain.Num) string {
	return fixed(n, sharesPlaces)
}

// Count formats an integer counter.
func Count(n domain.Num) string {
	return fixed(n, 0)
}

// Seconds formats a duration in whole seconds, e.g. "42s".
func Seconds(n domain.Num) string {
	s := fixed(n, 0)
	if s == Placeholder {
		return s
	}
	return s + "s"
}

// Percent renders a 0..1 fraction as a percentage with the given decimals.
func Percent(n domain.Num, places int32) string {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return Placeholder
	}
	return decimal.NewFromFloat(n.Value).Shift(2).StringFixed(places) + "%"
}

// Quote renders a bid/ask pair.
func Quote(bid, ask domain.Num) string {
	return Price(bid) + "/" + Price(ask)
}

// Text returns s, or the placeholder when s is blank.
func Text(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// ShortID truncates long opaque identifiers to head…tail.
func ShortID(id string) string {
	if id == "" {
		return Placeholder
	}
	r := []rune(id)
	if len(r) <= idHead+idTail+2 {
		return id
	}
	return string(r[:idHead]) + "…" + string(r[len(r)-idTail:])
}
