package tui

import (
	"math"
	"strings"

	"github.com/alanyoungcy/polyconsole/internal/domain"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the newest width values as block characters scaled
// between their min and max. Missing values leave a gap. A flat series
// sits mid-height.
func Sparkline(values []domain.Num, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !usable(v) {
			continue
		}
		lo = math.Min(lo, v.Value)
		hi = math.Max(hi, v.Value)
	}

	top := len(sparkLevels) - 1
	var b strings.Builder
	for _, v := range values {
		switch {
		case !usable(v):
			b.WriteRune(' ')
		case hi == lo:
			b.WriteRune(sparkLevels[top/2])
		default:
			i := int(math.Round((v.Value - lo) / (hi - lo) * float64(top)))
			b.WriteRune(sparkLevels[i])
		}
	}
	return b.String()
}

func usable(n domain.Num) bool {
	return n.Valid && !math.IsNaN(n.Value) && !math.IsInf(n.Value, 0)
}

// latest returns the newest usable value in values.
func latest(values []domain.Num) domain.Num {
	for i := len(values) - 1; i >= 0; i-- {
		if usable(values[i]) {
			return values[i]
		}
	}
	return domain.Num{}
}
