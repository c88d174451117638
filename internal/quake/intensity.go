package quake

import (
	"fmt"
	"strings"
)

// Intensity is a felt-intensity value on one of the enumerated scales.
// Shindo half-steps encode the JMA lower/upper bands (5弱=4.5, 5強=5.4,
// 6弱=5.5, 6強=6.4) so ordering by Value matches the physical ordering.
type Intensity struct {
	Value float64
	Scale string
}

var intensityAliases = []struct {
	value   float64
	scale   string
	aliases []string
}{
	{0, "Shindo", []string{"0", "０"}},
	{1, "Shindo", []string{"1", "１"}},
	{1, "Mercalli", []string{"I", "1"}},
	{1, "Liedu", []string{"I", "1"}},
	{2, "Shindo", []string{"2", "２"}},
	{2, "Mercalli", []string{"II", "2"}},
	{2, "Liedu", []string{"II", "2"}},
	{3, "Shindo", []string{"3", "３"}},
	{3, "Mercalli", []string{"III", "3"}},
	{3, "Liedu", []string{"III", "3"}},
	{4, "Shindo", []string{"4", "４"}},
	{4, "Mercalli", []string{"IV", "4"}},
	{4, "Liedu", []string{"IV", "4"}},
	{4.5, "Shindo", []string{"5-", "5弱", "５弱"}},
	{5, "Shindo", []string{"5", "５"}},
	{5, "Mercalli", []string{"V", "5"}},
	{5, "Liedu", []string{"V", "5"}},
	{5.4, "Shindo", []string{"5+", "5強", "５強"}},
	{5.5, "Shindo", []string{"6-", "6弱", "６弱"}},
	{6, "Mercalli", []string{"VI", "6"}},
	{6, "Liedu", []string{"VI", "6"}},
	{6.4, "Shindo", []string{"6+", "6強", "６強"}},
	{7, "Shindo", []string{"7", "７"}},
	{7, "Mercalli", []string{"VII", "7"}},
	{7, "Liedu", []string{"VII", "7"}},
	{8, "Mercalli", []string{"VIII", "8"}},
	{8, "Liedu", []string{"VIII", "8"}},
	{9, "Mercalli", []string{"IX", "9"}},
	{9, "Liedu", []string{"IX", "9"}},
	{10, "Mercalli", []string{"X", "10"}},
	{10, "Liedu", []string{"X", "10"}},
	{11, "Mercalli", []string{"XI", "11"}},
	{11, "Liedu", []string{"XI", "11"}},
	{12, "Mercalli", []string{"XII", "12"}},
	{12, "Liedu", []string{"XII", "12"}},
}

// ParseIntensity resolves a textual intensity in the given scale; an
// empty scale matches any scale in table order, so a bare digit
// resolves as Shindo before Mercalli or Liedu.
func ParseIntensity(text, scale string) (Intensity, bool) {
	for _, row := range intensityAliases {
		if scale != "" && !strings.EqualFold(scale, row.scale) {
			continue
		}
		for _, alias := range row.aliases {
			if text == alias {
				out := row.scale
				if scale != "" {
					out = capitalize(scale)
				}
				return Intensity{Value: row.value, Scale: out}, true
			}
		}
	}
	return Intensity{}, false
}

// IsZero reports whether no intensity was set.
func (i Intensity) IsZero() bool { return i.Scale == "" }

func (i Intensity) String() string {
	if i.IsZero() {
		return ""
	}
	for _, row := range intensityAliases {
		if row.value == i.Value && row.scale == i.Scale {
			return fmt.Sprintf("%s %s", i.Scale, row.aliases[0])
		}
	}
	return fmt.Sprintf("%s %g", i.Scale, i.Value)
}
