package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches signed integers and decimals inside modifier text.
var numberPattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// ParseModifierText extracts numeric values from a modifier line and returns
// the text template with numbers replaced by '#'.
// "+32 to maximum Life" -> ("# to maximum Life", [32], true).
// Text without any numeric value is returned unchanged with ok=false; the
// modifier is still stored, flagged unparsed.
func ParseModifierText(text string) (template string, values []float64, ok bool) {
	matches := numberPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return text, nil, false
	}

	values = make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return text, nil, false
		}
		values = append(values, v)
	}

	return numberPattern.ReplaceAllString(text, "#"), values, true
}

// tagKeywords maps lowercase template substrings to category tags.
// Order matters only for readability; all matches are collected.
var tagKeywords = []struct {
	substr string
	tag    string
}{
	{"maximum life", "life"},
	{"life regen", "life"},
	{"energy shield", "energy_shield"},
	{"maximum mana", "mana"},
	{"resistance", "resistance"},
	{"fire", "fire"},
	{"cold", "cold"},
	{"lightning", "lightning"},
	{"chaos damage", "chaos"},
	{"physical damage", "physical"},
	{"attack speed", "speed"},
	{"cast speed", "speed"},
	{"movement speed", "speed"},
	{"critical", "critical"},
	{"minion", "minion"},
	{"spell damage", "caster"},
}

// CategorizeModifier derives tags from a modifier template.
func CategorizeModifier(template string) []string {
	lower := strings.ToLower(template)

	var tags []string
	seen := make(map[string]bool)
	for _, kw := range tagKeywords {
		if strings.Contains(lower, kw.substr) && !seen[kw.tag] {
			seen[kw.tag] = true
			tags = append(tags, kw.tag)
		}
	}
	return tags
}
