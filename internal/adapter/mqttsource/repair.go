package mqttsource

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// repairRules fix the gateway firmware's invalid JSON number tokens.
// Order matters: the sign-only rules must run after the nan/inf rules so
// "-nan" is consumed whole. Every broken token becomes 0.
var repairRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i):\s*-?nan\b`), ":0"},          // "value": nan / -nan
	{regexp.MustCompile(`(?i):\s*-?inf\b`), ":0"},          // "value": inf / -inf
	{regexp.MustCompile(`:\s*-\s*([,}\]])`), ":0$1"},       // "value": -
	{regexp.MustCompile(`:\s*-\s*$`), ":0"},                // "value": - at end of input
	{regexp.MustCompile(`:\s*\.\s*([,}\]])`), ":0$1"},      // "value": .
	{regexp.MustCompile(`:\s*-\.\s*([,}\]])`), ":0$1"},     // "value": -.
}

// repairJSON applies the lexical repair rules to a raw payload.
func repairJSON(payload string) string {
	for _, rule := range repairRules {
		payload = rule.re.ReplaceAllString(payload, rule.repl)
	}
	return payload
}

// coerceValue normalizes a decoded tag value.
//
// Strings that are empty or a lone sign character become 0; parseable
// strings become numbers; other strings stay as display text (num nil).
// Non-finite numbers become 0. ok=false means the value is absent and
// the tag must be dropped.
func coerceValue(v any) (display string, num *float64, ok bool) {
	switch val := v.(type) {
	case nil:
		return "", nil, false
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			val = 0
		}
		return formatFloat(val), &val, true
	case bool:
		n := 0.0
		if val {
			n = 1.0
		}
		return formatFloat(n), &n, true
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" || trimmed == "-" || trimmed == "." {
			zero := 0.0
			return "0", &zero, true
		}
		if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			return formatFloat(parsed), &parsed, true
		}
		return val, nil, true
	default:
		return "", nil, false
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
