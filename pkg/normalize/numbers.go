package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	currencySymbols = regexp.MustCompile(`[€$£]`)
	kiloPattern     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*[Kk]\b`)
	numberToken     = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	decimalPattern  = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// placeholders are select-box defaults that mean "no value".
var placeholders = map[string]bool{
	"keine":        true,
	"nein":         true,
	"-":            true,
	"n/a":          true,
	"bitte wählen": true,
}

// Salary parses currency-annotated salary text into whole currency units.
//
// Currency symbols and codes are ignored, thousands may be grouped with
// periods or commas, and a K suffix multiplies by 1000 ("75,5K" is 75500).
// When several amounts appear, as in ranges, the largest wins.
func Salary(raw string) (int64, bool) {
	text := currencySymbols.ReplaceAllString(raw, " ")
	if strings.TrimSpace(text) == "" {
		return 0, false
	}

	var candidates []float64
	for _, m := range kiloPattern.FindAllStringSubmatch(text, -1) {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			candidates = append(candidates, f*1000)
		}
	}
	text = kiloPattern.ReplaceAllString(text, " ")

	for _, token := range numberToken.FindAllString(text, -1) {
		candidates = append(candidates, groupedAmounts(token)...)
	}

	if len(candidates) == 0 {
		return 0, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		best = math.Max(best, c)
	}
	if best > math.MaxInt64/2 {
		return 0, false
	}
	return int64(math.Round(best)), true
}

// groupedAmounts interprets a digit token with separators. "45.000" and
// "1,200,000" are thousands groupings, "45.000,50" carries cents that are
// dropped, and anything irregular such as a date yields each part
// separately.
func groupedAmounts(token string) []float64 {
	parts := strings.FieldsFunc(token, func(r rune) bool { return r == '.' || r == ',' })
	if len(parts) == 1 {
		return parseParts(parts)
	}

	if len(parts[len(parts)-1]) <= 2 && isThousandsGrouping(parts[:len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	if isThousandsGrouping(parts) {
		return parseParts([]string{strings.Join(parts, "")})
	}
	return parseParts(parts)
}

func isThousandsGrouping(parts []string) bool {
	if len(parts) == 0 || len(parts[0]) == 0 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

func parseParts(parts []string) []float64 {
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		if f, err := strconv.ParseFloat(p, 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// Number extracts the first decimal number from free text. A comma is read
// as the decimal separator; placeholder answers yield no value.
func Number(raw string) (float64, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" || placeholders[text] {
		return 0, false
	}
	match := decimalPattern.FindString(strings.ReplaceAll(text, ",", "."))
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsPlaceholder reports whether text is a "no answer" select default.
func IsPlaceholder(text string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(text))]
}
