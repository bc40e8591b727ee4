// Package normalize canonicalizes raw board column values into comparable
// keys. Every function is pure and deterministic and never panics:
// absence of a usable value is reported through the boolean result.
package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

var (
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	digitRunPattern = regexp.MustCompile(`\d+`)
	referenceToken  = regexp.MustCompile(`^[A-Za-z0-9]+(?:[-_][A-Za-z0-9]+)*$`)
	urlPattern      = regexp.MustCompile(`(?i)^(?:https?://|www\.)`)
	nameSeparators  = regexp.MustCompile(`[\-_,./()]+`)
	nameDisallowed  = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	germanFolding   = strings.NewReplacer("ß", "ss", "ä", "ae", "ö", "oe", "ü", "ue")
)

// Email extracts a lowercased email address from plain text or from a JSON
// email column payload ({"email": ..., "text": ...}).
func Email(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if obj, ok := jsonObject(raw); ok {
		for _, key := range []string{"email", "text"} {
			if s, ok := obj[key].(string); ok {
				if email, ok := Email(s); ok {
					return email, true
				}
			}
		}
		return "", false
	}
	match := emailPattern.FindString(raw)
	if match == "" {
		return "", false
	}
	return strings.ToLower(match), true
}

// EmailValue tries the visible text first and the raw payload second.
func EmailValue(v records.Value) (string, bool) {
	if email, ok := Email(v.Text); ok {
		return email, true
	}
	return Email(string(v.Raw))
}

// Reference extracts an embedded reference number from link text.
//
// A JSON link payload contributes its "text", else its "url". URLs yield
// their longest digit run. A single alphanumeric token containing a digit,
// such as "hf4u-100", is kept whole and upper-cased; other free text yields
// its longest digit run.
func Reference(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if obj, ok := jsonObject(raw); ok {
		if text := stringField(obj, "text"); text != "" {
			if ref, ok := Reference(text); ok {
				return ref, true
			}
		}
		return longestDigitRun(stringField(obj, "url"))
	}
	if urlPattern.MatchString(raw) || strings.Contains(raw, "/") {
		return longestDigitRun(raw)
	}
	if referenceToken.MatchString(raw) && digitRunPattern.MatchString(raw) {
		return strings.ToUpper(raw), true
	}
	return longestDigitRun(raw)
}

// ReferenceValue prefers the raw link payload, then the visible text.
func ReferenceValue(v records.Value) (string, bool) {
	if ref, ok := Reference(string(v.Raw)); ok {
		return ref, true
	}
	return Reference(v.Text)
}

// PersonName folds a display name for fallback matching: lowercase,
// German umlauts transliterated, other diacritics stripped, punctuation
// turned into spaces and whitespace collapsed.
func PersonName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = germanFolding.Replace(s)
	// Transformers carry state, so each call builds its own chain.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = nameSeparators.ReplaceAllString(s, " ")
	s = nameDisallowed.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Composite joins an external ID and an item name into one key. Both parts
// must be present.
func Composite(externalID, name string) (string, bool) {
	externalID = strings.ToLower(strings.TrimSpace(externalID))
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))
	if externalID == "" || name == "" {
		return "", false
	}
	return externalID + "|" + name, true
}

func longestDigitRun(s string) (string, bool) {
	best := ""
	for _, run := range digitRunPattern.FindAllString(s, -1) {
		if len(run) > len(best) {
			best = run
		}
	}
	return best, best != ""
}

func jsonObject(raw string) (map[string]any, bool) {
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
