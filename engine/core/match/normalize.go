package match

import (
	"regexp"
	"strings"
)

// Phrase-level pack patterns removed before tokenization ("pack of 6",
// "lot de 3").
var packRe = regexp.MustCompile(`\b(?:pack|lot|boite|boîte)\s+(?:of|de)\s+\d+\b`)

// Token-level unit and quantity patterns ("100g", "1.5l", "x2", "6x", "250ml").
var (
	unitRe  = regexp.MustCompile(`^\d+(?:[.,]\d+)?(?:g|kg|mg|ml|cl|dl|l|oz|pcs?)$`)
	multRe  = regexp.MustCompile(`^(?:x\d+|\d+x)$`)
	digitRe = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
)

// Short connective particles that carry no product identity. Dropped unless
// they are the only tokens left.
var stopWords = map[string]struct{}{
	"de": {}, "du": {}, "des": {}, "le": {}, "la": {}, "les": {},
	"et": {}, "au": {}, "aux": {}, "en": {}, "a": {}, "an": {},
	"of": {}, "the": {}, "el": {}, "al": {}, "bel": {},
}

// NormalizeName produces the canonical core name used for cross-market
// similarity: lowercase, unit/quantity tokens stripped, filler stop-words
// dropped. The result is for comparison only, never for display.
func NormalizeName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return ""
	}

	lower = packRe.ReplaceAllString(lower, " ")

	tokens := strings.Fields(lower)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if unitRe.MatchString(tok) || multRe.MatchString(tok) || digitRe.MatchString(tok) {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}

	// Stop-words survive when nothing else remains, so degenerate names
	// still compare as themselves.
	if len(kept) == 0 {
		kept = tokens
	}

	return strings.Join(kept, " ")
}
