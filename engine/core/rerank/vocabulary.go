package rerank

import "strings"

// Vocabulary holds the keyword tables used for brand and category detection
// in recognized text. It is a plain data structure so vocab can be loaded
// from configuration and tuned independently of the fusion logic.
type Vocabulary struct {
	// Brands maps a canonical brand name to its synonyms as they may appear
	// in noisy OCR text. The canonical name itself always matches.
	Brands map[string][]string `yaml:"brands"`

	// Categories maps a canonical category to the keywords that signal it.
	Categories map[string][]string `yaml:"categories"`

	// PriceBand is the plausible retail price range for the domain.
	// Candidates priced inside the band get a small confidence bump.
	PriceBand PriceBand `yaml:"price_band"`
}

// PriceBand is an inclusive price range in the catalog currency.
type PriceBand struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultVocabulary returns the compiled-in keyword tables for the grocery
// domain. Deployments with their own catalogs load a replacement from YAML.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Brands: map[string][]string{
			"danone":    {"dannon"},
			"delice":    {"délice", "delic"},
			"president": {"président"},
			"nestle":    {"nestlé"},
			"vitalait":  {"vita lait"},
			"saida":     {"saïda"},
			"jadida":    {},
			"sicam":     {},
		},
		Categories: map[string][]string{
			"dairy":     {"yaourt", "yogurt", "lait", "milk", "fromage", "cheese", "beurre", "butter"},
			"beverage":  {"jus", "juice", "eau", "water", "soda", "boisson"},
			"snack":     {"biscuit", "chips", "chocolat", "chocolate", "gaufrette", "cake"},
			"pantry":    {"pates", "pâtes", "pasta", "riz", "rice", "couscous", "farine", "huile", "tomate"},
			"hygiene":   {"savon", "soap", "shampooing", "shampoo", "dentifrice", "gel"},
			"household": {"javel", "detergent", "détergent", "lessive", "eponge"},
		},
		PriceBand: PriceBand{Min: 0.5, Max: 50},
	}
}

// DetectBrand returns the canonical brand whose name or synonym appears
// earliest in the text, or "" when none is found.
func (v *Vocabulary) DetectBrand(text string) string {
	return detect(text, v.Brands)
}

// DetectCategory returns the canonical category whose keyword appears
// earliest in the text, or "" when no keyword matches.
func (v *Vocabulary) DetectCategory(text string) string {
	return detect(text, v.Categories)
}

// detect scans the text for every canonical key and its synonyms and returns
// the key of the earliest occurrence. Ties on position resolve to the
// lexicographically smaller key, so detection is a pure function of the text
// regardless of map iteration order.
func detect(text string, table map[string][]string) string {
	lower := strings.ToLower(text)
	if lower == "" {
		return ""
	}

	best := ""
	bestIdx := -1
	for canonical, synonyms := range table {
		idx := strings.Index(lower, canonical)
		for _, syn := range synonyms {
			if syn == "" {
				continue
			}
			if i := strings.Index(lower, strings.ToLower(syn)); i >= 0 && (idx < 0 || i < idx) {
				idx = i
			}
		}
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && canonical < best) {
			best = canonical
			bestIdx = idx
		}
	}
	return best
}

// InPriceBand reports whether the price falls inside the plausible retail
// band. A zero-valued band matches nothing.
func (v *Vocabulary) InPriceBand(price float64) bool {
	if v.PriceBand.Max <= v.PriceBand.Min {
		return false
	}
	return price >= v.PriceBand.Min && price <= v.PriceBand.Max
}
