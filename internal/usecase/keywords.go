package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Compiled regex patterns for name preprocessing
var (
	// Matches a size like "500 gr", "1,5 lt", "2.5kg", "10 adet"
	sizePattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(gr|kg|ml|lt|adet)\b`)

	// Matches a "+"-suffixed bundle qualifier, e.g. "+ Bardak Hediyeli"
	bundleSuffixPattern = regexp.MustCompile(`\+.*$`)
)

// knownBrands are brand tokens recognised in product names. Multi-word brands
// are listed first.
var knownBrands = []string{
	"coca cola", "dr. oetker",
	"tat", "lipton", "doğuş", "çaykur", "ülker", "eti", "nestle", "nescafe", "jacobs",
	"torku", "pınar", "sütaş", "içim", "sek", "tamek", "pepsi", "uludağ",
	"erikli", "hayat", "sırma", "milka", "knorr", "dimes", "cappy", "banvit",
	"keskinoğlu", "komili", "yudum", "filiz", "barilla", "selpak", "solo",
	"fairy", "omo", "ariel", "persil", "tukaş", "kent", "tadım", "dardanel",
}

// bundleWords mark a multi-pack or single-pack variant of a product
var bundleWords = []string{"combo", "set", "paket", "bundle", "tekli", "tek dem"}

// normalizeName lowercases and trims a product name.
// "İ" is folded to "i" first so that Turkish capitals compare like ASCII ones.
func normalizeName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "İ", "i")
	return strings.ToLower(name)
}

// padWords collapses whitespace and pads with single spaces so that
// whole-word lookups can be done with strings.Contains(" word ").
func padWords(s string) string {
	return " " + strings.Join(strings.Fields(s), " ") + " "
}

func containsWord(padded, word string) bool {
	return strings.Contains(padded, " "+word+" ")
}

// findBrand returns the first known brand appearing as a whole word in the
// normalized name, or "" if none does.
func findBrand(normalized string) string {
	padded := padWords(normalized)
	for _, brand := range knownBrands {
		if containsWord(padded, brand) {
			return brand
		}
	}
	return ""
}

// removeBrands strips every known brand word from the normalized name
func removeBrands(normalized string) string {
	padded := padWords(normalized)
	for _, brand := range knownBrands {
		needle := " " + brand + " "
		for strings.Contains(padded, needle) {
			padded = strings.ReplaceAll(padded, needle, " ")
		}
	}
	return strings.TrimSpace(padded)
}

// hasBundleIndicator reports whether a normalized name describes a bundle
func hasBundleIndicator(normalized string) bool {
	if strings.Contains(normalized, "+") {
		return true
	}
	padded := padWords(normalized)
	for _, word := range bundleWords {
		if containsWord(padded, word) {
			return true
		}
	}
	return false
}

// extractKeywords reduces a product name to its descriptive keywords:
// sizes, brands and bundle qualifiers are removed, and only tokens longer than
// two characters that are not pure digits are kept.
func extractKeywords(name string) map[string]struct{} {
	cleaned := normalizeName(name)
	cleaned = bundleSuffixPattern.ReplaceAllString(cleaned, " ")
	cleaned = sizePattern.ReplaceAllString(cleaned, " ")
	cleaned = removeBrands(cleaned)

	keywords := make(map[string]struct{})
	for _, word := range strings.Fields(cleaned) {
		word = strings.Trim(word, ",.!?;:-'\"()")
		if utf8.RuneCountInString(word) <= 2 || isNumeric(word) {
			continue
		}
		keywords[word] = struct{}{}
	}
	return keywords
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// productSize is a numeric amount with its unit, parsed from a product name
type productSize struct {
	value float64
	unit  string
}

// parseSize extracts the first size in a name. ok is false when the name has none.
func parseSize(name string) (size productSize, ok bool) {
	m := sizePattern.FindStringSubmatch(name)
	if m == nil {
		return productSize{}, false
	}
	value, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return productSize{}, false
	}
	return productSize{value: value, unit: strings.ToLower(m[2])}, true
}

// inKilograms converts a gr or kg size to kilograms
func (s productSize) inKilograms() float64 {
	if s.unit == "gr" {
		return s.value / 1000
	}
	return s.value
}
