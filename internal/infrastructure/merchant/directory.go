// Package merchant resolves merchant identifiers returned by the catalog to
// display names and logo URLs from configurable reference tables.
package merchant

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cartwise/backend/internal/domain"
)

// LogoIDPlaceholder is replaced by the merchant identifier in a logo URL template
const LogoIDPlaceholder = "{id}"

// DefaultLogoURLTemplate is used when no logo template is configured
const DefaultLogoURLTemplate = "https://cdn.cartwise.app/merchants/{id}.png"

// DefaultNames maps known lowercase merchant slugs to display names
var DefaultNames = map[string]string{
	"migros":      "Migros",
	"bim":         "BİM",
	"a101":        "A101",
	"sok":         "ŞOK",
	"carrefour":   "CarrefourSA",
	"carrefoursa": "CarrefourSA",
	"hakmar":      "Hakmar",
	"tarim_kredi": "Tarım Kredi",
}

// DefaultNumericNames maps known numeric merchant ids to display names
var DefaultNumericNames = map[string]string{
	"1": "Migros",
	"2": "BİM",
	"3": "A101",
	"4": "ŞOK",
	"5": "CarrefourSA",
	"6": "Hakmar",
	"7": "Tarım Kredi",
}

// Config is the reference data behind a Directory
type Config struct {
	Names           map[string]string // lowercase slug -> display name
	NumericNames    map[string]string // numeric id -> display name
	LogoURLTemplate string            // must contain {id}
}

// Directory implements domain.MerchantDirectory over static tables
type Directory struct {
	names        map[string]string
	numericNames map[string]string
	logoTemplate string
}

var _ domain.MerchantDirectory = (*Directory)(nil)

// NewDirectory creates a directory. Nil tables fall back to the defaults; an
// empty template falls back to DefaultLogoURLTemplate.
func NewDirectory(cfg Config) *Directory {
	names := cfg.Names
	if names == nil {
		names = DefaultNames
	}
	numericNames := cfg.NumericNames
	if numericNames == nil {
		numericNames = DefaultNumericNames
	}
	template := cfg.LogoURLTemplate
	if template == "" {
		template = DefaultLogoURLTemplate
	}

	d := &Directory{
		names:        make(map[string]string, len(names)),
		numericNames: make(map[string]string, len(numericNames)),
		logoTemplate: template,
	}
	for slug, name := range names {
		d.names[strings.ToLower(slug)] = name
	}
	for id, name := range numericNames {
		d.numericNames[id] = name
	}
	return d
}

// DisplayName returns the human readable name of a merchant. Unknown numeric
// ids render as "Market #<id>"; other unknown ids are returned with their first
// letter capitalized.
func (d *Directory) DisplayName(merchantID string) string {
	id := strings.TrimSpace(merchantID)
	if id == "" {
		return ""
	}

	if name, ok := d.names[strings.ToLower(id)]; ok {
		return name
	}
	if name, ok := d.numericNames[id]; ok {
		return name
	}
	if isDigits(id) {
		return "Market #" + id
	}

	first, size := utf8.DecodeRuneInString(id)
	return string(unicode.ToUpper(first)) + id[size:]
}

// LogoURL derives the merchant's logo URL from the template. No network call is made.
func (d *Directory) LogoURL(merchantID string) string {
	id := strings.ToLower(strings.TrimSpace(merchantID))
	return strings.ReplaceAll(d.logoTemplate, LogoIDPlaceholder, url.PathEscape(id))
}

// Lookup returns both the display name and logo URL of a merchant
func (d *Directory) Lookup(merchantID string) domain.Merchant {
	return domain.Merchant{
		ID:      merchantID,
		Name:    d.DisplayName(merchantID),
		LogoURL: d.LogoURL(merchantID),
	}
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
