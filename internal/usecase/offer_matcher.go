package usecase

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/cartwise/backend/internal/domain"
)

// Relevance scoring weights
const (
	exactMatchScore       = 100.0
	maxPartialScore       = 99.0 // partial matches always rank below an exact name match
	brandMatchBonus       = 50.0
	keywordOverlapWeight  = 30.0
	bundleMismatchPenalty = 50.0
)

// Size compatibility rewards; same-unit and gr/kg comparisons use different bands
const (
	sameUnitExactBonus  = 20.0
	sameUnitCloseBonus  = 10.0
	sameUnitMismatch    = -10.0
	crossUnitExactBonus = 15.0
	crossUnitCloseBonus = 5.0
	crossUnitMismatch   = -5.0
	sizeExactLowerRatio = 0.8
	sizeExactUpperRatio = 1.2
	sizeCloseLowerRatio = 0.5
	sizeCloseUpperRatio = 2.0
)

// MatchConfig holds configuration for the offer matcher
type MatchConfig struct {
	EnableDebugLogging bool
}

// OfferMatcher picks the catalog offer that best matches a shopping-list line item
type OfferMatcher struct {
	enableDebugLogging bool
	log                zerolog.Logger
}

// scoredCandidate pairs an offer with its relevance score for one matching run
type scoredCandidate struct {
	offer domain.CatalogOffer
	score float64
}

// RankedOffer is a catalog offer with its relevance to a search query
type RankedOffer struct {
	domain.CatalogOffer `yaml:",inline"`
	Score float64 `json:"score" yaml:"score"`
}

// NewOfferMatcher creates a new offer matcher with the given configuration
func NewOfferMatcher(config MatchConfig, log zerolog.Logger) *OfferMatcher {
	return &OfferMatcher{
		enableDebugLogging: config.EnableDebugLogging,
		log:                log.With().Str("component", "offer_matcher").Logger(),
	}
}

// FindBestOffer returns the offer that best matches the line item, or nil when
// no offer has a positive price. Highest relevance wins; ties go to the cheapest
// offer, then to the first one encountered. When no offer scores above zero the
// cheapest priced offer is returned instead.
func (m *OfferMatcher) FindBestOffer(item domain.LineItem, offers []domain.CatalogOffer) *domain.CatalogOffer {
	best, _ := m.findBest(item, offers)
	return best
}

// FindAlternatives returns, for every merchant other than the best offer's, that
// merchant's best-matching offer when its score is within tolerance of bestScore.
// Results follow the merchants' first appearance in offers.
func (m *OfferMatcher) FindAlternatives(item domain.LineItem, offers []domain.CatalogOffer, best *domain.CatalogOffer, bestScore, tolerance float64) []domain.CatalogOffer {
	if best == nil || bestScore <= 0 {
		return nil
	}

	byMerchant := make(map[string][]domain.CatalogOffer)
	var merchantOrder []string
	for _, offer := range offers {
		if offer.MerchantID == best.MerchantID {
			continue
		}
		if _, seen := byMerchant[offer.MerchantID]; !seen {
			merchantOrder = append(merchantOrder, offer.MerchantID)
		}
		byMerchant[offer.MerchantID] = append(byMerchant[offer.MerchantID], offer)
	}

	var alternatives []domain.CatalogOffer
	for _, merchantID := range merchantOrder {
		candidate, score := m.findBest(item, byMerchant[merchantID])
		if candidate == nil || score <= 0 {
			continue
		}
		if score >= bestScore-tolerance {
			alternatives = append(alternatives, *candidate)
		}
	}
	return alternatives
}

// findBest implements FindBestOffer and also returns the winning score
// (zero when the cheapest-offer fallback was used).
func (m *OfferMatcher) findBest(item domain.LineItem, offers []domain.CatalogOffer) (*domain.CatalogOffer, float64) {
	var priced []domain.CatalogOffer
	for _, offer := range offers {
		if offer.Price > 0 {
			priced = append(priced, offer)
		}
	}
	if len(priced) == 0 {
		return nil, 0
	}

	var relevant []scoredCandidate
	for _, offer := range priced {
		score := m.ScoreOffer(item.Name, offer.Name)

		if m.enableDebugLogging {
			m.log.Debug().
				Str("item", item.Name).
				Str("offer", offer.Name).
				Str("merchant", offer.MerchantID).
				Float64("price", offer.Price).
				Float64("score", score).
				Msg("Scored offer")
		}

		if score > 0 {
			relevant = append(relevant, scoredCandidate{offer: offer, score: score})
		}
	}

	if len(relevant) == 0 {
		cheapest := cheapestOffer(priced)
		if m.enableDebugLogging {
			m.log.Debug().Str("item", item.Name).Str("offer", cheapest.Name).Msg("No relevant offer, using cheapest")
		}
		return &cheapest, 0
	}

	best := relevant[0]
	for _, candidate := range relevant[1:] {
		if candidate.score > best.score ||
			(candidate.score == best.score && candidate.offer.Price < best.offer.Price) {
			best = candidate
		}
	}

	if m.enableDebugLogging {
		m.log.Debug().
			Str("item", item.Name).
			Str("offer", best.offer.Name).
			Str("merchant", best.offer.MerchantID).
			Float64("score", best.score).
			Msg("Best offer")
	}

	offer := best.offer
	return &offer, best.score
}

// RankOffers scores every offer against query and orders them by score
// descending, then price ascending.
func (m *OfferMatcher) RankOffers(query string, offers []domain.CatalogOffer) []RankedOffer {
	ranked := make([]RankedOffer, 0, len(offers))
	for _, offer := range offers {
		ranked = append(ranked, RankedOffer{CatalogOffer: offer, Score: m.ScoreOffer(query, offer.Name)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Price < ranked[j].Price
	})
	return ranked
}

func cheapestOffer(offers []domain.CatalogOffer) domain.CatalogOffer {
	cheapest := offers[0]
	for _, offer := range offers[1:] {
		if offer.Price < cheapest.Price {
			cheapest = offer
		}
	}
	return cheapest
}

// ScoreOffer computes how relevant an offer name is to a line item name.
// An exact (trimmed, case-insensitive) match scores 100. Otherwise the score
// accumulates a brand bonus, keyword overlap, size compatibility and a bundle
// mismatch penalty, and is clamped to [0, 99].
func (m *OfferMatcher) ScoreOffer(itemName, offerName string) float64 {
	itemNorm := normalizeName(itemName)
	offerNorm := normalizeName(offerName)

	if itemNorm == offerNorm {
		return exactMatchScore
	}

	score := 0.0

	if brand := findBrand(itemNorm); brand != "" && brand == findBrand(offerNorm) {
		score += brandMatchBonus
	}

	score += keywordOverlapScore(itemName, offerName)
	score += sizeCompatibilityScore(itemName, offerName)

	if hasBundleIndicator(itemNorm) != hasBundleIndicator(offerNorm) {
		score -= bundleMismatchPenalty
	}

	if score < 0 {
		return 0
	}
	if score > maxPartialScore {
		return maxPartialScore
	}
	return score
}

// keywordOverlapScore is 30 × |shared keywords| / max(|item keywords|, 1)
func keywordOverlapScore(itemName, offerName string) float64 {
	itemKeywords := extractKeywords(itemName)
	offerKeywords := extractKeywords(offerName)

	shared := 0
	for keyword := range itemKeywords {
		if _, ok := offerKeywords[keyword]; ok {
			shared++
		}
	}

	return keywordOverlapWeight * float64(shared) / float64(max(len(itemKeywords), 1))
}

// sizeCompatibilityScore compares the package sizes written in both names.
// It is zero when either name has no size or the units cannot be compared.
func sizeCompatibilityScore(itemName, offerName string) float64 {
	itemSize, ok := parseSize(itemName)
	if !ok {
		return 0
	}
	offerSize, ok := parseSize(offerName)
	if !ok {
		return 0
	}

	if itemSize.unit == offerSize.unit {
		if itemSize.value <= 0 {
			return 0
		}
		return sizeBand(offerSize.value/itemSize.value, sameUnitExactBonus, sameUnitCloseBonus, sameUnitMismatch)
	}

	if isWeightUnit(itemSize.unit) && isWeightUnit(offerSize.unit) {
		itemKg := itemSize.inKilograms()
		if itemKg <= 0 {
			return 0
		}
		return sizeBand(offerSize.inKilograms()/itemKg, crossUnitExactBonus, crossUnitCloseBonus, crossUnitMismatch)
	}

	return 0
}

func isWeightUnit(unit string) bool {
	return unit == "gr" || unit == "kg"
}

func sizeBand(ratio, exact, near, mismatch float64) float64 {
	switch {
	case ratio >= sizeExactLowerRatio && ratio <= sizeExactUpperRatio:
		return exact
	case ratio >= sizeCloseLowerRatio && ratio <= sizeCloseUpperRatio:
		return near
	default:
		return mismatch
	}
}
