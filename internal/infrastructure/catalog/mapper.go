package catalog

import (
	"strings"

	"github.com/cartwise/backend/internal/domain"
)

// MapToOffers flattens catalog products into one offer per merchant depot.
// Depots without a merchant id are skipped. Package quantity and unit come from
// the product; price, merchant and link come from the depot.
func MapToOffers(resp *domain.CatalogSearchResponse) []domain.CatalogOffer {
	offers := []domain.CatalogOffer{}
	if resp == nil {
		return offers
	}

	for _, product := range resp.Products {
		for _, depot := range product.Depots {
			merchantID := strings.TrimSpace(depot.MerchantID)
			if merchantID == "" {
				continue
			}
			offers = append(offers, domain.CatalogOffer{
				Name:         product.Title,
				Price:        depot.Price,
				UnitPrice:    unitPrice(depot, product.Quantity),
				Quantity:     product.Quantity,
				Unit:         strings.ToLower(product.Unit),
				MerchantID:   merchantID,
				MerchantLogo: depot.MerchantLogo,
				URL:          firstNonEmpty(depot.URL, product.URL),
			})
		}
	}
	return offers
}

// unitPrice prefers the catalog's unit price and derives it from the package
// quantity when missing.
func unitPrice(depot domain.CatalogDepot, quantity float64) float64 {
	if depot.UnitPrice > 0 {
		return depot.UnitPrice
	}
	if quantity > 0 && depot.Price > 0 {
		return depot.Price / quantity
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
