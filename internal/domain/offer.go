package domain

// CatalogOffer is one merchant's listing for a product as returned by a catalog search
type CatalogOffer struct {
	Name         string  `json:"name" yaml:"name" msgpack:"name"`
	Price        float64 `json:"price" yaml:"price" msgpack:"price"` // total package price
	UnitPrice    float64 `json:"unitPrice" yaml:"unitPrice" msgpack:"unitPrice"`
	Quantity     float64 `json:"quantity" yaml:"quantity" msgpack:"quantity"` // package quantity
	Unit         string  `json:"unit" yaml:"unit" msgpack:"unit"`
	MerchantID   string  `json:"merchantId" yaml:"merchantId" msgpack:"merchantId"` // may be numeric-looking
	MerchantLogo string  `json:"merchantLogo,omitempty" yaml:"merchantLogo,omitempty" msgpack:"merchantLogo"`
	URL          string  `json:"url,omitempty" yaml:"url,omitempty" msgpack:"url"`
}

// CatalogSearchResponse is the response body of the catalog search API
type CatalogSearchResponse struct {
	Products []CatalogProduct `json:"products"`
	Total    int              `json:"total"`
}

// CatalogProduct is a product entry in the catalog search response.
// A product is sold by several merchants, each listed in Depots.
type CatalogProduct struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Brand    string         `json:"brand,omitempty"`
	Quantity float64        `json:"quantity"`
	Unit     string         `json:"unit"`
	ImageURL string         `json:"imageUrl,omitempty"`
	URL      string         `json:"url,omitempty"`
	Depots   []CatalogDepot `json:"depots"`
}

// CatalogDepot is a single merchant's price for a catalog product
type CatalogDepot struct {
	MerchantID   string  `json:"merchantId"`
	MerchantLogo string  `json:"merchantLogo,omitempty"`
	Price        float64 `json:"price"`
	UnitPrice    float64 `json:"unitPrice"`
	URL          string  `json:"url,omitempty"`
}
