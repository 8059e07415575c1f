package domain

// Optimization algorithm labels reported on OptimizationReport
const (
	AlgorithmOptimal        = "optimal"
	AlgorithmGreedyFallback = "greedy_timeout_fallback"
)

// MatchResult pairs a line item with the catalog offer chosen for it
type MatchResult struct {
	Item             LineItem       `json:"item" yaml:"item"`
	BestOffer        *CatalogOffer  `json:"bestOffer,omitempty" yaml:"bestOffer,omitempty"`
	PotentialSavings float64        `json:"potentialSavings" yaml:"potentialSavings"`
	IsAvailable      bool           `json:"isAvailable" yaml:"isAvailable"`
	Alternatives     []CatalogOffer `json:"alternatives,omitempty" yaml:"alternatives,omitempty"` // equally relevant offers at other merchants
}

// StoreAssignment is one merchant's share of the optimized plan
type StoreAssignment struct {
	MerchantID   string        `json:"merchantId" yaml:"merchantId"`
	MerchantName string        `json:"merchantName" yaml:"merchantName"`
	LogoURL      string        `json:"logoUrl" yaml:"logoUrl"`
	ItemCount    int           `json:"itemCount" yaml:"itemCount"`
	TotalCost    float64       `json:"totalCost" yaml:"totalCost"`
	Items        []MatchResult `json:"items" yaml:"items"`
}

// OptimizationReport is the result of optimizing a shopping list across merchants
type OptimizationReport struct {
	Assignments          []*StoreAssignment          `json:"assignments" yaml:"assignments"`
	TotalOptimizedCost   float64                     `json:"totalOptimizedCost" yaml:"totalOptimizedCost"`
	CurrentTotalCost     float64                     `json:"currentTotalCost" yaml:"currentTotalCost"`
	TotalSavings         float64                     `json:"totalSavings" yaml:"totalSavings"`
	ItemDistribution     map[string]*StoreAssignment `json:"itemDistribution" yaml:"itemDistribution"`
	CompletionPercentage float64                     `json:"completionPercentage" yaml:"completionPercentage"`
	FoundItems           []MatchResult               `json:"foundItems" yaml:"foundItems"`
	NotFoundItems        []MatchResult               `json:"notFoundItems" yaml:"notFoundItems"`
	Algorithm            string                      `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
}

// EmptyReport returns the zero-state report: no assignments, zero costs, 0% completion
func EmptyReport() *OptimizationReport {
	return &OptimizationReport{
		Assignments:      []*StoreAssignment{},
		ItemDistribution: map[string]*StoreAssignment{},
		FoundItems:       []MatchResult{},
		NotFoundItems:    []MatchResult{},
	}
}

// Merchant is the display information for a merchant identifier
type Merchant struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	LogoURL string `json:"logoUrl" yaml:"logoUrl"`
}
