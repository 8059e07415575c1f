package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartwise/backend/internal/domain"
)

// stubMerchants is a domain.MerchantDirectory that upper-cases merchant ids
type stubMerchants struct{}

func (stubMerchants) DisplayName(merchantID string) string { return strings.ToUpper(merchantID) }
func (stubMerchants) LogoURL(merchantID string) string     { return "logo/" + merchantID }

func newTestOptimizer(timeout time.Duration) *CombinationOptimizer {
	return NewCombinationOptimizer(stubMerchants{}, timeout, zerolog.Nop())
}

// matched builds an available match whose best offer is the first offer
func matched(name string, currentPrice float64, best domain.CatalogOffer, alternatives ...domain.CatalogOffer) domain.MatchResult {
	b := best
	return domain.MatchResult{
		Item:             domain.LineItem{Name: name, Quantity: 1, TotalPrice: currentPrice},
		BestOffer:        &b,
		IsAvailable:      true,
		PotentialSavings: potentialSavings(domain.LineItem{TotalPrice: currentPrice}, &b),
		Alternatives:     alternatives,
	}
}

func TestOptimalCombination_Empty(t *testing.T) {
	o := newTestOptimizer(time.Second)

	for _, matches := range [][]domain.MatchResult{nil, {{Item: domain.LineItem{Name: "Safran"}}}} {
		result, err := o.OptimalCombination(context.Background(), matches)
		if err != nil {
			t.Fatalf("OptimalCombination() error = %v", err)
		}
		if len(result.Assignments) != 0 || len(result.ItemDistribution) != 0 || result.TotalCost != 0 {
			t.Errorf("OptimalCombination() = %+v, want an empty plan", result)
		}
		if result.Assignments == nil || result.ItemDistribution == nil {
			t.Error("empty plan should use empty, non-nil collections")
		}
		if result.Algorithm != domain.AlgorithmOptimal {
			t.Errorf("Algorithm = %q, want %q", result.Algorithm, domain.AlgorithmOptimal)
		}
	}
}

func TestOptimalCombination_ConsolidatesStores(t *testing.T) {
	o := newTestOptimizer(time.Second)
	matches := []domain.MatchResult{
		matched("Süt 1 lt", 30, offer("Süt 1 lt", 25, "bim"), offer("Süt 1 lt", 27, "a101")),
		matched("Ekmek", 10, offer("Ekmek", 7, "a101"), offer("Ekmek", 8, "bim")),
	}

	result, err := o.OptimalCombination(context.Background(), matches)
	if err != nil {
		t.Fatalf("OptimalCombination() error = %v", err)
	}

	if len(result.Assignments) != 1 {
		t.Fatalf("got %d stores, want 1", len(result.Assignments))
	}
	store := result.Assignments[0]
	if store.MerchantID != "bim" || store.MerchantName != "BIM" || store.LogoURL != "logo/bim" {
		t.Errorf("store = %+v, want bim", store)
	}
	if store.ItemCount != 2 || store.TotalCost != 33 || result.TotalCost != 33 {
		t.Errorf("store has %d items costing %v (total %v), want 2 items costing 33", store.ItemCount, store.TotalCost, result.TotalCost)
	}

	// Ekmek moved from its best a101 offer to the bim alternative
	bread := store.Items[1]
	if bread.BestOffer.MerchantID != "bim" || bread.BestOffer.Price != 8 || bread.PotentialSavings != 2 {
		t.Errorf("Ekmek = %+v, want the bim offer with savings 2", bread)
	}
	if result.ItemDistribution["Süt 1 lt"] != store || result.ItemDistribution["Ekmek"] != store {
		t.Error("ItemDistribution should point at the chosen assignment")
	}

	if len(result.Matches) != 2 {
		t.Fatalf("got %d resolved matches, want 2", len(result.Matches))
	}
	if result.Matches[0].Item.Name != "Süt 1 lt" || result.Matches[1].Item.Name != "Ekmek" {
		t.Error("resolved matches should keep input order")
	}
	if got := result.Matches[1].BestOffer; got.MerchantID != "bim" || got.Price != 8 {
		t.Errorf("resolved Ekmek = %+v, want the bim offer", got)
	}
	if matches[1].BestOffer.MerchantID != "a101" {
		t.Error("input matches must not be modified")
	}
}

func TestOptimalCombination_ResolvedMatchesKeepUnavailable(t *testing.T) {
	o := newTestOptimizer(time.Second)
	matches := []domain.MatchResult{
		{Item: domain.LineItem{Name: "Safran"}},
		matched("Ekmek", 10, offer("Ekmek", 7, "a101")),
	}

	result, err := o.OptimalCombination(context.Background(), matches)
	if err != nil {
		t.Fatalf("OptimalCombination() error = %v", err)
	}

	if len(result.Matches) != 2 || result.Matches[0].IsAvailable || result.Matches[1].BestOffer.MerchantID != "a101" {
		t.Errorf("resolved matches = %+v, want Safran untouched and Ekmek at a101", result.Matches)
	}
}

func TestOptimalCombination_FewerStoresBeatLowerCost(t *testing.T) {
	o := newTestOptimizer(time.Second)
	matches := []domain.MatchResult{
		matched("A", 0, offer("A", 10, "x"), offer("A", 50, "y")),
		matched("B", 0, offer("B", 10, "y"), offer("B", 40, "x")),
		matched("C", 0, offer("C", 1, "z")),
	}

	result, err := o.OptimalCombination(context.Background(), matches)
	if err != nil {
		t.Fatalf("OptimalCombination() error = %v", err)
	}

	if len(result.Assignments) != 2 {
		t.Fatalf("got %d stores, want 2", len(result.Assignments))
	}
	if result.TotalCost != 51 {
		t.Errorf("TotalCost = %v, want 51", result.TotalCost)
	}
	// sorted by item count descending
	if result.Assignments[0].MerchantID != "x" || result.Assignments[1].MerchantID != "z" {
		t.Errorf("stores = %s, %s; want x, z", result.Assignments[0].MerchantID, result.Assignments[1].MerchantID)
	}
}

func TestOptimalCombination_SortsByCostWithinItemCount(t *testing.T) {
	o := newTestOptimizer(time.Second)
	matches := []domain.MatchResult{
		matched("A", 0, offer("A", 30, "x")),
		matched("B", 0, offer("B", 10, "y")),
		matched("C", 0, offer("C", 20, "z")),
	}

	result, err := o.OptimalCombination(context.Background(), matches)
	if err != nil {
		t.Fatalf("OptimalCombination() error = %v", err)
	}

	var got []string
	for _, store := range result.Assignments {
		got = append(got, store.MerchantID)
	}
	if strings.Join(got, ",") != "y,z,x" {
		t.Errorf("store order = %v, want y,z,x", got)
	}
}

func TestOptimalCombination_DuplicateNamesShareAStore(t *testing.T) {
	o := newTestOptimizer(time.Second)
	matches := []domain.MatchResult{
		matched("Süt", 30, offer("Süt", 25, "bim")),
		matched("Süt", 30, offer("Süt", 27, "a101")),
		matched("Ekmek", 10, offer("Ekmek", 7, "a101")),
	}

	result, err := o.OptimalCombination(context.Background(), matches)
	if err != nil {
		t.Fatalf("OptimalCombination() error = %v", err)
	}

	if len(result.Assignments) != 1 {
		t.Fatalf("got %d stores, want 1", len(result.Assignments))
	}
	store := result.Assignments[0]
	if store.MerchantID != "a101" || store.ItemCount != 3 || store.TotalCost != 61 {
		t.Errorf("store = %s with %d items costing %v, want a101 with 3 items costing 61", store.MerchantID, store.ItemCount, store.TotalCost)
	}
	if result.ItemDistribution["Süt"] != result.ItemDistribution["Ekmek"] {
		t.Error("both names should map to the same assignment")
	}
}

// bruteForce enumerates every candidate choice and returns the best
// (store count, cost) pair.
func bruteForce(groups []itemGroup) (int, float64) {
	bestStores, bestCost := math.MaxInt, math.Inf(1)
	choices := make([]int, len(groups))

	var walk func(int)
	walk = func(i int) {
		if i == len(groups) {
			used := make(map[string]bool)
			cost := 0.0
			for gi, group := range groups {
				candidate := group.candidates[choices[gi]]
				used[candidate.merchantID] = true
				cost += candidate.cost
			}
			if len(used) < bestStores || (len(used) == bestStores && cost < bestCost) {
				bestStores, bestCost = len(used), cost
			}
			return
		}
		for c := range groups[i].candidates {
			choices[i] = c
			walk(i + 1)
		}
	}
	walk(0)

	return bestStores, bestCost
}

func randomMatches(rng *rand.Rand, items, merchants int) []domain.MatchResult {
	merchantID := func() string { return fmt.Sprintf("m%d", rng.Intn(merchants)) }

	matches := make([]domain.MatchResult, 0, items)
	for i := 0; i < items; i++ {
		name := fmt.Sprintf("item-%d", i)
		best := offer(name, float64(1+rng.Intn(50)), merchantID())
		var alternatives []domain.CatalogOffer
		for a := rng.Intn(4); a > 0; a-- {
			alternatives = append(alternatives, offer(name, float64(1+rng.Intn(50)), merchantID()))
		}
		matches = append(matches, matched(name, 40, best, alternatives...))
	}
	return matches
}

func TestOptimalCombination_MatchesBruteForce(t *testing.T) {
	o := newTestOptimizer(0)
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		matches := randomMatches(rng, 1+rng.Intn(7), 2+rng.Intn(4))
		groups, _ := buildItemGroups(matches)
		wantStores, wantCost := bruteForce(groups)

		result, err := o.OptimalCombination(context.Background(), matches)
		if err != nil {
			t.Fatalf("run %d: OptimalCombination() error = %v", run, err)
		}
		if len(result.Assignments) != wantStores {
			t.Errorf("run %d: %d stores, want %d", run, len(result.Assignments), wantStores)
		}
		if math.Abs(result.TotalCost-wantCost) > 1e-9 {
			t.Errorf("run %d: cost %v, want %v", run, result.TotalCost, wantCost)
		}

		assigned := 0
		for _, store := range result.Assignments {
			assigned += store.ItemCount
		}
		if assigned != len(matches) {
			t.Errorf("run %d: %d items assigned, want %d", run, assigned, len(matches))
		}
	}
}

func TestOptimalCombination_IsDeterministic(t *testing.T) {
	o := newTestOptimizer(0)
	matches := randomMatches(rand.New(rand.NewSource(3)), 6, 4)

	first, err := o.OptimalCombination(context.Background(), matches)
	if err != nil {
		t.Fatalf("OptimalCombination() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := o.OptimalCombination(context.Background(), matches)
		if err != nil {
			t.Fatalf("OptimalCombination() error = %v", err)
		}
		if len(again.Assignments) != len(first.Assignments) {
			t.Fatalf("run %d: store count changed", i)
		}
		for si := range first.Assignments {
			if again.Assignments[si].MerchantID != first.Assignments[si].MerchantID {
				t.Errorf("run %d: store %d = %s, want %s", i, si, again.Assignments[si].MerchantID, first.Assignments[si].MerchantID)
			}
		}
	}
}

// wideMatches builds a problem whose exact search expands far more states
// than one context check interval.
func wideMatches(items, merchants int) []domain.MatchResult {
	matches := make([]domain.MatchResult, 0, items)
	for i := 0; i < items; i++ {
		name := fmt.Sprintf("item-%d", i)
		matches = append(matches, matched(name, 40,
			offer(name, 10, fmt.Sprintf("m%d", i%merchants)),
			offer(name, 11, fmt.Sprintf("m%d", (i+1)%merchants)),
			offer(name, 12, fmt.Sprintf("m%d", (i+2)%merchants)),
			offer(name, 13, fmt.Sprintf("m%d", (i+5)%merchants)),
		))
	}
	return matches
}

func TestOptimalCombination_TimeoutFallsBackToGreedy(t *testing.T) {
	o := newTestOptimizer(time.Nanosecond)
	matches := wideMatches(14, 12)

	result, err := o.OptimalCombination(context.Background(), matches)
	if err != nil {
		t.Fatalf("OptimalCombination() error = %v", err)
	}
	if result.Algorithm != domain.AlgorithmGreedyFallback {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, domain.AlgorithmGreedyFallback)
	}

	assigned := 0
	for _, store := range result.Assignments {
		assigned += store.ItemCount
	}
	if assigned != len(matches) {
		t.Errorf("%d items assigned, want %d", assigned, len(matches))
	}
	if len(result.ItemDistribution) != len(matches) {
		t.Errorf("ItemDistribution has %d names, want %d", len(result.ItemDistribution), len(matches))
	}
}

func TestOptimalCombination_Cancelled(t *testing.T) {
	o := newTestOptimizer(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.OptimalCombination(ctx, wideMatches(14, 12))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGreedyChoices(t *testing.T) {
	matches := []domain.MatchResult{
		matched("A", 0, offer("A", 10, "x"), offer("A", 12, "y")),
		matched("B", 0, offer("B", 5, "y"), offer("B", 9, "x")),
		matched("C", 0, offer("C", 3, "z"), offer("C", 20, "y")),
	}
	groups, _ := buildItemGroups(matches)

	choices := greedyChoices(groups)

	var got []string
	for gi, choice := range choices {
		got = append(got, groups[gi].candidates[choice].merchantID)
	}
	// A takes its cheapest store, B reuses it, C has no candidate there
	if strings.Join(got, ",") != "x,x,z" {
		t.Errorf("greedy stores = %v, want x,x,z", got)
	}
}

func TestBuildItemGroups(t *testing.T) {
	matches := []domain.MatchResult{
		matched("A", 0, offer("A", 10, "x"), offer("A", 8, "y"), offer("A", 9, "x")),
		{Item: domain.LineItem{Name: "Unavailable"}},
		matched("B", 0, offer("B", 5, "z")),
	}

	groups, merchantCount := buildItemGroups(matches)

	if len(groups) != 2 || merchantCount != 3 {
		t.Fatalf("got %d groups over %d merchants, want 2 over 3", len(groups), merchantCount)
	}
	a := groups[0]
	if len(a.candidates) != 2 {
		t.Fatalf("A has %d candidates, want one per merchant", len(a.candidates))
	}
	if a.candidates[0].merchantID != "y" || a.candidates[1].merchantID != "x" || a.candidates[1].cost != 10 {
		t.Errorf("A candidates = %+v, want y then x at the best offer's price", a.candidates)
	}
}

func TestPotentialSavings(t *testing.T) {
	item := domain.LineItem{TotalPrice: 30}
	testCases := []struct {
		name  string
		offer *domain.CatalogOffer
		want  float64
	}{
		{name: "cheaper offer", offer: &domain.CatalogOffer{Price: 25}, want: 5},
		{name: "more expensive offer", offer: &domain.CatalogOffer{Price: 35}, want: 0},
		{name: "unpriced offer", offer: &domain.CatalogOffer{Price: 0}, want: 0},
		{name: "no offer", offer: nil, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := potentialSavings(item, tc.offer); got != tc.want {
				t.Errorf("potentialSavings() = %v, want %v", got, tc.want)
			}
		})
	}
}
